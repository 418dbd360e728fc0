package model

import "testing"

func TestStatusPredicates(t *testing.T) {
	active := []TaskStatus{StatusQueued, StatusRunning}
	terminal := []TaskStatus{StatusFinished, StatusError, StatusCanceled}

	for _, st := range active {
		if !st.IsActive() {
			t.Errorf("%s should be active", st)
		}
		if st.IsTerminal() {
			t.Errorf("%s should not be terminal", st)
		}
	}
	for _, st := range terminal {
		if st.IsActive() {
			t.Errorf("%s should not be active", st)
		}
		if !st.IsTerminal() {
			t.Errorf("%s should be terminal", st)
		}
	}
}

func TestKindOf(t *testing.T) {
	err := NewTaskError(KindCapacity, "at capacity", nil)
	if KindOf(err) != KindCapacity {
		t.Errorf("expected capacity kind, got %s", KindOf(err))
	}
	if KindOf(ErrTaskNotFound) != "" {
		t.Error("plain errors have no kind")
	}
}
