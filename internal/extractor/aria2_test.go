package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"medidown/internal/model"
)

// rpcStub fakes an aria2c JSON-RPC endpoint: addUri hands out a gid,
// tellStatus walks through a scripted sequence of statuses.
type rpcStub struct {
	statuses    []aria2Status
	calls       atomic.Int64
	removed     atomic.Bool
	secret      string
	lastTokenOK atomic.Bool
}

func (s *rpcStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}

		if s.secret != "" {
			token, _ := req.Params[0].(string)
			s.lastTokenOK.Store(token == "token:"+s.secret)
		}

		var result any
		switch req.Method {
		case "aria2.addUri":
			result = "gid-123"
		case "aria2.tellStatus":
			i := s.calls.Add(1) - 1
			if int(i) >= len(s.statuses) {
				i = int64(len(s.statuses) - 1)
			}
			result = s.statuses[i]
		case "aria2.forceRemove", "aria2.removeDownloadResult":
			s.removed.Store(true)
			result = "gid-123"
		}

		raw, _ := json.Marshal(result)
		json.NewEncoder(w).Encode(rpcResponse{ID: req.ID, Result: raw})
	}
}

func newTestAria2(t *testing.T, stub *rpcStub) *Aria2 {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	a := NewAria2(srv.URL, stub.secret, time.Second)
	a.pollInterval = 5 * time.Millisecond
	return a
}

func TestAria2FetchComplete(t *testing.T) {
	stub := &rpcStub{
		secret: "s3cret",
		statuses: []aria2Status{
			{Status: "active", TotalLength: "1000", CompletedLength: "250", DownloadSpeed: "100"},
			{Status: "active", TotalLength: "1000", CompletedLength: "800", DownloadSpeed: "100"},
			{Status: "complete", TotalLength: "1000", CompletedLength: "1000", DownloadSpeed: "0"},
		},
	}
	a := newTestAria2(t, stub)

	var samples []float64
	result, err := a.Fetch(context.Background(), Request{
		TaskID:  "task-1",
		URL:     "https://cdn.example.com/media/video.mp4",
		DestDir: t.TempDir(),
	}, func(percent float64, speed string, etaSec int) {
		samples = append(samples, percent)
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(samples) < 2 {
		t.Fatalf("expected progress samples, got %v", samples)
	}
	for i := 1; i < len(samples); i++ {
		if samples[i] < samples[i-1] {
			t.Errorf("progress regressed: %v", samples)
		}
	}
	if result.Path == "" || !stub.lastTokenOK.Load() {
		t.Errorf("expected artifact path and rpc secret token, got %+v", result)
	}
}

func TestAria2FetchError(t *testing.T) {
	stub := &rpcStub{
		statuses: []aria2Status{
			{Status: "error", ErrorMessage: "HTTP Error 503: Service Unavailable"},
		},
	}
	a := newTestAria2(t, stub)

	_, err := a.Fetch(context.Background(), Request{
		TaskID:  "task-2",
		URL:     "https://cdn.example.com/media/video.mp4",
		DestDir: t.TempDir(),
	}, func(float64, string, int) {})
	if err == nil {
		t.Fatal("expected an error")
	}
	if model.KindOf(err) != model.KindUpstreamUnavailable {
		t.Errorf("expected upstream_unavailable, got %v", model.KindOf(err))
	}
	if !stub.removed.Load() {
		t.Error("failed download should be removed from the daemon")
	}
}

func TestAria2FetchCanceled(t *testing.T) {
	stub := &rpcStub{
		statuses: []aria2Status{
			{Status: "active", TotalLength: "1000", CompletedLength: "10", DownloadSpeed: "1"},
		},
	}
	a := newTestAria2(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := a.Fetch(ctx, Request{
		TaskID:  "task-3",
		URL:     "https://cdn.example.com/media/video.mp4",
		DestDir: t.TempDir(),
	}, func(float64, string, int) {})
	if model.KindOf(err) != model.KindCanceled {
		t.Fatalf("expected canceled, got %v", err)
	}
	if !stub.removed.Load() {
		t.Error("canceled download should be force-removed from the daemon")
	}
}

func TestOutputExt(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/a/video.mp4":   ".mp4",
		"https://cdn.example.com/a/sound.m4a":   ".m4a",
		"https://cdn.example.com/stream":        ".bin",
		"https://cdn.example.com/weird.toolong": ".bin",
	}
	for url, want := range cases {
		if got := outputExt(url); got != want {
			t.Errorf("outputExt(%q) = %q, want %q", url, got, want)
		}
	}
}
