package model

import "testing"

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc", "youtube"},
		{"https://youtu.be/abc", "youtube"},
		{"https://m.tiktok.com/v/123", "tiktok"},
		{"https://x.com/user/status/1", "twitter"},
		{"https://fb.watch/xyz", "facebook"},
		{"https://example.com/video/123", PlatformGeneric},
		{"https://notyoutube.com/v", PlatformGeneric},
	}

	for _, tc := range cases {
		if got := DetectPlatform(tc.url); got != tc.want {
			t.Errorf("DetectPlatform(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestKnownPlatform(t *testing.T) {
	for _, name := range []string{"youtube", "tiktok", "instagram", PlatformGeneric} {
		if !KnownPlatform(name) {
			t.Errorf("%q should be known", name)
		}
	}
	if KnownPlatform("myspace") {
		t.Error("myspace should not be known")
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{FormatBest, FormatMP4, FormatMP3, FormatAudio} {
		if !ValidFormat(f) {
			t.Errorf("%q should be valid", f)
		}
	}
	if ValidFormat("flac") || ValidFormat("") {
		t.Error("unknown formats must be rejected")
	}
}
