package model

import (
	"net/url"
	"strings"
)

// PlatformGeneric labels URLs on hosts outside the known platform set.
// They are still accepted; the extractor decides whether it can handle them.
const PlatformGeneric = "generic"

// platformHosts maps host suffixes to platform labels.
var platformHosts = map[string]string{
	"youtube.com":   "youtube",
	"youtu.be":      "youtube",
	"tiktok.com":    "tiktok",
	"instagram.com": "instagram",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"facebook.com":  "facebook",
	"fb.watch":      "facebook",
	"reddit.com":    "reddit",
	"pinterest.com": "pinterest",
	"pin.it":        "pinterest",
	"snapchat.com":  "snapchat",
	"linkedin.com":  "linkedin",
	"naver.com":     "naver",
}

// KnownPlatform reports whether name is a recognized platform identifier.
func KnownPlatform(name string) bool {
	if name == PlatformGeneric {
		return true
	}
	for _, p := range platformHosts {
		if p == name {
			return true
		}
	}
	return false
}

// DetectPlatform infers the platform label from the URL host. Unknown hosts
// map to PlatformGeneric.
func DetectPlatform(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformGeneric
	}
	host := strings.ToLower(u.Hostname())
	for suffix, platform := range platformHosts {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return platform
		}
	}
	return PlatformGeneric
}

// Format selectors accepted by the API. They are translated to tool-specific
// selector strings by the extractor adapter.
const (
	FormatBest  = "best"
	FormatMP4   = "mp4"
	FormatMP3   = "mp3"
	FormatAudio = "audio"
)

// ValidFormat reports whether f is a recognized format identifier.
func ValidFormat(f string) bool {
	switch f {
	case FormatBest, FormatMP4, FormatMP3, FormatAudio:
		return true
	}
	return false
}
