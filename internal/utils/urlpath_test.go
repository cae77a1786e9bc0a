package utils

import (
	"testing"
)

func TestDefaultOutputName(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "Descriptive manifest name",
			url:      "https://cdn.example.com/videos/big_buck_bunny.m3u8",
			expected: "big_buck_bunny",
		},
		{
			name:     "Generic manifest uses parent directory",
			url:      "https://cdn.example.com/shows/ep01/master.m3u8",
			expected: "ep01",
		},
		{
			name:     "DASH manifest",
			url:      "https://cdn.example.com/movies/trailer/manifest.mpd?token=abc",
			expected: "trailer",
		},
		{
			name:     "Smooth streaming",
			url:      "https://cdn.example.com/live/concert.ism/Manifest",
			expected: "concert",
		},
		{
			name:     "Escaped characters",
			url:      "https://cdn.example.com/My%20Show/index.m3u8",
			expected: "My Show",
		},
		{
			name:     "Only generic segments falls back to host",
			url:      "https://cdn.example.com/master.m3u8",
			expected: "cdn_example_com",
		},
		{
			name:     "Invalid URL",
			url:      "://invalid",
			expected: "download",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultOutputName(tt.url); got != tt.expected {
				t.Errorf("DefaultOutputName(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{`a/b\c`, "a_b_c"},
		{"what?*", "what__"},
		{"  .hidden. ", "hidden"},
		{"tab\there", "tab_here"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
