package utils

import (
	"net/url"
	"path"
	"strings"
)

// genericNames are manifest basenames that say nothing about the content.
var genericNames = map[string]bool{
	"master":    true,
	"index":     true,
	"playlist":  true,
	"manifest":  true,
	"main":      true,
	"stream":    true,
	"video":     true,
	"chunklist": true,
}

// DefaultOutputName suggests a save name for a manifest URL.
// Example: https://cdn.example.com/shows/ep01/master.m3u8 -> ep01
func DefaultOutputName(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return "download"
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg, _ := url.PathUnescape(segments[i])
		name := strings.TrimSuffix(seg, path.Ext(seg))
		if name == "" || genericNames[strings.ToLower(name)] {
			continue
		}
		if clean := SanitizeName(name); clean != "" {
			return clean
		}
	}

	return SanitizeName(strings.ReplaceAll(parsed.Hostname(), ".", "_"))
}

// SanitizeName strips characters that are not allowed in file names.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(strings.TrimSpace(b.String()), ".")
}
