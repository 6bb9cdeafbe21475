// Package mediaurl recognizes the media source URLs the analysis service can
// ingest. Validation happens locally so malformed submissions never cost a
// network round-trip.
package mediaurl

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)

var recognizedHosts = map[string]struct{}{
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
	"youtu.be":          {},
}

// Recognize reports whether raw looks like a supported media URL and returns
// the extracted video identifier when it does.
func Recognize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if _, ok := recognizedHosts[host]; !ok {
		return "", false
	}

	var id string
	switch {
	case host == "youtu.be":
		id = strings.Trim(parsed.Path, "/")
	case strings.HasPrefix(parsed.Path, "/watch"):
		id = parsed.Query().Get("v")
	case strings.HasPrefix(parsed.Path, "/shorts/"):
		id = strings.Trim(strings.TrimPrefix(parsed.Path, "/shorts/"), "/")
	case strings.HasPrefix(parsed.Path, "/embed/"):
		id = strings.Trim(strings.TrimPrefix(parsed.Path, "/embed/"), "/")
	default:
		return "", false
	}

	if !videoIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}
