package handlers

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

const maxTitleLength = 200

var (
	unsafeTitleChars = regexp.MustCompile(`[\\/:*?"<>|]+`)
	titleWhitespace  = regexp.MustCompile(`\s+`)
)

// sanitizeTitle turns a video title into a safe filename base: unsafe
// characters become underscores, whitespace collapses, unprintable runes are
// dropped and the result is length-capped. Empty input falls back to "audio".
func sanitizeTitle(name string) string {
	name = unsafeTitleChars.ReplaceAllString(name, "_")
	name = titleWhitespace.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, name)

	if runes := []rune(name); len(runes) > maxTitleLength {
		name = strings.TrimRight(string(runes[:maxTitleLength]), " ")
	}
	if name == "" {
		return "audio"
	}
	return name
}

// cleanSourceURL normalizes music.youtube.com links, expands youtu.be short
// links and strips every query parameter except the video id, which keeps
// session noise (si=...) from confusing the extraction tool.
func cleanSourceURL(raw string) string {
	raw = strings.Replace(raw, "music.youtube.com", "www.youtube.com", 1)

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if strings.HasSuffix(u.Host, "youtu.be") && u.Path != "" {
		vid := strings.TrimPrefix(u.Path, "/")
		watch := url.URL{
			Scheme:   u.Scheme,
			Host:     "www.youtube.com",
			Path:     "/watch",
			RawQuery: url.Values{"v": {vid}}.Encode(),
		}
		return watch.String()
	}

	if vid := u.Query().Get("v"); vid != "" {
		u.RawQuery = url.Values{"v": {vid}}.Encode()
		u.Fragment = ""
		return u.String()
	}
	return raw
}
