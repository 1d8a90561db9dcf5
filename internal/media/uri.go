// Package media defines the backend-neutral entities the aggregation layer
// exchanges: albums, artists, audio tracks, genres and playlists, all keyed
// by opaque hierarchical URIs that carry the owning source's prefix.
package media

import (
	"net/url"
	"strings"
)

// URI identifies a media entity. It is hierarchical and opaque to callers;
// only the data source that minted it can interpret the segments. The first
// segments identify the source instance, so prefix comparison is sufficient
// for routing.
type URI string

// ParseURI validates raw as a URI and returns it.
func ParseURI(raw string) (URI, error) {
	if _, err := url.Parse(raw); err != nil {
		return "", err
	}
	return URI(raw), nil
}

// Append returns the URI extended with one path-escaped segment per argument.
func (u URI) Append(segments ...string) URI {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, strings.TrimSuffix(string(u), "/"))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return URI(strings.Join(parts, "/"))
}

// HasPrefix reports whether u lives under prefix. A segment boundary is
// required, so "server1/albums" is not under "server".
func (u URI) HasPrefix(prefix URI) bool {
	s, p := string(u), strings.TrimSuffix(string(prefix), "/")
	if !strings.HasPrefix(s, p) {
		return false
	}
	return len(s) == len(p) || s[len(p)] == '/'
}

// LastSegment returns the final, unescaped path segment.
func (u URI) LastSegment() string {
	s := strings.TrimSuffix(string(u), "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}

// Segments returns the unescaped path segments.
func (u URI) Segments() []string {
	raw := strings.Split(strings.Trim(string(u), "/"), "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg == "" {
			continue
		}
		if decoded, err := url.PathUnescape(seg); err == nil {
			seg = decoded
		}
		out = append(out, seg)
	}
	return out
}

func (u URI) String() string {
	return string(u)
}
