package feed

import (
	"strconv"
	"strings"
	"time"
)

// EncodeCursor renders a pagination cursor from a post creation time.
// The cursor is the creation time in unix nanoseconds; the next page
// contains only posts created strictly before it.
func EncodeCursor(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

// ParseCursor parses a client-supplied cursor. Parsing is lenient:
// empty, malformed, or non-positive cursors are treated as absent so a
// stale or garbled cursor restarts the feed instead of failing the
// request.
func ParseCursor(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || nanos <= 0 {
		return nil
	}

	t := time.Unix(0, nanos).UTC()
	return &t
}
