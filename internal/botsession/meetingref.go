package botsession

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/showheysas/tech0notta/internal/errs"
)

var joinPathPattern = regexp.MustCompile(`/j/(\d+)`)

// MeetingRef is a parsed meeting reference.
type MeetingRef struct {
	ID       string
	Password string
}

// ParseMeetingRef accepts a bare meeting number or a join URL. A pwd query
// parameter in the URL is used unless password is non-empty.
func ParseMeetingRef(ref, password string) (MeetingRef, error) {
	ref = strings.TrimSpace(ref)
	var out MeetingRef
	if looksLikeURL(ref) {
		if m := joinPathPattern.FindStringSubmatch(ref); m != nil {
			out.ID = m[1]
		}
		if u, err := url.Parse(ref); err == nil {
			out.Password = u.Query().Get("pwd")
		}
	} else {
		out.ID = strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) && r <= unicode.MaxASCII {
				return r
			}
			return -1
		}, ref)
	}
	if password != "" {
		out.Password = password
	}
	if out.ID == "" {
		return MeetingRef{}, errs.Validation("no meeting id in " + quoteOrEmpty(ref))
	}
	return out, nil
}

// meetingKey normalizes a reference for lookups, falling back to the raw
// trimmed input when it does not parse.
func meetingKey(ref string) string {
	if m, err := ParseMeetingRef(ref, ""); err == nil {
		return m.ID
	}
	return strings.TrimSpace(ref)
}

func looksLikeURL(ref string) bool {
	return strings.Contains(ref, "://") || strings.Contains(ref, "/j/")
}

func quoteOrEmpty(s string) string {
	if s == "" {
		return "empty reference"
	}
	return `"` + s + `"`
}
