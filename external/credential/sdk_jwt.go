package credential

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/showheysas/tech0notta/internal/credential"
	"github.com/showheysas/tech0notta/internal/errs"
)

// SDKJWTIssuer signs meeting SDK join tokens with HS256.
type SDKJWTIssuer struct {
	key    string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSDKJWTIssuer(key, secret string, ttl time.Duration) *SDKJWTIssuer {
	return &SDKJWTIssuer{
		key:    key,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *SDKJWTIssuer) Configured() bool {
	return s.key != "" && len(s.secret) > 0
}

func (s *SDKJWTIssuer) Issue(_ context.Context, meetingID string, role credential.Role) (string, error) {
	if !s.Configured() {
		return "", errs.Configuration("ZOOM_SDK_KEY and ZOOM_SDK_SECRET are required")
	}
	mn := digitsOnly(meetingID)
	if mn == "" {
		return "", errs.Validation("meeting number has no digits")
	}

	iat := s.now().Unix()
	exp := iat + int64(s.ttl/time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"appKey":   s.key,
		"mn":       mn,
		"role":     int(role),
		"iat":      iat,
		"exp":      exp,
		"tokenExp": exp,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign sdk token: %w", err)
	}
	slog.Info("sdk token issued", "meeting_id", mn, "role", int(role), "exp", exp)
	return signed, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
