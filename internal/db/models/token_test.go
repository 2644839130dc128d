package models

import (
	"testing"
	"time"
)

func TestOAuth2TokenIsExpired(t *testing.T) {
	cases := []struct {
		name      string
		expiresIn time.Duration
		want      bool
	}{
		{"already expired", -time.Hour, true},
		{"inside the buffer", 4 * time.Minute, true},
		{"just outside the buffer", 10 * time.Minute, false},
		{"far from expiry", 24 * time.Hour, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tok := OAuth2Token{ExpiresAt: time.Now().Add(c.expiresIn)}
			if got := tok.IsExpired(); got != c.want {
				t.Errorf("IsExpired() with %v left = %v, want %v", c.expiresIn, got, c.want)
			}
		})
	}
}
