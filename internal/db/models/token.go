package models

import "time"

// ExpiryBuffer is the safety window before the real expiry during which a
// token is already treated as expired, so callers refresh ahead of time.
const ExpiryBuffer = 5 * time.Minute

// OAuth2Token stores the GoHighLevel OAuth credential for one location.
type OAuth2Token struct {
	ID           string    `gorm:"primaryKey" json:"id"` // UUID
	LocationID   string    `gorm:"uniqueIndex" json:"location_id"`
	LocationName string    `json:"location_name"`
	AccessToken  string    `gorm:"type:text" json:"-"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsExpired reports whether the token is expired or about to expire.
func (t *OAuth2Token) IsExpired() bool {
	return !time.Now().Add(ExpiryBuffer).Before(t.ExpiresAt)
}

// Token request types and outcomes for TokenRequestLog.
const (
	RequestTypeAuth    = "auth"
	RequestTypeRefresh = "refresh"
	RequestTypeRevoke  = "revoke"

	RequestStatusSuccess = "success"
	RequestStatusError   = "error"
)

// TokenRequestLog is the append-only audit trail of token endpoint calls.
// TokenID is nullable: during the initial authorization no token row exists yet.
type TokenRequestLog struct {
	ID           string  `gorm:"primaryKey" json:"id"` // UUID
	TokenID      *string `gorm:"index" json:"token_id,omitempty"`
	RequestType  string  `json:"request_type"`
	Status       string  `json:"status"`
	ErrorMessage string  `gorm:"type:text" json:"error_message,omitempty"`
	RequestData  string  `gorm:"type:text" json:"request_data,omitempty"`
	ResponseData string  `gorm:"type:text" json:"response_data,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
