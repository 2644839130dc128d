// Package token manages the OAuth2 credential lifecycle for GoHighLevel
// locations: storage, expiry checks and refresh against the token endpoint.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doctorsstudio/crmsync/internal/db/models"
)

// ErrNotFound is returned when no credential exists for a location.
var ErrNotFound = errors.New("no token found for location")

// Store persists OAuth2 tokens, one row per location.
type Store struct {
	db *gorm.DB
}

// NewStore creates a token store backed by the given database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetToken returns the token for a location, or ErrNotFound.
func (s *Store) GetToken(locationID string) (*models.OAuth2Token, error) {
	var tok models.OAuth2Token
	if err := s.db.Where("location_id = ?", locationID).First(&tok).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, locationID)
		}
		return nil, err
	}
	return &tok, nil
}

// List returns all stored tokens, most recently updated first.
func (s *Store) List() ([]models.OAuth2Token, error) {
	var toks []models.OAuth2Token
	if err := s.db.Order("updated_at DESC").Find(&toks).Error; err != nil {
		return nil, err
	}
	return toks, nil
}

// GetByID returns a token row by primary key.
func (s *Store) GetByID(id string) (*models.OAuth2Token, error) {
	var tok models.OAuth2Token
	if err := s.db.First(&tok, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tok, nil
}

// Upsert atomically creates or replaces the token row for a location.
// locationName is only written when non-empty so a refresh without a name
// never clears one set earlier.
func (s *Store) Upsert(locationID, accessToken, refreshToken string, expiresAt time.Time, locationName string) (*models.OAuth2Token, error) {
	var tok models.OAuth2Token
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("location_id = ?", locationID).First(&tok).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			tok = models.OAuth2Token{
				ID:           uuid.NewString(),
				LocationID:   locationID,
				LocationName: locationName,
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    expiresAt,
			}
			return tx.Create(&tok).Error
		case err != nil:
			return err
		}

		tok.AccessToken = accessToken
		tok.RefreshToken = refreshToken
		tok.ExpiresAt = expiresAt
		if locationName != "" {
			tok.LocationName = locationName
		}
		return tx.Save(&tok).Error
	})
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// ExpiringBefore returns tokens whose expiry (including the safety buffer)
// falls before the given threshold. Used by the scheduled refresh sweep.
func (s *Store) ExpiringBefore(threshold time.Time) ([]models.OAuth2Token, error) {
	var toks []models.OAuth2Token
	if err := s.db.Where("expires_at < ?", threshold.Add(models.ExpiryBuffer)).Find(&toks).Error; err != nil {
		return nil, err
	}
	return toks, nil
}
