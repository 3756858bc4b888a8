// Package services – DeviceService
//
// Push token registration and deactivation for owners. The dispatcher only
// ever reads active tokens; everything else about the push provider lives
// behind its REST interface.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/repo"
)

// ErrTokenNotFound is returned when deactivation matches no registered
// token for the owner.
var ErrTokenNotFound = errors.New("push token not found")

// DeviceService manages push token registrations.
type DeviceService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewDeviceService constructs a DeviceService.
func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{DB: db}
}

// Register upserts a device token for ownerID, reactivating it when it was
// previously deactivated or registered to another account.
func (s *DeviceService) Register(ctx context.Context, ownerID, token, platform string) (*domain.PushToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	return repo.UpsertPushToken(ctx, s.DB, ownerID, token, strings.TrimSpace(platform))
}

// Deactivate marks the owner's token inactive so the dispatcher stops
// targeting it.
func (s *DeviceService) Deactivate(ctx context.Context, ownerID, token string) error {
	if err := repo.DeactivatePushToken(ctx, s.DB, ownerID, strings.TrimSpace(token)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		return err
	}
	return nil
}
