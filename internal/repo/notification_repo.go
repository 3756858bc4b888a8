// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// append-only NotificationHistory audit log and for push token records.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hintlabs/hint-server/internal/domain"
)

// AppendNotification inserts one audit row. History rows are never updated
// or deleted by the application.
func AppendNotification(ctx context.Context, db *gorm.DB, h *domain.NotificationHistory) (*domain.NotificationHistory, error) {
	h.ID = uuid.NewString()
	h.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(h).Error; err != nil {
		return nil, err
	}
	return h, nil
}

// CountNotifications returns the total audit rows recorded for ownerID.
func CountNotifications(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.NotificationHistory{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error
	return total, err
}

// ListNotificationsPage returns a page of audit rows for ownerID, newest
// first.
func ListNotificationsPage(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.NotificationHistory, error) {
	var out []domain.NotificationHistory
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpsertPushToken registers a device token for ownerID, reactivating and
// re-owning the row when the same token was registered before (a device can
// change hands between accounts).
func UpsertPushToken(ctx context.Context, db *gorm.DB, ownerID, token, platform string) (*domain.PushToken, error) {
	var existing domain.PushToken
	err := db.WithContext(ctx).Where("token = ?", token).First(&existing).Error
	if err == nil {
		updates := map[string]any{
			"owner_id": ownerID,
			"platform": platform,
			"active":   true,
		}
		if uerr := db.WithContext(ctx).Model(&existing).Updates(updates).Error; uerr != nil {
			return nil, uerr
		}
		existing.OwnerID = ownerID
		existing.Platform = platform
		existing.Active = true
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	t := &domain.PushToken{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Token:     token,
		Platform:  platform,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if cerr := db.WithContext(ctx).Create(t).Error; cerr != nil {
		return nil, cerr
	}
	return t, nil
}

// DeactivatePushToken marks a token inactive for ownerID. Returns
// ErrNotFound when the owner has no such token.
func DeactivatePushToken(ctx context.Context, db *gorm.DB, ownerID, token string) error {
	res := db.WithContext(ctx).
		Model(&domain.PushToken{}).
		Where("owner_id = ? AND token = ?", ownerID, token).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ActivePushTokens returns the active device tokens registered for ownerID,
// oldest first. An empty slice simply means the owner has no push targets.
func ActivePushTokens(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.PushToken, error) {
	var out []domain.PushToken
	err := db.WithContext(ctx).
		Where("owner_id = ? AND active = ?", ownerID, true).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
