// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the ClaimReceipt
// model used to implement safe-retry semantics for the guest claim POST.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hintlabs/hint-server/internal/domain"
)

// GetClaimReceipt returns a non-expired receipt or ErrNotFound.
func GetClaimReceipt(ctx context.Context, db *gorm.DB, productID, key string, now time.Time) (*domain.ClaimReceipt, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.ClaimReceipt
	err := db.WithContext(ctx).
		Where("product_id = ? AND key = ? AND expires_at > ?", productID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateClaimReceipt inserts a receipt and returns ErrDuplicate on unique
// violation of (product_id, key). claimerEmail records who made the claim so
// a replay can be restricted to the same guest.
func CreateClaimReceipt(ctx context.Context, db *gorm.DB, productID, key, claimerEmail string, status int, ttl time.Duration) (*domain.ClaimReceipt, error) {
	now := time.Now().UTC()
	rec := &domain.ClaimReceipt{
		ID:           uuid.NewString(),
		ProductID:    productID,
		Key:          key,
		ClaimerEmail: claimerEmail,
		Status:       status,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
