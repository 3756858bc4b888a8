// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// PointsAccount gamification balances, keyed by claimer email.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hintlabs/hint-server/internal/domain"
)

// AwardPoints adds delta points to the account for email, creating the
// account on first award. The whole operation is a single upsert so
// concurrent awards never lose an increment.
func AwardPoints(ctx context.Context, db *gorm.DB, email string, delta int) error {
	acct := &domain.PointsAccount{
		Email:     email,
		Balance:   delta,
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance":    gorm.Expr("balance + ?", delta),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(acct).Error
}

// GetPoints returns the account for email, or ErrNotFound when the email
// has never earned points.
func GetPoints(ctx context.Context, db *gorm.DB, email string) (*domain.PointsAccount, error) {
	var acct domain.PointsAccount
	if err := db.WithContext(ctx).Where("email = ?", email).First(&acct).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}
