// Package services – AccessService
//
// This file implements the access resolver: mapping a human-entered short
// code to a list resource. Codes are stored upper-case; lookups upper-case
// the input first so "gift24" and "GIFT24" resolve identically. Only lists
// marked public are resolvable, and a private list resolves exactly like a
// wrong code.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/repo"
)

// AccessService resolves guest access codes to lists. It has no side
// effects.
type AccessService struct {
	// DB is the GORM handle used for lookups.
	DB *gorm.DB
}

// NewAccessService constructs an AccessService.
func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// NormalizeCode trims and upper-cases a user-entered access code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolve returns the public list whose access code equals code, or
// ErrListNotFound when zero rows match. The error does not distinguish
// wrong codes from private lists.
func (s *AccessService) Resolve(ctx context.Context, code string) (*domain.List, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrListNotFound
	}
	l, err := repo.ResolveListByCode(ctx, s.DB, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return l, nil
}

// Items returns every product of the resolved list in insertion order.
func (s *AccessService) Items(ctx context.Context, listID string) ([]domain.Product, error) {
	return repo.ListProducts(ctx, s.DB, listID)
}
