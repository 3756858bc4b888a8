// Package services – ListService
//
// This file implements the owner-facing lifecycle of lists and their
// products. It validates and normalizes display names, generates unique
// access codes, enforces ownership on every mutation, and coordinates
// repository operations for creating, listing (with pagination), and
// updating lists and products. Guests never reach this code.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/repo"
)

// Access code generation parameters. The alphabet omits 0/O and 1/I so the
// codes survive being read aloud or handwritten.
const (
	accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	accessCodeLength   = 6
	accessCodeRetries  = 5
)

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// ListService provides list- and product-level operations for owners.
type ListService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// NameMaxLen caps stored display names by rune length.
	NameMaxLen int
}

// NewListService constructs a ListService with sane defaults.
func NewListService(db *gorm.DB) *ListService {
	return &ListService{DB: db, NameMaxLen: 120}
}

// normalizeName trims whitespace and collapses runs of spaces to one.
func normalizeName(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// clip truncates a display name to the configured maximum rune length.
func (s *ListService) clip(name string) string {
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		return string([]rune(name)[:s.NameMaxLen])
	}
	return name
}

// newAccessCode draws a short upper-case code from the restricted alphabet.
func newAccessCode() (string, error) {
	buf := make([]byte, accessCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = accessCodeAlphabet[int(b)%len(accessCodeAlphabet)]
	}
	return string(buf), nil
}

// Create inserts a new list owned by ownerID, generating a unique access
// code. Collisions are retried a handful of times; at the configured code
// length the retry budget is effectively never spent.
func (s *ListService) Create(ctx context.Context, ownerID, ownerName, ownerEmail, name string, isPublic bool, eventDate *time.Time, level string) (*domain.List, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyListName
	}
	if level == "" {
		level = domain.NotifyBoth
	}
	if !domain.ValidNotificationLevel(level) {
		return nil, ErrInvalidNotificationLevel
	}

	for attempt := 0; attempt < accessCodeRetries; attempt++ {
		code, err := newAccessCode()
		if err != nil {
			return nil, err
		}
		l := &domain.List{
			OwnerID:           ownerID,
			OwnerName:         strings.TrimSpace(ownerName),
			OwnerEmail:        strings.TrimSpace(ownerEmail),
			Name:              s.clip(name),
			AccessCode:        code,
			IsPublic:          isPublic,
			EventDate:         eventDate,
			NotificationLevel: level,
		}
		created, err := repo.CreateList(ctx, s.DB, l)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
	}
	return nil, ErrCodeExhausted
}

// Get fetches a list owned by ownerID, or ErrListNotFound.
func (s *ListService) Get(ctx context.Context, id, ownerID string) (*domain.List, error) {
	l, err := repo.GetList(ctx, s.DB, id, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return l, nil
}

// ListPage returns a page of the owner's lists and the total count.
// It applies defaults for invalid page/pageSize.
func (s *ListService) ListPage(ctx context.Context, ownerID string, page, pageSize int) ([]domain.List, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountLists(ctx, s.DB, ownerID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.List{}, 0, nil
	}

	items, err := repo.ListListsPage(ctx, s.DB, ownerID, offset, pageSize)
	return items, total, err
}

// Update applies the owner-mutable fields to a list, validating the
// notification level and normalizing the name when present.
func (s *ListService) Update(ctx context.Context, id, ownerID string, upd repo.ListUpdate) error {
	if upd.Name != nil {
		n := normalizeName(*upd.Name)
		if n == "" {
			return ErrEmptyListName
		}
		n = s.clip(n)
		upd.Name = &n
	}
	if upd.NotificationLevel != nil && !domain.ValidNotificationLevel(*upd.NotificationLevel) {
		return ErrInvalidNotificationLevel
	}
	if err := repo.UpdateList(ctx, s.DB, id, ownerID, upd); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrListNotFound
		}
		return err
	}
	return nil
}

// AddProduct inserts a product under a list the owner controls.
func (s *ListService) AddProduct(ctx context.Context, ownerID, listID string, p *domain.Product) (*domain.Product, error) {
	p.Name = normalizeName(p.Name)
	if p.Name == "" {
		return nil, ErrEmptyProductName
	}
	// Ensure the list exists and belongs to the owner.
	if _, err := repo.GetList(ctx, s.DB, listID, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	p.ListID = listID
	p.Name = s.clip(p.Name)
	return repo.CreateProduct(ctx, s.DB, p)
}

// Products returns every product of a list the owner controls, in
// insertion order.
func (s *ListService) Products(ctx context.Context, ownerID, listID string) ([]domain.Product, error) {
	if _, err := repo.GetList(ctx, s.DB, listID, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return repo.ListProducts(ctx, s.DB, listID)
}

// UpdateProduct applies the owner-mutable product fields.
func (s *ListService) UpdateProduct(ctx context.Context, ownerID, productID string, upd repo.ProductUpdate) error {
	if upd.Name != nil {
		n := normalizeName(*upd.Name)
		if n == "" {
			return ErrEmptyProductName
		}
		n = s.clip(n)
		upd.Name = &n
	}
	if err := repo.UpdateProduct(ctx, s.DB, productID, ownerID, upd); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

// RemoveProduct soft-deletes a product the owner controls.
func (s *ListService) RemoveProduct(ctx context.Context, ownerID, productID string) error {
	if err := repo.DeleteProduct(ctx, s.DB, productID, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}
