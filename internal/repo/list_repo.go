// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the List model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a list is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
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

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique-constraint violation (access code or
// idempotency tuple already present).
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation classifies a gorm/sqlite error as a unique-constraint
// failure. glebarez/sqlite often reports these as plain-text errors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// CreateList inserts a new List row owned by ownerID. The list ID is a
// randomly generated UUID, CreatedAt is set to UTC, and the access code must
// already be generated and upper-cased by the caller. Returns ErrDuplicate
// when the access code collides with an existing list.
func CreateList(ctx context.Context, db *gorm.DB, l *domain.List) (*domain.List, error) {
	l.ID = uuid.NewString()
	l.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return l, nil
}

// GetList fetches a single list by its ID and owner. If the record does not
// exist (or belongs to someone else), it returns ErrNotFound.
func GetList(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.List, error) {
	var l domain.List
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListByID fetches a list by primary key regardless of owner. Used by the
// guest path after code resolution, where ownership is irrelevant.
func GetListByID(ctx context.Context, db *gorm.DB, id string) (*domain.List, error) {
	var l domain.List
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// ResolveListByCode returns the single public list whose access code equals
// code. Zero matches (wrong code, or a private list with that code) yield
// ErrNotFound; the two cases are deliberately indistinguishable so the
// endpoint never leaks the existence of private lists.
func ResolveListByCode(ctx context.Context, db *gorm.DB, code string) (*domain.List, error) {
	var l domain.List
	err := db.WithContext(ctx).
		Where("access_code = ? AND is_public = ?", code, true).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CountLists returns the total number of lists owned by ownerID.
func CountLists(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.List{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error
	return total, err
}

// ListListsPage returns a paginated slice of lists for ownerID, ordered by
// creation time descending. Use CountLists to obtain the total for
// pagination metadata.
func ListListsPage(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.List, error) {
	var out []domain.List
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListUpdate carries the owner-mutable fields of a list. Nil pointers mean
// "leave unchanged".
type ListUpdate struct {
	Name              *string
	IsPublic          *bool
	EventDate         *time.Time
	ClearEventDate    bool
	NotificationLevel *string
}

// UpdateList applies upd to the list identified by id and owned by ownerID.
// If no rows are affected (list missing or not owned by ownerID), it returns
// ErrNotFound.
func UpdateList(ctx context.Context, db *gorm.DB, id, ownerID string, upd ListUpdate) error {
	fields := map[string]any{}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.IsPublic != nil {
		fields["is_public"] = *upd.IsPublic
	}
	if upd.ClearEventDate {
		fields["event_date"] = nil
	} else if upd.EventDate != nil {
		fields["event_date"] = *upd.EventDate
	}
	if upd.NotificationLevel != nil {
		fields["notification_level"] = *upd.NotificationLevel
	}
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.List{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
