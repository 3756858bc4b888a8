// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Product
// model, including the conditional claim/unclaim writes that keep the guest
// workflow race-safe.
//
// Claim semantics:
//   - ClaimProduct only matches a row that is currently unclaimed (no
//     registered claimant and an empty guest email). Two concurrent claims
//     therefore cannot overwrite each other; the loser sees zero rows
//     affected and the caller reports a distinguishable conflict.
//   - UnclaimProduct only matches a row whose unclaim token equals the
//     presented credential, so an already-consumed link simply matches
//     nothing instead of clobbering a newer claim.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hintlabs/hint-server/internal/domain"
)

// CreateProduct inserts a new Product row under listID.
func CreateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) (*domain.Product, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduct fetches a product by primary key, or ErrNotFound.
func GetProduct(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOwnedProduct fetches a product by ID, ensuring its parent list belongs
// to ownerID. Returns ErrNotFound when the product is missing or the list is
// owned by someone else.
func GetOwnedProduct(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Joins("JOIN lists ON lists.id = products.list_id AND lists.owner_id = ? AND lists.deleted_at IS NULL", ownerID).
		Where("products.id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns all products of a list in insertion order (creation
// time ascending). An empty slice is a valid result.
func ListProducts(ctx context.Context, db *gorm.DB, listID string) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// ProductUpdate carries the owner-mutable fields of a product. Nil pointers
// mean "leave unchanged".
type ProductUpdate struct {
	Name        *string
	URL         *string
	ImageURL    *string
	Price       *float64
	TargetPrice *float64
}

// UpdateProduct applies upd to the product identified by id whose parent
// list belongs to ownerID. Returns ErrNotFound when nothing matched.
func UpdateProduct(ctx context.Context, db *gorm.DB, id, ownerID string, upd ProductUpdate) error {
	fields := map[string]any{}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.URL != nil {
		fields["url"] = *upd.URL
	}
	if upd.ImageURL != nil {
		fields["image_url"] = *upd.ImageURL
	}
	if upd.Price != nil {
		fields["price"] = *upd.Price
	}
	if upd.TargetPrice != nil {
		fields["target_price"] = *upd.TargetPrice
	}
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND list_id IN (?)", id,
			db.Model(&domain.List{}).Select("id").Where("owner_id = ?", ownerID)).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteProduct soft-deletes a product owned (via its list) by ownerID.
// Returns ErrNotFound when nothing matched.
func DeleteProduct(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND list_id IN (?)", id,
			db.Model(&domain.List{}).Select("id").Where("owner_id = ?", ownerID)).
		Delete(&domain.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClaimProduct writes the guest claim onto the product row in a single
// conditional update scoped to "currently unclaimed". It returns true when
// the row was claimed by this call and false when the product was already
// claimed by someone else (zero rows matched).
//
// The predicate trims the claimant columns so it agrees with
// Product.Claimed(): a row holding only whitespace residue counts as
// available here too, not as permanently stuck.
//
// The caller distinguishes "already claimed" from "no such product" by
// fetching the row afterwards.
func ClaimProduct(ctx context.Context, db *gorm.DB, productID, guestName, guestEmail, token string, claimedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND TRIM(claimed_by) = '' AND TRIM(guest_email) = ''", productID).
		Updates(map[string]any{
			"guest_name":    guestName,
			"guest_email":   guestEmail,
			"claimed_at":    claimedAt,
			"unclaim_token": token,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GetProductByToken fetches a product by id AND unclaim credential. Zero
// matches means the link is invalid or already consumed; callers surface
// that as a terminal invalid-link state.
func GetProductByToken(ctx context.Context, db *gorm.DB, productID, token string) (*domain.Product, error) {
	if token == "" {
		// A cleared credential is the empty string; never let an empty
		// presented token match an unclaimed row.
		return nil, ErrNotFound
	}
	var p domain.Product
	err := db.WithContext(ctx).
		Where("id = ? AND unclaim_token = ?", productID, token).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UnclaimProduct clears every claim field (registered claimant, guest
// name/email, timestamp, credential) in one update conditioned on
// id+credential. It returns true when a row was cleared and false when the
// credential no longer matches (already consumed or never valid).
func UnclaimProduct(ctx context.Context, db *gorm.DB, productID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND unclaim_token = ?", productID, token).
		Updates(map[string]any{
			"claimed_by":    "",
			"guest_name":    "",
			"guest_email":   "",
			"claimed_at":    nil,
			"unclaim_token": "",
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
