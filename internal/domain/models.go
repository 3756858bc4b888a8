// Package domain defines the persistence models for gift lists, products,
// push tokens, notification history, and points accounts. These types are
// mapped with GORM and form the core data layer of the hint backend.
package domain

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Notification levels control how much detail a claim push reveals to the
// list owner. Stored per list, chosen by the owner.
const (
	NotifyNone     = "none"      // suppress owner push/email entirely
	NotifyWhoOnly  = "who_only"  // reveal claimer identity, hide item name
	NotifyWhatOnly = "what_only" // reveal item name, hide claimer identity
	NotifyBoth     = "both"      // reveal both
)

// ValidNotificationLevel reports whether s is one of the supported
// notification-level preferences.
func ValidNotificationLevel(s string) bool {
	switch s {
	case NotifyNone, NotifyWhoOnly, NotifyWhatOnly, NotifyBoth:
		return true
	}
	return false
}

// List represents a shareable gift list owned by a registered user.
// Guests reach a list through its short access code; only the owner
// may mutate it.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - OwnerID: identifier of the owning user; indexed for owner queries.
//   - OwnerName / OwnerEmail: contact snapshot used when composing owner
//     notifications (the account system itself lives outside this service).
//   - Name: display name of the list.
//   - AccessCode: short, upper-case, human-typeable code; unique.
//   - IsPublic: guests can resolve the list only while true.
//   - EventDate: optional key date (birthday, wedding, ...).
//   - NotificationLevel: one of none|who_only|what_only|both.
type List struct {
	ID                string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	OwnerID           string         `json:"owner_id"           gorm:"type:varchar(64);not null;index:idx_owner_lists"`
	OwnerName         string         `json:"owner_name"         gorm:"type:varchar(255);not null;default:''"`
	OwnerEmail        string         `json:"owner_email"        gorm:"type:varchar(255);not null;default:''"`
	Name              string         `json:"name"               gorm:"type:varchar(255);not null"`
	AccessCode        string         `json:"access_code"        gorm:"type:varchar(16);not null;uniqueIndex:ux_lists_access_code"`
	IsPublic          bool           `json:"is_public"          gorm:"not null;default:false"`
	EventDate         *time.Time     `json:"event_date,omitempty"`
	NotificationLevel string         `json:"notification_level" gorm:"type:varchar(16);not null;default:'both';check:notification_level IN ('none','who_only','what_only','both')"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-"                  gorm:"index"`
}

// TableName returns the database table name for List.
func (List) TableName() string { return "lists" }

// Product is a gift item within a list, optionally price-tracked.
// A product is claimed either by a registered user (ClaimedBy) or by a
// guest (GuestName/GuestEmail); the two modes never coexist. While a
// product is guest-claimed it carries a single-use unclaim token that
// authorizes reversal via a mailed link.
type Product struct {
	ID          string   `json:"id"           gorm:"type:char(36);primaryKey"`
	ListID      string   `json:"list_id"      gorm:"type:char(36);not null;index:idx_list_products,priority:1"`
	Name        string   `json:"name"         gorm:"type:varchar(255);not null"`
	URL         string   `json:"url,omitempty"       gorm:"type:text"`
	ImageURL    string   `json:"image_url,omitempty" gorm:"type:text"`
	Price       *float64 `json:"price,omitempty"`
	TargetPrice *float64 `json:"target_price,omitempty"` // price-alert threshold
	ClaimedBy   string   `json:"claimed_by,omitempty"  gorm:"type:varchar(64);not null;default:''"`
	GuestName   string   `json:"guest_name,omitempty"  gorm:"type:varchar(255);not null;default:''"`
	GuestEmail  string   `json:"guest_email,omitempty" gorm:"type:varchar(255);not null;default:''"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	// UnclaimToken exists only while the product is guest-claimed and is
	// cleared together with the guest fields on unclaim. Never serialized.
	UnclaimToken string         `json:"-"          gorm:"type:varchar(64);not null;default:'';index"`
	CreatedAt    time.Time      `json:"created_at" gorm:"index:idx_list_products,priority:2"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"          gorm:"index"`

	// List is the parent list. Products are cascade-deleted with it.
	List List `json:"-" gorm:"foreignKey:ListID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Claimed reports whether the product is reserved by anyone. An empty or
// all-whitespace guest email counts as absent, so a row whose guest fields
// were cleared back to "" is available again.
func (p *Product) Claimed() bool {
	return strings.TrimSpace(p.ClaimedBy) != "" || strings.TrimSpace(p.GuestEmail) != ""
}

// NotificationHistory is an append-only audit record of every notification
// decision made by the dispatcher. Rows are written even when the owner's
// preference suppressed the actual push, and are never mutated or deleted.
type NotificationHistory struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	OwnerID   string    `json:"owner_id"   gorm:"type:varchar(64);not null;index:idx_owner_history,priority:1"`
	Kind      string    `json:"kind"       gorm:"type:varchar(32);not null"`
	Recipient string    `json:"recipient"  gorm:"type:varchar(255);not null;default:''"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null;default:''"`
	Body      string    `json:"body"       gorm:"type:text;not null;default:''"`
	Payload   string    `json:"payload"    gorm:"type:text;not null;default:''"` // structured JSON, opaque here
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_owner_history,priority:2"`
}

// TableName returns the database table name for NotificationHistory.
func (NotificationHistory) TableName() string { return "notification_history" }

// PushToken is a per-user device registration with the push provider.
// The dispatcher only reads active tokens; registration and deactivation
// happen through the device endpoints.
type PushToken struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	OwnerID   string         `json:"owner_id"   gorm:"type:varchar(64);not null;index:idx_owner_tokens"`
	Token     string         `json:"token"      gorm:"type:varchar(512);not null;uniqueIndex:ux_push_token"`
	Platform  string         `json:"platform"   gorm:"type:varchar(32);not null;default:''"`
	Active    bool           `json:"active"     gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for PushToken.
func (PushToken) TableName() string { return "push_tokens" }

// PointsAccount tracks the gamification balance of a claimer, keyed by
// email since guests have no account. Balances only grow from this
// workflow (a fixed credit per successful claim).
type PointsAccount struct {
	Email     string    `json:"email"      gorm:"type:varchar(255);primaryKey"`
	Balance   int       `json:"balance"    gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for PointsAccount.
func (PointsAccount) TableName() string { return "points_accounts" }
