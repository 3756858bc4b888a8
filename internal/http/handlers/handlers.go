// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they validate and normalize inputs, call
// application services, and translate results into HTTP responses (including
// conditional responses and idempotency semantics). Business rules live in
// internal/services; persistence in internal/repo.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/repo"
	"github.com/hintlabs/hint-server/internal/services"
	"github.com/hintlabs/hint-server/internal/utils"
)

//
// Service contracts (context-aware)
//

// AccessResolver resolves guest access codes to shared lists and loads their
// contents. Implementations must be safe for concurrent use and honor the
// provided context.
type AccessResolver interface {
	// Resolve returns the public list whose access code matches code.
	Resolve(ctx context.Context, code string) (*domain.List, error)
	// Items returns all products on a list in insertion order.
	Items(ctx context.Context, listID string) ([]domain.Product, error)
}

// ClaimWorkflow covers the guest claim lifecycle: reserving a product,
// verifying an unclaim link, and releasing a claim.
type ClaimWorkflow interface {
	// Claim reserves a product for the guest identified by name/email.
	Claim(ctx context.Context, code, productID, name, email string) (*services.ClaimResult, error)
	// VerifyUnclaim checks an unclaim credential without mutating anything.
	VerifyUnclaim(ctx context.Context, productID, token string) (*domain.Product, *domain.List, error)
	// Unclaim releases the claim matching productID+token.
	Unclaim(ctx context.Context, productID, token string) (*domain.Product, error)
}

// ListManager defines owner-side list and product lifecycle operations.
type ListManager interface {
	Create(ctx context.Context, ownerID, ownerName, ownerEmail, name string, isPublic bool, eventDate *time.Time, level string) (*domain.List, error)
	Get(ctx context.Context, id, ownerID string) (*domain.List, error)
	ListPage(ctx context.Context, ownerID string, page, pageSize int) ([]domain.List, int64, error)
	Update(ctx context.Context, id, ownerID string, upd repo.ListUpdate) error
	AddProduct(ctx context.Context, ownerID, listID string, p *domain.Product) (*domain.Product, error)
	Products(ctx context.Context, ownerID, listID string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, ownerID, productID string, upd repo.ProductUpdate) error
	RemoveProduct(ctx context.Context, ownerID, productID string) error
}

// DeviceRegistry manages push-notification device tokens for an owner.
type DeviceRegistry interface {
	Register(ctx context.Context, ownerID, token, platform string) (*domain.PushToken, error)
	Deactivate(ctx context.Context, ownerID, token string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for the guest and owner surfaces.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	accessSvc AccessResolver
	claimSvc  ClaimWorkflow
	listSvc   ListManager
	deviceSvc DeviceRegistry

	// IdempotencyTTL bounds how long a stored claim receipt can be replayed.
	// Zero falls back to defaultReceiptTTL.
	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(accessSvc AccessResolver, claimSvc ClaimWorkflow, listSvc ListManager, deviceSvc DeviceRegistry) *Handlers {
	return &Handlers{accessSvc: accessSvc, claimSvc: claimSvc, listSvc: listSvc, deviceSvc: deviceSvc}
}

// userID extracts the authenticated owner id from Gin context (set by
// upstream auth middleware). If absent, it falls back to "X-User-ID" header
// (tests use it), and finally to "demo-user". It never touches c.Request if
// it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func paginationFor(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
