// Guest HTTP handlers.
//
// This file exposes the unauthenticated, access-code-gated endpoints:
//   - GET  /guest/lists                     (resolve a shared list by code)
//   - GET  /guest/lists/{id}/available      (unclaimed products only)
//   - POST /guest/products/{id}/claim       (claim a product)
//   - GET  /guest/unclaim                   (verify an unclaim link)
//   - POST /guest/unclaim                   (release a claim)
//
// Guests never see claimant identities or owner contact addresses: list and
// product payloads on this surface are reduced to GuestList/GuestProduct
// views. The claim response is the exception: it returns the claimer their
// own claim, plus the unclaim URL that is also mailed to them.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// claim receipt exists for (product, key) with the same claimer email, the
// handler rebuilds and returns that claim and sets `Idempotency-Replayed:
// true`. A different guest presenting the same key falls through to the
// normal conditional claim and gets the usual 409.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/repo"
	"github.com/hintlabs/hint-server/internal/services"
)

//
// DTOs
//

// GuestList is the list view exposed to guests. Owner contact details and
// sharing internals are stripped; guests already hold the access code.
type GuestList struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	OwnerName string     `json:"owner_name"`
	EventDate *time.Time `json:"event_date,omitempty"`
}

// GuestProduct is the product view exposed to guests. Claimant identity is
// collapsed into a boolean so one guest never learns who claimed what.
type GuestProduct struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Claimed  bool     `json:"claimed"`
}

func guestListView(l *domain.List) GuestList {
	return GuestList{ID: l.ID, Name: l.Name, OwnerName: l.OwnerName, EventDate: l.EventDate}
}

func guestProductView(p *domain.Product) GuestProduct {
	return GuestProduct{
		ID:       p.ID,
		Name:     p.Name,
		URL:      p.URL,
		ImageURL: p.ImageURL,
		Price:    p.Price,
		Claimed:  p.Claimed(),
	}
}

func guestProductViews(items []domain.Product) []GuestProduct {
	out := make([]GuestProduct, 0, len(items))
	for i := range items {
		out = append(out, guestProductView(&items[i]))
	}
	return out
}

// ResolveListResponse is the payload for a successful code resolution: the
// list, every product in insertion order, and how many are still available.
type ResolveListResponse struct {
	List           GuestList      `json:"list"`
	Products       []GuestProduct `json:"products"`
	AvailableCount int            `json:"available_count"`
}

// AvailableProductsResponse carries only the claimable subset of a list.
type AvailableProductsResponse struct {
	List     GuestList      `json:"list"`
	Products []GuestProduct `json:"products"`
}

// ClaimRequest is the JSON payload for claiming a product as a guest.
type ClaimRequest struct {
	// Code is the access code of the list the product belongs to.
	Code string `json:"code" binding:"required,min=1" example:"GIFT24"`
	// Name is the claimer's display name.
	Name string `json:"name" binding:"required,min=1" example:"Alex P."`
	// Email receives the claim confirmation and the unclaim link.
	Email string `json:"email" binding:"required,min=3" example:"alex@example.com"`
}

// ClaimResponse is the envelope for a successful (or replayed) claim. It
// carries everything clients previously needed a second round-trip for.
type ClaimResponse struct {
	Product    *domain.Product `json:"product"`
	List       GuestList       `json:"list"`
	UnclaimURL string          `json:"unclaim_url"`
}

// UnclaimVerifyResponse describes the claim an unclaim link points at,
// shown to the guest before they confirm the release.
type UnclaimVerifyResponse struct {
	Product   GuestProduct `json:"product"`
	List      GuestList    `json:"list"`
	GuestName string       `json:"guest_name"`
}

// UnclaimRequest is the JSON payload for committing an unclaim.
type UnclaimRequest struct {
	// Product is the product id from the unclaim link.
	Product string `json:"product" binding:"required" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Token is the unclaim credential from the unclaim link.
	Token string `json:"token" binding:"required" example:"fiwAJGqn0NJZC3sqWsoJ8Y4dTqXcptkm"`
}

// UnclaimResponse confirms a released claim.
type UnclaimResponse struct {
	Product GuestProduct `json:"product"`
}

// defaultReceiptTTL is how long claim receipts are replayable when no
// IdempotencyTTL is configured.
const defaultReceiptTTL = 24 * time.Hour

func (h *Handlers) receiptTTL() time.Duration {
	if h.IdempotencyTTL > 0 {
		return h.IdempotencyTTL
	}
	return defaultReceiptTTL
}

//
// Handlers
//

// ResolveList godoc
// @ID          resolveList
// @Summary     Resolve a shared list by access code
// @Description Returns the public list matching the code, all of its products in
// @Description insertion order, and the count of still-available products. Codes are
// @Description case-insensitive. A wrong code and a private list are indistinguishable.
// @Tags        Guest
// @Produce     json
//
// @Param       code  query  string  true  "List access code"  example(GIFT24)
//
// @Success     200  {object}  handlers.ResolveListResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing code"
// @Failure     404  {object}  handlers.ErrorResponse  "No such list"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guest/lists [get]
func (h *Handlers) ResolveList(c *gin.Context) {
	ctx := c.Request.Context()

	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code required")
		return
	}

	list, err := h.accessSvc.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, services.ErrListNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "list not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	items, err := h.accessSvc.Items(ctx, list.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ResolveListResponse{
		List:           guestListView(list),
		Products:       guestProductViews(items),
		AvailableCount: len(services.Available(items)),
	})
}

// AvailableProducts godoc
// @ID          availableProducts
// @Summary     List claimable products of a shared list
// @Description Returns only the products nobody has claimed yet, in insertion order.
// @Description The access code must resolve to the list named in the path.
// @Tags        Guest
// @Produce     json
//
// @Param       id    path   string  true  "List ID (UUID)"    format(uuid)
// @Param       code  query  string  true  "List access code"  example(GIFT24)
//
// @Success     200  {object}  handlers.AvailableProductsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "No such list"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guest/lists/{id}/available [get]
func (h *Handlers) AvailableProducts(c *gin.Context) {
	ctx := c.Request.Context()
	listID := c.Param("id")

	if _, err := uuid.Parse(listID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "list id must be a UUID")
		return
	}
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code required")
		return
	}

	list, err := h.accessSvc.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, services.ErrListNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "list not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	// The code gates exactly one list; a mismatched id is the same 404 as a
	// wrong code, so ids cannot be probed.
	if list.ID != listID {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "list not found")
		return
	}

	items, err := h.accessSvc.Items(ctx, list.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, AvailableProductsResponse{
		List:     guestListView(list),
		Products: guestProductViews(services.Available(items)),
	})
}

// ClaimProduct godoc
// @ID          claimProduct
// @Summary     Claim a product as a guest
// @Description Reserves the product for the named guest in one transactional step:
// @Description validation, code resolution, conditional write, then best-effort
// @Description notifications and points. Losing the race returns 409 already_claimed.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Guest
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true   "Product ID (UUID)"  format(uuid)
// @Param       body             body    handlers.ClaimRequest  true  "Claim payload"
//
// @Success     200  {object}  handlers.ClaimResponse  "Claim recorded"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "List or product not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Someone else claimed first"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guest/products/{id}/claim [post]
func (h *Handlers) ClaimProduct(c *gin.Context) {
	ctx := c.Request.Context()
	productID := c.Param("id")

	if _, err := uuid.Parse(productID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a UUID")
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "code, name and email are required")
		return
	}

	// Idempotency (replay path) – read validated key if present. The replay
	// only matches the guest who made the original claim.
	idemKey := requestIdempotencyKey(c)
	if idemKey != "" {
		if resp, found := h.replayClaim(c, productID, idemKey, strings.TrimSpace(req.Email)); found {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusOK, resp)
			return
		}
	}

	res, err := h.claimSvc.Claim(ctx, req.Code, productID, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidName):
			fail(c, http.StatusBadRequest, ErrCodeValidation, "name required")
		case errors.Is(err, services.ErrInvalidEmail):
			fail(c, http.StatusBadRequest, ErrCodeValidation, "a valid email is required")
		case errors.Is(err, services.ErrListNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "list not found")
		case errors.Is(err, services.ErrProductNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
		case errors.Is(err, services.ErrAlreadyClaimed):
			fail(c, http.StatusConflict, ErrCodeAlreadyClaimed, "someone already claimed this gift")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeClaimFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.claimSvc.(*services.ClaimService); okSvc && svc.DB != nil {
			_, _ = repo.CreateClaimReceipt(ctx, svc.DB, productID, idemKey, res.Product.GuestEmail, http.StatusOK, h.receiptTTL())
		}
	}

	ok(c, http.StatusOK, ClaimResponse{
		Product:    res.Product,
		List:       guestListView(res.List),
		UnclaimURL: res.UnclaimURL,
	})
}

// replayClaim rebuilds a previously returned claim for (productID, key).
// It reports found=false when no live receipt exists, when the receipt
// belongs to a different claimer than email, or when the claim has since
// been released (or re-made by someone else); in all of those cases the
// request proceeds normally.
func (h *Handlers) replayClaim(c *gin.Context, productID, key, email string) (*ClaimResponse, bool) {
	svc, okSvc := h.claimSvc.(*services.ClaimService)
	if !okSvc || svc.DB == nil {
		return nil, false
	}
	ctx := c.Request.Context()

	rec, err := repo.GetClaimReceipt(ctx, svc.DB, productID, key, time.Now().UTC())
	if err != nil || rec == nil {
		return nil, false
	}
	if !strings.EqualFold(rec.ClaimerEmail, email) {
		return nil, false
	}
	p, err := repo.GetProduct(ctx, svc.DB, productID)
	if err != nil || !p.Claimed() {
		return nil, false
	}
	// The live row must still belong to the receipt's claimer; a claim that
	// was released and re-made by another guest is not replayable.
	if !strings.EqualFold(p.GuestEmail, rec.ClaimerEmail) {
		return nil, false
	}
	list, err := repo.GetListByID(ctx, svc.DB, p.ListID)
	if err != nil {
		return nil, false
	}
	unclaimURL := ""
	if svc.ViewerURL != nil {
		unclaimURL = services.BuildUnclaimURL(svc.ViewerURL, p.ID, p.UnclaimToken)
	}
	return &ClaimResponse{
		Product:    p,
		List:       guestListView(list),
		UnclaimURL: unclaimURL,
	}, true
}

// VerifyUnclaim godoc
// @ID          verifyUnclaim
// @Summary     Verify an unclaim link
// @Description Checks the product id + credential pair from a mailed unclaim link
// @Description without changing anything. An invalid or spent link is 410 and
// @Description must not be retried.
// @Tags        Guest
// @Produce     json
//
// @Param       product  query  string  true  "Product ID (UUID)"     format(uuid)
// @Param       token    query  string  true  "Unclaim credential"
//
// @Success     200  {object}  handlers.UnclaimVerifyResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing parameters"
// @Failure     410  {object}  handlers.ErrorResponse  "Link invalid or spent"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guest/unclaim [get]
func (h *Handlers) VerifyUnclaim(c *gin.Context) {
	ctx := c.Request.Context()

	productID := strings.TrimSpace(c.Query("product"))
	token := strings.TrimSpace(c.Query("token"))
	if productID == "" || token == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product and token required")
		return
	}

	p, list, err := h.claimSvc.VerifyUnclaim(ctx, productID, token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLink) {
			fail(c, http.StatusGone, ErrCodeInvalidLink, "unclaim link is no longer valid")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, UnclaimVerifyResponse{
		Product:   guestProductView(p),
		List:      guestListView(list),
		GuestName: p.GuestName,
	})
}

// CommitUnclaim godoc
// @ID          commitUnclaim
// @Summary     Release a claim
// @Description Clears the claim matching the product id + credential pair in one
// @Description conditional write. If no row matches (wrong token, already released),
// @Description the link is reported as 410 invalid_link.
// @Tags        Guest
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.UnclaimRequest  true  "Unclaim payload"
//
// @Success     200  {object}  handlers.UnclaimResponse  "Claim released"
// @Failure     400  {object}  handlers.ErrorResponse    "Bad request"
// @Failure     410  {object}  handlers.ErrorResponse    "Link invalid or spent"
// @Failure     500  {object}  handlers.ErrorResponse    "Internal error"
// @Router      /guest/unclaim [post]
func (h *Handlers) CommitUnclaim(c *gin.Context) {
	ctx := c.Request.Context()

	var req UnclaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product and token required")
		return
	}

	p, err := h.claimSvc.Unclaim(ctx, strings.TrimSpace(req.Product), strings.TrimSpace(req.Token))
	if err != nil {
		if errors.Is(err, services.ErrInvalidLink) {
			fail(c, http.StatusGone, ErrCodeInvalidLink, "unclaim link is no longer valid")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUnclaimFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, UnclaimResponse{Product: guestProductView(p)})
}

// requestIdempotencyKey extracts an idempotency key if an upstream middleware
// has already validated/stashed it. The fallback behavior reads the
// "Idempotency-Key" header directly when no dedicated middleware exists.
func requestIdempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("Idempotency-Key"))
}
