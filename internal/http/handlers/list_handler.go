// List and product HTTP handlers (owner surface).
//
// This file exposes REST endpoints for list owners:
//   - POST   /lists                  (create, generates the access code)
//   - GET    /lists                  (list, paginated, ETag support)
//   - GET    /lists/{id}             (fetch)
//   - PUT    /lists/{id}             (update name/visibility/date/level)
//   - POST   /lists/{id}/products    (add product)
//   - GET    /lists/{id}/products    (list products, ETag support)
//   - PUT    /products/{id}          (update product)
//   - DELETE /products/{id}          (remove product)
//
// All operations are scoped to the calling owner; a list or product that
// exists but belongs to someone else is indistinguishable from one that
// does not exist.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/repo"
	"github.com/hintlabs/hint-server/internal/services"
)

//
// DTOs
//

// CreateListRequest is the JSON payload for creating a gift list.
type CreateListRequest struct {
	// Name is the display name of the list (1–255 chars).
	Name string `json:"name" binding:"required,min=1,max=255" example:"Maria's wedding"`
	// OwnerName / OwnerEmail snapshot the owner's contact details for
	// notifications; the account system lives outside this service.
	OwnerName  string `json:"owner_name" example:"Maria K."`
	OwnerEmail string `json:"owner_email" binding:"omitempty,email" example:"maria@example.com"`
	// IsPublic controls whether guests can resolve the list by code.
	IsPublic bool `json:"is_public" example:"true"`
	// EventDate optionally marks the occasion the list is for.
	EventDate *time.Time `json:"event_date,omitempty" example:"2026-06-20T00:00:00Z"`
	// NotificationLevel is one of none|who_only|what_only|both; defaults to both.
	NotificationLevel string `json:"notification_level" example:"both"`
}

// UpdateListRequest carries the owner-mutable list fields. Absent fields are
// left unchanged; ClearEventDate removes a previously set date.
type UpdateListRequest struct {
	Name              *string    `json:"name,omitempty"`
	IsPublic          *bool      `json:"is_public,omitempty"`
	EventDate         *time.Time `json:"event_date,omitempty"`
	ClearEventDate    bool       `json:"clear_event_date,omitempty"`
	NotificationLevel *string    `json:"notification_level,omitempty"`
}

// ListListsResponse wraps a page of lists and pagination information.
type ListListsResponse struct {
	Lists      []domain.List `json:"lists"`
	Pagination Pagination    `json:"pagination"`
}

// CreateProductRequest is the JSON payload for adding a product to a list.
type CreateProductRequest struct {
	Name     string   `json:"name" binding:"required,min=1,max=255" example:"Noise-cancelling headphones"`
	URL      string   `json:"url,omitempty" example:"https://shop.example.com/p/42"`
	ImageURL string   `json:"image_url,omitempty"`
	Price    *float64 `json:"price,omitempty" example:"199.90"`
	// TargetPrice is the price-alert threshold.
	TargetPrice *float64 `json:"target_price,omitempty" example:"149.00"`
}

// UpdateProductRequest carries the owner-mutable product fields. Absent
// fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty"`
	URL         *string  `json:"url,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	TargetPrice *float64 `json:"target_price,omitempty"`
}

// ListProductsResponse wraps all products of a list.
type ListProductsResponse struct {
	Products []domain.Product `json:"products"`
}

// listDB exposes the GORM handle of the concrete list service for
// handler-level concerns (ETag stats). Returns nil when the handler is
// wired with a stub.
func (h *Handlers) listDB() *gorm.DB {
	if svc, okSvc := h.listSvc.(*services.ListService); okSvc {
		return svc.DB
	}
	return nil
}

//
// Handlers
//

// CreateList godoc
// @ID          createList
// @Summary     Create a gift list
// @Description Creates a list for the current owner and generates its unique
// @Description access code.
// @Tags        Lists
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       body       body    handlers.CreateListRequest  true  "Create list payload"
//
// @Success     201  {object}  domain.List
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /lists [post]
func (h *Handlers) CreateList(c *gin.Context) {
	var req CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "name required")
		return
	}

	level := strings.TrimSpace(req.NotificationLevel)
	if level == "" {
		level = domain.NotifyBoth
	}

	l, err := h.listSvc.Create(c.Request.Context(), userID(c),
		strings.TrimSpace(req.OwnerName), strings.TrimSpace(req.OwnerEmail),
		req.Name, req.IsPublic, req.EventDate, level)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyListName):
			fail(c, http.StatusBadRequest, ErrCodeValidation, "name required")
		case errors.Is(err, services.ErrInvalidNotificationLevel):
			fail(c, http.StatusBadRequest, ErrCodeValidation, "notification_level must be none, who_only, what_only or both")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, l)
}

// ListLists godoc
// @ID          listLists
// @Summary     List the owner's gift lists (paginated)
// @Description Returns a page of the owner's lists. Supports weak ETag via
// @Description If-None-Match and may return 304.
// @Tags        Lists
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListListsResponse
// @Success     304  "Not modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /lists [get]
func (h *Handlers) ListLists(c *gin.Context) {
	ctx := c.Request.Context()
	owner := userID(c)

	// ETag pre-check (best effort).
	if db := h.listDB(); db != nil {
		count, maxTS, err := repo.ListsStats(ctx, db, owner)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"lists:%s:%d:%d"`, owner, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.listSvc.ListPage(ctx, owner, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListListsResponse{
		Lists:      items,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// GetList godoc
// @ID          getList
// @Summary     Fetch one of the owner's lists
// @Tags        Lists
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       id         path    string  true   "List ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.List
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "List not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /lists/{id} [get]
func (h *Handlers) GetList(c *gin.Context) {
	listID := c.Param("id")
	if _, err := uuid.Parse(listID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "list id must be a UUID")
		return
	}

	l, err := h.listSvc.Get(c.Request.Context(), listID, userID(c))
	if err != nil {
		if errors.Is(err, services.ErrListNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "list not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, l)
}

// UpdateList godoc
// @ID          updateList
// @Summary     Update a list
// @Description Updates name, visibility, event date and/or notification level.
// @Description Absent fields are left unchanged.
// @Tags        Lists
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       id         path    string  true   "List ID (UUID)"  format(uuid)
// @Param       body       body    handlers.UpdateListRequest  true  "Fields to update"
//
// @Success     204  "Updated"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "List not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /lists/{id} [put]
func (h *Handlers) UpdateList(c *gin.Context) {
	listID := c.Param("id")
	if _, err := uuid.Parse(listID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "list id must be a UUID")
		return
	}

	var req UpdateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	upd := repo.ListUpdate{
		Name:              req.Name,
		IsPublic:          req.IsPublic,
		EventDate:         req.EventDate,
		ClearEventDate:    req.ClearEventDate,
		NotificationLevel: req.NotificationLevel,
	}
	if err := h.listSvc.Update(c.Request.Context(), listID, userID(c), upd); err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyListName):
			fail(c, http.StatusBadRequest, ErrCodeValidation, "name must not be empty")
		case errors.Is(err, services.ErrInvalidNotificationLevel):
			fail(c, http.StatusBadRequest, ErrCodeValidation, "notification_level must be none, who_only, what_only or both")
		case errors.Is(err, services.ErrListNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "list not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// AddProduct godoc
// @ID          addProduct
// @Summary     Add a product to a list
// @Tags        Products
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       id         path    string  true   "List ID (UUID)"  format(uuid)
// @Param       body       body    handlers.CreateProductRequest  true  "Product payload"
//
// @Success     201  {object}  domain.Product
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "List not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /lists/{id}/products [post]
func (h *Handlers) AddProduct(c *gin.Context) {
	listID := c.Param("id")
	if _, err := uuid.Parse(listID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "list id must be a UUID")
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "name required")
		return
	}

	p := &domain.Product{
		Name:        req.Name,
		URL:         strings.TrimSpace(req.URL),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Price:       req.Price,
		TargetPrice: req.TargetPrice,
	}
	created, err := h.listSvc.AddProduct(c.Request.Context(), userID(c), listID, p)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyProductName):
			fail(c, http.StatusBadRequest, ErrCodeValidation, "name required")
		case errors.Is(err, services.ErrListNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "list not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, created)
}

// ListListProducts godoc
// @ID          listListProducts
// @Summary     List all products of a list
// @Description Returns every product in insertion order, claimed or not.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Products
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       id         path    string  true   "List ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.ListProductsResponse
// @Success     304  "Not modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "List not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /lists/{id}/products [get]
func (h *Handlers) ListListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	listID := c.Param("id")
	if _, err := uuid.Parse(listID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "list id must be a UUID")
		return
	}

	// ETag pre-check (best effort).
	if db := h.listDB(); db != nil {
		count, maxTS, err := repo.ProductsStats(ctx, db, listID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"products:%s:%d:%d"`, listID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.listSvc.Products(ctx, userID(c), listID)
	if err != nil {
		if errors.Is(err, services.ErrListNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "list not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListProductsResponse{Products: items})
}

// UpdateProduct godoc
// @ID          updateProduct
// @Summary     Update a product
// @Description Updates name, URLs and/or prices. Absent fields are left unchanged.
// @Tags        Products
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       id         path    string  true   "Product ID (UUID)"  format(uuid)
// @Param       body       body    handlers.UpdateProductRequest  true  "Fields to update"
//
// @Success     204  "Updated"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products/{id} [put]
func (h *Handlers) UpdateProduct(c *gin.Context) {
	productID := c.Param("id")
	if _, err := uuid.Parse(productID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a UUID")
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	upd := repo.ProductUpdate{
		Name:        req.Name,
		URL:         req.URL,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		TargetPrice: req.TargetPrice,
	}
	if err := h.listSvc.UpdateProduct(c.Request.Context(), userID(c), productID, upd); err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyProductName):
			fail(c, http.StatusBadRequest, ErrCodeValidation, "name must not be empty")
		case errors.Is(err, services.ErrProductNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// DeleteProduct godoc
// @ID          deleteProduct
// @Summary     Remove a product from a list
// @Tags        Products
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       id         path    string  true   "Product ID (UUID)"  format(uuid)
//
// @Success     204  "Deleted"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products/{id} [delete]
func (h *Handlers) DeleteProduct(c *gin.Context) {
	productID := c.Param("id")
	if _, err := uuid.Parse(productID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a UUID")
		return
	}

	if err := h.listSvc.RemoveProduct(c.Request.Context(), userID(c), productID); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
