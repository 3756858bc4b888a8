// Device and notification-history HTTP handlers (owner surface).
//
// This file exposes REST endpoints for push delivery plumbing:
//   - POST   /devices          (register a push token)
//   - DELETE /devices/{token}  (deactivate a push token)
//   - GET    /notifications    (owner's audit history, paginated)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/repo"
	"github.com/hintlabs/hint-server/internal/services"
)

// RegisterDeviceRequest is the JSON payload for registering a push token.
type RegisterDeviceRequest struct {
	// Token is the provider-issued device token.
	Token string `json:"token" binding:"required,min=1" example:"fcm-token-abc123"`
	// Platform is a free-form hint (ios, android, web).
	Platform string `json:"platform" example:"android"`
}

// ListNotificationsResponse wraps a page of audit rows and pagination
// metadata.
type ListNotificationsResponse struct {
	Notifications []domain.NotificationHistory `json:"notifications"`
	Pagination    Pagination                   `json:"pagination"`
}

// RegisterDevice godoc
// @ID          registerDevice
// @Summary     Register a push device token
// @Description Registers (or re-activates) a device token for the current owner.
// @Description Registering a token again is safe and re-owns it.
// @Tags        Devices
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       body       body    handlers.RegisterDeviceRequest  true  "Device payload"
//
// @Success     201  {object}  domain.PushToken
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /devices [post]
func (h *Handlers) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "token required")
		return
	}

	t, err := h.deviceSvc.Register(c.Request.Context(), userID(c),
		strings.TrimSpace(req.Token), strings.TrimSpace(req.Platform))
	if err != nil {
		if errors.Is(err, services.ErrEmptyToken) {
			fail(c, http.StatusBadRequest, ErrCodeValidation, "token required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, t)
}

// DeactivateDevice godoc
// @ID          deactivateDevice
// @Summary     Deactivate a push device token
// @Description Marks the token inactive so the dispatcher stops sending to it.
// @Tags        Devices
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       token      path    string  true   "Device token"
//
// @Success     204  "Deactivated"
// @Failure     404  {object}  handlers.ErrorResponse  "Token not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /devices/{token} [delete]
func (h *Handlers) DeactivateDevice(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))

	if err := h.deviceSvc.Deactivate(c.Request.Context(), userID(c), token); err != nil {
		if errors.Is(err, services.ErrTokenNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "token not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List the owner's notification history (paginated)
// @Description Returns the append-only audit of notification decisions, newest first.
// @Description Rows exist even for claims whose push was suppressed by preference.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Owner ID (demo header)"  example(owner123)
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListNotificationsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	owner := userID(c)

	db := h.listDB()
	if db == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "history store unavailable")
		return
	}

	page, pageSize := clampPagination(c)

	total, err := repo.CountNotifications(ctx, db, owner)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items := []domain.NotificationHistory{}
	if total > 0 {
		items, err = repo.ListNotificationsPage(ctx, db, owner, (page-1)*pageSize, pageSize)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
			return
		}
	}

	ok(c, http.StatusOK, ListNotificationsResponse{
		Notifications: items,
		Pagination:    paginationFor(page, pageSize, total),
	})
}
