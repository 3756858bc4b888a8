// Package services – NotificationService
//
// This file implements the notification dispatcher: best-effort fan-out of
// owner pushes, owner/claimer emails, and the append-only audit trail for
// claim lifecycle events. Nothing here may block or fail the triggering
// transaction: every delivery error is logged and swallowed.
//
// Owner preference semantics:
//   - who_only  reveals the claimer identity but not the item name
//   - what_only reveals the item name but not the claimer identity
//   - both      reveals both
//   - none      suppresses the push and the owner email entirely, but the
//     audit row is still written ("do not push" is not "do not log")
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/notify"
	"github.com/hintlabs/hint-server/internal/repo"
)

// Audit kinds written to notification history.
const (
	historyKindClaim   = "claim"
	historyKindUnclaim = "unclaim"
)

// PushSender delivers a push message to device tokens.
type PushSender interface {
	Send(ctx context.Context, msg notify.PushMessage) error
}

// MailSender delivers the three transactional mail kinds.
type MailSender interface {
	SendOwnerClaimAlert(ctx context.Context, a notify.OwnerClaimAlert) error
	SendClaimConfirmation(ctx context.Context, c notify.ClaimConfirmation) error
	SendUnclaimReceipt(ctx context.Context, r notify.UnclaimReceipt) error
}

// NotificationService fans out claim/unclaim notifications. It implements
// the Dispatcher interface consumed by ClaimService.
type NotificationService struct {
	// DB is used for push token reads and audit writes.
	DB *gorm.DB
	// Push delivers to the push provider; may be nil (no pushes).
	Push PushSender
	// Mail delivers through the mail function; may be nil (no mail).
	Mail MailSender

	titleCaser cases.Caser
}

// NewNotificationService constructs a dispatcher.
func NewNotificationService(db *gorm.DB, push PushSender, mail MailSender) *NotificationService {
	return &NotificationService{
		DB:         db,
		Push:       push,
		Mail:       mail,
		titleCaser: cases.Title(language.English, cases.NoLower),
	}
}

// displayName normalizes a guest-entered name for outbound messages.
func (s *NotificationService) displayName(raw string) string {
	return s.titleCaser.String(raw)
}

// composeClaim builds the owner-facing push title/body for level. Empty
// strings mean the push is suppressed.
func (s *NotificationService) composeClaim(level string, ev ClaimEvent) (title, body string) {
	who := s.displayName(ev.ClaimerName)
	switch level {
	case domain.NotifyWhoOnly:
		return "A gift was claimed", fmt.Sprintf("%s reserved an item from %q.", who, ev.List.Name)
	case domain.NotifyWhatOnly:
		return "A gift was claimed", fmt.Sprintf("Someone reserved %q from %q.", ev.Product.Name, ev.List.Name)
	case domain.NotifyBoth:
		return "A gift was claimed", fmt.Sprintf("%s reserved %q from %q.", who, ev.Product.Name, ev.List.Name)
	default: // none or unknown
		return "", ""
	}
}

// ClaimMade handles the fan-out for a successful claim: owner push to all
// active tokens, owner email alert, claimer confirmation with the unclaim
// link, a points-style audit row. All best-effort.
func (s *NotificationService) ClaimMade(ctx context.Context, ev ClaimEvent) {
	level := ev.List.NotificationLevel
	title, body := s.composeClaim(level, ev)
	pushed := false

	if title != "" && s.Push != nil {
		tokens, err := repo.ActivePushTokens(ctx, s.DB, ev.List.OwnerID)
		if err != nil {
			log.Warn().Err(err).Str("owner_id", ev.List.OwnerID).Msg("push token lookup failed")
		} else if len(tokens) > 0 {
			ids := make([]string, len(tokens))
			for i, t := range tokens {
				ids[i] = t.Token
			}
			msg := notify.PushMessage{
				Tokens: ids,
				Title:  title,
				Body:   body,
				Data: map[string]string{
					"list_id":    ev.List.ID,
					"product_id": ev.Product.ID,
					"event":      historyKindClaim,
				},
			}
			if err := s.Push.Send(ctx, msg); err != nil {
				s.logDeliveryErr(err, "owner push failed")
			} else {
				pushed = true
			}
		}
	}

	if title != "" && s.Mail != nil {
		alert := notify.OwnerClaimAlert{
			OwnerEmail:        ev.List.OwnerEmail,
			OwnerName:         ev.List.OwnerName,
			ListName:          ev.List.Name,
			NotificationLevel: level,
		}
		switch level {
		case domain.NotifyWhoOnly:
			alert.ClaimerName = s.displayName(ev.ClaimerName)
		case domain.NotifyWhatOnly:
			alert.ProductName = ev.Product.Name
		case domain.NotifyBoth:
			alert.ClaimerName = s.displayName(ev.ClaimerName)
			alert.ProductName = ev.Product.Name
		}
		if err := s.Mail.SendOwnerClaimAlert(ctx, alert); err != nil {
			s.logDeliveryErr(err, "owner claim alert failed")
		}
	}

	if s.Mail != nil {
		conf := notify.ClaimConfirmation{
			ClaimerName:  s.displayName(ev.ClaimerName),
			ClaimerEmail: ev.ClaimerEmail,
			ProductName:  ev.Product.Name,
			ProductURL:   ev.Product.URL,
			UnclaimURL:   ev.UnclaimURL,
		}
		if err := s.Mail.SendClaimConfirmation(ctx, conf); err != nil {
			s.logDeliveryErr(err, "claim confirmation failed")
		}
	}

	s.appendHistory(ctx, &domain.NotificationHistory{
		OwnerID:   ev.List.OwnerID,
		Kind:      historyKindClaim,
		Recipient: ev.List.OwnerEmail,
		Title:     title,
		Body:      body,
	}, map[string]any{
		"list_id":    ev.List.ID,
		"product_id": ev.Product.ID,
		"level":      level,
		"pushed":     pushed,
	})
}

// ClaimReleased handles the fan-out for an unclaim: a release receipt to the
// former claimer and an audit row. No owner push is defined for unclaims.
func (s *NotificationService) ClaimReleased(ctx context.Context, ev UnclaimEvent) {
	if s.Mail != nil {
		receipt := notify.UnclaimReceipt{
			ClaimerName:  s.displayName(ev.ClaimerName),
			ClaimerEmail: ev.ClaimerEmail,
			ProductName:  ev.Product.Name,
		}
		if err := s.Mail.SendUnclaimReceipt(ctx, receipt); err != nil {
			s.logDeliveryErr(err, "unclaim receipt failed")
		}
	}

	s.appendHistory(ctx, &domain.NotificationHistory{
		OwnerID:   ev.List.OwnerID,
		Kind:      historyKindUnclaim,
		Recipient: ev.ClaimerEmail,
	}, map[string]any{
		"list_id":    ev.List.ID,
		"product_id": ev.Product.ID,
	})
}

// appendHistory writes one audit row, attaching payload as JSON. Audit
// failures are logged, never propagated.
func (s *NotificationService) appendHistory(ctx context.Context, h *domain.NotificationHistory, payload map[string]any) {
	if raw, err := json.Marshal(payload); err == nil {
		h.Payload = string(raw)
	}
	if _, err := repo.AppendNotification(ctx, s.DB, h); err != nil {
		log.Error().Err(err).Str("kind", h.Kind).Str("owner_id", h.OwnerID).Msg("notification history write failed")
	}
}

// logDeliveryErr downgrades "provider not configured" to debug noise.
func (s *NotificationService) logDeliveryErr(err error, msg string) {
	if errors.Is(err, notify.ErrDisabled) {
		log.Debug().Msg(msg + ": provider not configured")
		return
	}
	log.Warn().Err(err).Msg(msg)
}
