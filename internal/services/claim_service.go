// Package services – ClaimService
//
// This file implements the guest claim lifecycle: claiming an unclaimed
// product with a name/email pair, verifying an unclaim link, and releasing a
// claim. The claim write is a single conditional update scoped to "currently
// unclaimed", so a race between two guests resolves to exactly one winner
// and a distinguishable conflict error for the loser.
//
// Secondary effects (owner notification, claimer confirmation, points
// award) are strictly best-effort: once the row is written the claim stands,
// whatever the delivery providers do.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/repo"
)

// DefaultTokenLength is the unclaim credential length used when the service
// is constructed without an explicit override.
const DefaultTokenLength = 32

// tokenAlphabet is the alphanumeric alphabet unclaim credentials are drawn
// from. Fresh credential per claim, never reused.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// emailRE matches the standard local@domain.tld shape required for guest
// claimer emails.
var emailRE = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// ClaimEvent describes a completed claim for the notification dispatcher.
type ClaimEvent struct {
	List         domain.List
	Product      domain.Product
	ClaimerName  string
	ClaimerEmail string
	UnclaimURL   string
}

// UnclaimEvent describes a completed release. The claimer fields are the
// snapshot captured before the row was cleared.
type UnclaimEvent struct {
	List         domain.List
	Product      domain.Product
	ClaimerName  string
	ClaimerEmail string
}

// Dispatcher fans out notifications for claim lifecycle events. All
// implementations must be best-effort and never return delivery failures to
// the workflow.
type Dispatcher interface {
	ClaimMade(ctx context.Context, ev ClaimEvent)
	ClaimReleased(ctx context.Context, ev UnclaimEvent)
}

// PointsAwarder credits a claimer's gamification balance. Implementations
// swallow failures; a missed award never fails a claim.
type PointsAwarder interface {
	Award(ctx context.Context, email string)
}

// ClaimResult is what a successful claim returns to the transport layer:
// the updated product plus the list/owner metadata clients previously needed
// a second round-trip for, and the unclaim URL also mailed to the claimer.
type ClaimResult struct {
	Product    *domain.Product
	List       *domain.List
	UnclaimURL string
}

// ClaimService coordinates guest claims and unclaims.
type ClaimService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Access resolves access codes to lists.
	Access *AccessService
	// Notifier receives lifecycle events; may be nil in tests.
	Notifier Dispatcher
	// Points credits claimers; may be nil in tests.
	Points PointsAwarder
	// ViewerURL is the public viewer page unclaim links point at.
	ViewerURL *url.URL
	// TokenLength overrides DefaultTokenLength when > 0.
	TokenLength int
}

// NewClaimService constructs a ClaimService with the default credential
// length.
func NewClaimService(db *gorm.DB, access *AccessService, notifier Dispatcher, points PointsAwarder, viewerURL *url.URL) *ClaimService {
	return &ClaimService{
		DB:          db,
		Access:      access,
		Notifier:    notifier,
		Points:      points,
		ViewerURL:   viewerURL,
		TokenLength: DefaultTokenLength,
	}
}

// ValidEmail reports whether s matches the required local@domain.tld shape.
func ValidEmail(s string) bool { return emailRE.MatchString(s) }

// newUnclaimToken draws a fresh random credential from the alphanumeric
// alphabet. crypto/rand failures are not recoverable mid-request.
func newUnclaimToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenLength
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf), nil
}

// Claim reserves product productID on the list resolved by code for the
// guest identified by name/email.
//
// Validation happens before any persistence call: a blank name yields
// ErrInvalidName, a malformed email ErrInvalidEmail. Resolution failures
// yield ErrListNotFound (or ErrProductNotFound when the product does not
// belong to the resolved list), and losing the claim race yields
// ErrAlreadyClaimed with the winner's fields intact.
func (s *ClaimService) Claim(ctx context.Context, code, productID, name, email string) (*ClaimResult, error) {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "Claim",
		trace.WithAttributes(attribute.String("product.id", productID)),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, ErrInvalidName
	}
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	list, err := s.Access.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	product, err := repo.GetProduct(ctx, s.DB, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if product.ListID != list.ID {
		return nil, ErrProductNotFound
	}

	token, err := newUnclaimToken(s.TokenLength)
	if err != nil {
		return nil, err
	}
	claimedAt := time.Now().UTC()

	claimed, err := repo.ClaimProduct(ctx, s.DB, product.ID, name, email, token, claimedAt)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrAlreadyClaimed
	}

	product.GuestName = name
	product.GuestEmail = email
	product.ClaimedAt = &claimedAt
	product.UnclaimToken = token

	unclaimURL := ""
	if s.ViewerURL != nil {
		unclaimURL = BuildUnclaimURL(s.ViewerURL, product.ID, token)
	}

	// Best-effort secondary effects; the claim stands regardless.
	if s.Notifier != nil {
		s.Notifier.ClaimMade(ctx, ClaimEvent{
			List:         *list,
			Product:      *product,
			ClaimerName:  name,
			ClaimerEmail: email,
			UnclaimURL:   unclaimURL,
		})
	}
	if s.Points != nil {
		s.Points.Award(ctx, email)
	}

	return &ClaimResult{Product: product, List: list, UnclaimURL: unclaimURL}, nil
}

// VerifyUnclaim checks an unclaim link without consuming it. Zero matches
// (wrong credential, or a link already used) yield ErrInvalidLink, which is
// terminal for that link. The parent list is returned for display.
func (s *ClaimService) VerifyUnclaim(ctx context.Context, productID, token string) (*domain.Product, *domain.List, error) {
	product, err := repo.GetProductByToken(ctx, s.DB, productID, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidLink
		}
		return nil, nil, err
	}
	list, err := repo.GetListByID(ctx, s.DB, product.ListID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidLink
		}
		return nil, nil, err
	}
	return product, list, nil
}

// Unclaim releases a guest claim after explicit confirmation. The clearing
// update is conditioned on id+credential, so a link consumed concurrently
// reports ErrInvalidLink instead of silently succeeding twice. The claimer
// snapshot is captured before the clear for the release receipt.
func (s *ClaimService) Unclaim(ctx context.Context, productID, token string) (*domain.Product, error) {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "Unclaim",
		trace.WithAttributes(attribute.String("product.id", productID)),
	)
	defer span.End()

	token = strings.TrimSpace(token)

	product, list, err := s.VerifyUnclaim(ctx, productID, token)
	if err != nil {
		return nil, err
	}
	claimerName := product.GuestName
	claimerEmail := product.GuestEmail

	cleared, err := repo.UnclaimProduct(ctx, s.DB, productID, token)
	if err != nil {
		return nil, err
	}
	if !cleared {
		return nil, ErrInvalidLink
	}

	product.ClaimedBy = ""
	product.GuestName = ""
	product.GuestEmail = ""
	product.ClaimedAt = nil
	product.UnclaimToken = ""

	if s.Notifier != nil {
		s.Notifier.ClaimReleased(ctx, UnclaimEvent{
			List:         *list,
			Product:      *product,
			ClaimerName:  claimerName,
			ClaimerEmail: claimerEmail,
		})
	}

	return product, nil
}
