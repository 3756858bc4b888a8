package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/repo"
)

// recordingDispatcher captures dispatched events for assertions.
type recordingDispatcher struct {
	claims   []ClaimEvent
	releases []UnclaimEvent
}

func (d *recordingDispatcher) ClaimMade(ctx context.Context, ev ClaimEvent) {
	d.claims = append(d.claims, ev)
}

func (d *recordingDispatcher) ClaimReleased(ctx context.Context, ev UnclaimEvent) {
	d.releases = append(d.releases, ev)
}

// recordingAwarder captures awarded emails.
type recordingAwarder struct {
	emails []string
}

func (a *recordingAwarder) Award(ctx context.Context, email string) {
	a.emails = append(a.emails, email)
}

func viewerURL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://hint.example.com/l")
	if err != nil {
		t.Fatalf("parse viewer url: %v", err)
	}
	return u
}

func newClaimFixture(t *testing.T) (*ClaimService, *gorm.DB, *domain.List, *domain.Product, *recordingDispatcher, *recordingAwarder) {
	t.Helper()
	db := newServiceDB(t)
	list := seedList(t, db, "GIFT24", true, domain.NotifyBoth)
	product := seedProduct(t, db, list.ID, "Headphones")

	disp := &recordingDispatcher{}
	pts := &recordingAwarder{}
	svc := NewClaimService(db, NewAccessService(db), disp, pts, viewerURL(t))
	return svc, db, list, product, disp, pts
}

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "alex.p+tag@example.com", "x_y%z@sub.domain.org"}
	for _, e := range valid {
		if !ValidEmail(e) {
			t.Errorf("ValidEmail(%q) = false", e)
		}
	}
	invalid := []string{"", "plain", "a@b", "@example.com", "a@.com", "a b@example.com"}
	for _, e := range invalid {
		if ValidEmail(e) {
			t.Errorf("ValidEmail(%q) = true", e)
		}
	}
}

func TestClaim_ValidationBeforeAnyWrite(t *testing.T) {
	svc, db, _, product, disp, pts := newClaimFixture(t)

	if _, err := svc.Claim(context.Background(), "GIFT24", product.ID, "   ", "alex@example.com"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("blank name: expected ErrInvalidName, got %v", err)
	}
	if _, err := svc.Claim(context.Background(), "GIFT24", product.ID, "Alex", "not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("bad email: expected ErrInvalidEmail, got %v", err)
	}

	// No write, no fan-out, no points.
	got, _ := repo.GetProduct(context.Background(), db, product.ID)
	if got.Claimed() {
		t.Fatalf("validation failure must not write: %+v", got)
	}
	if len(disp.claims) != 0 || len(pts.emails) != 0 {
		t.Fatalf("validation failure must not dispatch: %d claims, %d awards", len(disp.claims), len(pts.emails))
	}
}

func TestClaim_Success(t *testing.T) {
	svc, db, list, product, disp, pts := newClaimFixture(t)

	res, err := svc.Claim(context.Background(), "gift24", product.ID, "Alex", "alex@example.com")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if res.Product.GuestName != "Alex" || res.Product.GuestEmail != "alex@example.com" {
		t.Fatalf("result product missing claim fields: %+v", res.Product)
	}
	if res.List.ID != list.ID {
		t.Fatalf("result list = %s, want %s", res.List.ID, list.ID)
	}
	if res.Product.UnclaimToken == "" || len(res.Product.UnclaimToken) != DefaultTokenLength {
		t.Fatalf("unexpected credential %q", res.Product.UnclaimToken)
	}
	if !strings.Contains(res.UnclaimURL, "unclaim="+res.Product.UnclaimToken) ||
		!strings.Contains(res.UnclaimURL, "product="+product.ID) {
		t.Fatalf("unclaim URL missing params: %s", res.UnclaimURL)
	}

	// Persisted.
	got, _ := repo.GetProduct(context.Background(), db, product.ID)
	if !got.Claimed() || got.UnclaimToken != res.Product.UnclaimToken {
		t.Fatalf("claim not persisted: %+v", got)
	}

	// Fan-out and points fired once.
	if len(disp.claims) != 1 {
		t.Fatalf("dispatched %d claim events", len(disp.claims))
	}
	ev := disp.claims[0]
	if ev.ClaimerEmail != "alex@example.com" || ev.Product.ID != product.ID || ev.UnclaimURL != res.UnclaimURL {
		t.Fatalf("unexpected claim event: %+v", ev)
	}
	if len(pts.emails) != 1 || pts.emails[0] != "alex@example.com" {
		t.Fatalf("points awards = %v", pts.emails)
	}
}

func TestClaim_WrongCodeAndForeignProduct(t *testing.T) {
	svc, db, _, product, _, _ := newClaimFixture(t)

	if _, err := svc.Claim(context.Background(), "NOSUCH", product.ID, "Alex", "alex@example.com"); !errors.Is(err, ErrListNotFound) {
		t.Fatalf("wrong code: expected ErrListNotFound, got %v", err)
	}

	// A product on a different list is not claimable through this code.
	other := seedList(t, db, "OTHER1", true, domain.NotifyBoth)
	foreign := seedProduct(t, db, other.ID, "Vase")
	if _, err := svc.Claim(context.Background(), "GIFT24", foreign.ID, "Alex", "alex@example.com"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("foreign product: expected ErrProductNotFound, got %v", err)
	}

	if _, err := svc.Claim(context.Background(), "GIFT24", "3d1f1f2e-0000-4000-8000-000000000000", "Alex", "alex@example.com"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("missing product: expected ErrProductNotFound, got %v", err)
	}
}

func TestClaim_RaceLoserGetsAlreadyClaimed(t *testing.T) {
	svc, db, _, product, disp, pts := newClaimFixture(t)

	if _, err := svc.Claim(context.Background(), "GIFT24", product.ID, "First", "first@example.com"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, err := svc.Claim(context.Background(), "GIFT24", product.ID, "Second", "second@example.com")
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}

	// Winner intact; loser produced no event and no points.
	got, _ := repo.GetProduct(context.Background(), db, product.ID)
	if got.GuestEmail != "first@example.com" {
		t.Fatalf("winner overwritten: %+v", got)
	}
	if len(disp.claims) != 1 || len(pts.emails) != 1 {
		t.Fatalf("loser caused side effects: %d events, %d awards", len(disp.claims), len(pts.emails))
	}
}

func TestClaim_TokensAreUniqueAcrossClaims(t *testing.T) {
	svc, db, list, _, _, _ := newClaimFixture(t)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		p := seedProduct(t, db, list.ID, "Item")
		res, err := svc.Claim(context.Background(), "GIFT24", p.ID, "Alex", "alex@example.com")
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if seen[res.Product.UnclaimToken] {
			t.Fatalf("credential reused: %s", res.Product.UnclaimToken)
		}
		seen[res.Product.UnclaimToken] = true
	}
}

func TestVerifyUnclaim(t *testing.T) {
	svc, _, list, product, _, _ := newClaimFixture(t)

	res, err := svc.Claim(context.Background(), "GIFT24", product.ID, "Alex", "alex@example.com")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	p, l, err := svc.VerifyUnclaim(context.Background(), product.ID, res.Product.UnclaimToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.ID != product.ID || l.ID != list.ID {
		t.Fatalf("verify returned wrong rows: %s / %s", p.ID, l.ID)
	}
	if p.GuestName != "Alex" {
		t.Fatalf("verify should expose claimer snapshot, got %+v", p)
	}

	if _, _, err := svc.VerifyUnclaim(context.Background(), product.ID, "wrong-token"); !errors.Is(err, ErrInvalidLink) {
		t.Fatalf("wrong credential: expected ErrInvalidLink, got %v", err)
	}
	if _, _, err := svc.VerifyUnclaim(context.Background(), product.ID, "  "); !errors.Is(err, ErrInvalidLink) {
		t.Fatalf("blank credential: expected ErrInvalidLink, got %v", err)
	}
}

func TestUnclaim_RoundTripAndTerminalLink(t *testing.T) {
	svc, db, _, product, disp, _ := newClaimFixture(t)

	res, err := svc.Claim(context.Background(), "GIFT24", product.ID, "Alex", "alex@example.com")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	token := res.Product.UnclaimToken

	released, err := svc.Unclaim(context.Background(), product.ID, token)
	if err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	if released.Claimed() || released.UnclaimToken != "" {
		t.Fatalf("claim fields survive unclaim: %+v", released)
	}

	// Release event carries the pre-clear claimer snapshot.
	if len(disp.releases) != 1 {
		t.Fatalf("dispatched %d release events", len(disp.releases))
	}
	if disp.releases[0].ClaimerEmail != "alex@example.com" || disp.releases[0].ClaimerName != "Alex" {
		t.Fatalf("release event lost claimer snapshot: %+v", disp.releases[0])
	}

	// The product is claimable again.
	got, _ := repo.GetProduct(context.Background(), db, product.ID)
	if got.Claimed() {
		t.Fatalf("product still claimed after unclaim: %+v", got)
	}

	// The link is spent: retrying is terminal.
	if _, err := svc.Unclaim(context.Background(), product.ID, token); !errors.Is(err, ErrInvalidLink) {
		t.Fatalf("spent link: expected ErrInvalidLink, got %v", err)
	}

	// And a fresh claim issues a different credential.
	res2, err := svc.Claim(context.Background(), "GIFT24", product.ID, "Bea", "bea@example.com")
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if res2.Product.UnclaimToken == token {
		t.Fatalf("fresh claim reused spent credential")
	}
	// The old link cannot release the new claim.
	if _, err := svc.Unclaim(context.Background(), product.ID, token); !errors.Is(err, ErrInvalidLink) {
		t.Fatalf("old link against new claim: expected ErrInvalidLink, got %v", err)
	}
}

func TestClaim_CustomTokenLength(t *testing.T) {
	svc, _, _, product, _, _ := newClaimFixture(t)
	svc.TokenLength = 48

	res, err := svc.Claim(context.Background(), "GIFT24", product.ID, "Alex", "alex@example.com")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(res.Product.UnclaimToken) != 48 {
		t.Fatalf("credential length = %d, want 48", len(res.Product.UnclaimToken))
	}
}

func TestClaim_NilNotifierAndPoints(t *testing.T) {
	db := newServiceDB(t)
	list := seedList(t, db, "GIFT24", true, domain.NotifyBoth)
	product := seedProduct(t, db, list.ID, "Headphones")

	svc := NewClaimService(db, NewAccessService(db), nil, nil, viewerURL(t))
	if _, err := svc.Claim(context.Background(), "GIFT24", product.ID, "Alex", "alex@example.com"); err != nil {
		t.Fatalf("claim with nil collaborators: %v", err)
	}
}
