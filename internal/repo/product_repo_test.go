package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hintlabs/hint-server/internal/domain"
)

func newProductRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("product_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.List{}, &domain.Product{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mkProduct(t *testing.T, db *gorm.DB, listID, name string) *domain.Product {
	t.Helper()
	p, err := CreateProduct(context.Background(), db, &domain.Product{ListID: listID, Name: name})
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", name, err)
	}
	return p
}

func TestListProducts_InsertionOrder(t *testing.T) {
	db := newProductRepoDB(t)
	l := mkList(t, db, "u1", "GIFT24", true)

	names := []string{"Headphones", "Espresso machine", "Socks"}
	for i, n := range names {
		p := mkProduct(t, db, l.ID, n)
		// Force distinct created_at values; sqlite timestamps can collide.
		ts := time.Now().UTC().Add(time.Duration(i) * time.Second)
		db.Model(p).Update("created_at", ts)
	}

	got, err := ListProducts(context.Background(), db, l.ID)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("got %d products, want %d", len(got), len(names))
	}
	for i := range names {
		if got[i].Name != names[i] {
			t.Fatalf("position %d = %q, want %q", i, got[i].Name, names[i])
		}
	}
}

func TestClaimProduct_SetsGuestFields(t *testing.T) {
	db := newProductRepoDB(t)
	l := mkList(t, db, "u1", "GIFT24", true)
	p := mkProduct(t, db, l.ID, "Headphones")

	when := time.Now().UTC().Truncate(time.Second)
	won, err := ClaimProduct(context.Background(), db, p.ID, "Alex", "alex@example.com", "tok123", when)
	if err != nil || !won {
		t.Fatalf("ClaimProduct = %v, %v; want won", won, err)
	}

	got, err := GetProduct(context.Background(), db, p.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.GuestName != "Alex" || got.GuestEmail != "alex@example.com" || got.UnclaimToken != "tok123" {
		t.Fatalf("claim fields not written: %+v", got)
	}
	if got.ClaimedAt == nil {
		t.Fatalf("ClaimedAt not set")
	}
	if !got.Claimed() {
		t.Fatalf("product should report claimed")
	}
}

func TestClaimProduct_LoserSeesZeroRows(t *testing.T) {
	db := newProductRepoDB(t)
	l := mkList(t, db, "u1", "GIFT24", true)
	p := mkProduct(t, db, l.ID, "Headphones")

	now := time.Now().UTC()
	won, err := ClaimProduct(context.Background(), db, p.ID, "First", "first@example.com", "tok-first", now)
	if err != nil || !won {
		t.Fatalf("first claim should win: %v, %v", won, err)
	}

	won, err = ClaimProduct(context.Background(), db, p.ID, "Second", "second@example.com", "tok-second", now)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if won {
		t.Fatalf("second claim must lose")
	}

	// Winner's fields are intact.
	got, _ := GetProduct(context.Background(), db, p.ID)
	if got.GuestName != "First" || got.GuestEmail != "first@example.com" || got.UnclaimToken != "tok-first" {
		t.Fatalf("loser overwrote winner: %+v", got)
	}
}

func TestClaimProduct_WhitespaceResidueIsClaimable(t *testing.T) {
	db := newProductRepoDB(t)
	l := mkList(t, db, "u1", "GIFT24", true)
	p := mkProduct(t, db, l.ID, "Headphones")

	// A row written outside this API can hold whitespace in the claimant
	// columns. Claimed() treats it as available, so the claim predicate
	// must agree instead of leaving the row permanently stuck.
	if err := db.Model(&domain.Product{}).Where("id = ?", p.ID).
		Update("guest_email", "   ").Error; err != nil {
		t.Fatalf("seed residue: %v", err)
	}
	got, _ := GetProduct(context.Background(), db, p.ID)
	if got.Claimed() {
		t.Fatalf("whitespace residue reported as claimed: %+v", got)
	}

	won, err := ClaimProduct(context.Background(), db, p.ID, "Alex", "alex@example.com", "tok123", time.Now().UTC())
	if err != nil || !won {
		t.Fatalf("residue row should be claimable: won=%v err=%v", won, err)
	}
	got, _ = GetProduct(context.Background(), db, p.ID)
	if got.GuestEmail != "alex@example.com" {
		t.Fatalf("claim did not land: %+v", got)
	}
}

func TestClaimProduct_MissingProduct(t *testing.T) {
	db := newProductRepoDB(t)
	won, err := ClaimProduct(context.Background(), db, "no-such-id", "A", "a@example.com", "tok", time.Now())
	if err != nil || won {
		t.Fatalf("missing product: won=%v err=%v", won, err)
	}
}

func TestGetProductByToken(t *testing.T) {
	db := newProductRepoDB(t)
	l := mkList(t, db, "u1", "GIFT24", true)
	p := mkProduct(t, db, l.ID, "Headphones")
	ClaimProduct(context.Background(), db, p.ID, "Alex", "alex@example.com", "tok123", time.Now().UTC())

	if _, err := GetProductByToken(context.Background(), db, p.ID, "tok123"); err != nil {
		t.Fatalf("valid credential: %v", err)
	}
	if _, err := GetProductByToken(context.Background(), db, p.ID, "wrong"); err != ErrNotFound {
		t.Fatalf("wrong credential: expected ErrNotFound, got %v", err)
	}
	// An empty presented token must never match, even against unclaimed rows.
	q := mkProduct(t, db, l.ID, "Unclaimed")
	if _, err := GetProductByToken(context.Background(), db, q.ID, ""); err != ErrNotFound {
		t.Fatalf("empty credential: expected ErrNotFound, got %v", err)
	}
}

func TestUnclaimProduct_RoundTrip(t *testing.T) {
	db := newProductRepoDB(t)
	l := mkList(t, db, "u1", "GIFT24", true)
	p := mkProduct(t, db, l.ID, "Headphones")
	ClaimProduct(context.Background(), db, p.ID, "Alex", "alex@example.com", "tok123", time.Now().UTC())

	cleared, err := UnclaimProduct(context.Background(), db, p.ID, "tok123")
	if err != nil || !cleared {
		t.Fatalf("UnclaimProduct = %v, %v; want cleared", cleared, err)
	}

	got, _ := GetProduct(context.Background(), db, p.ID)
	if got.Claimed() || got.GuestName != "" || got.GuestEmail != "" || got.UnclaimToken != "" || got.ClaimedAt != nil {
		t.Fatalf("claim fields not cleared: %+v", got)
	}

	// The credential is spent; a second unclaim matches nothing.
	cleared, err = UnclaimProduct(context.Background(), db, p.ID, "tok123")
	if err != nil || cleared {
		t.Fatalf("spent credential should clear nothing: %v, %v", cleared, err)
	}
}

func TestUnclaimProduct_EmptyOrWrongToken(t *testing.T) {
	db := newProductRepoDB(t)
	l := mkList(t, db, "u1", "GIFT24", true)
	p := mkProduct(t, db, l.ID, "Headphones")
	ClaimProduct(context.Background(), db, p.ID, "Alex", "alex@example.com", "tok123", time.Now().UTC())

	if cleared, _ := UnclaimProduct(context.Background(), db, p.ID, ""); cleared {
		t.Fatalf("empty credential must not unclaim")
	}
	if cleared, _ := UnclaimProduct(context.Background(), db, p.ID, "nope"); cleared {
		t.Fatalf("wrong credential must not unclaim")
	}
	got, _ := GetProduct(context.Background(), db, p.ID)
	if !got.Claimed() {
		t.Fatalf("claim should survive failed unclaims")
	}
}

func TestUpdateAndDeleteProduct_OwnerScoped(t *testing.T) {
	db := newProductRepoDB(t)
	l := mkList(t, db, "u1", "GIFT24", true)
	p := mkProduct(t, db, l.ID, "Headphones")

	name := "Wireless headphones"
	price := 199.90
	if err := UpdateProduct(context.Background(), db, p.ID, "u1", ProductUpdate{Name: &name, Price: &price}); err != nil {
		t.Fatalf("owner update: %v", err)
	}
	got, _ := GetProduct(context.Background(), db, p.ID)
	if got.Name != name || got.Price == nil || *got.Price != price {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := UpdateProduct(context.Background(), db, p.ID, "intruder", ProductUpdate{Name: &name}); err != ErrNotFound {
		t.Fatalf("foreign update: expected ErrNotFound, got %v", err)
	}
	if err := DeleteProduct(context.Background(), db, p.ID, "intruder"); err != ErrNotFound {
		t.Fatalf("foreign delete: expected ErrNotFound, got %v", err)
	}

	if err := DeleteProduct(context.Background(), db, p.ID, "u1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := GetProduct(context.Background(), db, p.ID); err != ErrNotFound {
		t.Fatalf("deleted product still readable: %v", err)
	}
}

func TestGetOwnedProduct(t *testing.T) {
	db := newProductRepoDB(t)
	l := mkList(t, db, "u1", "GIFT24", true)
	p := mkProduct(t, db, l.ID, "Headphones")

	if _, err := GetOwnedProduct(context.Background(), db, p.ID, "u1"); err != nil {
		t.Fatalf("owner fetch: %v", err)
	}
	if _, err := GetOwnedProduct(context.Background(), db, p.ID, "intruder"); err != ErrNotFound {
		t.Fatalf("foreign fetch: expected ErrNotFound, got %v", err)
	}
}
