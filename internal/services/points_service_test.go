package services

import (
	"context"
	"testing"
)

func TestPointsService_AwardAccumulates(t *testing.T) {
	db := newServiceDB(t)
	svc := NewPointsService(db)

	svc.Award(context.Background(), "alex@example.com")
	svc.Award(context.Background(), "alex@example.com")
	svc.Award(context.Background(), "bea@example.com")

	got, err := svc.Balance(context.Background(), "alex@example.com")
	if err != nil || got != 2*DefaultClaimPoints {
		t.Fatalf("alex balance = %d, %v; want %d", got, err, 2*DefaultClaimPoints)
	}
	got, err = svc.Balance(context.Background(), "bea@example.com")
	if err != nil || got != DefaultClaimPoints {
		t.Fatalf("bea balance = %d, %v; want %d", got, err, DefaultClaimPoints)
	}
}

func TestPointsService_CustomCredit(t *testing.T) {
	db := newServiceDB(t)
	svc := NewPointsService(db)
	svc.Credit = 25

	svc.Award(context.Background(), "alex@example.com")

	got, err := svc.Balance(context.Background(), "alex@example.com")
	if err != nil || got != 25 {
		t.Fatalf("balance = %d, %v; want 25", got, err)
	}
}

func TestPointsService_BalanceMissingIsZero(t *testing.T) {
	db := newServiceDB(t)
	svc := NewPointsService(db)

	got, err := svc.Balance(context.Background(), "nobody@example.com")
	if err != nil || got != 0 {
		t.Fatalf("balance = %d, %v; want 0", got, err)
	}
}
