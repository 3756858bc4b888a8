// Package services – PointsService
//
// Fire-and-forget gamification credit for claimers. A fixed number of points
// is awarded per successful claim, keyed by claimer email since guests have
// no account. Failures are swallowed: the claim is never reported failed
// because the award did not land.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/hintlabs/hint-server/internal/repo"
)

// DefaultClaimPoints is the credit granted per successful claim.
const DefaultClaimPoints = 10

// PointsService awards claim credits. It implements the PointsAwarder
// interface consumed by ClaimService.
type PointsService struct {
	// DB is the GORM handle used for the balance upsert.
	DB *gorm.DB
	// Credit overrides DefaultClaimPoints when > 0.
	Credit int
}

// NewPointsService constructs a PointsService with the default credit.
func NewPointsService(db *gorm.DB) *PointsService {
	return &PointsService{DB: db, Credit: DefaultClaimPoints}
}

// Award credits the claimer's balance. Best-effort: errors are logged and
// dropped.
func (s *PointsService) Award(ctx context.Context, email string) {
	credit := s.Credit
	if credit <= 0 {
		credit = DefaultClaimPoints
	}
	if err := repo.AwardPoints(ctx, s.DB, email, credit); err != nil {
		log.Warn().Err(err).Msg("points award failed")
	}
}

// Balance returns the current balance for email, zero when the email has
// never earned points.
func (s *PointsService) Balance(ctx context.Context, email string) (int, error) {
	acct, err := repo.GetPoints(ctx, s.DB, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return acct.Balance, nil
}
