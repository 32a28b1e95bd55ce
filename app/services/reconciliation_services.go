package services

import (
	"context"
	"strings"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

// ReconciliationService exposes the payment ledger to operators.
type ReconciliationService struct {
	ledger repositories.ReconciliationRepository
}

func NewReconciliationService(ledger repositories.ReconciliationRepository) *ReconciliationService {
	return &ReconciliationService{ledger: ledger}
}

func (s *ReconciliationService) List(ctx context.Context, status string, page, perPage int) ([]models.Reconciliation, orm.Pagination, error) {
	st := models.ReconciliationStatus(strings.ToLower(strings.TrimSpace(status)))
	switch st {
	case "", models.ReconPending, models.ReconReversed, models.ReconResolved:
	default:
		return nil, orm.Pagination{}, apperror.Validation("Validation failed", map[string]string{
			"status": "The status must be one of: pending, reversed, resolved.",
		})
	}
	return s.ledger.List(ctx, st, page, perPage)
}

func (s *ReconciliationService) Resolve(ctx context.Context, id uint, note string) (*models.Reconciliation, error) {
	rec, err := s.ledger.Resolve(ctx, id, note)
	if err != nil {
		return nil, notFound(err, "Reconciliation not found")
	}
	return rec, nil
}
