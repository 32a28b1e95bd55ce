package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

// GormReconciliationRepository keeps the payment ledger in SQL.
type GormReconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

func (r *GormReconciliationRepository) Create(ctx context.Context, rec *models.Reconciliation) error {
	if rec.Status == "" {
		rec.Status = models.ReconPending
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormReconciliationRepository) FindByID(ctx context.Context, id uint) (*models.Reconciliation, error) {
	var rec models.Reconciliation
	err := orm.New(ctx, r.db, &models.Reconciliation{}).Where("id = ?", id).First(&rec)
	if errors.Is(err, orm.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormReconciliationRepository) List(ctx context.Context, status models.ReconciliationStatus, page, perPage int) ([]models.Reconciliation, orm.Pagination, error) {
	q := orm.New(ctx, r.db, &models.Reconciliation{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	recs := []models.Reconciliation{}
	p, err := q.Order("created_at DESC, id DESC").Paginate(&recs, page, perPage)
	if err != nil {
		return nil, orm.Pagination{}, err
	}
	return recs, p, nil
}

// Resolve closes a record. Resolving twice keeps the first resolution time
// and replaces the note.
func (r *GormReconciliationRepository) Resolve(ctx context.Context, id uint, note string) (*models.Reconciliation, error) {
	rec, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.ResolvedAt == nil {
		at := time.Now().UTC()
		rec.ResolvedAt = &at
	}
	rec.Status = models.ReconResolved
	rec.Note = note

	if err := r.db.WithContext(ctx).Model(rec).Updates(map[string]any{
		"status":      rec.Status,
		"note":        rec.Note,
		"resolved_at": rec.ResolvedAt,
	}).Error; err != nil {
		return nil, err
	}
	return rec, nil
}
