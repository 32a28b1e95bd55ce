package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/migration"
)

func init() {
	migration.Register("20260101000000_create_reconciliations_table", &CreateReconciliationsTable{})
}

// -------- 0001: reconciliations --------

type CreateReconciliationsTable struct{}

func (m *CreateReconciliationsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Reconciliation{})
}

func (m *CreateReconciliationsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("reconciliations")
}
