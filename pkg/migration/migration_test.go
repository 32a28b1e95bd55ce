package migration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint
	Name string
}

type createWidgets struct{}

func (createWidgets) Up(db *gorm.DB) error   { return db.AutoMigrate(&widget{}) }
func (createWidgets) Down(db *gorm.DB) error { return db.Migrator().DropTable(&widget{}) }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "m.db")), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestRunRollbackStatus(t *testing.T) {
	mu.Lock()
	saved := registry
	registry = nil
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		registry = saved
		mu.Unlock()
	})

	Register("20260101000000_create_widgets", createWidgets{})

	db := openTestDB(t)
	r := New(db)

	applied, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101000000_create_widgets"}, applied)
	assert.True(t, db.Migrator().HasTable(&widget{}))

	applied, err = r.Run()
	require.NoError(t, err)
	assert.Empty(t, applied)

	st, err := r.Status()
	require.NoError(t, err)
	require.Len(t, st, 1)
	assert.True(t, st[0].Ran)
	assert.Equal(t, 1, st[0].Batch)

	reverted, err := r.Rollback()
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101000000_create_widgets"}, reverted)
	assert.False(t, db.Migrator().HasTable(&widget{}))

	reverted, err = r.Rollback()
	require.NoError(t, err)
	assert.Empty(t, reverted)
}
