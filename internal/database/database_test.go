package database

import (
	"context"
	"path/filepath"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	d, err := dialector(&config.Config{DBDriver: "sqlite", DBPath: "blog.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = dialector(&config.Config{DBDriver: "postgres", DBHost: "db", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = dialector(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "blog.db?_foreign_keys=on", sqliteDSN("blog.db"))
	assert.Equal(t, "file::memory:?_foreign_keys=on", sqliteDSN(":memory:"))
}

func TestConnect_SQLiteMigrates(t *testing.T) {
	cfg := &config.Config{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "blog.db"),
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	require.NoError(t, Ping(context.Background(), db))
	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}

	user := &models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	assert.Equal(t, models.DefaultBio, user.Bio)
	assert.Equal(t, models.DefaultAvatar, user.Avatar)

	require.NoError(t, db.Create(&models.Post{Title: "t", Body: "b", UserID: user.ID}).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestPing_NilDB(t *testing.T) {
	assert.Error(t, Ping(context.Background(), nil))
}
