package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"amor/internal/database"
	"amor/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a fresh file-backed SQLite database with the full schema.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amor_test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a user with the given role.
func CreateUser(t testing.TB, db *gorm.DB, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "not-a-real-hash",
		Role:     role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateGroup inserts a group owned by owner with n images. approved sets approved_at.
func CreateGroup(t testing.TB, db *gorm.DB, owner *models.User, name string, n int, approved bool) *models.Group {
	t.Helper()
	g := &models.Group{Name: name, Tags: []string{"cute"}, UserID: owner.ID}
	if approved {
		now := time.Now().UTC()
		g.ApprovedAt = &now
		g.LastReviewedAt = &now
	}
	require.NoError(t, db.Omit("Images", "User").Create(g).Error)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("%s-%d-%d.jpg", name, g.ID, i)
		img := models.Image{ID: key, URL: "/media/" + key, GroupID: g.ID}
		require.NoError(t, db.Create(&img).Error)
		g.Images = append(g.Images, img)
	}
	return g
}
