package bootstrap

import (
	"testing"

	"amor/internal/config"
	"amor/internal/models"
	"amor/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootPassword:  "R00t!Password",
	}
}

func TestEnsureDevRootAdmin_CreatesRoot(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, ensureDevRootAdmin(devConfig(), db))

	var root models.User
	require.NoError(t, db.First(&root, 1).Error)
	assert.Equal(t, models.RoleAdmin, root.Role)
	assert.Equal(t, "root@amor.local", root.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(root.Password), []byte("R00t!Password")))
}

func TestEnsureDevRootAdmin_PromotesExisting(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	existing := testutil.CreateUser(t, db, "first", models.RoleUser)
	require.Equal(t, uint(1), existing.ID)

	require.NoError(t, ensureDevRootAdmin(devConfig(), db))

	var root models.User
	require.NoError(t, db.First(&root, 1).Error)
	assert.Equal(t, models.RoleAdmin, root.Role)
	assert.Equal(t, "first@example.com", root.Email)
}

func TestEnsureDevRootAdmin_Skipped(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	cfg := devConfig()
	cfg.Env = "production"
	require.NoError(t, ensureDevRootAdmin(cfg, db))

	cfg = devConfig()
	cfg.DevRootPassword = ""
	assert.Error(t, ensureDevRootAdmin(cfg, db))

	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
}
