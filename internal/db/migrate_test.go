package db

import (
	"testing"

	"github.com/batgear/batstore-backend/config"
	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdmin(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	cfg := &config.StoreConfig{
		AdminEmail:    "alfred@wayne.enterprises",
		AdminPassword: "batcave-secret",
		AdminName:     "Alfred",
	}

	require.NoError(t, SeedAdmin(testDB, cfg))
	require.NoError(t, SeedAdmin(testDB, cfg))

	var users []model.User
	require.NoError(t, testDB.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, model.RoleAdmin, users[0].Role)
	assert.True(t, util.VerifyPassword(users[0].PasswordHash, "batcave-secret"))
}

func TestSeedAdmin_PromotesExistingUser(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	require.NoError(t, testDB.Create(&model.User{
		Email: "alfred@wayne.enterprises", PasswordHash: "x", Name: "Alfred", Role: model.RoleUser,
	}).Error)

	require.NoError(t, SeedAdmin(testDB, &config.StoreConfig{
		AdminEmail: "alfred@wayne.enterprises", AdminPassword: "batcave-secret",
	}))

	var user model.User
	require.NoError(t, testDB.Where("email = ?", "alfred@wayne.enterprises").First(&user).Error)
	assert.Equal(t, model.RoleAdmin, user.Role)
}

func TestSeedAdmin_SkipsWithoutPassword(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	require.NoError(t, SeedAdmin(testDB, &config.StoreConfig{AdminEmail: "alfred@wayne.enterprises"}))

	var count int64
	testDB.Model(&model.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestTruncateAllTables(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	require.NoError(t, testDB.Create(&model.Contact{Name: "Gordon", Email: "jim@gcpd.gov", Subject: "Signal", Message: "Roof."}).Error)
	require.NoError(t, TruncateAllTables(testDB))

	var count int64
	testDB.Model(&model.Contact{}).Count(&count)
	assert.Zero(t, count)
}
