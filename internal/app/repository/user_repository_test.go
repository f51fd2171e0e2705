package repository

import (
	"context"
	"testing"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*gorm.DB, UserRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	repo := NewUserRepository(testDB)
	return testDB, repo
}

func TestUserRepository_Create(t *testing.T) {
	_, repo := setupUserTest(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *model.User
		wantErr bool
	}{
		{
			name: "Valid user",
			user: &model.User{
				Email:        "bruce@wayne.enterprises",
				PasswordHash: "hashedpassword",
				Name:         "Bruce Wayne",
				Role:         model.RoleUser,
			},
			wantErr: false,
		},
		{
			name: "Duplicate email with different case",
			user: &model.User{
				Email:        "Bruce@Wayne.Enterprises",
				PasswordHash: "hashedpassword",
				Name:         "Matches Malone",
				Role:         model.RoleUser,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.NotZero(t, tt.user.ID)
			}
		})
	}
}

func TestUserRepository_FindByEmail(t *testing.T) {
	_, repo := setupUserTest(t)
	ctx := context.Background()

	user := &model.User{Email: "selina@kyle.cat", PasswordHash: "hash", Name: "Selina Kyle", Role: model.RoleUser}
	require.NoError(t, repo.Create(ctx, user))

	found, err := repo.FindByEmail(ctx, "  SELINA@kyle.cat ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByEmail(ctx, "joker@arkham.org")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_FindByIDAndUpdate(t *testing.T) {
	_, repo := setupUserTest(t)
	ctx := context.Background()

	user := &model.User{Email: "dick@wayne.enterprises", PasswordHash: "hash", Name: "Dick", Role: model.RoleUser}
	require.NoError(t, repo.Create(ctx, user))

	user.Name = "Dick Grayson"
	user.Phone = "555-0199"
	require.NoError(t, repo.Update(ctx, user))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dick Grayson", found.Name)
	assert.Equal(t, "555-0199", found.Phone)

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
