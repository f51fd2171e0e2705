package db

import (
	"errors"

	"github.com/batgear/batstore-backend/config"
	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/pkg/logger"
	"github.com/batgear/batstore-backend/pkg/util"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Product{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderStatusHistory{},
		&model.Contact{},
	}
}

// Migrate runs database migrations and seeds the admin account
func Migrate(store *config.StoreConfig) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := SeedAdmin(DB, store); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// SeedAdmin creates the admin account from config when it does not exist yet.
// An empty password skips seeding.
func SeedAdmin(db *gorm.DB, store *config.StoreConfig) error {
	if store == nil || store.AdminEmail == "" || store.AdminPassword == "" {
		logger.Warn("Admin credentials not configured, skipping admin seed")
		return nil
	}

	var existing model.User
	err := db.Where("email = ?", store.AdminEmail).First(&existing).Error
	if err == nil {
		if existing.Role != model.RoleAdmin {
			logger.Info("Promoting existing user to admin", map[string]interface{}{
				"user_id": existing.ID,
			})
			return db.Model(&existing).Update("role", model.RoleAdmin).Error
		}
		logger.Debug("Admin already seeded", map[string]interface{}{
			"user_id": existing.ID,
		})
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := util.HashPassword(store.AdminPassword)
	if err != nil {
		return err
	}

	admin := &model.User{
		Email:        store.AdminEmail,
		PasswordHash: hash,
		Name:         store.AdminName,
		Role:         model.RoleAdmin,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	logger.Info("Admin account seeded", map[string]interface{}{
		"user_id": admin.ID,
		"email":   admin.Email,
	})
	return nil
}
