package repository

import (
	"context"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/pkg/logger"
	"gorm.io/gorm"
)

type ContactFilter struct {
	Status model.ContactStatus
	Limit  int
	Offset int
}

type ContactRepository interface {
	Create(ctx context.Context, contact *model.Contact) error
	FindByID(ctx context.Context, id uint) (*model.Contact, error)
	FindWithFilter(ctx context.Context, filter ContactFilter) ([]model.Contact, int64, error)
	Update(ctx context.Context, contact *model.Contact) error
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, contact *model.Contact) error {
	logger.Debug("Creating contact message in database", map[string]interface{}{
		"email":   contact.Email,
		"subject": contact.Subject,
	})

	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		logger.Error("Failed to create contact message in database", err, map[string]interface{}{
			"email": contact.Email,
		})
		return err
	}
	return nil
}

func (r *contactRepository) FindByID(ctx context.Context, id uint) (*model.Contact, error) {
	var contact model.Contact
	if err := r.db.WithContext(ctx).First(&contact, id).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) FindWithFilter(ctx context.Context, filter ContactFilter) ([]model.Contact, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Contact{})
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		logger.Error("Failed to count contact messages in database", err)
		return nil, 0, err
	}

	query := base().Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var contacts []model.Contact
	if err := query.Find(&contacts).Error; err != nil {
		logger.Error("Failed to find contact messages in database", err)
		return nil, 0, err
	}
	return contacts, total, nil
}

func (r *contactRepository) Update(ctx context.Context, contact *model.Contact) error {
	if err := r.db.WithContext(ctx).Save(contact).Error; err != nil {
		logger.Error("Failed to update contact message in database", err, map[string]interface{}{
			"contact_id": contact.ID,
		})
		return err
	}
	return nil
}
