package service

import (
	"context"
	"errors"
	"strings"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/internal/app/repository"
	"github.com/batgear/batstore-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrContactNotFound      = errors.New("contact message not found")
	ErrInvalidContactStatus = errors.New("invalid contact status")
)

type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

type ContactPagination struct {
	PageInfo
	TotalContacts int64 `json:"totalContacts"`
}

type ContactPage struct {
	Contacts   []model.Contact   `json:"contacts"`
	Pagination ContactPagination `json:"pagination"`
}

type ContactService interface {
	Submit(ctx context.Context, input ContactInput) (*model.Contact, error)
	List(ctx context.Context, status model.ContactStatus, page, limit int) (*ContactPage, error)
	Update(ctx context.Context, id uint, status model.ContactStatus, response *string) (*model.Contact, error)
}

type contactService struct {
	contactRepo repository.ContactRepository
}

func NewContactService(contactRepo repository.ContactRepository) ContactService {
	return &contactService{contactRepo: contactRepo}
}

func (s *contactService) Submit(ctx context.Context, input ContactInput) (*model.Contact, error) {
	contact := &model.Contact{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Subject: strings.TrimSpace(input.Subject),
		Message: strings.TrimSpace(input.Message),
		Status:  model.ContactStatusPending,
	}
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, err
	}

	logger.Info("Contact message received", map[string]interface{}{
		"contact_id": contact.ID,
		"email":      contact.Email,
	})
	return contact, nil
}

func (s *contactService) List(ctx context.Context, status model.ContactStatus, page, limit int) (*ContactPage, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidContactStatus
	}
	page, limit = normalizePage(page, limit, DefaultContactPageSize)

	contacts, total, err := s.contactRepo.FindWithFilter(ctx, repository.ContactFilter{
		Status: status,
		Limit:  limit,
		Offset: offsetFor(page, limit),
	})
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}

	return &ContactPage{
		Contacts: contacts,
		Pagination: ContactPagination{
			PageInfo:      newPageInfo(page, limit, total),
			TotalContacts: total,
		},
	}, nil
}

// Update changes the triage status and, when given, the admin response
func (s *contactService) Update(ctx context.Context, id uint, status model.ContactStatus, response *string) (*model.Contact, error) {
	if !status.Valid() {
		return nil, ErrInvalidContactStatus
	}

	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}

	contact.Status = status
	if response != nil {
		contact.Response = strings.TrimSpace(*response)
	}
	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, err
	}

	logger.Info("Contact message updated", map[string]interface{}{
		"contact_id": id,
		"status":     status,
	})
	return contact, nil
}
