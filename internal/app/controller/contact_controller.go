package controller

import (
	"net/http"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/internal/app/service"
	apperrors "github.com/batgear/batstore-backend/internal/errors"
	"github.com/batgear/batstore-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type ContactController struct {
	contactService service.ContactService
}

func NewContactController(contactService service.ContactService) *ContactController {
	return &ContactController{contactService: contactService}
}

type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=50"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required,max=100"`
	Message string `json:"message" binding:"required,max=5000"`
}

type UpdateContactRequest struct {
	Status   model.ContactStatus `json:"status" binding:"required"`
	Response *string             `json:"response"`
}

// Submit stores a message from the contact form
// POST /api/contact/submit
func (ctrl *ContactController) Submit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BindingError(c, err)
		return
	}

	contact, err := ctrl.contactService.Submit(c.Request.Context(), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		respondServiceError(c, log, err, "submit contact message")
		return
	}

	respond(c, http.StatusCreated, "Message sent", gin.H{"contact": contact})
}

// List (admin)
// GET /api/contact
func (ctrl *ContactController) List(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	page, err := ctrl.contactService.List(c.Request.Context(),
		model.ContactStatus(c.Query("status")), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, log, err, "list contact messages")
		return
	}

	respond(c, http.StatusOK, "", page)
}

// Update (admin)
// PATCH /api/contact/:id
func (ctrl *ContactController) Update(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BindingError(c, err)
		return
	}

	contact, err := ctrl.contactService.Update(c.Request.Context(), id, req.Status, req.Response)
	if err != nil {
		respondServiceError(c, log, err, "update contact message")
		return
	}

	respond(c, http.StatusOK, "Message updated", gin.H{"contact": contact})
}
