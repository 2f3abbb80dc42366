package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/service"
	appErrors "github.com/noah-isme/portfolio-api/pkg/errors"
	"github.com/noah-isme/portfolio-api/pkg/response"
)

// ContactHandler wires HTTP endpoints to the contact service.
type ContactHandler struct {
	service   *service.ContactService
	dashboard *service.DashboardService
}

// NewContactHandler creates a new handler.
func NewContactHandler(svc *service.ContactService, dashboard *service.DashboardService) *ContactHandler {
	return &ContactHandler{service: svc, dashboard: dashboard}
}

func (h *ContactHandler) invalidateStats(c *gin.Context) {
	if h.dashboard != nil {
		h.dashboard.InvalidateStats(c.Request.Context())
	}
}

// Submit godoc
// @Summary Submit contact form
// @Description Store a public contact-form submission
// @Tags Contacts
// @Accept json
// @Produce json
// @Param payload body models.CreateContactRequest true "Contact payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /public/contact [post]
func (h *ContactHandler) Submit(c *gin.Context) {
	var req models.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")
	req.Referrer = c.GetHeader("Referer")

	contact, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"id": contact.ID}, "Thank you for reaching out. We will get back to you soon.")
}

// List godoc
// @Summary List contacts
// @Description List inbox submissions with filtering and pagination
// @Tags Contacts
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search name, email or subject"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/contacts [get]
func (h *ContactHandler) List(c *gin.Context) {
	filter := contactFilterFromQuery(c)

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, list, "")
}

// Get godoc
// @Summary Get contact
// @Description Fetch a single submission, marking it read
// @Tags Contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/contacts/{id} [get]
func (h *ContactHandler) Get(c *gin.Context) {
	contact, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, contact, "")
}

// Update godoc
// @Summary Update contact
// @Description Transition inbox status, optionally recording a reply
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body models.UpdateContactRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/contacts/{id} [put]
func (h *ContactHandler) Update(c *gin.Context) {
	var req models.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact update payload"))
		return
	}

	contact, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateStats(c)
	response.Success(c, contact, "Contact updated successfully")
}

// Delete godoc
// @Summary Delete contact
// @Description Remove a submission from the inbox
// @Tags Contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/contacts/{id} [delete]
func (h *ContactHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateStats(c)
	response.Success(c, nil, "Contact deleted successfully")
}

// Export godoc
// @Summary Export contacts
// @Description Download inbox submissions matching the filter as CSV
// @Tags Contacts
// @Produce text/csv
// @Param status query string false "Filter by status"
// @Param search query string false "Search name, email or subject"
// @Success 200 {string} string "CSV file"
// @Security BearerAuth
// @Router /manage/contacts/export [get]
func (h *ContactHandler) Export(c *gin.Context) {
	filter := contactFilterFromQuery(c)

	data, filename, err := h.service.ExportCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}

func contactFilterFromQuery(c *gin.Context) models.ContactFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return models.ContactFilter{
		Status:  c.Query("status"),
		Search:  c.Query("search"),
		Page:    page,
		PerPage: perPage,
	}
}
