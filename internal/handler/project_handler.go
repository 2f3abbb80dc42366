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

// ProjectHandler wires HTTP endpoints to the project service.
type ProjectHandler struct {
	service   *service.ProjectService
	dashboard *service.DashboardService
}

// NewProjectHandler creates a new handler.
func NewProjectHandler(svc *service.ProjectService, dashboard *service.DashboardService) *ProjectHandler {
	return &ProjectHandler{service: svc, dashboard: dashboard}
}

func (h *ProjectHandler) invalidateStats(c *gin.Context) {
	if h.dashboard != nil {
		h.dashboard.InvalidateStats(c.Request.Context())
	}
}

// List godoc
// @Summary List projects
// @Description List showcase projects with filtering and pagination
// @Tags Projects
// @Produce json
// @Param featured query bool false "Only featured projects"
// @Param year query string false "Filter by year"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /public/projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	filter := models.ProjectFilter{
		Year: c.Query("year"),
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err == nil {
			filter.Featured = &featured
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, list, "")
}

// Get godoc
// @Summary Get project
// @Description Fetch a single project with its images
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project, "")
}

// Create godoc
// @Summary Create project
// @Description Store a new showcase project
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body models.CreateProjectRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}

	project, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateStats(c)
	response.Created(c, project, "Project created successfully")
}

// Update godoc
// @Summary Update project
// @Description Replace a showcase project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body models.UpdateProjectRequest true "Project payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}

	project, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateStats(c)
	response.Success(c, project, "Project updated successfully")
}

// Delete godoc
// @Summary Delete project
// @Description Remove a project and its media
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateStats(c)
	response.Success(c, nil, "Project deleted successfully")
}

// UploadImage godoc
// @Summary Upload project image
// @Description Attach an image to a project, first image becomes primary
// @Tags Projects
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Project ID"
// @Param image formData file true "Image file"
// @Param is_primary formData bool false "Mark as primary"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/projects/{id}/images [post]
func (h *ProjectHandler) UploadImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "image file required"))
		return
	}

	isPrimary, _ := strconv.ParseBool(c.PostForm("is_primary"))

	image, err := h.service.UploadImage(c.Request.Context(), c.Param("id"), header, isPrimary)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, image, "Image uploaded successfully")
}

// SetPrimaryImage godoc
// @Summary Set primary image
// @Description Mark an image as the project's primary image
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Param imageId path string true "Image ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/projects/{id}/images/{imageId}/primary [put]
func (h *ProjectHandler) SetPrimaryImage(c *gin.Context) {
	if err := h.service.SetPrimaryImage(c.Request.Context(), c.Param("id"), c.Param("imageId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil, "Primary image updated")
}

// DeleteImage godoc
// @Summary Delete project image
// @Description Remove an image from a project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Param imageId path string true "Image ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /manage/projects/{id}/images/{imageId} [delete]
func (h *ProjectHandler) DeleteImage(c *gin.Context) {
	if err := h.service.DeleteImage(c.Request.Context(), c.Param("id"), c.Param("imageId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil, "Image deleted successfully")
}
