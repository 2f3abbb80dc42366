package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portfolio-api/internal/service"
	"github.com/noah-isme/portfolio-api/pkg/export"
	"github.com/noah-isme/portfolio-api/pkg/response"
)

// CVHandler serves the generated resume.
type CVHandler struct {
	service *service.CVService
}

// NewCVHandler creates a new handler.
func NewCVHandler(svc *service.CVService) *CVHandler {
	return &CVHandler{service: svc}
}

// Download godoc
// @Summary Download CV
// @Description Generate and download the resume as a themed PDF, or as HTML with format=html
// @Tags CV
// @Produce application/pdf
// @Param theme query string false "Theme: professional, modern or minimal"
// @Param format query string false "Format: pdf (default) or html"
// @Success 200 {string} string "Resume document"
// @Router /public/cv/download [get]
func (h *CVHandler) Download(c *gin.Context) {
	theme := export.ParseCVTheme(c.Query("theme"))

	if c.Query("format") == "html" {
		page, err := h.service.RenderPreview()
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=cv.html")
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
		return
	}

	data, filename, err := h.service.RenderPDF(theme)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}

// Preview godoc
// @Summary Preview CV
// @Description Render the resume as an HTML page
// @Tags CV
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router /public/cv/preview [get]
func (h *CVHandler) Preview(c *gin.Context) {
	page, err := h.service.RenderPreview()
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
