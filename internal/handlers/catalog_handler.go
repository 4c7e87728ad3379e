package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onehorn/event-booking-backend/internal/catalog"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
)

// CatalogHandler serves the package catalog. It needs no storage.
type CatalogHandler struct{}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// PackageDetail is a package with its payment schedule
type PackageDetail struct {
	catalog.Package
	Total    models.Money           `json:"total"`
	Schedule catalog.StageBreakdown `json:"schedule"`
}

// ListPackages handles GET /api/v1/packages?category=
func (h *CatalogHandler) ListPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": catalog.Categories,
		"packages":   catalog.FilterByCategory(c.Query("category")),
	})
}

// GetPackage handles GET /api/v1/packages/:name
func (h *CatalogHandler) GetPackage(c *gin.Context) {
	pkg, ok := catalog.Find(c.Param("name"))
	if !ok {
		respondError(c, nil, apperror.NotFound("package"))
		return
	}
	c.JSON(http.StatusOK, PackageDetail{
		Package:  pkg,
		Total:    pkg.Total(),
		Schedule: catalog.Breakdown(pkg.Total()),
	})
}
