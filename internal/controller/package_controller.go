package controller

import (
	"errors"
	"strconv"

	"lms_content_backend/internal/model"
	"lms_content_backend/internal/service"
	"lms_content_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PackageController struct {
	PackageService *service.PackageService
}

func NewPackageController(packageService *service.PackageService) *PackageController {
	return &PackageController{PackageService: packageService}
}

// Upload godoc
// @Summary Upload a SCORM or H5P archive
// @Tags packages
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "zip archive"
// @Success 201 {object} util.Response
// @Security BearerAuth
// @Router /api/admin/packages [post]
func (ctrl *PackageController) Upload(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.BadRequest(c, "missing file field")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	defer file.Close()

	pkg, err := ctrl.PackageService.UploadPackage(c.Request.Context(), claims.UserID, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		var extractErr *util.ExtractionError
		var manifestErr *util.ManifestError
		switch {
		case errors.As(err, &extractErr), errors.As(err, &manifestErr):
			// The row exists; tell the caller what was wrong with the archive.
			util.BadRequest(c, err.Error())
		default:
			respondServiceError(c, err)
		}
		return
	}
	util.Created(c, pkg)
}

// List godoc
// @Summary List uploaded packages
// @Tags packages
// @Produce json
// @Param kind query string false "scorm12, scorm2004, h5p, or scorm"
// @Success 200 {object} util.Response
// @Security BearerAuth
// @Router /api/admin/packages [get]
func (ctrl *PackageController) List(c *gin.Context) {
	kind := model.PackageKind(c.Query("kind"))
	packages, err := ctrl.PackageService.PackageRepo.List(c.Request.Context(), kind)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Success(c, packages)
}

// ReExtract godoc
// @Summary Re-run extraction from the stored archive
// @Tags packages
// @Produce json
// @Param id path int true "package id"
// @Success 200 {object} util.Response
// @Security BearerAuth
// @Router /api/admin/packages/{id}/extract [post]
func (ctrl *PackageController) ReExtract(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid package id")
		return
	}

	pkg, err := ctrl.PackageService.ReExtract(c.Request.Context(), uint(id))
	if err != nil {
		var extractErr *util.ExtractionError
		var manifestErr *util.ManifestError
		if errors.As(err, &extractErr) || errors.As(err, &manifestErr) {
			util.BadRequest(c, err.Error())
			return
		}
		respondServiceError(c, err)
		return
	}
	util.Success(c, pkg)
}

// Progress godoc
// @Summary Report extraction progress
// @Tags packages
// @Produce json
// @Param id path int true "package id"
// @Success 200 {object} util.Response
// @Security BearerAuth
// @Router /api/admin/packages/{id}/progress [get]
func (ctrl *PackageController) Progress(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid package id")
		return
	}

	marker, err := ctrl.PackageService.Progress(c.Request.Context(), uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Success(c, gin.H{"progress": marker})
}

// Delete godoc
// @Summary Delete a package and its extracted files
// @Tags packages
// @Produce json
// @Param id path int true "package id"
// @Success 200 {object} util.Response
// @Security BearerAuth
// @Router /api/admin/packages/{id} [delete]
func (ctrl *PackageController) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid package id")
		return
	}

	if err := ctrl.PackageService.DeletePackage(c.Request.Context(), uint(id)); err != nil {
		respondServiceError(c, err)
		return
	}
	util.Success(c, nil)
}
