package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tracekit/harbox-api/internal/service"
	appErrors "github.com/tracekit/harbox-api/pkg/errors"
	"github.com/tracekit/harbox-api/pkg/response"
)

// FileHandler handles capture upload bookkeeping endpoints.
type FileHandler struct {
	service *service.FileService
}

// NewFileHandler creates a new file handler.
func NewFileHandler(svc *service.FileService) *FileHandler {
	return &FileHandler{service: svc}
}

// Welcome godoc
// @Summary File upload welcome
// @Description Confirms the upload service is running
// @Tags Files
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /files [get]
func (h *FileHandler) Welcome(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"message": "welcome to file upload"}, nil)
}

// Upload godoc
// @Summary Upload a capture file
// @Description Accepts a .har or .json file under the har-file form field
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param har-file formData file true "Capture file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	header, err := c.FormFile("har-file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "no file uploaded"))
		return
	}

	src, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	file, err := h.service.Upload(c.Request.Context(), service.UploadInput{
		Username:    user.Username,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      src,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"message": "file uploaded successfully", "file": file})
}

// Delete godoc
// @Summary Delete a file by path
// @Description Soft-deletes the bookkeeping row and removes the disk file
// @Tags Files
// @Produce json
// @Param path query string true "Stored file path"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	path := c.Query("path")
	if err := h.service.Delete(c.Request.Context(), path); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "file deleted successfully"}, nil)
}

// Active godoc
// @Summary List active files
// @Description Lists live capture files for a username
// @Tags Files
// @Produce json
// @Param username query string true "Owner username"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/active [get]
func (h *FileHandler) Active(c *gin.Context) {
	files, err := h.service.ListActive(c.Request.Context(), c.Query("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"files": files}, nil)
}

// Deleted godoc
// @Summary List deleted files
// @Description Lists soft-deleted capture files for a username
// @Tags Files
// @Produce json
// @Param username query string true "Owner username"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/deleted [get]
func (h *FileHandler) Deleted(c *gin.Context) {
	files, err := h.service.ListDeleted(c.Request.Context(), c.Query("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"files": files}, nil)
}
