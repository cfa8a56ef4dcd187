package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
	"github.com/gradtrack/mentor-api/pkg/response"
	"github.com/gradtrack/mentor-api/pkg/storage"
)

// AttachmentHandler stores uploaded files and serves them back through
// signed URLs.
type AttachmentHandler struct {
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
}

// NewAttachmentHandler constructs AttachmentHandler.
func NewAttachmentHandler(store *storage.LocalStorage, signer *storage.SignedURLSigner) *AttachmentHandler {
	return &AttachmentHandler{store: store, signer: signer}
}

// Upload godoc
// @Summary Upload an attachment
// @Description Accepts a multipart file, enforcing the MIME allowlist and size limit, and returns a signed download token.
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Attachment file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !h.store.Allowed(contentType) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", contentType)))
		return
	}
	if max := h.store.MaxSizeBytes(); max > 0 && fileHeader.Size > max {
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit"))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close()

	attachmentID := uuid.NewString()
	stored := attachmentID + filepath.Ext(fileHeader.Filename)
	relPath, err := h.store.SaveStream(stored, src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload"))
		return
	}

	token, expiresAt, err := h.signer.Generate(attachmentID, relPath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url"))
		return
	}

	response.Created(c, gin.H{
		"id":         attachmentID,
		"filename":   fileHeader.Filename,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// Download godoc
// @Summary Download an attachment
// @Tags Attachments
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /attachments/{token} [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid or expired download token"))
		return
	}

	file, err := h.store.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "attachment not found"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat attachment"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
