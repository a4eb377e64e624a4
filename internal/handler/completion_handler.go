package handler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/models"
	appErrors "github.com/hostelhq/maintenance-api/pkg/errors"
	"github.com/hostelhq/maintenance-api/pkg/response"
	"github.com/hostelhq/maintenance-api/pkg/storage"
)

type completionService interface {
	Complete(ctx context.Context, requestID string, req dto.CompleteWorkRequest, actorID string) (*models.CompletionRecord, error)
	GetByRequest(ctx context.Context, requestID string) (*models.CompletionRecord, error)
	RecordQualityCheck(ctx context.Context, completionID string, req dto.QualityCheckRequest, actorID string) (*models.QualityCheck, error)
	QualityChecks(ctx context.Context, completionID string) ([]models.QualityCheck, error)
	IssueCertificate(ctx context.Context, completionID string, req dto.IssueCertificateRequest, actorID string) (*models.Certificate, error)
	Certificate(ctx context.Context, completionID string) (*models.Certificate, error)
}

// CompletionHandler exposes completion, quality check and certificate endpoints.
type CompletionHandler struct {
	service completionService
	signer  *storage.SignedURLSigner
	files   *storage.LocalStorage
}

// NewCompletionHandler builds a new handler.
func NewCompletionHandler(service completionService, signer *storage.SignedURLSigner, files *storage.LocalStorage) *CompletionHandler {
	return &CompletionHandler{service: service, signer: signer, files: files}
}

// Complete godoc
// @Summary Record the terminal work on an in-progress request
// @Tags Completions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.CompleteWorkRequest true "Completion payload"
// @Success 201 {object} response.Envelope
// @Router /requests/{id}/complete [post]
func (h *CompletionHandler) Complete(c *gin.Context) {
	var req dto.CompleteWorkRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid completion payload"))
		return
	}
	record, err := h.service.Complete(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// GetByRequest godoc
// @Summary Get the completion record of a request
// @Tags Completions
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/completion [get]
func (h *CompletionHandler) GetByRequest(c *gin.Context) {
	record, err := h.service.GetByRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// RecordQualityCheck godoc
// @Summary Record a quality inspection of completed work
// @Tags Completions
// @Accept json
// @Produce json
// @Param id path string true "Completion ID"
// @Param payload body dto.QualityCheckRequest true "Quality check payload"
// @Success 201 {object} response.Envelope
// @Router /completions/{id}/quality-checks [post]
func (h *CompletionHandler) RecordQualityCheck(c *gin.Context) {
	var req dto.QualityCheckRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quality check payload"))
		return
	}
	check, err := h.service.RecordQualityCheck(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, check)
}

// QualityChecks godoc
// @Summary List quality inspections of a completion
// @Tags Completions
// @Produce json
// @Param id path string true "Completion ID"
// @Success 200 {object} response.Envelope
// @Router /completions/{id}/quality-checks [get]
func (h *CompletionHandler) QualityChecks(c *gin.Context) {
	checks, err := h.service.QualityChecks(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checks, nil)
}

// IssueCertificate godoc
// @Summary Issue the completion certificate
// @Tags Completions
// @Accept json
// @Produce json
// @Param id path string true "Completion ID"
// @Param payload body dto.IssueCertificateRequest true "Certificate payload"
// @Success 201 {object} response.Envelope
// @Router /completions/{id}/certificate [post]
func (h *CompletionHandler) IssueCertificate(c *gin.Context) {
	var req dto.IssueCertificateRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid certificate payload"))
		return
	}
	cert, err := h.service.IssueCertificate(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cert)
}

// Certificate godoc
// @Summary Get the certificate of a completion with a signed download link
// @Tags Completions
// @Produce json
// @Param id path string true "Completion ID"
// @Success 200 {object} response.Envelope
// @Router /completions/{id}/certificate [get]
func (h *CompletionHandler) Certificate(c *gin.Context) {
	cert, err := h.service.Certificate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	var meta map[string]interface{}
	if cert.FilePath != nil && h.signer != nil {
		token, expiresAt, signErr := h.signer.Generate(cert.ID, *cert.FilePath)
		if signErr == nil {
			meta = map[string]interface{}{
				"downloadUrl": fmt.Sprintf("/certificates/download?token=%s", token),
				"expiresAt":   expiresAt,
			}
		}
	}
	response.JSON(c, http.StatusOK, cert, nil, meta)
}

// Download godoc
// @Summary Download a certificate file using a signed token
// @Tags Completions
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /certificates/download [get]
func (h *CompletionHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	_, relPath, _, err := h.signer.Parse(token, false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token"))
		return
	}

	file, err := h.files.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "certificate file not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read certificate file"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(relPath)))
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}
