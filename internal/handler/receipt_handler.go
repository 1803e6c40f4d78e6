package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/service"
)

// ReceiptHandler handles receipt image HTTP requests
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// ReceiptResponse represents an attached receipt in API responses
type ReceiptResponse struct {
	EntryID       string `json:"entryId"`
	ThumbnailPath string `json:"thumbnailPath"`
	OriginalPath  string `json:"originalPath"`
}

// ReceiptURLResponse carries a presigned download URL
type ReceiptURLResponse struct {
	URL string `json:"url"`
}

// UploadReceipt handles POST /api/v1/entries/:id/receipt
func (h *ReceiptHandler) UploadReceipt(c echo.Context) error {
	// Don't attempt processing when storage isn't configured
	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid entry ID", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to process file")
	}

	meta, err := h.receiptService.AttachReceipt(c.Request().Context(), entryID, data, file.Filename)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return NewNotFoundError(c, "Entry not found")
		}
		switch err {
		case service.ErrReceiptTooLarge, service.ErrReceiptInvalidFormat,
			service.ErrReceiptTooSmall, service.ErrReceiptInvalidData:
			return NewValidationError(c, err.Error(), []ValidationError{
				{Field: "file", Message: err.Error()},
			})
		}
		log.Error().Err(err).Str("entry_id", entryID.String()).Msg("Failed to attach receipt")
		return NewInternalError(c, "Failed to attach receipt")
	}

	log.Info().Str("entry_id", entryID.String()).Str("path", meta.OriginalPath).Msg("Receipt attached")

	return c.JSON(http.StatusCreated, ReceiptResponse{
		EntryID:       meta.EntryID.String(),
		ThumbnailPath: meta.ThumbnailPath,
		OriginalPath:  meta.OriginalPath,
	})
}

// GetReceiptURL handles GET /api/v1/entries/:id/receipt
func (h *ReceiptHandler) GetReceiptURL(c echo.Context) error {
	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt downloads are disabled (storage not configured)")
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid entry ID", nil)
	}

	url, err := h.receiptService.ReceiptURL(c.Request().Context(), entryID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return NewNotFoundError(c, "Entry not found")
		}
		if errors.Is(err, service.ErrReceiptNotAttached) {
			return NewNotFoundError(c, "Entry has no receipt attached")
		}
		log.Error().Err(err).Str("entry_id", entryID.String()).Msg("Failed to generate receipt URL")
		return NewInternalError(c, "Failed to generate receipt URL")
	}

	return c.JSON(http.StatusOK, ReceiptURLResponse{URL: url})
}
