package handlers

import (
	"io"
	"log"

	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/gofiber/fiber/v3"
)

// ImportHandler handles spreadsheet uploads
type ImportHandler struct {
	baseHandler
	flow businessflow.ImportFlow
}

// NewImportHandler creates a new import handler
func NewImportHandler(flow businessflow.ImportFlow) *ImportHandler {
	return &ImportHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// UploadExcel imports parts and formulas from a workbook
// @Summary Upload Excel
// @Description Upserts parts by code from the "Parts" sheet (or the first sheet) and formulas by class from an optional "Formulas" sheet.
// @Tags Import
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Workbook (.xlsx or .xls)"
// @Success 200 {object} dto.APIResponse{data=dto.ImportExcelResponse}
// @Failure 400 {object} dto.APIResponse "Missing or unsupported file"
// @Failure 422 {object} dto.APIResponse "Unreadable workbook"
// @Router /api/v1/upload-excel [post]
func (h *ImportHandler) UploadExcel(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "File is required", "FILE_REQUIRED", err.Error())
	}

	f, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "File upload failed", "FILE_UPLOAD_FAILED", err.Error())
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("upload-excel: close upload: %v", err)
		}
	}()

	content, err := io.ReadAll(f)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "File upload failed", "FILE_UPLOAD_FAILED", err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.ImportExcel(ctx, fileHeader.Filename, content)
	if err != nil {
		return h.flowError(c, err, "Import failed", "IMPORT_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}
