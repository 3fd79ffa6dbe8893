package controller

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	helper "universitypoland_backend/internals/helpers"

	appsvc "universitypoland_backend/internals/features/admission/applications/service"
	"universitypoland_backend/internals/features/admission/documents/dto"
	"universitypoland_backend/internals/features/admission/documents/model"
	"universitypoland_backend/internals/features/admission/documents/service"
)

const maxDocumentBytes = 10 << 20 // 10 MiB

type DocumentController struct {
	Service *service.Service
}

func NewDocumentController(svc *service.Service) *DocumentController {
	return &DocumentController{Service: svc}
}

// UploadDocument accepts a multipart upload: form field "type" plus the
// binary under "file". Only the metadata row lives here; the bytes go to the
// blob store.
// POST /api/applications/:id/documents
func (h *DocumentController) UploadDocument(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid application id")
	}

	docType := model.DocumentType(c.FormValue("type"))
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "missing file")
	}
	if fileHeader.Size > maxDocumentBytes {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "file too large")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "unreadable file")
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, maxDocumentBytes))
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	doc, err := h.Service.Upload(c.UserContext(), userID, appID, docType, fileHeader.Filename, content)
	if err != nil {
		return mapDocumentError(c, err)
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "document uploaded", dto.FromModel(doc))
}

// ListDocuments returns the live document rows of an owned application.
// GET /api/applications/:id/documents
func (h *DocumentController) ListDocuments(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid application id")
	}

	docs, err := h.Service.ListByApplication(c.UserContext(), userID, appID)
	if err != nil {
		return mapDocumentError(c, err)
	}
	return helper.Success(c, "documents", dto.FromModels(docs))
}

// DeleteDocument removes a pending upload while the application is a draft.
// DELETE /api/applications/:id/documents/:docID
func (h *DocumentController) DeleteDocument(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid application id")
	}
	docID, err := uuid.Parse(c.Params("docID"))
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid document id")
	}

	if err := h.Service.Delete(c.UserContext(), userID, appID, docID); err != nil {
		return mapDocumentError(c, err)
	}
	return helper.Success(c, "document deleted", fiber.Map{"document_id": docID})
}

// ReviewDocument applies the admin verdict to a pending document.
// POST /admin/applications/:id/documents/:docID/review
func (h *DocumentController) ReviewDocument(c *fiber.Ctx) error {
	docID, err := uuid.Parse(c.Params("docID"))
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid document id")
	}

	var req dto.ReviewDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid json: "+err.Error())
	}
	if err := helper.ValidateStruct(&req); err != nil {
		return helper.ValidationError(c, err)
	}

	doc, err := h.Service.Review(c.UserContext(), docID, model.DocumentVerificationStatus(req.Verdict), req.Note)
	if err != nil {
		return mapDocumentError(c, err)
	}
	return helper.Success(c, "document reviewed", dto.FromModel(doc))
}

func mapDocumentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound):
		return helper.Error(c, fiber.StatusNotFound, "document not found")
	case errors.Is(err, appsvc.ErrApplicationNotFound):
		return helper.Error(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrNotOwner):
		return helper.Error(c, fiber.StatusForbidden, "not your application")
	case errors.Is(err, service.ErrInvalidDocumentType), errors.Is(err, service.ErrInvalidVerdict):
		return helper.Error(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrApplicationNotMutable), errors.Is(err, service.ErrAlreadyReviewed):
		return helper.Error(c, fiber.StatusConflict, err.Error())
	default:
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}
}
