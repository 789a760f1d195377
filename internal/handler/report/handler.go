package report

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/handler"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/service/report"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type Service interface {
	List(ctx context.Context, ownerID, patientID uuid.UUID) ([]model.ReportView, error)
	Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error
	UploadBatch(ctx context.Context, ownerID, patientID uuid.UUID, files []report.File) (*report.BatchResult, error)
	Ask(ctx context.Context, ownerID, patientID uuid.UUID, question string) (*report.AskResult, error)
	Uploading(ownerID uuid.UUID) bool
}

// ListResponse carries a patient's reports and whether a batch upload is
// still running for the account.
type ListResponse struct {
	Reports   []model.ReportView `json:"reports"`
	Uploading bool               `json:"uploading"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type Handler struct {
	service Service
	// maxMemory is passed to ParseMultipartForm; larger parts spill to disk.
	maxMemory int64
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, maxMemory: 8 << 20}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/patients/:id/reports")
	{
		reports.GET("", h.ListReports)
		reports.POST("", h.UploadReports)
		reports.POST("/ask", h.AskReports)
		reports.DELETE("/:reportId", h.DeleteReport)
	}
}

func (h *Handler) ListReports(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	reports, err := h.service.List(c.Request.Context(), ownerID, patientID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(ListResponse{
		Reports:   reports,
		Uploading: h.service.Uploading(ownerID),
	}))
}

// UploadReports accepts a multipart form with one or more "files" parts.
func (h *Handler) UploadReports(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(h.maxMemory); err != nil {
		handler.Fail(c, apperrors.BadRequest("invalid multipart form", err))
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	headers := c.Request.MultipartForm.File["files"]
	files := make([]report.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, fileFromHeader(fh))
	}

	result, err := h.service.UploadBatch(c.Request.Context(), ownerID, patientID, files)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(report.UploadedMessage, result))
}

func fileFromHeader(fh *multipart.FileHeader) report.File {
	return report.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func (h *Handler) DeleteReport(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "reportId", "report")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, patientID, id); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(model.ReportDeletedMessage, nil))
}

func (h *Handler) AskReports(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	var req AskRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	answer, err := h.service.Ask(c.Request.Context(), ownerID, patientID, req.Question)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(answer))
}
