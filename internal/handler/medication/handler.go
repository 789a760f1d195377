package medication

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/handler"
	"github.com/echocare/caregiver-api/internal/integration"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/service/medication"
	"github.com/echocare/caregiver-api/internal/timezone"
)

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, form model.MedicationForm) (*model.MedicationPlan, error)
	Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error
	List(ctx context.Context, ownerID, patientID uuid.UUID) ([]*model.MedicationPlan, error)
	Summary(ctx context.Context, ownerID uuid.UUID, req integration.SummaryRequest) (*medication.Summary, error)
}

type Handler struct {
	service Service
	now     func() time.Time
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/medications", h.ListMedications)
	r.POST("/patients/:id/medications", h.CreateMedication)
	r.DELETE("/patients/:id/medications/:medicationId", h.DeleteMedication)

	medications := r.Group("/medications")
	{
		medications.GET("/defaults", h.Defaults)
		medications.POST("/summary", h.Summary)
	}
}

func (h *Handler) CreateMedication(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	var form model.MedicationForm
	if !handler.BindJSON(c, &form) {
		return
	}
	form.PatientID = patientID

	plan, err := h.service.Create(c.Request.Context(), ownerID, form)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewMessageResponse(model.MedicationCreatedMessage, plan))
}

func (h *Handler) ListMedications(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	plans, err := h.service.List(c.Request.Context(), ownerID, patientID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(plans))
}

func (h *Handler) DeleteMedication(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "medicationId", "medication")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, patientID, id); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(model.MedicationDeletedMessage, nil))
}

// Defaults returns a blank form; the start date is today in the viewer's zone.
func (h *Handler) Defaults(c *gin.Context) {
	today := h.now().In(timezone.Load(handler.ViewerZone(c)))
	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.DefaultMedicationForm(today)))
}

func (h *Handler) Summary(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	var req integration.SummaryRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), ownerID, req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}
