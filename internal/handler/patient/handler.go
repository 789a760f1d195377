package patient

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/handler"
	"github.com/echocare/caregiver-api/internal/model"
)

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, form model.PatientForm) (*model.CareRecipient, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, form model.PatientForm) (*model.CareRecipient, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.CareRecipient, error)
	List(ctx context.Context, ownerID uuid.UUID, search string) ([]*model.CareRecipient, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	var form model.PatientForm
	if !handler.BindJSON(c, &form) {
		return
	}

	patient, err := h.service.Create(c.Request.Context(), ownerID, form)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewMessageResponse(model.PatientCreatedMessage, patient))
}

func (h *Handler) ListPatients(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patients, err := h.service.List(c.Request.Context(), ownerID, c.Query("q"))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) GetPatient(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	patient, err := h.service.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	var form model.PatientForm
	if !handler.BindJSON(c, &form) {
		return
	}

	patient, err := h.service.Update(c.Request.Context(), ownerID, id, form)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(model.PatientUpdatedMessage, patient))
}

func (h *Handler) DeletePatient(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, id); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(model.PatientDeletedMessage, nil))
}
