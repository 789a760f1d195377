package appointment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/handler"
	"github.com/echocare/caregiver-api/internal/model"
)

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, form model.AppointmentForm) (*model.Appointment, error)
	Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error
	List(ctx context.Context, ownerID, patientID uuid.UUID) ([]*model.Appointment, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/appointments", h.ListAppointments)
	r.POST("/patients/:id/appointments", h.CreateAppointment)
	r.DELETE("/patients/:id/appointments/:appointmentId", h.DeleteAppointment)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	var form model.AppointmentForm
	if !handler.BindJSON(c, &form) {
		return
	}
	form.PatientID = patientID

	appointment, err := h.service.Create(c.Request.Context(), ownerID, form)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewMessageResponse(model.AppointmentCreatedMessage, appointment))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	appointments, err := h.service.List(c.Request.Context(), ownerID, patientID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "appointmentId", "appointment")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, patientID, id); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(model.AppointmentDeletedMessage, nil))
}
