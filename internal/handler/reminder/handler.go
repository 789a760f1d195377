package reminder

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/handler"
	"github.com/echocare/caregiver-api/internal/model"
)

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, form model.ReminderForm) (*model.Reminder, error)
	Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error
	List(ctx context.Context, ownerID, patientID uuid.UUID) ([]*model.Reminder, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/reminders", h.ListReminders)
	r.POST("/patients/:id/reminders", h.CreateReminder)
	r.DELETE("/patients/:id/reminders/:reminderId", h.DeleteReminder)
	r.GET("/reminders/defaults", h.Defaults)
}

func (h *Handler) CreateReminder(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	var form model.ReminderForm
	if !handler.BindJSON(c, &form) {
		return
	}
	form.PatientID = patientID

	reminder, err := h.service.Create(c.Request.Context(), ownerID, form)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewMessageResponse(model.ReminderCreatedMessage, reminder))
}

func (h *Handler) ListReminders(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	reminders, err := h.service.List(c.Request.Context(), ownerID, patientID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(reminders))
}

func (h *Handler) DeleteReminder(c *gin.Context) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "reminderId", "reminder")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, patientID, id); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(model.ReminderDeletedMessage, nil))
}

func (h *Handler) Defaults(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.DefaultReminderForm()))
}
