package profile

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/handler"
	"github.com/echocare/caregiver-api/internal/service/profile"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*profile.Details, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, a profile.Avatar) (*profile.Details, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	p := r.Group("/profile")
	{
		p.GET("", h.GetProfile)
		p.POST("/avatar", h.UploadAvatar)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := handler.UserID(c)
	if !ok {
		return
	}
	details, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(details))
}

// UploadAvatar takes the image from the multipart "file" part.
func (h *Handler) UploadAvatar(c *gin.Context) {
	userID, ok := handler.UserID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		handler.Fail(c, apperrors.BadRequest("file is required", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		handler.Fail(c, apperrors.BadRequest("failed to read file", err))
		return
	}
	defer f.Close()

	details, err := h.service.UploadAvatar(c.Request.Context(), userID, profile.Avatar{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     f,
	})
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(profile.AvatarUpdatedMessage, details))
}
