package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/handler"
	"github.com/echocare/caregiver-api/internal/model"
	authsvc "github.com/echocare/caregiver-api/internal/service/auth"
	"github.com/echocare/caregiver-api/pkg/auth"
)

type Service interface {
	SignUp(ctx context.Context, req model.SignUpRequest) (*model.User, error)
	VerifyOTP(ctx context.Context, req model.VerifyOTPRequest) (*model.Session, error)
	SignIn(ctx context.Context, req model.SignInRequest) (*model.Session, error)
	SignOut(ctx context.Context, claims *auth.Claims)
	Session(ctx context.Context, userID uuid.UUID, claims *auth.Claims) (*model.Session, error)
	RequestPasswordReset(ctx context.Context, req model.PasswordResetRequest) error
	UpdatePassword(ctx context.Context, userID *uuid.UUID, req model.UpdatePasswordRequest) error
	RequestEmailChange(ctx context.Context, userID uuid.UUID, req model.EmailChangeRequest) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the endpoints that work without a session.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	a := r.Group("/auth")
	{
		a.POST("/signup", h.SignUp)
		a.POST("/signin", h.SignIn)
		a.POST("/verify", h.VerifyOTP)
		a.POST("/password/reset", h.RequestPasswordReset)
		a.PUT("/password", h.ResetPassword)
	}
}

// RegisterProtectedRoutes mounts the endpoints that need a bearer token.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	a := r.Group("/auth")
	{
		a.GET("/session", h.Session)
		a.POST("/signout", h.SignOut)
		a.POST("/email", h.RequestEmailChange)
		a.PUT("/password/current", h.UpdatePassword)
	}
}

func (h *Handler) SignUp(c *gin.Context) {
	var req model.SignUpRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	user, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewMessageResponse(authsvc.SignUpMessage, user))
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	session, err := h.svc.VerifyOTP(c.Request.Context(), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(authsvc.EmailVerifiedMessage, session))
}

func (h *Handler) SignIn(c *gin.Context) {
	var req model.SignInRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	session, err := h.svc.SignIn(c.Request.Context(), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(session))
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req model.PasswordResetRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.svc.RequestPasswordReset(c.Request.Context(), req); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(authsvc.ResetSentMessage, nil))
}

// ResetPassword sets a new password using the emailed recovery code.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req model.UpdatePasswordRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.svc.UpdatePassword(c.Request.Context(), nil, req); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(authsvc.PasswordUpdated, nil))
}

func (h *Handler) Session(c *gin.Context) {
	userID, ok := handler.UserID(c)
	if !ok {
		return
	}
	session, err := h.svc.Session(c.Request.Context(), userID, handler.Claims(c))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(session))
}

func (h *Handler) SignOut(c *gin.Context) {
	if claims := handler.Claims(c); claims != nil {
		h.svc.SignOut(c.Request.Context(), claims)
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(authsvc.SignedOutMessage, nil))
}

func (h *Handler) RequestEmailChange(c *gin.Context) {
	userID, ok := handler.UserID(c)
	if !ok {
		return
	}
	var req model.EmailChangeRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.svc.RequestEmailChange(c.Request.Context(), userID, req); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(authsvc.EmailChangeMessage, nil))
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	userID, ok := handler.UserID(c)
	if !ok {
		return
	}
	var req model.UpdatePasswordRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.svc.UpdatePassword(c.Request.Context(), &userID, req); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(authsvc.PasswordUpdated, nil))
}
