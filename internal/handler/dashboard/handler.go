package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/dashboard"
	"github.com/echocare/caregiver-api/internal/handler"
)

// Boards hands out the per-account dashboard board.
type Boards interface {
	Board(ownerID uuid.UUID) *dashboard.Board
}

type TabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

// EntryResponse is a patient's view state plus its rendered records when
// the patient is expanded.
type EntryResponse struct {
	dashboard.EntryState
	Detail *dashboard.Detail `json:"detail,omitempty"`
}

type Handler struct {
	boards Boards
	now    func() time.Time
}

func NewHandler(boards Boards) *Handler {
	return &Handler{boards: boards, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	d := r.Group("/dashboard")
	{
		d.GET("", h.GetDashboard)
		d.POST("/refresh", h.RefreshDashboard)
		d.POST("/patients/:id/toggle", h.TogglePatient)
		d.PUT("/patients/:id/tab", h.SetTab)
		d.POST("/patients/:id/refresh", h.RefreshPatient)
	}
}

func (h *Handler) board(c *gin.Context) (*dashboard.Board, bool) {
	ownerID, ok := handler.UserID(c)
	if !ok {
		return nil, false
	}
	return h.boards.Board(ownerID), true
}

// GetDashboard returns the filtered patient list with expanded patients'
// records classified in the viewer's zone.
func (h *Handler) GetDashboard(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}
	if err := board.Ensure(c.Request.Context()); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(board.View(c.Query("q"), handler.ViewerZone(c), h.now())))
}

func (h *Handler) RefreshDashboard(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}
	if err := board.LoadAll(c.Request.Context()); err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(board.View(c.Query("q"), handler.ViewerZone(c), h.now())))
}

func (h *Handler) TogglePatient(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	state, err := board.Toggle(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.entry(c, board, state)))
}

func (h *Handler) SetTab(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}
	var req TabRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	state, err := board.SetTab(c.Request.Context(), id, req.Tab)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.entry(c, board, state)))
}

func (h *Handler) RefreshPatient(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id", "patient")
	if !ok {
		return
	}

	state, err := board.LoadOne(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.entry(c, board, state)))
}

func (h *Handler) entry(c *gin.Context, board *dashboard.Board, state dashboard.EntryState) EntryResponse {
	resp := EntryResponse{EntryState: state}
	if state.Expanded {
		if detail, ok := board.Detail(state.PatientID, handler.ViewerZone(c), h.now()); ok {
			resp.Detail = detail
		}
	}
	return resp
}
