package handler

import (
	"fmt"
	"net/http"

	"simulation-server/internal/models"
	"simulation-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) listSimulations(c *gin.Context) {
	summaries, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if summaries == nil {
		summaries = []models.ScenarioSummary{}
	}
	c.JSON(http.StatusOK, catalogResponse{Simulations: summaries})
}

func (h *Handler) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	startReq := service.StartRequest{
		ScenarioID: req.SimulationID,
		Industry:   req.Industry,
		Role:       req.Role,
	}
	if req.Participant != nil {
		startReq.Participant = models.Participant{Email: req.Participant.Email, Name: req.Participant.Name}
	}

	res, err := h.sessions.Start(c.Request.Context(), startReq)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, startSessionResponse{
		SessionID:    res.Session.ID.String(),
		SimulationID: res.Scenario.ID,
		Status:       res.Session.Status,
		InitialState: res.Session.State,
		Meta:         res.Scenario.Meta,
		Context:      res.Scenario.Context,
		Actions:      res.Scenario.Actions,
	})
}

func (h *Handler) getSession(c *gin.Context) {
	id, ok := h.sessionIDParam(c)
	if !ok {
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) applyAction(c *gin.Context) {
	id, ok := h.sessionIDParam(c)
	if !ok {
		return
	}
	var req applyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	res, err := h.sessions.Apply(c.Request.Context(), id, req.ActionID, req.Choice)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, applyActionResponse{
		NewState: res.State,
		Feedback: res.Feedback,
		Log:      res.Log,
		Version:  res.Version,
	})
}

func (h *Handler) completeSession(c *gin.Context) {
	id, ok := h.sessionIDParam(c)
	if !ok {
		return
	}
	res, err := h.sessions.Complete(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, completeResponse{
		FinalState:   res.FinalState,
		Score:        res.Score,
		CoachSummary: res.CoachSummary,
		History:      res.History,
	})
}

// sessionIDParam разбирает :session_id. При ошибке ответ уже отправлен.
// Идентификатор, который не является UUID, не может принадлежать ни одной сессии.
func (h *Handler) sessionIDParam(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("session_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.handleServiceError(c, fmt.Errorf("%w: '%s'", models.ErrSessionNotFound, raw))
		return uuid.Nil, false
	}
	return id, true
}
