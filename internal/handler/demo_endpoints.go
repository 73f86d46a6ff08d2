package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getDemoSimulation(c *gin.Context) {
	preview, err := h.demo.Preview(c.Request.Context(), c.Param("simulation_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	meta := preview.Scenario.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	c.JSON(http.StatusOK, demoSimulationResponse{
		SimulationID: preview.Scenario.ID,
		Meta:         meta,
		InitialState: preview.InitialState,
		Actions:      preview.Scenario.Actions,
	})
}

func (h *Handler) runDemoAction(c *gin.Context) {
	var req demoActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	res, err := h.demo.PreviewAction(c.Request.Context(), c.Param("simulation_id"), req.State, req.ActionID, req.Choice)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, demoActionResponse{
		NewState:     res.State,
		Feedback:     res.Feedback,
		Score:        res.Score,
		CoachSummary: res.CoachSummary,
		Log:          res.Log,
	})
}
