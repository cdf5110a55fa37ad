package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-plan-api/internal/dto"
	"github.com/noah-isme/study-plan-api/internal/middleware"
	"github.com/noah-isme/study-plan-api/internal/models"
	appErrors "github.com/noah-isme/study-plan-api/pkg/errors"
	"github.com/noah-isme/study-plan-api/pkg/response"
)

type studyPlanService interface {
	Generate(ctx context.Context, learnerID string, req dto.GenerateStudyPlanRequest) (*dto.StudyPlanResponse, error)
	Get(ctx context.Context, learnerID string) (*dto.StudyPlanResponse, error)
	Progress(ctx context.Context, learnerID string) (*models.Progress, bool, error)
	UpdateSession(ctx context.Context, learnerID string, index int, req dto.UpdateSessionRequest) (*dto.StudyPlanResponse, error)
	Delete(ctx context.Context, learnerID string) error
}

// StudyPlanHandler exposes the authenticated learner's study plan.
type StudyPlanHandler struct {
	service studyPlanService
}

// NewStudyPlanHandler constructs the handler.
func NewStudyPlanHandler(service studyPlanService) *StudyPlanHandler {
	return &StudyPlanHandler{service: service}
}

// Generate godoc
// @Summary Generate a study plan
// @Description Builds a new schedule for the learner, replacing any previous plan.
// @Tags StudyPlans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateStudyPlanRequest true "Plan constraints"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /plans/me [post]
func (h *StudyPlanHandler) Generate(c *gin.Context) {
	learnerID, err := learnerFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.GenerateStudyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid study plan payload"))
		return
	}
	resp, err := h.service.Generate(c.Request.Context(), learnerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Get godoc
// @Summary Current study plan
// @Tags StudyPlans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/me [get]
func (h *StudyPlanHandler) Get(c *gin.Context) {
	learnerID, err := learnerFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.service.Get(c.Request.Context(), learnerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Progress godoc
// @Summary Study progress
// @Description Completion, streak, hours and per-subject progress. meta.cache_hit reports cache use.
// @Tags StudyPlans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/me/progress [get]
func (h *StudyPlanHandler) Progress(c *gin.Context) {
	learnerID, err := learnerFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	progress, hit, err := h.service.Progress(c.Request.Context(), learnerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, progress, middleware.ExtractMeta(c))
}

// UpdateSession godoc
// @Summary Update a session
// @Description Marks a session complete or incomplete and/or replaces its notes.
// @Tags StudyPlans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param index path int true "Session index within the schedule"
// @Param payload body dto.UpdateSessionRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/me/sessions/{index} [patch]
func (h *StudyPlanHandler) UpdateSession(c *gin.Context) {
	learnerID, err := learnerFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "index must be a non-negative integer"))
		return
	}
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	resp, err := h.service.UpdateSession(c.Request.Context(), learnerID, index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Delete godoc
// @Summary Delete the study plan
// @Tags StudyPlans
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /plans/me [delete]
func (h *StudyPlanHandler) Delete(c *gin.Context) {
	learnerID, err := learnerFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), learnerID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
