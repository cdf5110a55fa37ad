package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-plan-api/internal/dto"
	appErrors "github.com/noah-isme/study-plan-api/pkg/errors"
	"github.com/noah-isme/study-plan-api/pkg/response"
)

type tokenIssuer interface {
	Issue(req dto.IssueTokenRequest) (*dto.TokenResponse, error)
}

// TokenHandler issues learner tokens. Only mounted outside production.
type TokenHandler struct {
	service tokenIssuer
}

// NewTokenHandler creates a new handler.
func NewTokenHandler(svc tokenIssuer) *TokenHandler {
	return &TokenHandler{service: svc}
}

// Issue godoc
// @Summary Issue a learner token
// @Description Development helper that signs an access token for the given learner id.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.IssueTokenRequest true "Learner identity"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/token [post]
func (h *TokenHandler) Issue(c *gin.Context) {
	var req dto.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid token payload"))
		return
	}
	res, err := h.service.Issue(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
