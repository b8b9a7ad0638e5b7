package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/trustfund-platform/trustfund/internal/auth"
	"github.com/trustfund-platform/trustfund/internal/trustscore"
	"github.com/trustfund-platform/trustfund/internal/users"
	"go.uber.org/zap"
)

// accountSvc is the subset of users.UserService used by UserHandler.
type accountSvc interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	SetTrustScore(ctx context.Context, userID uuid.UUID, score int) error
}

// UserHandler serves the authenticated user's profile and credit assessment.
type UserHandler struct {
	users  accountSvc
	scorer trustscore.Scorer
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userSvc accountSvc, scorer trustscore.Scorer, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: userSvc, scorer: scorer, logger: logger}
}

// Register mounts the user routes on the given router group.
func (h *UserHandler) Register(rg *gin.RouterGroup, requireUser gin.HandlerFunc) {
	u := rg.Group("/users", requireUser)
	{
		u.GET("/me", h.Me)
		u.POST("/me/assessment", h.SubmitAssessment)
	}
}

// Me handles GET /users/me — the caller's own account.
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	u, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}
	c.JSON(http.StatusOK, u)
}

// SubmitAssessment handles POST /users/me/assessment — scores the
// questionnaire and writes the result to the caller's trust score.
func (h *UserHandler) SubmitAssessment(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	var sub trustscore.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.scorer.Score(c.Request.Context(), sub)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.SetTrustScore(c.Request.Context(), userID, res.TrustScore); err != nil {
		h.logger.Error("write assessment trust score", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save trust score"})
		return
	}

	h.logger.Info("credit assessment completed",
		zap.String("user_id", userID.String()),
		zap.Int("trust_score", res.TrustScore),
		zap.Bool("capped", res.Capped))
	c.JSON(http.StatusOK, res)
}
