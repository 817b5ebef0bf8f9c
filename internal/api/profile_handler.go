package api

import (
	"alcyxob/weight-tracker/internal/domain"
	"alcyxob/weight-tracker/internal/service"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileHandler serves profile and goal lifecycle endpoints, both by path id and for the token user (/me).
type ProfileHandler struct {
	goalService    service.GoalService
	historyService service.HistoryService
}

func NewProfileHandler(goalService service.GoalService, historyService service.HistoryService) *ProfileHandler {
	return &ProfileHandler{goalService: goalService, historyService: historyService}
}

// --- Request DTOs ---

type CreateProfileRequest struct {
	Name          string  `json:"name"`
	Gender        string  `json:"gender"`
	Age           int     `json:"age"`
	Height        float64 `json:"height"`
	CurrentWeight float64 `json:"currentWeight"`
	TargetWeight  float64 `json:"targetWeight"`
	TargetDate    *Date   `json:"targetDate"`
}

// GoalUpdateRequest is the goal-only form. goalStatus and goalCreatedAt may be sent but are ignored.
type GoalUpdateRequest struct {
	Height        *float64 `json:"height"`
	CurrentWeight *float64 `json:"currentWeight"`
	TargetWeight  *float64 `json:"targetWeight"`
	TargetDate    *Date    `json:"targetDate"`
	GoalID        string   `json:"goalId"`
}

type ProfileUpdateRequest struct {
	Name          string   `json:"name"`
	Gender        string   `json:"gender"`
	Age           int      `json:"age"`
	Height        float64  `json:"height"`
	CurrentWeight float64  `json:"currentWeight"`
	TargetWeight  *float64 `json:"targetWeight"`
	TargetDate    *Date    `json:"targetDate"`
}

type CheckExpiryResponse struct {
	Expired bool            `json:"expired"`
	Profile ProfileResponse `json:"profile"`
}

// --- Handler Methods ---

// CreateProfile handles POST /users.
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	in := service.CreateProfileInput{
		Name:          req.Name,
		Gender:        req.Gender,
		Age:           req.Age,
		Height:        req.Height,
		CurrentWeight: req.CurrentWeight,
		TargetWeight:  req.TargetWeight,
	}
	if req.TargetDate != nil {
		in.TargetDate = req.TargetDate.Time
	}

	user, err := h.goalService.CreateProfile(c.Request.Context(), in)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapProfileToResponse(user))
}

// ListProfiles handles GET /users.
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	users, err := h.goalService.ListProfiles(c.Request.Context())
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProfilesToResponse(users))
}

// GetProfile handles GET /users/:id and GET /me.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := resolveUserID(c)
	if !ok {
		return
	}
	user, err := h.goalService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(user))
}

// UpdateProfile handles PUT /users/:id and PUT /me. The payload keys decide the path: a body made only of goal
// fields replaces the goal, anything else is a full profile update.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := resolveUserID(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: request body must be a JSON object")
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	ctx := c.Request.Context()
	if service.IsGoalOnlyPayload(keys) {
		var req GoalUpdateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
		user, err := h.goalService.ReplaceGoal(ctx, userID, service.GoalInput{
			Height:        req.Height,
			CurrentWeight: req.CurrentWeight,
			TargetWeight:  req.TargetWeight,
			TargetDate:    req.TargetDate.timePtr(),
			GoalID:        req.GoalID,
		})
		if err != nil {
			respondWithServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, MapProfileToResponse(user))
		return
	}

	var req ProfileUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	user, err := h.goalService.UpdateProfile(ctx, userID, service.ProfileInput{
		Name:          req.Name,
		Gender:        req.Gender,
		Age:           req.Age,
		Height:        req.Height,
		CurrentWeight: req.CurrentWeight,
		TargetWeight:  req.TargetWeight,
		TargetDate:    req.TargetDate.timePtr(),
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(user))
}

// DeleteProfile handles DELETE /users/:id.
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	userID, ok := resolveUserID(c)
	if !ok {
		return
	}
	if err := h.goalService.DeleteProfile(c.Request.Context(), userID); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProfileHandler) DiscardGoal(c *gin.Context) {
	h.lifecycle(c, h.goalService.DiscardGoal)
}

func (h *ProfileHandler) AchieveGoal(c *gin.Context) {
	h.lifecycle(c, h.goalService.AchieveGoal)
}

func (h *ProfileHandler) lifecycle(c *gin.Context, op func(ctx context.Context, id primitive.ObjectID) (*domain.User, error)) {
	userID, ok := resolveUserID(c)
	if !ok {
		return
	}
	user, err := op(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(user))
}

// CheckGoalExpiry handles POST /users/:id/check-expiry.
func (h *ProfileHandler) CheckGoalExpiry(c *gin.Context) {
	userID, ok := resolveUserID(c)
	if !ok {
		return
	}
	user, expired, err := h.goalService.CheckGoalExpiry(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, CheckExpiryResponse{Expired: expired, Profile: MapProfileToResponse(user)})
}

// ExportHistory handles POST /users/:id/history/export.
func (h *ProfileHandler) ExportHistory(c *gin.Context) {
	userID, ok := resolveUserID(c)
	if !ok {
		return
	}
	export, err := h.historyService.ExportHistory(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, export)
}

// resolveUserID reads the target user from the :id path parameter, or from the token on /me routes.
// It writes the error response itself and reports false on failure.
func resolveUserID(c *gin.Context) (primitive.ObjectID, bool) {
	idStr := c.Param("id")
	if idStr == "" {
		var err error
		idStr, err = getUserIDFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
			return primitive.NilObjectID, false
		}
	}
	userID, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format.")
		return primitive.NilObjectID, false
	}
	return userID, true
}
