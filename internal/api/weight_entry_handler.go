package api

import (
	"alcyxob/weight-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type WeightEntryHandler struct {
	entryService service.WeightEntryService
}

func NewWeightEntryHandler(entryService service.WeightEntryService) *WeightEntryHandler {
	return &WeightEntryHandler{entryService: entryService}
}

type AddWeightEntryRequest struct {
	Weight float64 `json:"weight"`
	Date   *Date   `json:"date"`
	Notes  string  `json:"notes"`
}

// ListWeightEntries godoc
// @Summary List a user's weight entries
// @Tags WeightEntries
// @Produce json
// @Param id path string true "User ID"
// @Param goalId query string false "Only entries of this goal"
// @Success 200 {array} WeightEntryResponse
// @Failure 400 {object} gin.H "Invalid user or goal ID"
// @Failure 404 {object} gin.H "User not found"
// @Router /users/{id}/weight-entries [get]
func (h *WeightEntryHandler) ListWeightEntries(c *gin.Context) {
	userID, ok := resolveUserID(c)
	if !ok {
		return
	}
	entries, err := h.entryService.ListWeightEntries(c.Request.Context(), userID, c.Query("goalId"))
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapWeightEntriesToResponse(entries))
}

// AddWeightEntry godoc
// @Summary Log a weight sample
// @Tags WeightEntries
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param entry body AddWeightEntryRequest true "Weight entry"
// @Success 201 {object} WeightEntryResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "User not found"
// @Router /users/{id}/weight-entries [post]
func (h *WeightEntryHandler) AddWeightEntry(c *gin.Context) {
	userID, ok := resolveUserID(c)
	if !ok {
		return
	}
	var req AddWeightEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	entry, err := h.entryService.AddWeightEntry(c.Request.Context(), userID, service.WeightEntryInput{
		Weight: req.Weight,
		Date:   req.Date.timePtr(),
		Notes:  req.Notes,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapWeightEntryToResponse(entry))
}
