package api

import (
	"alcyxob/weight-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

// RegisterRequest carries the onboarding form. Field rules live in service.RegisterInput.
type RegisterRequest struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Mobile          string  `json:"mobile"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirmPassword"`
	Gender          string  `json:"gender"`
	Age             int     `json:"age"`
	Height          float64 `json:"height"`
	CurrentWeight   float64 `json:"currentWeight"`
	TargetWeight    float64 `json:"targetWeight"`
	TargetDate      *Date   `json:"targetDate"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string          `json:"token"`
	User  ProfileResponse `json:"user"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new user together with a first weight goal
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration details"
// @Success 201 {object} ProfileResponse "User created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 409 {object} gin.H "Conflict (email or mobile already registered)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	in := service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Mobile:          req.Mobile,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Gender:          req.Gender,
		Age:             req.Age,
		Height:          req.Height,
		CurrentWeight:   req.CurrentWeight,
		TargetWeight:    req.TargetWeight,
	}
	if req.TargetDate != nil {
		in.TargetDate = req.TargetDate.Time
	}

	user, err := h.authService.Register(c.Request.Context(), in)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapProfileToResponse(user))
}

// Login godoc
// @Summary Log in a user
// @Description Authenticates a user and returns a JWT token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse "Login successful"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized (invalid credentials)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  MapProfileToResponse(user),
	})
}
