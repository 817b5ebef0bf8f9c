package service

import (
	"alcyxob/weight-tracker/internal/domain"
	"alcyxob/weight-tracker/internal/repository"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

// RegisterInput is the onboarding form: credentials, profile and the first weight goal.
type RegisterInput struct {
	Name            string    `json:"name" validate:"required,min=2"`
	Email           string    `json:"email" validate:"required,email"`
	Mobile          string    `json:"mobile" validate:"required,numeric,min=10,max=15"`
	Password        string    `json:"password" validate:"required,min=6"`
	ConfirmPassword string    `json:"confirmPassword" validate:"required,eqfield=Password"`
	Gender          string    `json:"gender" validate:"required,oneof=Male Female Other"`
	Age             int       `json:"age" validate:"omitempty,gte=1,lte=120"`
	Height          float64   `json:"height" validate:"required,gte=50,lte=300"`
	CurrentWeight   float64   `json:"currentWeight" validate:"required,gte=20,lte=500"`
	TargetWeight    float64   `json:"targetWeight" validate:"required,gte=20,lte=500"`
	TargetDate      time.Time `json:"targetDate" validate:"required,futureday"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
}

// authService implements the AuthService interface.
type authService struct {
	userRepo      repository.UserRepository
	goals         GoalService
	validate      *validator.Validate
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(userRepo repository.UserRepository, goals GoalService, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = 7 * 24 * time.Hour
	}
	return &authService{
		userRepo:      userRepo,
		goals:         goals,
		validate:      newValidator(func() time.Time { return time.Now().UTC() }),
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Register validates the onboarding form, hashes the password and creates the profile with its first goal.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	user, err := s.goals.CreateProfile(ctx, CreateProfileInput{
		Name:          in.Name,
		Gender:        in.Gender,
		Age:           in.Age,
		Height:        in.Height,
		CurrentWeight: in.CurrentWeight,
		TargetWeight:  in.TargetWeight,
		TargetDate:    in.TargetDate,
		Email:         in.Email,
		Mobile:        in.Mobile,
		PasswordHash:  string(hashedPassword),
	})
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (token string, user *domain.User, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		err = fieldError("email", "is required")
		return
	}

	user, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrAuthenticationFailed // User not found maps to auth failure
			return
		}
		err = storeFailure(err)
		return
	}

	// Profiles created without credentials cannot log in.
	if user.PasswordHash == "" {
		return "", nil, ErrAuthenticationFailed
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	token, err = s.generateJWT(user)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	user.PasswordHash = ""
	return token, user, nil
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(user *domain.User) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "weight-tracker",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
