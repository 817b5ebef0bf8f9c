package service

import (
	"alcyxob/weight-tracker/internal/domain"
	"alcyxob/weight-tracker/internal/repository"
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WeightEntryInput is a manually logged weight.
type WeightEntryInput struct {
	Weight float64    `json:"weight" validate:"required,gte=20,lte=500"`
	Date   *time.Time `json:"date"`
	Notes  string     `json:"notes" validate:"max=500"`
}

type WeightEntryService interface {
	// ListWeightEntries returns a user's entries; goalID, when non-empty, narrows them to one goal.
	ListWeightEntries(ctx context.Context, userID primitive.ObjectID, goalID string) ([]domain.WeightEntry, error)
	// AddWeightEntry logs a manual entry, attached to the user's current goal if there is one.
	AddWeightEntry(ctx context.Context, userID primitive.ObjectID, in WeightEntryInput) (*domain.WeightEntry, error)
}

type weightEntryService struct {
	userRepo  repository.UserRepository
	entryRepo repository.WeightEntryRepository
	validate  *validator.Validate
	now       func() time.Time
}

func NewWeightEntryService(userRepo repository.UserRepository, entryRepo repository.WeightEntryRepository) WeightEntryService {
	now := func() time.Time { return time.Now().UTC() }
	return &weightEntryService{
		userRepo:  userRepo,
		entryRepo: entryRepo,
		validate:  newValidator(now),
		now:       now,
	}
}

func (s *weightEntryService) ListWeightEntries(ctx context.Context, userID primitive.ObjectID, goalID string) ([]domain.WeightEntry, error) {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}

	var filter domain.GoalID
	if goalID != "" {
		parsed, err := domain.ParseGoalID(goalID)
		if err != nil {
			return nil, fieldError("goalId", "is invalid")
		}
		filter = parsed
	}

	entries, err := s.entryRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, storeFailure(err)
	}
	return entries, nil
}

func (s *weightEntryService) AddWeightEntry(ctx context.Context, userID primitive.ObjectID, in WeightEntryInput) (*domain.WeightEntry, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	date := s.now()
	if in.Date != nil {
		date = in.Date.UTC()
	}
	entry := &domain.WeightEntry{
		UserID: userID,
		Weight: in.Weight,
		Date:   date,
		Notes:  in.Notes,
		Source: domain.SourceManual,
	}
	if user.HasGoal() {
		entry.GoalID = user.GoalID
	}

	entryID, err := s.entryRepo.Create(ctx, entry)
	if err != nil {
		return nil, storeFailure(err)
	}
	entry.ID = entryID
	return entry, nil
}

func (s *weightEntryService) loadUser(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeFailure(err)
	}
	return user, nil
}
