package service

import (
	"alcyxob/weight-tracker/internal/domain"
	"alcyxob/weight-tracker/internal/repository"
	"alcyxob/weight-tracker/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrExportDisabled = errors.New("history export is not configured")

// HistoryExport points at an exported goal history document.
type HistoryExport struct {
	ObjectKey   string    `json:"objectKey"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// historyDocument is the JSON written to storage.
type historyDocument struct {
	UserID        string                `json:"userId"`
	ExportedAt    time.Time             `json:"exportedAt"`
	GoalStatus    domain.GoalStatus     `json:"goalStatus"`
	CurrentGoal   *currentGoalSnapshot  `json:"currentGoal,omitempty"`
	PastGoals     []domain.ArchivedGoal `json:"pastGoals"`
	WeightEntries []domain.WeightEntry  `json:"weightEntries"`
}

type currentGoalSnapshot struct {
	GoalID            domain.GoalID `json:"goalId"`
	TargetWeight      *float64      `json:"targetWeight"`
	TargetDate        *time.Time    `json:"targetDate"`
	GoalCreatedAt     *time.Time    `json:"goalCreatedAt"`
	GoalInitialWeight *float64      `json:"goalInitialWeight"`
}

type HistoryService interface {
	ExportHistory(ctx context.Context, userID primitive.ObjectID) (*HistoryExport, error)
}

type historyService struct {
	userRepo  repository.UserRepository
	entryRepo repository.WeightEntryRepository
	files     storage.FileStorage // nil when export is disabled
	urlExpiry time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

// NewHistoryService creates the exporter. A nil FileStorage disables exports.
func NewHistoryService(userRepo repository.UserRepository, entryRepo repository.WeightEntryRepository, files storage.FileStorage, urlExpiry time.Duration, logger *logrus.Logger) HistoryService {
	if urlExpiry <= 0 {
		urlExpiry = storage.DefaultPresignedURLExpiry
	}
	return &historyService{
		userRepo:  userRepo,
		entryRepo: entryRepo,
		files:     files,
		urlExpiry: urlExpiry,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ExportHistory writes the user's goal history and weight entries to storage and returns a temporary link.
func (s *historyService) ExportHistory(ctx context.Context, userID primitive.ObjectID) (*HistoryExport, error) {
	if s.files == nil {
		return nil, ErrExportDisabled
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeFailure(err)
	}
	entries, err := s.entryRepo.ListByUser(ctx, userID, domain.GoalID{})
	if err != nil {
		return nil, storeFailure(err)
	}

	now := s.now()
	doc := historyDocument{
		UserID:        user.ID.Hex(),
		ExportedAt:    now,
		GoalStatus:    user.GoalStatus,
		PastGoals:     user.PastGoals,
		WeightEntries: entries,
	}
	if doc.PastGoals == nil {
		doc.PastGoals = []domain.ArchivedGoal{}
	}
	if user.HasGoal() {
		doc.CurrentGoal = &currentGoalSnapshot{
			GoalID:            user.GoalID,
			TargetWeight:      user.TargetWeight,
			TargetDate:        user.TargetDate,
			GoalCreatedAt:     user.GoalCreatedAt,
			GoalInitialWeight: user.GoalInitialWeight,
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	objectKey := path.Join("exports", user.ID.Hex(), now.Format("20060102T150405Z")+"-"+uuid.NewString()+".json")
	if err := s.files.PutObject(ctx, objectKey, "application/json", body); err != nil {
		return nil, storeFailure(err)
	}
	url, err := s.files.GeneratePresignedDownloadURL(ctx, objectKey, s.urlExpiry)
	if err != nil {
		return nil, storeFailure(err)
	}

	s.logger.WithFields(logrus.Fields{
		"userId":    user.ID.Hex(),
		"objectKey": objectKey,
		"pastGoals": len(doc.PastGoals),
		"entries":   len(entries),
	}).Info("goal history exported")

	return &HistoryExport{
		ObjectKey:   objectKey,
		DownloadURL: url,
		ExpiresAt:   now.Add(s.urlExpiry),
	}, nil
}
