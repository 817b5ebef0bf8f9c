package service

import (
	"alcyxob/weight-tracker/internal/domain"
	"alcyxob/weight-tracker/internal/queue"
	"alcyxob/weight-tracker/internal/repository"
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// WeightSeeder makes sure every goal has a weight entry on the day it started.
type WeightSeeder struct {
	entries repository.WeightEntryRepository
	logger  *logrus.Logger
}

func NewWeightSeeder(entries repository.WeightEntryRepository, logger *logrus.Logger) *WeightSeeder {
	return &WeightSeeder{entries: entries, logger: logger}
}

// Seed creates the goal-start entry unless one already exists for that UTC day. The lookup and the insert
// are not atomic; the unique goal-start index turns a lost race into ErrDuplicate, which counts as seeded.
func (s *WeightSeeder) Seed(ctx context.Context, task queue.SeedTask) error {
	start, end := domain.DayWindow(task.GoalCreatedAt)

	_, err := s.entries.FindForGoalInRange(ctx, task.UserID, task.GoalID, start, end)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	entry := &domain.WeightEntry{
		UserID: task.UserID,
		GoalID: task.GoalID,
		Weight: task.Weight,
		Date:   start,
		Notes:  domain.GoalStartNote,
		Source: domain.SourceGoalStart,
	}
	if _, err := s.entries.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"userId": task.UserID.Hex(),
		"goalId": task.GoalID.String(),
		"date":   start.Format("2006-01-02"),
		"weight": task.Weight,
	}).Info("seeded goal start weight entry")
	return nil
}
