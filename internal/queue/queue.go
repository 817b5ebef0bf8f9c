// Package queue carries goal-start seed tasks from the goal lifecycle to the weight entry seeder once the
// goal has been committed.
package queue

import (
	"alcyxob/weight-tracker/internal/domain"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrQueueFull        = errors.New("seed queue is full")
	ErrDispatcherClosed = errors.New("seed dispatcher is closed")
)

// SeedTask asks for the goal-start weight entry of one goal.
type SeedTask struct {
	ID            string             `json:"id"`
	UserID        primitive.ObjectID `json:"userId"`
	GoalID        domain.GoalID      `json:"goalId"`
	GoalCreatedAt time.Time          `json:"goalCreatedAt"`
	Weight        float64            `json:"weight"`
}

// SeedTaskFor builds a task from a user whose goal is present. ok is false when any of goalId,
// goalCreatedAt or currentWeight is missing.
func SeedTaskFor(u *domain.User) (task SeedTask, ok bool) {
	if u.GoalID.IsZero() || u.GoalCreatedAt == nil || u.CurrentWeight == nil || *u.CurrentWeight == 0 {
		return SeedTask{}, false
	}
	return SeedTask{
		ID:            uuid.NewString(),
		UserID:        u.ID,
		GoalID:        u.GoalID,
		GoalCreatedAt: *u.GoalCreatedAt,
		Weight:        *u.CurrentWeight,
	}, true
}

// Handler processes one task.
type Handler func(ctx context.Context, task SeedTask) error

// Dispatcher hands tasks to whoever performs the seeding.
type Dispatcher interface {
	Enqueue(ctx context.Context, task SeedTask) error
}
