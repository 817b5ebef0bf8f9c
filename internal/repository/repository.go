package repository

import (
	"alcyxob/weight-tracker/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound         = RepositoryError("not found")
	ErrDuplicate        = RepositoryError("duplicate key")
	ErrRevisionConflict = RepositoryError("revision conflict")
	ErrDeleteFailed     = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository stores the user aggregate as a whole document.
type UserRepository interface {
	// Create inserts a new user with revision 1 and returns its id.
	// Returns ErrDuplicate when the email or mobile is already registered.
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByEmailOrMobile returns the first user matching either value (empty values are ignored).
	FindByEmailOrMobile(ctx context.Context, email, mobile string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	// Save replaces the stored document only if its revision still equals user.Revision, then bumps
	// user.Revision. Returns ErrRevisionConflict when someone else saved first, ErrNotFound when the user is gone.
	Save(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// WeightEntryRepository stores weight samples.
type WeightEntryRepository interface {
	// Create inserts an entry. Returns ErrDuplicate when a goal-start entry already exists for that day.
	Create(ctx context.Context, entry *domain.WeightEntry) (primitive.ObjectID, error)
	// FindForGoalInRange returns the first entry of the user/goal dated within [from, to).
	FindForGoalInRange(ctx context.Context, userID primitive.ObjectID, goalID domain.GoalID, from, to time.Time) (*domain.WeightEntry, error)
	// ListByUser returns entries ordered by date; a zero goalID lists all goals.
	ListByUser(ctx context.Context, userID primitive.ObjectID, goalID domain.GoalID) ([]domain.WeightEntry, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}
