package service

import (
	"alcyxob/weight-tracker/internal/cache"
	"alcyxob/weight-tracker/internal/domain"
	"alcyxob/weight-tracker/internal/queue"
	"alcyxob/weight-tracker/internal/repository"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// goalOnlyFields are the payload keys of a goal-only profile update.
var goalOnlyFields = map[string]bool{
	"height":        true,
	"currentWeight": true,
	"targetWeight":  true,
	"targetDate":    true,
	"goalStatus":    true,
	"goalCreatedAt": true,
	"goalId":        true,
}

// IsGoalOnlyPayload reports whether every key of an update payload belongs to the goal form.
func IsGoalOnlyPayload(keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !goalOnlyFields[k] {
			return false
		}
	}
	return true
}

// CreateProfileInput creates a profile together with its first goal.
// Email, Mobile and PasswordHash are only filled by registration.
type CreateProfileInput struct {
	Name          string    `json:"name" validate:"required,min=2"`
	Gender        string    `json:"gender" validate:"required,oneof=Male Female Other"`
	Age           int       `json:"age" validate:"omitempty,gte=1,lte=120"`
	Height        float64   `json:"height" validate:"required,gte=50,lte=300"`
	CurrentWeight float64   `json:"currentWeight" validate:"required,gte=20,lte=500"`
	TargetWeight  float64   `json:"targetWeight" validate:"required,gte=20,lte=500"`
	TargetDate    time.Time `json:"targetDate" validate:"required,futureday"`

	Email        string `json:"email" validate:"omitempty,email"`
	Mobile       string `json:"mobile" validate:"omitempty,numeric,min=10,max=15"`
	PasswordHash string `json:"-"`
}

// GoalInput is the goal-only update payload. goalStatus and goalCreatedAt are owned by the lifecycle and
// never read from requests.
type GoalInput struct {
	Height        *float64   `json:"height" validate:"required,gte=50,lte=300"`
	CurrentWeight *float64   `json:"currentWeight" validate:"required,gte=20,lte=500"`
	TargetWeight  *float64   `json:"targetWeight" validate:"required,gte=20,lte=500"`
	TargetDate    *time.Time `json:"targetDate" validate:"required,futureday"`
	GoalID        string     `json:"goalId"`
}

// ProfileInput is the full profile update payload. Only these fields are ever copied onto the user.
type ProfileInput struct {
	Name          string     `json:"name" validate:"required,min=2"`
	Gender        string     `json:"gender" validate:"required,oneof=Male Female Other"`
	Age           int        `json:"age" validate:"required,gte=1,lte=120"`
	Height        float64    `json:"height" validate:"required,gte=50,lte=300"`
	CurrentWeight float64    `json:"currentWeight" validate:"required,gte=20,lte=500"`
	TargetWeight  *float64   `json:"targetWeight" validate:"omitempty,gte=20,lte=500"`
	TargetDate    *time.Time `json:"targetDate" validate:"omitempty,futureday"`
}

// validateTargets requires target weight and date to come together.
func (in ProfileInput) validateTargets() error {
	switch {
	case in.TargetWeight != nil && in.TargetDate == nil:
		return fieldError("targetDate", "is required when targetWeight is present")
	case in.TargetWeight == nil && in.TargetDate != nil:
		return fieldError("targetWeight", "is required when targetDate is present")
	}
	return nil
}

// GoalService owns the current goal slot of a user: creation, updates, expiry and termination.
type GoalService interface {
	CreateProfile(ctx context.Context, in CreateProfileInput) (*domain.User, error)
	GetProfile(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	ListProfiles(ctx context.Context) ([]domain.User, error)
	DeleteProfile(ctx context.Context, id primitive.ObjectID) error

	// ReplaceGoal handles a goal-only update: it always starts a goal.
	ReplaceGoal(ctx context.Context, id primitive.ObjectID, in GoalInput) (*domain.User, error)
	// UpdateProfile handles a full update; a goal is started only if none is active.
	UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileInput) (*domain.User, error)
	DiscardGoal(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AchieveGoal(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	// CheckGoalExpiry runs the expiry check on its own. expired is false when the goal is still running.
	CheckGoalExpiry(ctx context.Context, id primitive.ObjectID) (user *domain.User, expired bool, err error)
}

type goalService struct {
	userRepo     repository.UserRepository
	entryRepo    repository.WeightEntryRepository
	dispatcher   queue.Dispatcher
	profiles     cache.ProfileCache
	validate     *validator.Validate
	logger       *logrus.Logger
	saveAttempts int
	now          func() time.Time
}

// NewGoalService creates the goal lifecycle service. saveAttempts bounds the reload-and-retry loop
// after a revision conflict.
func NewGoalService(
	userRepo repository.UserRepository,
	entryRepo repository.WeightEntryRepository,
	dispatcher queue.Dispatcher,
	profiles cache.ProfileCache,
	logger *logrus.Logger,
	saveAttempts int,
) GoalService {
	return newGoalService(userRepo, entryRepo, dispatcher, profiles, logger, saveAttempts)
}

func newGoalService(
	userRepo repository.UserRepository,
	entryRepo repository.WeightEntryRepository,
	dispatcher queue.Dispatcher,
	profiles cache.ProfileCache,
	logger *logrus.Logger,
	saveAttempts int,
) *goalService {
	if saveAttempts < 1 {
		saveAttempts = 1
	}
	if profiles == nil {
		profiles = cache.NewNoopProfileCache()
	}
	s := &goalService{
		userRepo:     userRepo,
		entryRepo:    entryRepo,
		dispatcher:   dispatcher,
		profiles:     profiles,
		logger:       logger,
		saveAttempts: saveAttempts,
		now:          func() time.Time { return time.Now().UTC() },
	}
	s.validate = newValidator(func() time.Time { return s.now() })
	return s
}

// CreateProfile creates a user with an active goal and queues the goal-start weight entry.
func (s *goalService) CreateProfile(ctx context.Context, in CreateProfileInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	if in.Email != "" || in.Mobile != "" {
		_, err := s.userRepo.FindByEmailOrMobile(ctx, in.Email, in.Mobile)
		if err == nil {
			return nil, ErrConflictingIdentity
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, storeFailure(err)
		}
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		Mobile:       in.Mobile,
		PasswordHash: in.PasswordHash,
		Gender:       in.Gender,
		Age:          in.Age,
		Height:       in.Height,
		GoalStatus:   domain.GoalStatusNone,
	}
	startGoal(user, goalRequest{
		currentWeight: in.CurrentWeight,
		targetWeight:  in.TargetWeight,
		targetDate:    in.TargetDate,
	}, s.now())
	domain.NormalizeGoalIDs(user)
	if !user.GoalSlotConsistent() {
		return nil, storeFailure(ErrInconsistentGoal)
	}

	userID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflictingIdentity
		}
		return nil, storeFailure(err)
	}
	user.ID = userID

	s.logger.WithFields(logrus.Fields{
		"userId": user.ID.Hex(),
		"goalId": user.GoalID.String(),
	}).Info("profile created")
	s.enqueueSeed(ctx, user)
	return user, nil
}

// GetProfile returns a profile snapshot, served from the cache when possible.
func (s *goalService) GetProfile(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	if cached, err := s.profiles.Get(ctx, id); err != nil {
		s.logger.WithError(err).WithField("userId", id.Hex()).Warn("profile cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeFailure(err)
	}
	if err := s.profiles.Set(ctx, user); err != nil {
		s.logger.WithError(err).WithField("userId", id.Hex()).Warn("profile cache write failed")
	}
	return user, nil
}

func (s *goalService) ListProfiles(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	return users, nil
}

// DeleteProfile removes the user and, best effort, their weight entries.
func (s *goalService) DeleteProfile(ctx context.Context, id primitive.ObjectID) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return storeFailure(err)
	}
	s.invalidate(ctx, id, cache.Deleted)
	if err := s.entryRepo.DeleteByUser(ctx, id); err != nil {
		s.logger.WithError(err).WithField("userId", id.Hex()).Warn("failed to delete weight entries of removed user")
	}
	return nil
}

// ReplaceGoal starts a new goal from a goal-only payload. A stale goal is archived as expired and a running
// one as superseded before the new goal takes the slot.
func (s *goalService) ReplaceGoal(ctx context.Context, id primitive.ObjectID, in GoalInput) (*domain.User, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	req := goalRequest{
		currentWeight: *in.CurrentWeight,
		targetWeight:  *in.TargetWeight,
		targetDate:    *in.TargetDate,
	}
	if in.GoalID != "" {
		if requested, err := domain.ParseGoalID(in.GoalID); err == nil {
			req.requestedID = requested
		}
	}

	user, err := s.mutateUser(ctx, id, func(u *domain.User, now time.Time) error {
		expireIfDue(u, now)
		u.Height = *in.Height
		startGoal(u, req, now)
		expireIfDue(u, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.enqueueSeed(ctx, user)
	return user, nil
}

// UpdateProfile copies the allowed profile fields. Target weight and date start a goal when none is active,
// and edit the running goal otherwise.
func (s *goalService) UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	if err := in.validateTargets(); err != nil {
		return nil, err
	}

	var started bool
	user, err := s.mutateUser(ctx, id, func(u *domain.User, now time.Time) error {
		started = false
		expireIfDue(u, now)

		u.Name = in.Name
		u.Gender = in.Gender
		u.Age = in.Age
		u.Height = in.Height
		currentWeight := in.CurrentWeight
		u.CurrentWeight = &currentWeight

		if in.TargetWeight != nil && in.TargetDate != nil {
			if u.IsGoalActive() && u.HasGoal() {
				targetWeight, targetDate := *in.TargetWeight, *in.TargetDate
				u.TargetWeight = &targetWeight
				u.TargetDate = &targetDate
			} else {
				startGoal(u, goalRequest{
					currentWeight: in.CurrentWeight,
					targetWeight:  *in.TargetWeight,
					targetDate:    *in.TargetDate,
				}, now)
				started = true
			}
		}

		expireIfDue(u, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if started {
		s.enqueueSeed(ctx, user)
	}
	return user, nil
}

func (s *goalService) DiscardGoal(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return s.terminate(ctx, id, domain.ArchivedDiscarded)
}

func (s *goalService) AchieveGoal(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return s.terminate(ctx, id, domain.ArchivedAchieved)
}

func (s *goalService) terminate(ctx context.Context, id primitive.ObjectID, status domain.ArchivedGoalStatus) (*domain.User, error) {
	user, err := s.mutateUser(ctx, id, func(u *domain.User, now time.Time) error {
		return terminateGoal(u, status, now)
	})
	if err != nil {
		return nil, err
	}
	last := user.PastGoals[len(user.PastGoals)-1]
	s.logger.WithFields(logrus.Fields{
		"userId": user.ID.Hex(),
		"goalId": last.GoalID.String(),
		"status": status,
	}).Info("goal terminated")
	return user, nil
}

func (s *goalService) CheckGoalExpiry(ctx context.Context, id primitive.ObjectID) (*domain.User, bool, error) {
	var expired bool
	user, err := s.mutateUser(ctx, id, func(u *domain.User, now time.Time) error {
		if !u.HasGoal() {
			return ErrNoActiveGoal
		}
		expired = expireIfDue(u, now)
		if !expired {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return user, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return user, expired, nil
}

// errUnchanged lets a mutation skip the save.
var errUnchanged = errors.New("unchanged")

// mutateUser is the single write path for an existing user: load, repair the goal slot and normalize goal ids,
// apply fn, normalize again, guard the goal slot, save with the revision check. On a revision conflict the whole
// sequence is repeated against a fresh copy. If fn returns errUnchanged and the load needed no repair, the loaded
// user is returned with that error and nothing is written; a repaired copy is still saved.
func (s *goalService) mutateUser(ctx context.Context, id primitive.ObjectID, fn func(u *domain.User, now time.Time) error) (*domain.User, error) {
	var lastErr error
	for attempt := 1; attempt <= s.saveAttempts; attempt++ {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, storeFailure(err)
		}

		repaired := domain.RepairGoalSlot(user)
		if domain.NormalizeGoalIDs(user) {
			repaired = true
		}

		if err := fn(user, s.now()); err != nil {
			if !errors.Is(err, errUnchanged) {
				return nil, err
			}
			if !repaired {
				return user, err
			}
		}
		domain.NormalizeGoalIDs(user)
		if !user.GoalSlotConsistent() {
			return nil, storeFailure(ErrInconsistentGoal)
		}

		err = s.userRepo.Save(ctx, user)
		if err == nil {
			s.invalidate(ctx, id, user.Revision)
			return user, nil
		}
		switch {
		case errors.Is(err, repository.ErrRevisionConflict):
			lastErr = err
			s.logger.WithFields(logrus.Fields{
				"userId":  id.Hex(),
				"attempt": attempt,
			}).Debug("revision conflict, retrying")
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrConflictingIdentity
		default:
			return nil, storeFailure(err)
		}
	}
	return nil, storeFailure(lastErr)
}

// invalidate drops the cached snapshot; revision is the one just saved, so slower readers cannot put back
// an older copy.
func (s *goalService) invalidate(ctx context.Context, id primitive.ObjectID, revision int64) {
	if err := s.profiles.Invalidate(ctx, id, revision); err != nil {
		s.logger.WithError(err).WithField("userId", id.Hex()).Warn("profile cache invalidation failed")
	}
}

// enqueueSeed hands the goal-start entry to the dispatcher. Failures are logged and never reach the caller.
func (s *goalService) enqueueSeed(ctx context.Context, u *domain.User) {
	task, ok := queue.SeedTaskFor(u)
	if !ok {
		return
	}
	if err := s.dispatcher.Enqueue(ctx, task); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"userId": u.ID.Hex(),
			"goalId": u.GoalID.String(),
		}).Warn("failed to enqueue goal start seeding")
	}
}
