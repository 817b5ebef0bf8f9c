package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GoalStatus is the state of the current goal slot on a user.
type GoalStatus string

const (
	GoalStatusNone    GoalStatus = "none"
	GoalStatusActive  GoalStatus = "active"
	GoalStatusExpired GoalStatus = "expired"
)

// Gender values accepted on profiles.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// User is the profile aggregate: identity, body profile, the current goal slot and the goal history.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	Mobile       string             `bson:"mobile,omitempty" json:"mobile,omitempty"`
	PasswordHash string             `bson:"passwordHash,omitempty" json:"-"`

	Gender string  `bson:"gender,omitempty" json:"gender,omitempty"`
	Age    int     `bson:"age,omitempty" json:"age,omitempty"`
	Height float64 `bson:"height,omitempty" json:"height,omitempty"` // cm

	// --- Current goal slot ---
	// TargetWeight, TargetDate, GoalID, GoalCreatedAt and GoalInitialWeight are present together or not at all.
	CurrentWeight     *float64   `bson:"currentWeight,omitempty" json:"currentWeight,omitempty"` // kg
	TargetWeight      *float64   `bson:"targetWeight,omitempty" json:"targetWeight,omitempty"`
	TargetDate        *time.Time `bson:"targetDate,omitempty" json:"targetDate,omitempty"`
	GoalID            GoalID     `bson:"goalId,omitempty" json:"goalId,omitempty"`
	GoalStatus        GoalStatus `bson:"goalStatus" json:"goalStatus"`
	GoalCreatedAt     *time.Time `bson:"goalCreatedAt,omitempty" json:"goalCreatedAt,omitempty"`
	GoalInitialWeight *float64   `bson:"goalInitialWeight,omitempty" json:"goalInitialWeight,omitempty"`

	PastGoals []ArchivedGoal `bson:"pastGoals" json:"pastGoals"`

	// Revision is compared on every save; see repository.UserRepository.Save.
	Revision  int64     `bson:"revision" json:"revision"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasGoal reports whether a goal is logically present (target weight and date both set).
func (u *User) HasGoal() bool {
	return u.TargetWeight != nil && u.TargetDate != nil
}

// IsGoalActive reports whether the slot holds an active goal with a creation timestamp.
func (u *User) IsGoalActive() bool {
	return u.GoalStatus == GoalStatusActive && u.GoalCreatedAt != nil
}

// GoalSlotConsistent reports whether the five goal fields are all present or all absent.
func (u *User) GoalSlotConsistent() bool {
	present := 0
	if u.TargetWeight != nil {
		present++
	}
	if u.TargetDate != nil {
		present++
	}
	if !u.GoalID.IsZero() {
		present++
	}
	if u.GoalCreatedAt != nil {
		present++
	}
	if u.GoalInitialWeight != nil {
		present++
	}
	return present == 0 || present == 5
}

// ClearGoal empties the goal slot and sets the resulting status.
func (u *User) ClearGoal(status GoalStatus) {
	u.TargetWeight = nil
	u.TargetDate = nil
	u.GoalID = GoalID{}
	u.GoalCreatedAt = nil
	u.GoalInitialWeight = nil
	u.GoalStatus = status
}

// ArchiveGoal appends the current goal to the history with the given terminal status and clears the slot.
// startedAt is the account creation time; the goal's own start is kept in GoalCreatedAt.
func (u *User) ArchiveGoal(status ArchivedGoalStatus, now time.Time) ArchivedGoal {
	goalID := u.GoalID
	if goalID.IsZero() {
		goalID = NewGoalID()
	}
	archived := ArchivedGoal{
		GoalID:        goalID,
		CurrentWeight: copyFloat(u.CurrentWeight),
		TargetWeight:  copyFloat(u.TargetWeight),
		TargetDate:    copyTime(u.TargetDate),
		GoalCreatedAt: copyTime(u.GoalCreatedAt),
		StartedAt:     u.CreatedAt,
		EndedAt:       now,
		Status:        status,
	}
	u.PastGoals = append(u.PastGoals, archived)

	slot := GoalStatusNone
	if status == ArchivedExpired {
		slot = GoalStatusExpired
	}
	u.ClearGoal(slot)
	return archived
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
