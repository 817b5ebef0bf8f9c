package domain

import "time"

// ArchivedGoalStatus is the terminal status recorded for a goal in the history.
type ArchivedGoalStatus string

const (
	ArchivedAchieved   ArchivedGoalStatus = "achieved"
	ArchivedDiscarded  ArchivedGoalStatus = "discarded"
	ArchivedExpired    ArchivedGoalStatus = "expired"
	ArchivedSuperseded ArchivedGoalStatus = "superseded" // replaced by a newer goal while still active
)

// ArchivedGoal is an immutable history record of a terminated goal.
type ArchivedGoal struct {
	GoalID        GoalID             `bson:"goalId" json:"goalId"`
	CurrentWeight *float64           `bson:"currentWeight,omitempty" json:"currentWeight,omitempty"` // weight at termination
	TargetWeight  *float64           `bson:"targetWeight,omitempty" json:"targetWeight,omitempty"`
	TargetDate    *time.Time         `bson:"targetDate,omitempty" json:"targetDate,omitempty"`
	GoalCreatedAt *time.Time         `bson:"goalCreatedAt,omitempty" json:"goalCreatedAt,omitempty"`
	StartedAt     time.Time          `bson:"startedAt" json:"startedAt"` // account creation time, see DESIGN.md
	EndedAt       time.Time          `bson:"endedAt" json:"endedAt"`
	Status        ArchivedGoalStatus `bson:"status" json:"status"`
}
