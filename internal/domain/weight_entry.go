package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WeightEntrySource tells seeded entries apart from ones the user logged.
type WeightEntrySource string

const (
	SourceGoalStart WeightEntrySource = "goal_start"
	SourceManual    WeightEntrySource = "manual"
)

// GoalStartNote marks entries created automatically when a goal starts.
const GoalStartNote = "Auto-created for goal start"

// WeightEntry is one weight sample, linked to a user and (optionally) a goal by id.
type WeightEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	GoalID    GoalID             `bson:"goalId,omitempty" json:"goalId,omitempty"`
	Weight    float64            `bson:"weight" json:"weight"` // kg
	Date      time.Time          `bson:"date" json:"date"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Source    WeightEntrySource  `bson:"source" json:"source"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayWindow returns the UTC calendar day [start, start+1 day) containing t.
func DayWindow(t time.Time) (start, end time.Time) {
	start = StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}
