package api

import (
	"alcyxob/weight-tracker/internal/domain"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date accepts either a plain calendar day ("2006-01-02") or a full RFC 3339 timestamp.
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// timePtr unwraps an optional Date.
func (d *Date) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// ArchivedGoalResponse is one entry of the goal history.
type ArchivedGoalResponse struct {
	GoalID        string     `json:"goalId"`
	CurrentWeight *float64   `json:"currentWeight,omitempty"`
	TargetWeight  *float64   `json:"targetWeight,omitempty"`
	TargetDate    *time.Time `json:"targetDate,omitempty"`
	GoalCreatedAt *time.Time `json:"goalCreatedAt,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       time.Time  `json:"endedAt"`
	Status        string     `json:"status"`
}

// ProfileResponse excludes sensitive info like password hash and renders goal ids as strings.
type ProfileResponse struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	Email             string                 `json:"email,omitempty"`
	Mobile            string                 `json:"mobile,omitempty"`
	Gender            string                 `json:"gender,omitempty"`
	Age               int                    `json:"age,omitempty"`
	Height            float64                `json:"height,omitempty"`
	CurrentWeight     *float64               `json:"currentWeight,omitempty"`
	TargetWeight      *float64               `json:"targetWeight,omitempty"`
	TargetDate        *time.Time             `json:"targetDate,omitempty"`
	GoalID            string                 `json:"goalId,omitempty"`
	GoalStatus        string                 `json:"goalStatus"`
	GoalCreatedAt     *time.Time             `json:"goalCreatedAt,omitempty"`
	GoalInitialWeight *float64               `json:"goalInitialWeight,omitempty"`
	PastGoals         []ArchivedGoalResponse `json:"pastGoals"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// MapProfileToResponse converts a domain User to a ProfileResponse DTO.
func MapProfileToResponse(user *domain.User) ProfileResponse {
	if user == nil {
		return ProfileResponse{}
	}

	resp := ProfileResponse{
		ID:                user.ID.Hex(),
		Name:              user.Name,
		Email:             user.Email,
		Mobile:            user.Mobile,
		Gender:            user.Gender,
		Age:               user.Age,
		Height:            user.Height,
		CurrentWeight:     user.CurrentWeight,
		TargetWeight:      user.TargetWeight,
		TargetDate:        user.TargetDate,
		GoalID:            user.GoalID.String(),
		GoalStatus:        string(user.GoalStatus),
		GoalCreatedAt:     user.GoalCreatedAt,
		GoalInitialWeight: user.GoalInitialWeight,
		PastGoals:         make([]ArchivedGoalResponse, len(user.PastGoals)),
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
	}
	for i, g := range user.PastGoals {
		resp.PastGoals[i] = ArchivedGoalResponse{
			GoalID:        g.GoalID.String(),
			CurrentWeight: g.CurrentWeight,
			TargetWeight:  g.TargetWeight,
			TargetDate:    g.TargetDate,
			GoalCreatedAt: g.GoalCreatedAt,
			StartedAt:     g.StartedAt,
			EndedAt:       g.EndedAt,
			Status:        string(g.Status),
		}
	}
	return resp
}

// MapProfilesToResponse converts a slice of domain.User to ProfileResponse DTOs.
func MapProfilesToResponse(users []domain.User) []ProfileResponse {
	out := make([]ProfileResponse, len(users))
	for i := range users {
		out[i] = MapProfileToResponse(&users[i])
	}
	return out
}

type WeightEntryResponse struct {
	ID        string    `json:"id"`
	GoalID    string    `json:"goalId,omitempty"`
	Weight    float64   `json:"weight"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

func MapWeightEntryToResponse(e *domain.WeightEntry) WeightEntryResponse {
	return WeightEntryResponse{
		ID:        e.ID.Hex(),
		GoalID:    e.GoalID.String(),
		Weight:    e.Weight,
		Date:      e.Date,
		Notes:     e.Notes,
		Source:    string(e.Source),
		CreatedAt: e.CreatedAt,
	}
}

func MapWeightEntriesToResponse(entries []domain.WeightEntry) []WeightEntryResponse {
	out := make([]WeightEntryResponse, len(entries))
	for i := range entries {
		out[i] = MapWeightEntryToResponse(&entries[i])
	}
	return out
}
