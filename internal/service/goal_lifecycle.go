package service

import (
	"alcyxob/weight-tracker/internal/domain"
	"time"
)

// goalRequest is a validated request to put a goal into the current slot.
type goalRequest struct {
	currentWeight float64
	targetWeight  float64
	targetDate    time.Time
	requestedID   domain.GoalID // reused only when canonical and not already in the history
}

// startGoal writes a new goal into the slot. A goal still present under a different id is archived as
// superseded first; sending the current goal's own id edits it in place.
func startGoal(u *domain.User, req goalRequest, now time.Time) {
	id := domain.NewGoalID()
	if req.requestedID.IsCanonical() && !inHistory(u, req.requestedID) {
		id = req.requestedID
	}
	if u.HasGoal() && !u.GoalID.Equal(id) {
		u.ArchiveGoal(domain.ArchivedSuperseded, now)
	}

	createdAt := now
	initial := req.currentWeight
	targetWeight := req.targetWeight
	targetDate := req.targetDate
	current := req.currentWeight

	u.GoalID = id
	u.GoalStatus = domain.GoalStatusActive
	u.GoalCreatedAt = &createdAt
	u.GoalInitialWeight = &initial
	u.TargetWeight = &targetWeight
	u.TargetDate = &targetDate
	u.CurrentWeight = &current
}

// expireIfDue archives the goal as expired once its target date has passed.
func expireIfDue(u *domain.User, now time.Time) bool {
	if u.TargetDate == nil || !u.TargetDate.Before(now) {
		return false
	}
	domain.NormalizeGoalIDs(u)
	u.ArchiveGoal(domain.ArchivedExpired, now)
	return true
}

// terminateGoal archives the current goal with a user-chosen outcome.
func terminateGoal(u *domain.User, status domain.ArchivedGoalStatus, now time.Time) error {
	if !u.HasGoal() {
		return ErrNoActiveGoal
	}
	domain.NormalizeGoalIDs(u)
	u.ArchiveGoal(status, now)
	return nil
}

func inHistory(u *domain.User, id domain.GoalID) bool {
	for _, g := range u.PastGoals {
		if g.GoalID.Equal(id) {
			return true
		}
	}
	return false
}
