package domain

// NormalizeGoalIDs rewrites legacy goal ids on the user and its history into canonical ids, and gives a
// logically present goal without an id a fresh one. Already-canonical ids are left alone, so applying it
// twice is the same as applying it once. It reports whether anything changed.
func NormalizeGoalIDs(u *User) bool {
	changed := false
	for i := range u.PastGoals {
		g := &u.PastGoals[i]
		if g.GoalID.IsLegacy() || g.GoalID.IsZero() {
			g.GoalID = NewGoalID()
			changed = true
		}
	}

	if u.GoalID.IsLegacy() {
		u.GoalID = NewGoalID()
		changed = true
	}
	if u.GoalID.IsZero() && (u.TargetWeight != nil || u.TargetDate != nil) {
		u.GoalID = NewGoalID()
		changed = true
	}
	return changed
}

// RepairGoalSlot fixes goal slots stored by the previous scheme, which cleared targets, ids and
// goalCreatedAt when a goal ended but kept goalInitialWeight, and did not always stamp a running goal.
// Without both targets the leftover stamps are dropped and the slot is not active. With both targets the slot
// is active and missing stamps are backfilled: goalInitialWeight from currentWeight and goalCreatedAt from
// updatedAt (createdAt when that is unset).
// A slot holding only one target is left for the consistency guard. It reports whether anything changed.
func RepairGoalSlot(u *User) bool {
	changed := false
	if u.TargetWeight == nil && u.TargetDate == nil {
		if !u.GoalID.IsZero() || u.GoalCreatedAt != nil || u.GoalInitialWeight != nil {
			u.GoalID = GoalID{}
			u.GoalCreatedAt = nil
			u.GoalInitialWeight = nil
			changed = true
		}
		if u.GoalStatus == GoalStatusActive {
			u.GoalStatus = GoalStatusNone
			changed = true
		}
		return changed
	}
	if !u.HasGoal() {
		return false
	}

	if u.GoalInitialWeight == nil && u.CurrentWeight != nil {
		w := *u.CurrentWeight
		u.GoalInitialWeight = &w
		changed = true
	}
	if u.GoalStatus != GoalStatusActive {
		u.GoalStatus = GoalStatusActive
		changed = true
	}
	if u.GoalCreatedAt == nil {
		stamp := u.UpdatedAt
		if stamp.IsZero() {
			stamp = u.CreatedAt
		}
		if !stamp.IsZero() {
			stamp = stamp.UTC()
			u.GoalCreatedAt = &stamp
			changed = true
		}
	}
	return changed
}
