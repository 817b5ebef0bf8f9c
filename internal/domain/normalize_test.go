package domain

import (
	"testing"
	"time"
)

func mustParseGoalID(t *testing.T, s string) GoalID {
	t.Helper()
	id, err := ParseGoalID(s)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestNormalizeGoalIDsRewritesLegacyIDs(t *testing.T) {
	legacy := mustParseGoalID(t, legacyID)
	target, date := 70.0, time.Now().AddDate(0, 1, 0)

	u := &User{
		TargetWeight: &target,
		TargetDate:   &date,
		GoalID:       legacy,
		PastGoals: []ArchivedGoal{
			{GoalID: legacy, Status: ArchivedDiscarded},
			{Status: ArchivedAchieved}, // no id at all
		},
	}

	if changed := NormalizeGoalIDs(u); !changed {
		t.Fatal("expected a change")
	}
	if !u.GoalID.IsCanonical() || u.GoalID.Equal(legacy) {
		t.Errorf("current goal id not rewritten: %q", u.GoalID)
	}
	for i, g := range u.PastGoals {
		if !g.GoalID.IsCanonical() {
			t.Errorf("pastGoals[%d] id not canonical: %q", i, g.GoalID)
		}
	}
}

func TestNormalizeGoalIDsIsIdempotent(t *testing.T) {
	target, date := 70.0, time.Now().AddDate(0, 1, 0)
	u := &User{
		TargetWeight: &target,
		TargetDate:   &date,
		GoalID:       mustParseGoalID(t, legacyID),
		PastGoals:    []ArchivedGoal{{GoalID: mustParseGoalID(t, legacyID)}},
	}

	NormalizeGoalIDs(u)
	first, firstPast := u.GoalID, u.PastGoals[0].GoalID

	if changed := NormalizeGoalIDs(u); changed {
		t.Error("second pass reported a change")
	}
	if !u.GoalID.Equal(first) || !u.PastGoals[0].GoalID.Equal(firstPast) {
		t.Error("second pass changed canonical ids")
	}
}

func TestNormalizeGoalIDsSynthesizesForLogicallyPresentGoal(t *testing.T) {
	target := 70.0
	u := &User{TargetWeight: &target}

	NormalizeGoalIDs(u)
	if !u.GoalID.IsCanonical() {
		t.Fatal("expected a synthesized id")
	}
}

func TestNormalizeGoalIDsLeavesAbsentGoalAlone(t *testing.T) {
	u := &User{}
	if NormalizeGoalIDs(u) {
		t.Error("expected no change")
	}
	if !u.GoalID.IsZero() {
		t.Error("absent goal should not get an id")
	}
}

func TestNormalizeGoalIDsKeepsOtherTextIDs(t *testing.T) {
	target, date := 70.0, time.Now()
	custom := mustParseGoalID(t, "imported-goal")
	u := &User{TargetWeight: &target, TargetDate: &date, GoalID: custom}

	NormalizeGoalIDs(u)
	if !u.GoalID.Equal(custom) {
		t.Errorf("text id changed to %q", u.GoalID)
	}
}

func TestRepairGoalSlot(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 5, 2, 18, 0, 0, 0, time.UTC)
	goalStart := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	target, date, weight := 70.0, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), 78.0

	tests := []struct {
		name        string
		user        User
		wantChanged bool
		check       func(t *testing.T, u *User)
	}{
		{
			name: "initial weight left behind after a goal ended",
			user: User{
				CurrentWeight:     &weight,
				GoalInitialWeight: &weight,
				GoalStatus:        GoalStatusNone,
				PastGoals:         []ArchivedGoal{{GoalID: NewGoalID(), Status: ArchivedDiscarded}},
			},
			wantChanged: true,
			check: func(t *testing.T, u *User) {
				if u.GoalInitialWeight != nil || u.GoalStatus != GoalStatusNone || len(u.PastGoals) != 1 {
					t.Errorf("unexpected slot %+v", u)
				}
			},
		},
		{
			name: "stamps without targets after expiry",
			user: User{
				GoalID:            NewGoalID(),
				GoalCreatedAt:     &goalStart,
				GoalInitialWeight: &weight,
				GoalStatus:        GoalStatusExpired,
			},
			wantChanged: true,
			check: func(t *testing.T, u *User) {
				if !u.GoalID.IsZero() || u.GoalCreatedAt != nil || u.GoalStatus != GoalStatusExpired {
					t.Errorf("unexpected slot %+v", u)
				}
			},
		},
		{
			name:        "active status without a goal",
			user:        User{GoalStatus: GoalStatusActive},
			wantChanged: true,
			check: func(t *testing.T, u *User) {
				if u.GoalStatus != GoalStatusNone {
					t.Errorf("goalStatus = %s, want none", u.GoalStatus)
				}
			},
		},
		{
			name: "running goal missing its stamps",
			user: User{
				CurrentWeight: &weight,
				TargetWeight:  &target,
				TargetDate:    &date,
				GoalID:        NewGoalID(),
				CreatedAt:     created,
				UpdatedAt:     updated,
			},
			wantChanged: true,
			check: func(t *testing.T, u *User) {
				if u.GoalInitialWeight == nil || *u.GoalInitialWeight != weight {
					t.Errorf("goalInitialWeight = %v, want %v", u.GoalInitialWeight, weight)
				}
				if u.GoalCreatedAt == nil || !u.GoalCreatedAt.Equal(updated) {
					t.Errorf("goalCreatedAt = %v, want %v", u.GoalCreatedAt, updated)
				}
				if u.GoalStatus != GoalStatusActive {
					t.Errorf("goalStatus = %s, want active", u.GoalStatus)
				}
			},
		},
		{
			name: "goal created at falls back to account creation",
			user: User{
				CurrentWeight:     &weight,
				TargetWeight:      &target,
				TargetDate:        &date,
				GoalID:            NewGoalID(),
				GoalInitialWeight: &weight,
				GoalStatus:        GoalStatusActive,
				CreatedAt:         created,
			},
			wantChanged: true,
			check: func(t *testing.T, u *User) {
				if u.GoalCreatedAt == nil || !u.GoalCreatedAt.Equal(created) {
					t.Errorf("goalCreatedAt = %v, want %v", u.GoalCreatedAt, created)
				}
			},
		},
		{
			name: "complete goal untouched",
			user: User{
				CurrentWeight:     &weight,
				TargetWeight:      &target,
				TargetDate:        &date,
				GoalID:            NewGoalID(),
				GoalCreatedAt:     &goalStart,
				GoalInitialWeight: &weight,
				GoalStatus:        GoalStatusActive,
			},
		},
		{
			name: "empty slot untouched",
			user: User{GoalStatus: GoalStatusNone},
		},
		{
			name: "single target left for the guard",
			user: User{TargetWeight: &target, GoalStatus: GoalStatusActive},
			check: func(t *testing.T, u *User) {
				if u.GoalSlotConsistent() {
					t.Error("half a goal should stay inconsistent")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			if changed := RepairGoalSlot(&u); changed != tt.wantChanged {
				t.Fatalf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if tt.check != nil {
				tt.check(t, &u)
			}
			if RepairGoalSlot(&u) {
				t.Error("second repair changed the user again")
			}
		})
	}
}
