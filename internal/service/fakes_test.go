package service

import (
	"alcyxob/weight-tracker/internal/domain"
	"alcyxob/weight-tracker/internal/logging"
	"alcyxob/weight-tracker/internal/queue"
	"alcyxob/weight-tracker/internal/repository"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- MOCKS ---

// fakeUserRepo keeps copies of users and enforces the revision check the way the Mongo repository does.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User

	saveCalls int
	saveErr   error
	// interfere runs against the stored copy before the next n saves, simulating a concurrent writer.
	interfere      func(stored *domain.User)
	interfereTimes int
	// afterGet runs once after the next GetByID has read its copy.
	afterGet func()
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*domain.User{}}
}

// put stores u as-is (revision included) and returns its id.
func (r *fakeUserRepo) put(u *domain.User) primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = cloneUser(u)
	return u.ID
}

func (r *fakeUserRepo) stored(id primitive.ObjectID) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if (user.Email != "" && u.Email == user.Email) || (user.Mobile != "" && u.Mobile == user.Mobile) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	user.Revision = 1
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = cloneUser(user)
	return user.ID, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	u := r.stored(id)

	r.mu.Lock()
	hook := r.afterGet
	r.afterGet = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}

	if u == nil {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindByEmailOrMobile(ctx context.Context, email, mobile string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if (email != "" && u.Email == email) || (mobile != "" && u.Mobile == mobile) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *cloneUser(u))
	}
	return out, nil
}

func (r *fakeUserRepo) Save(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.saveErr != nil {
		return r.saveErr
	}

	stored, ok := r.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.interfereTimes > 0 && r.interfere != nil {
		r.interfereTimes--
		r.interfere(stored)
		stored.Revision++
	}
	if stored.Revision != user.Revision {
		return repository.ErrRevisionConflict
	}

	user.Revision++
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveCalls
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.CurrentWeight = cloneFloat(u.CurrentWeight)
	c.TargetWeight = cloneFloat(u.TargetWeight)
	c.GoalInitialWeight = cloneFloat(u.GoalInitialWeight)
	c.TargetDate = cloneTime(u.TargetDate)
	c.GoalCreatedAt = cloneTime(u.GoalCreatedAt)
	if u.PastGoals != nil {
		c.PastGoals = make([]domain.ArchivedGoal, len(u.PastGoals))
		copy(c.PastGoals, u.PastGoals)
	}
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// fakeEntryRepo mirrors the unique goal-start index of the Mongo repository.
type fakeEntryRepo struct {
	mu      sync.Mutex
	entries []domain.WeightEntry

	// hideFromLookup makes FindForGoalInRange miss, to exercise the insert race.
	hideFromLookup bool
	findErr        error
}

func (r *fakeEntryRepo) Create(ctx context.Context, entry *domain.WeightEntry) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.Source == domain.SourceGoalStart {
		for _, e := range r.entries {
			if e.Source == domain.SourceGoalStart && e.UserID == entry.UserID &&
				e.GoalID.Equal(entry.GoalID) && e.Date.Equal(entry.Date) {
				return primitive.NilObjectID, repository.ErrDuplicate
			}
		}
	}
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return entry.ID, nil
}

func (r *fakeEntryRepo) FindForGoalInRange(ctx context.Context, userID primitive.ObjectID, goalID domain.GoalID, from, to time.Time) (*domain.WeightEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.hideFromLookup {
		return nil, repository.ErrNotFound
	}
	for _, e := range r.entries {
		if e.UserID == userID && e.GoalID.Equal(goalID) && !e.Date.Before(from) && e.Date.Before(to) {
			found := e
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeEntryRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, goalID domain.GoalID) ([]domain.WeightEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.WeightEntry{}
	for _, e := range r.entries {
		if e.UserID != userID {
			continue
		}
		if !goalID.IsZero() && !e.GoalID.Equal(goalID) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *fakeEntryRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func (r *fakeEntryRepo) all() []domain.WeightEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.WeightEntry(nil), r.entries...)
}

// fakeDispatcher records tasks instead of running them.
type fakeDispatcher struct {
	mu    sync.Mutex
	tasks []queue.SeedTask
	err   error
}

func (d *fakeDispatcher) Enqueue(ctx context.Context, task queue.SeedTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *fakeDispatcher) enqueued() []queue.SeedTask {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]queue.SeedTask(nil), d.tasks...)
}

// fakeProfileCache is an in-memory cache.ProfileCache with the same revision floor as the Redis one.
type fakeProfileCache struct {
	mu          sync.Mutex
	profiles    map[primitive.ObjectID]domain.User
	floors      map[primitive.ObjectID]int64
	invalidated int
}

func newFakeProfileCache() *fakeProfileCache {
	return &fakeProfileCache{
		profiles: map[primitive.ObjectID]domain.User{},
		floors:   map[primitive.ObjectID]int64{},
	}
}

func (c *fakeProfileCache) Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.profiles[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (c *fakeProfileCache) Set(ctx context.Context, user *domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if floor, ok := c.floors[user.ID]; ok && floor > user.Revision {
		return nil
	}
	c.profiles[user.ID] = *cloneUser(user)
	return nil
}

func (c *fakeProfileCache) Invalidate(ctx context.Context, id primitive.ObjectID, revision int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.profiles, id)
	if revision > c.floors[id] {
		c.floors[id] = revision
	}
	c.invalidated++
	return nil
}

// --- FIXTURE ---

// testNow is a fixed mid-morning UTC clock for lifecycle tests.
var testNow = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

type goalFixture struct {
	users      *fakeUserRepo
	entries    *fakeEntryRepo
	dispatcher *fakeDispatcher
	profiles   *fakeProfileCache
	svc        *goalService
}

func newGoalFixture() *goalFixture {
	f := &goalFixture{
		users:      newFakeUserRepo(),
		entries:    &fakeEntryRepo{},
		dispatcher: &fakeDispatcher{},
		profiles:   newFakeProfileCache(),
	}
	f.svc = newGoalService(f.users, f.entries, f.dispatcher, f.profiles, logging.Discard(), 3)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func ptr[T any](v T) *T { return &v }

func daysFromNow(days int) time.Time {
	return domain.StartOfDay(testNow).AddDate(0, 0, days)
}

// seedActiveUser stores a user holding an active goal created two days ago.
func (f *goalFixture) seedActiveUser(targetDate time.Time) *domain.User {
	goalCreated := testNow.AddDate(0, 0, -2)
	u := &domain.User{
		Name:              "Ada",
		Gender:            domain.GenderFemale,
		Age:               34,
		Height:            168,
		CurrentWeight:     ptr(82.0),
		TargetWeight:      ptr(74.0),
		TargetDate:        &targetDate,
		GoalID:            domain.NewGoalID(),
		GoalStatus:        domain.GoalStatusActive,
		GoalCreatedAt:     &goalCreated,
		GoalInitialWeight: ptr(82.0),
		PastGoals:         []domain.ArchivedGoal{},
		Revision:          4,
		CreatedAt:         testNow.AddDate(-1, 0, 0),
	}
	f.users.put(u)
	return u
}

func (f *goalFixture) seedUserWithoutGoal() *domain.User {
	u := &domain.User{
		Name:          "Grace",
		Gender:        domain.GenderFemale,
		Age:           40,
		Height:        170,
		CurrentWeight: ptr(70.0),
		GoalStatus:    domain.GoalStatusNone,
		PastGoals:     []domain.ArchivedGoal{},
		Revision:      1,
		CreatedAt:     testNow.AddDate(0, -6, 0),
	}
	f.users.put(u)
	return u
}
