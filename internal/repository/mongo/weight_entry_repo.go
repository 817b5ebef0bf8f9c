package mongo

import (
	"alcyxob/weight-tracker/internal/domain"
	"alcyxob/weight-tracker/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const weightEntryCollectionName = "weight_entries"

// mongoWeightEntryRepository implements repository.WeightEntryRepository
type mongoWeightEntryRepository struct {
	collection *mongo.Collection
}

// NewMongoWeightEntryRepository creates a new WeightEntry repository.
func NewMongoWeightEntryRepository(db *mongo.Database) repository.WeightEntryRepository {
	return &mongoWeightEntryRepository{
		collection: db.Collection(weightEntryCollectionName),
	}
}

// Create inserts a new weight entry.
func (r *mongoWeightEntryRepository) Create(ctx context.Context, entry *domain.WeightEntry) (primitive.ObjectID, error) {
	if entry.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("weight entry requires userId")
	}
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now().UTC()
	if entry.Source == "" {
		entry.Source = domain.SourceManual
	}

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted weight entry ID")
	}
	return insertedID, nil
}

// FindForGoalInRange finds an entry for the user and goal dated within [from, to).
func (r *mongoWeightEntryRepository) FindForGoalInRange(ctx context.Context, userID primitive.ObjectID, goalID domain.GoalID, from, to time.Time) (*domain.WeightEntry, error) {
	var entry domain.WeightEntry
	filter := bson.M{
		"userId": userID,
		"goalId": goalID,
		"date":   bson.M{"$gte": from, "$lt": to},
	}
	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// ListByUser retrieves a user's entries sorted by date.
func (r *mongoWeightEntryRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, goalID domain.GoalID) ([]domain.WeightEntry, error) {
	filter := bson.M{"userId": userID}
	if !goalID.IsZero() {
		filter["goalId"] = goalID
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []domain.WeightEntry{}
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteByUser removes every entry owned by a user.
func (r *mongoWeightEntryRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

// EnsureWeightEntryIndexes creates necessary indexes. Call during startup.
func EnsureWeightEntryIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
		{
			// One seeded entry per user, goal and day. Manual entries are not constrained.
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "goalId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_goal_start_entry").
				SetPartialFilterExpression(bson.M{"source": domain.SourceGoalStart}),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
