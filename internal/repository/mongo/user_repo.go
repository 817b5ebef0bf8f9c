package mongo

import (
	"alcyxob/weight-tracker/internal/domain"
	"alcyxob/weight-tracker/internal/repository" // Import the repository interfaces package
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCollectionName = "users"

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
// It expects a connected *mongo.Database instance.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// Create inserts a new user into the database.
func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Name == "" {
		return primitive.NilObjectID, errors.New("user name is required")
	}

	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Revision = 1
	if user.GoalStatus == "" {
		user.GoalStatus = domain.GoalStatusNone
	}
	if user.PastGoals == nil {
		user.PastGoals = []domain.ArchivedGoal{}
	}

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a user by their MongoDB ObjectID.
func (r *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail retrieves a user by their email address.
func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByEmailOrMobile looks a user up by either identity field.
func (r *mongoUserRepository) FindByEmailOrMobile(ctx context.Context, email, mobile string) (*domain.User, error) {
	or := bson.A{}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if mobile != "" {
		or = append(or, bson.M{"mobile": mobile})
	}
	if len(or) == 0 {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"$or": or})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns all users, newest first.
func (r *mongoUserRepository) List(ctx context.Context) ([]domain.User, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []domain.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Save replaces the whole user document, guarded by the revision counter.
func (r *mongoUserRepository) Save(ctx context.Context, user *domain.User) error {
	if user.ID == primitive.NilObjectID {
		return errors.New("user ID is required for save")
	}

	expected := user.Revision
	filter := bson.M{"_id": user.ID, "revision": expected}
	if expected == 0 {
		// Documents written before revisions existed have no counter at all.
		filter = bson.M{"_id": user.ID, "$or": bson.A{
			bson.M{"revision": 0},
			bson.M{"revision": bson.M{"$exists": false}},
		}}
	}

	prevUpdatedAt := user.UpdatedAt
	user.Revision = expected + 1
	user.UpdatedAt = time.Now().UTC()
	if user.PastGoals == nil {
		user.PastGoals = []domain.ArchivedGoal{}
	}
	restore := func() {
		user.Revision = expected
		user.UpdatedAt = prevUpdatedAt
	}

	result, err := r.collection.ReplaceOne(ctx, filter, user)
	if err != nil {
		restore()
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		restore()
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": user.ID})
		if err != nil {
			return err
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrRevisionConflict
	}
	return nil
}

// Delete removes a user document.
func (r *mongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureUserIndexes creates necessary indexes for the users collection.
// Call this once during application startup.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Profiles created without credentials have no email, hence sparse.
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "mobile", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
