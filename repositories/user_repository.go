package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/gym_backend/models"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// UserRepository reads and writes user records. Each role lives in its own
// collection, chosen with Role.Collection.
type UserRepository struct {
	db *mongo.Database
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) collection(role models.Role) (*mongo.Collection, error) {
	name := role.Collection()
	if name == "" {
		return nil, fmt.Errorf("no collection for role %d", role)
	}
	return r.db.Collection(name), nil
}

func (r *UserRepository) findOne(ctx context.Context, role models.Role, filter bson.M) (*models.User, error) {
	coll, err := r.collection(role)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s user: %w", role, err)
	}
	user.Role = role
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, role models.Role, email string) (*models.User, error) {
	return r.findOne(ctx, role, bson.M{"email": email})
}

func (r *UserRepository) FindByID(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, role, bson.M{"_id": id})
}

func (r *UserRepository) EmailExists(ctx context.Context, role models.Role, email string) (bool, error) {
	coll, err := r.collection(role)
	if err != nil {
		return false, err
	}

	count, err := coll.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count %s users: %w", role, err)
	}
	return count > 0, nil
}

// Create inserts a new user and sets its ID. A second account with the same
// email in the same role collection yields ErrDuplicateKey.
func (r *UserRepository) Create(ctx context.Context, role models.Role, user *models.User) error {
	coll, err := r.collection(role)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	res, err := coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert %s user: %w", role, err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	user.Role = role
	return nil
}

func (r *UserRepository) updateByID(ctx context.Context, role models.Role, id primitive.ObjectID, set bson.M) error {
	coll, err := r.collection(role)
	if err != nil {
		return err
	}

	set["updatedAt"] = time.Now().UTC()
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s user: %w", role, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword stores a new hash and stamps passwordChangedAt, which
// invalidates tokens issued before it.
func (r *UserRepository) UpdatePassword(ctx context.Context, role models.Role, id primitive.ObjectID, hash string, changedAt time.Time) error {
	return r.updateByID(ctx, role, id, bson.M{
		"password":          hash,
		"passwordChangedAt": changedAt,
	})
}

func (r *UserRepository) UpdateProfilePicture(ctx context.Context, role models.Role, id primitive.ObjectID, url string) error {
	return r.updateByID(ctx, role, id, bson.M{"profilePic": url})
}

func (r *UserRepository) SetBlocked(ctx context.Context, role models.Role, id primitive.ObjectID, blocked bool) error {
	return r.updateByID(ctx, role, id, bson.M{"isBlocked": blocked})
}

func (r *UserRepository) TouchLogin(ctx context.Context, role models.Role, id primitive.ObjectID, at time.Time) error {
	return r.updateByID(ctx, role, id, bson.M{"lastLoginAt": at})
}

// UpdateProfile applies the non-nil fields and returns the updated record
func (r *UserRepository) UpdateProfile(ctx context.Context, role models.Role, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error) {
	coll, err := r.collection(role)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.FullName != nil {
		set["fullName"] = *update.FullName
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err = coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update %s profile: %w", role, err)
	}
	user.Role = role
	return &user, nil
}

// List returns one page of users, newest first, and the total count
func (r *UserRepository) List(ctx context.Context, role models.Role, limit, skip int64) ([]models.User, int64, error) {
	coll, err := r.collection(role)
	if err != nil {
		return nil, 0, err
	}

	total, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count %s users: %w", role, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(skip).
		SetProjection(bson.M{"password": 0})
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s users: %w", role, err)
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode %s users: %w", role, err)
	}
	for i := range users {
		users[i].Role = role
	}
	return users, total, nil
}
