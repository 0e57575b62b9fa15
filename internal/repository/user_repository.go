package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidtube/vidtube-backend/internal/domain"
	"github.com/vidtube/vidtube-backend/internal/observability"
)

// UserRepository is the credential store. Refresh-token writes are single
// atomic document updates; SwapRefreshToken is the compare-and-swap the
// rotation invariant rests on.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	SwapRefreshToken(ctx context.Context, id primitive.ObjectID, oldToken, newToken string) (bool, error)
	ClearRefreshToken(ctx context.Context, id primitive.ObjectID) error
	SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, fullname, email string) (*domain.User, error)
	SetAvatar(ctx context.Context, id primitive.ObjectID, url string) (*domain.User, error)
	SetCoverImage(ctx context.Context, id primitive.ObjectID, url string) (*domain.User, error)
	AppendWatchHistory(ctx context.Context, id, videoID primitive.ObjectID) error
}

type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository builds the repository and ensures the unique indexes on
// email and username. Email and username are stored lowercased, so the plain
// unique indexes give case-insensitive uniqueness.
func NewUserRepository(ctx context.Context, db *mongo.Database) (UserRepository, error) {
	collection := db.Collection(usersCollection)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return nil, err
	}
	return &mongoUserRepository{collection: collection}, nil
}

func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			observability.RecordRepositoryOperation(ctx, "user", "create", "duplicate")
			return ErrDuplicate
		}
		observability.RecordRepositoryOperation(ctx, "user", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "create", "success")
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return r.findOne(ctx, "find_by_id", bson.M{"_id": id})
}

// FindByIdentifier resolves a login identifier that may be either an email or
// a username.
func (r *mongoUserRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": identifier},
		bson.M{"username": identifier},
	}}
	return r.findOne(ctx, "find_by_identifier", filter)
}

func (r *mongoUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "find_by_username", bson.M{"username": username})
}

func (r *mongoUserRepository) findOne(ctx context.Context, op string, filter bson.M) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			observability.RecordRepositoryOperation(ctx, "user", op, "not_found")
			return nil, ErrNotFound
		}
		observability.RecordRepositoryOperation(ctx, "user", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "user", op, "success")
	return &user, nil
}

func (r *mongoUserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "exists", "error")
		return false, err
	}
	observability.RecordRepositoryOperation(ctx, "user", "exists", "success")
	return count > 0, nil
}

func (r *mongoUserRepository) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return r.updateOne(ctx, "set_refresh_token",
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"refresh_token": token, "updated_at": time.Now().UTC()}},
	)
}

// SwapRefreshToken overwrites the stored refresh token only if it still equals
// oldToken. When two rotations race on the same token, at most one matches.
func (r *mongoUserRepository) SwapRefreshToken(ctx context.Context, id primitive.ObjectID, oldToken, newToken string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "refresh_token": oldToken},
		bson.M{"$set": bson.M{"refresh_token": newToken, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "swap_refresh_token", "error")
		return false, err
	}
	if res.MatchedCount == 0 {
		observability.RecordRepositoryOperation(ctx, "user", "swap_refresh_token", "stale")
		return false, nil
	}
	observability.RecordRepositoryOperation(ctx, "user", "swap_refresh_token", "success")
	return true, nil
}

// ClearRefreshToken is unconditional and idempotent: clearing an absent token
// is not an error.
func (r *mongoUserRepository) ClearRefreshToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$unset": bson.M{"refresh_token": ""}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "clear_refresh_token", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "clear_refresh_token", "success")
	return nil
}

func (r *mongoUserRepository) SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.updateOne(ctx, "set_password_hash",
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"password": hash, "updated_at": time.Now().UTC()}},
	)
}

func (r *mongoUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, fullname, email string) (*domain.User, error) {
	return r.findOneAndUpdate(ctx, "update_profile", id,
		bson.M{"$set": bson.M{"fullname": fullname, "email": email, "updated_at": time.Now().UTC()}},
	)
}

func (r *mongoUserRepository) SetAvatar(ctx context.Context, id primitive.ObjectID, url string) (*domain.User, error) {
	return r.findOneAndUpdate(ctx, "set_avatar", id,
		bson.M{"$set": bson.M{"avatar": url, "updated_at": time.Now().UTC()}},
	)
}

func (r *mongoUserRepository) SetCoverImage(ctx context.Context, id primitive.ObjectID, url string) (*domain.User, error) {
	return r.findOneAndUpdate(ctx, "set_cover_image", id,
		bson.M{"$set": bson.M{"cover_image": url, "updated_at": time.Now().UTC()}},
	)
}

// AppendWatchHistory records a view. Insertion order is viewing order and
// duplicates are allowed, so this is a plain $push.
func (r *mongoUserRepository) AppendWatchHistory(ctx context.Context, id, videoID primitive.ObjectID) error {
	return r.updateOne(ctx, "append_watch_history",
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"watch_history": videoID}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
}

func (r *mongoUserRepository) updateOne(ctx context.Context, op string, filter, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "user", op, "error")
		return err
	}
	if res.MatchedCount == 0 {
		observability.RecordRepositoryOperation(ctx, "user", op, "not_found")
		return ErrNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", op, "success")
	return nil
}

func (r *mongoUserRepository) findOneAndUpdate(ctx context.Context, op string, id primitive.ObjectID, update bson.M) (*domain.User, error) {
	res := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if res.Err() != nil {
		if res.Err() == mongo.ErrNoDocuments {
			observability.RecordRepositoryOperation(ctx, "user", op, "not_found")
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(res.Err()) {
			observability.RecordRepositoryOperation(ctx, "user", op, "duplicate")
			return nil, ErrDuplicate
		}
		observability.RecordRepositoryOperation(ctx, "user", op, "error")
		return nil, res.Err()
	}
	var updated domain.User
	if err := res.Decode(&updated); err != nil {
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "user", op, "success")
	return &updated, nil
}
