package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// UserRepository implements ports.UserRepository using MongoDB.
type UserRepository struct {
	coll     *mongo.Collection
	counters *Counters
}

func NewUserRepository(db *mongo.Database, counters *Counters) *UserRepository {
	return &UserRepository{coll: db.Collection(collectionUsers), counters: counters}
}

type mongoUser struct {
	ID                   int64      `bson:"_id"`
	Username             string     `bson:"username"`
	Email                string     `bson:"email"`
	FirstName            string     `bson:"first_name"`
	LastName             string     `bson:"last_name"`
	Bio                  string     `bson:"bio"`
	Role                 string     `bson:"role"`
	IsActive             bool       `bson:"is_active"`
	ConfirmationCodeHash string     `bson:"confirmation_code_hash,omitempty"`
	CodeIssuedAt         int64      `bson:"code_issued_at,omitempty"`
	ConfirmedAt          *time.Time `bson:"confirmed_at,omitempty"`
	CreatedAt            int64      `bson:"created_at"`
	UpdatedAt            int64      `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		ID:                   u.ID,
		Username:             u.Username,
		Email:                u.Email,
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		Bio:                  u.Bio,
		Role:                 string(u.Role),
		IsActive:             u.IsActive,
		ConfirmationCodeHash: u.ConfirmationCodeHash,
		CodeIssuedAt:         timeToUnix(u.CodeIssuedAt),
		ConfirmedAt:          u.ConfirmedAt,
		CreatedAt:            timeToUnix(u.CreatedAt),
		UpdatedAt:            timeToUnix(u.UpdatedAt),
	}
}

func (mu mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:                   mu.ID,
		Username:             mu.Username,
		Email:                mu.Email,
		FirstName:            mu.FirstName,
		LastName:             mu.LastName,
		Bio:                  mu.Bio,
		Role:                 domain.Role(mu.Role),
		IsActive:             mu.IsActive,
		ConfirmationCodeHash: mu.ConfirmationCodeHash,
		CodeIssuedAt:         unixToTime(mu.CodeIssuedAt),
		ConfirmedAt:          mu.ConfirmedAt,
		CreatedAt:            unixToTime(mu.CreatedAt),
		UpdatedAt:            unixToTime(mu.UpdatedAt),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := user.ID
	if id == 0 {
		next, err := r.counters.Next(ctx, collectionUsers)
		if err != nil {
			return nil, err
		}
		id = next
	}

	doc := toMongoUser(user)
	doc.ID = id
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, asDuplicate(err, domain.ErrUserExists, "username", "email")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context, page ports.Page) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	cur, err := r.coll.Find(ctx, bson.M{}, findPage(page, bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, total, nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC().Unix()}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.FirstName != nil {
		set["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		set["last_name"] = *patch.LastName
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.Role != nil {
		set["role"] = string(*patch.Role)
	}

	var mu mongoUser
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mu)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, asDuplicate(err, domain.ErrUserExists, "username", "email")
		}
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetConfirmationCode(ctx context.Context, id int64, hash string, issuedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"confirmation_code_hash": hash,
			"code_issued_at":         issuedAt.Unix(),
		}},
	)
	if err != nil {
		return fmt.Errorf("set confirmation code: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeConfirmationCode clears the code only while the stored hash still
// matches, so concurrent exchanges of one code have a single winner.
func (r *UserRepository) ConsumeConfirmationCode(ctx context.Context, id int64, hash string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "confirmation_code_hash": hash},
		bson.M{
			"$unset": bson.M{"confirmation_code_hash": "", "code_issued_at": ""},
			"$set":   bson.M{"confirmed_at": at.UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("consume confirmation code: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCodeConsumed
	}
	return nil
}

func (r *UserRepository) MarkConfirmed(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "confirmed_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"confirmed_at": at.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("mark confirmed: %w", err)
	}
	return nil
}
