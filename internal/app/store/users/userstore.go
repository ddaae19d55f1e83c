package userstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/clanforge/clanhub/internal/app/system/normalize"
	"github.com/clanforge/clanhub/internal/app/system/txn"
	"github.com/clanforge/clanhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrDuplicateEmail is returned when an account with the email exists.
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	// ErrUsernameTaken is returned when another user holds the folded name.
	ErrUsernameTaken = errors.New("that username is already taken")
	// ErrInvalidRole is returned for a role or verification tier outside the
	// known set.
	ErrInvalidRole = errors.New(`role must be "creator"|"clan_owner"|"user"`)
	ErrInvalidTier = errors.New(`verification must be "none"|"blue"|"gold"`)
)

// Store owns the users collection and the usernames claim table.
type Store struct {
	c      *mongo.Collection
	names  *mongo.Collection
	client *mongo.Client
	log    *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		c:      db.Collection("users"),
		names:  db.Collection("usernames"),
		client: db.Client(),
		log:    log,
	}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername looks up a user by folded username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"username_ci": text.Fold(normalize.Username(username))}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Search returns users whose folded username starts with prefix, in name
// order.
func (s *Store) Search(ctx context.Context, prefix string, limit int64) ([]models.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	filter := bson.M{"username_ci": bson.M{"$type": "string"}}
	if p := text.Fold(normalize.Username(prefix)); p != "" {
		filter["username_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(p)}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "username_ci", Value: 1}}).
		SetLimit(limit).
		SetProjection(bson.M{"password_hash": 0})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewAccount is the input to Create.
type NewAccount struct {
	Email        string
	Username     string // empty creates an account without a profile
	PasswordHash string
	Role         string
}

// Create inserts the account and, when a username is given, its claim, in
// one transaction.
func (s *Store) Create(ctx context.Context, in NewAccount) (models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !validRole(in.Role) {
		return models.User{}, ErrInvalidRole
	}

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        normalize.Email(in.Email),
		Username:     normalize.Username(in.Username),
		Role:         in.Role,
		Verification: models.VerificationNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.UsernameCI = text.Fold(u.Username)
	if in.PasswordHash != "" {
		h := in.PasswordHash
		u.PasswordHash = &h
	}

	// The account goes in before its claim and is removed again when the
	// claim fails, so a standalone server never keeps an unowned claim.
	err := txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		if _, err := s.c.InsertOne(ctx, u); err != nil {
			if wafflemongo.IsDup(err) {
				return ErrDuplicateEmail
			}
			return err
		}
		if !u.HasProfile() {
			return nil
		}
		if err := s.claim(ctx, u.UsernameCI, u.ID, now); err != nil {
			if _, derr := s.c.DeleteOne(ctx, bson.M{"_id": u.ID}); derr != nil {
				s.log.Error("remove account after failed claim",
					zap.String("user_id", u.ID.Hex()), zap.Error(derr))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) claim(ctx context.Context, key string, userID primitive.ObjectID, at time.Time) error {
	_, err := s.names.InsertOne(ctx, models.UsernameClaim{ID: key, UserID: userID, ClaimedAt: at})
	if wafflemongo.IsDup(err) {
		return ErrUsernameTaken
	}
	return err
}

// release drops key when it is held by userID. Used to undo a claim whose
// profile write failed.
func (s *Store) release(ctx context.Context, key string, userID primitive.ObjectID) {
	if _, err := s.names.DeleteOne(ctx, bson.M{"_id": key, "user_id": userID}); err != nil {
		s.log.Error("release username claim", zap.String("username_ci", key), zap.Error(err))
	}
}

// ChangeUsername claims newName for id and releases the old claim. When the
// folded name is held by someone else it returns ErrUsernameTaken and
// nothing changes. A change that only alters letter case keeps the claim.
func (s *Store) ChangeUsername(ctx context.Context, id primitive.ObjectID, newName string) (models.User, error) {
	newName = normalize.Username(newName)
	newKey := text.Fold(newName)

	var out models.User
	err := txn.Run(ctx, s.client, s.log, func(ctx context.Context) error {
		var u models.User
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
			return err
		}
		now := time.Now().UTC()

		renamed := newKey != u.UsernameCI
		if renamed {
			if err := s.claim(ctx, newKey, id, now); err != nil {
				return err
			}
		}

		after := options.After
		res := s.c.FindOneAndUpdate(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"username": newName, "username_ci": newKey, "updated_at": now}},
			&options.FindOneAndUpdateOptions{ReturnDocument: &after},
		)
		if err := res.Decode(&out); err != nil {
			if renamed {
				s.release(ctx, newKey, id)
			}
			return err
		}

		// The old claim is released only once the profile points at the new one.
		if renamed && u.UsernameCI != "" {
			if _, err := s.names.DeleteOne(ctx, bson.M{"_id": u.UsernameCI, "user_id": id}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return out, nil
}

// EnsureProfile gives an account without a username a default one derived
// from its email. Taken names get a numeric suffix. Accounts that already
// have a profile are returned unchanged.
func (s *Store) EnsureProfile(ctx context.Context, u models.User) (models.User, error) {
	if u.HasProfile() {
		return u, nil
	}

	base := normalize.UsernameFromEmail(u.Email)
	for i := 1; i <= 100; i++ {
		candidate := base
		if i > 1 {
			suffix := strconv.Itoa(i)
			if len(candidate)+len(suffix) > 20 {
				candidate = candidate[:20-len(suffix)]
			}
			candidate += suffix
		}

		updated, err := s.ChangeUsername(ctx, u.ID, candidate)
		if errors.Is(err, ErrUsernameTaken) {
			continue
		}
		if err != nil {
			return models.User{}, err
		}
		s.log.Info("default profile created",
			zap.String("user_id", u.ID.Hex()),
			zap.String("username", candidate))
		return updated, nil
	}
	return models.User{}, fmt.Errorf("no free username derived from %q", base)
}

// UpdatePhoto stores the photo reference.
func (s *Store) UpdatePhoto(ctx context.Context, id primitive.ObjectID, url string) error {
	return s.set(ctx, id, bson.M{"photo_url": url})
}

// SetPassword replaces the password hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.set(ctx, id, bson.M{"password_hash": hash})
}

// SetRole changes the role. Creator-only at the handler layer.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !validRole(role) {
		return ErrInvalidRole
	}
	return s.set(ctx, id, bson.M{"role": role})
}

// SetVerification changes the verification tier.
func (s *Store) SetVerification(ctx context.Context, id primitive.ObjectID, tier string) error {
	switch tier {
	case models.VerificationNone, models.VerificationBlue, models.VerificationGold:
	default:
		return ErrInvalidTier
	}
	return s.set(ctx, id, bson.M{"verification": tier})
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func validRole(role string) bool {
	switch role {
	case models.RoleCreator, models.RoleClanOwner, models.RoleUser:
		return true
	}
	return false
}
