// internal/app/store/sharelink/sharelinkstore.go
package sharelink

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no link matches.
	ErrNotFound = errors.New("share link not found")
	// ErrUnusable is returned by Consume when the link exists but is revoked,
	// expired or has no downloads left.
	ErrUnusable = errors.New("share link is not usable")
)

// maxAccessLog caps the access log kept on each link; older entries drop off.
const maxAccessLog = 1000

// Store provides access to the share_links collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new share link store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("share_links"),
	}
}

// CreateInput contains the input for creating a share link.
type CreateInput struct {
	FileID        primitive.ObjectID
	CreatedBy     primitive.ObjectID
	ExpiresAt     *time.Time
	MaxDownloads  *int64
	PasswordHash  string
	AllowedEmails []string
	CanView       bool
	CanDownload   bool
}

// Create creates an active share link with a fresh random token.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.ShareLink, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	emails := input.AllowedEmails
	if emails == nil {
		emails = []string{}
	}

	now := time.Now()
	link := models.ShareLink{
		ID:            primitive.NewObjectID(),
		FileID:        input.FileID,
		Token:         token,
		CreatedBy:     input.CreatedBy,
		ExpiresAt:     input.ExpiresAt,
		MaxDownloads:  input.MaxDownloads,
		PasswordHash:  input.PasswordHash,
		AllowedEmails: emails,
		CanView:       input.CanView,
		CanDownload:   input.CanDownload,
		IsActive:      true,
		AccessLog:     []models.AccessEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := s.c.InsertOne(ctx, link); err != nil {
		return nil, err
	}

	return &link, nil
}

// GetByID returns a link by ID in any state.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ShareLink, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByToken returns a link by token in any state.
func (s *Store) GetByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	return s.findOne(ctx, bson.M{"token": token})
}

// Consume atomically checks that the link is usable at now and records one
// access: the download counter is incremented, last-accessed is set, and
// entry is appended to the access log. Concurrent callers can never push
// the counter past max_downloads.
func (s *Store) Consume(ctx context.Context, id primitive.ObjectID, entry models.AccessEntry) (*models.ShareLink, error) {
	now := entry.At
	filter := usableAt(now)
	filter["_id"] = id
	update := bson.M{
		"$inc": bson.M{"download_count": 1},
		"$set": bson.M{"last_accessed_at": now, "updated_at": now},
		"$push": bson.M{"access_log": bson.M{
			"$each":  bson.A{entry},
			"$slice": -maxAccessLog,
		}},
	}

	var link models.ShareLink
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&link); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUnusable
		}
		return nil, err
	}
	return &link, nil
}

// Revoke deactivates a link. Revoking an inactive link is a no-op.
func (s *Store) Revoke(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveByFile returns the file's links that are usable right now,
// newest first. Expired and exhausted links are left out even though their
// is_active flag is still set.
func (s *Store) ListActiveByFile(ctx context.Context, fileID primitive.ObjectID) ([]models.ShareLink, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"access_log": 0})

	filter := usableAt(time.Now())
	filter["file_id"] = fileID
	cursor, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	links := []models.ShareLink{}
	if err := cursor.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// CountByState counts every link by the state (*models.ShareLink).State
// would report at now. The four filters partition the collection.
func (s *Store) CountByState(ctx context.Context, now time.Time) (map[string]int64, error) {
	filters := map[string]bson.M{
		"expired": {"expires_at": bson.M{"$lte": now}},
		"exhausted": {"$and": bson.A{
			notExpired(now),
			bson.M{
				"max_downloads": bson.M{"$type": "number"},
				"$expr":         bson.M{"$gte": bson.A{"$download_count", "$max_downloads"}},
			},
		}},
		"revoked": {"is_active": false, "$and": bson.A{notExpired(now), underLimit()}},
		"active":  usableAt(now),
	}

	out := make(map[string]int64, len(filters))
	for state, f := range filters {
		n, err := s.c.CountDocuments(ctx, f)
		if err != nil {
			return nil, err
		}
		out[state] = n
	}
	return out, nil
}

func notExpired(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"expires_at": nil},
		bson.M{"expires_at": bson.M{"$gt": now}},
	}}
}

// underLimit matches links without a cap or with downloads left.
func underLimit() bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"max_downloads": nil},
		bson.M{"$expr": bson.M{"$lt": bson.A{"$download_count", "$max_downloads"}}},
	}}
}

// usableAt is the query form of (*models.ShareLink).Usable. Callers add
// their own keys to the returned map.
func usableAt(now time.Time) bson.M {
	return bson.M{
		"is_active": true,
		"$and":      bson.A{notExpired(now), underLimit()},
	}
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.ShareLink, error) {
	var link models.ShareLink
	if err := s.c.FindOne(ctx, filter).Decode(&link); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// generateToken generates a random URL-safe token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
