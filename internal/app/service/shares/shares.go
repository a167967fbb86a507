// Package shares issues and resolves share links. A share link is a bearer
// capability for one file, optionally limited by expiry, download count,
// password and an email allow-list.
package shares

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/store/file"
	"github.com/dalemusser/stratafiles/internal/app/store/sharelink"
	"github.com/dalemusser/stratafiles/internal/app/system/access"
	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/dalemusser/stratafiles/internal/app/system/authutil"
	"github.com/dalemusser/stratafiles/internal/app/system/inputval"
	"github.com/dalemusser/stratafiles/internal/app/system/metrics"
	"github.com/dalemusser/stratafiles/internal/app/system/normalize"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Service manages share links.
type Service struct {
	links   *sharelink.Store
	files   *file.Store
	hasher  authutil.Hasher
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a share service. m may be nil.
func New(db *mongo.Database, hasher authutil.Hasher, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		links:   sharelink.New(db),
		files:   file.New(db),
		hasher:  hasher,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func storeErr(op string, err error) error {
	if errors.Is(err, sharelink.ErrNotFound) || errors.Is(err, file.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, op, err)
	}
	return apperr.Wrap(apperr.StorageUnavailable, op, err)
}

// activeFile loads a file that is not in the trash.
func (s *Service) activeFile(ctx context.Context, op string, id primitive.ObjectID) (*models.StoredFile, error) {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if f.Lifecycle() != models.LifecycleActive {
		return nil, apperr.E(apperr.NotFound, op, "file is in the trash")
	}
	return f, nil
}

// ShareInput sets the constraints of a new link. nil and empty fields mean
// unrestricted. CanView and CanDownload default to true.
type ShareInput struct {
	ExpiresIn     *time.Duration
	MaxDownloads  *int64
	Password      string
	AllowedEmails []string
	CanView       *bool
	CanDownload   *bool
}

// ShareFile creates a link for a file the caller can view. A zero ExpiresIn
// produces a link that is already expired.
func (s *Service) ShareFile(ctx context.Context, fileID, caller primitive.ObjectID, in ShareInput) (*models.ShareLink, error) {
	const op = "shares.ShareFile"

	if in.ExpiresIn != nil && *in.ExpiresIn < 0 {
		return nil, apperr.E(apperr.Validation, op, "expiry cannot be negative")
	}
	if in.MaxDownloads != nil && *in.MaxDownloads <= 0 {
		return nil, apperr.E(apperr.Validation, op, "max downloads must be positive")
	}
	canView, canDownload := boolOr(in.CanView, true), boolOr(in.CanDownload, true)
	if !canView && !canDownload {
		return nil, apperr.E(apperr.Validation, op, "link must allow viewing or downloading")
	}
	emails := normalize.Emails(in.AllowedEmails)
	for _, e := range emails {
		if !inputval.IsValidEmail(e) {
			return nil, apperr.E(apperr.Validation, op, "invalid email address "+e)
		}
	}

	var hash string
	if in.Password != "" {
		if err := authutil.ValidatePassword(in.Password); err != nil {
			return nil, apperr.Wrap(apperr.Validation, op, err)
		}
		h, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, apperr.Wrap(apperr.Validation, op, err)
		}
		hash = h
	}

	f, err := s.activeFile(ctx, op, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanView(access.File(f), caller) {
		return nil, apperr.E(apperr.AccessDenied, op, "")
	}

	var expiresAt *time.Time
	if in.ExpiresIn != nil {
		t := s.now().Add(*in.ExpiresIn)
		expiresAt = &t
	}

	link, err := s.links.Create(ctx, sharelink.CreateInput{
		FileID:        f.ID,
		CreatedBy:     caller,
		ExpiresAt:     expiresAt,
		MaxDownloads:  in.MaxDownloads,
		PasswordHash:  hash,
		AllowedEmails: emails,
		CanView:       canView,
		CanDownload:   canDownload,
	})
	if err != nil {
		return nil, storeErr(op, err)
	}

	s.logger.Info("share link created",
		zap.String("link_id", link.ID.Hex()),
		zap.String("file_id", f.ID.Hex()),
		zap.String("created_by", caller.Hex()),
		zap.Bool("password", hash != ""),
		zap.Int("allowed_emails", len(emails)))
	return link, nil
}

// ResolveInput carries what the anonymous caller presented with the token.
type ResolveInput struct {
	Password  string
	Email     string
	IP        string
	UserAgent string
}

// Resolution is a successfully consumed link and its file.
type Resolution struct {
	File *models.StoredFile
	Link *models.ShareLink
}

// Resolve checks the token and consumes one use of the link. Unknown tokens
// are NotFound; revoked, expired and exhausted links are LinkUnusable; a wrong
// password or email is AccessDenied. The usability check and the counter
// increment are one atomic update, so concurrent callers never exceed the
// download limit.
func (s *Service) Resolve(ctx context.Context, token string, in ResolveInput) (*Resolution, error) {
	res, err := s.resolve(ctx, token, in)
	if err != nil {
		s.metrics.ShareResolve(string(apperr.KindOf(err)))
		return nil, err
	}
	s.metrics.ShareResolve("ok")
	return res, nil
}

func (s *Service) resolve(ctx context.Context, token string, in ResolveInput) (*Resolution, error) {
	const op = "shares.Resolve"

	if token == "" {
		return nil, apperr.E(apperr.NotFound, op, "empty token")
	}
	link, err := s.links.GetByToken(ctx, token)
	if err != nil {
		return nil, storeErr(op, err)
	}

	now := s.now()
	if !link.Usable(now) {
		return nil, apperr.E(apperr.LinkUnusable, op, link.State(now))
	}
	if link.HasPassword() && !s.hasher.Check(in.Password, link.PasswordHash) {
		return nil, apperr.E(apperr.AccessDenied, op, "password required")
	}
	if len(link.AllowedEmails) > 0 && !slices.Contains(link.AllowedEmails, normalize.Email(in.Email)) {
		return nil, apperr.E(apperr.AccessDenied, op, "email not allowed")
	}

	f, err := s.activeFile(ctx, op, link.FileID)
	if err != nil {
		return nil, err
	}

	consumed, err := s.links.Consume(ctx, link.ID, models.AccessEntry{
		IP:        in.IP,
		UserAgent: in.UserAgent,
		At:        now,
	})
	if errors.Is(err, sharelink.ErrUnusable) {
		// Lost the race for the last download, or revoked meanwhile.
		return nil, apperr.Wrap(apperr.LinkUnusable, op, err)
	}
	if err != nil {
		return nil, storeErr(op, err)
	}

	s.logger.Info("share link resolved",
		zap.String("link_id", consumed.ID.Hex()),
		zap.String("file_id", f.ID.Hex()),
		zap.Int64("download_count", consumed.DownloadCount),
		zap.String("ip", in.IP))
	return &Resolution{File: f, Link: consumed}, nil
}

// Revoke deactivates a link. Only its creator may revoke; revoking twice is
// not an error.
func (s *Service) Revoke(ctx context.Context, linkID, caller primitive.ObjectID) error {
	const op = "shares.Revoke"

	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return storeErr(op, err)
	}
	if link.CreatedBy != caller {
		return apperr.E(apperr.AccessDenied, op, "")
	}
	if !link.IsActive {
		return nil
	}
	if err := s.links.Revoke(ctx, link.ID); err != nil {
		return storeErr(op, err)
	}

	s.logger.Info("share link revoked",
		zap.String("link_id", link.ID.Hex()),
		zap.String("file_id", link.FileID.Hex()))
	return nil
}

// List returns the active links of a file the caller can view, newest first.
func (s *Service) List(ctx context.Context, fileID, caller primitive.ObjectID) ([]models.ShareLink, error) {
	const op = "shares.List"

	f, err := s.activeFile(ctx, op, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanView(access.File(f), caller) {
		return nil, apperr.E(apperr.AccessDenied, op, "")
	}

	links, err := s.links.ListActiveByFile(ctx, f.ID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return links, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
