package shares

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/store/file"
	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/dalemusser/stratafiles/internal/app/system/authutil"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"github.com/dalemusser/stratafiles/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func setup(t *testing.T) (*Service, *mongo.Database, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	return New(db, authutil.NewHasher(bcrypt.MinCost), nil, zap.NewNop()), db, ctx
}

func newFile(t *testing.T, db *mongo.Database, ctx context.Context, owner primitive.ObjectID, public bool) *models.StoredFile {
	t.Helper()
	f, err := file.New(db).Create(ctx, file.CreateInput{
		FileName:     "report.pdf",
		OriginalName: "report.pdf",
		ContentType:  "application/pdf",
		Size:         500000,
		Bucket:       "files-documents",
		StorageKey:   owner.Hex() + "/" + primitive.NewObjectID().Hex() + "-report.pdf",
		OwnerID:      owner,
		IsPublic:     public,
	})
	if err != nil {
		t.Fatalf("file Create() error = %v", err)
	}
	return f
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, kind) {
		t.Fatalf("error = %v, want kind %s", err, kind)
	}
}

func ptr[T any](v T) *T { return &v }

func TestShareFile_Validation(t *testing.T) {
	svc, db, ctx := setup(t)
	owner := primitive.NewObjectID()
	f := newFile(t, db, ctx, owner, false)

	tests := []struct {
		name string
		in   ShareInput
	}{
		{"negative expiry", ShareInput{ExpiresIn: ptr(-time.Second)}},
		{"zero max downloads", ShareInput{MaxDownloads: ptr(int64(0))}},
		{"negative max downloads", ShareInput{MaxDownloads: ptr(int64(-2))}},
		{"no capabilities", ShareInput{CanView: ptr(false), CanDownload: ptr(false)}},
		{"bad email", ShareInput{AllowedEmails: []string{"not-an-email"}}},
		{"short password", ShareInput{Password: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ShareFile(ctx, f.ID, owner, tt.in)
			if !apperr.Is(err, apperr.Validation) {
				t.Errorf("ShareFile() error = %v, want validation", err)
			}
		})
	}
}

func TestShareFile_Access(t *testing.T) {
	svc, db, ctx := setup(t)
	owner := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	private := newFile(t, db, ctx, owner, false)
	public := newFile(t, db, ctx, owner, true)

	_, err := svc.ShareFile(ctx, private.ID, stranger, ShareInput{})
	wantKind(t, err, apperr.AccessDenied)

	link, err := svc.ShareFile(ctx, public.ID, stranger, ShareInput{AllowedEmails: []string{" Friend@Example.com "}})
	if err != nil {
		t.Fatalf("ShareFile(public) error = %v", err)
	}
	if !link.CanView || !link.CanDownload || !link.IsActive {
		t.Errorf("defaults = view %v download %v active %v, want all true", link.CanView, link.CanDownload, link.IsActive)
	}
	if len(link.AllowedEmails) != 1 || link.AllowedEmails[0] != "friend@example.com" {
		t.Errorf("AllowedEmails = %v", link.AllowedEmails)
	}
	if len(link.Token) < 40 {
		t.Errorf("Token %q looks too short", link.Token)
	}

	_, err = svc.ShareFile(ctx, primitive.NewObjectID(), owner, ShareInput{})
	wantKind(t, err, apperr.NotFound)
}

func TestResolve_MaxDownloadsOne(t *testing.T) {
	svc, db, ctx := setup(t)
	owner := primitive.NewObjectID()
	f := newFile(t, db, ctx, owner, false)

	link, err := svc.ShareFile(ctx, f.ID, owner, ShareInput{MaxDownloads: ptr(int64(1))})
	if err != nil {
		t.Fatalf("ShareFile() error = %v", err)
	}

	res, err := svc.Resolve(ctx, link.Token, ResolveInput{IP: "203.0.113.9", UserAgent: "curl/8"})
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	if res.File.ID != f.ID {
		t.Errorf("resolved file = %v, want %v", res.File.ID, f.ID)
	}
	if res.Link.DownloadCount != 1 {
		t.Errorf("DownloadCount = %d, want 1", res.Link.DownloadCount)
	}
	if len(res.Link.AccessLog) != 1 || res.Link.AccessLog[0].IP != "203.0.113.9" {
		t.Errorf("AccessLog = %+v", res.Link.AccessLog)
	}

	_, err = svc.Resolve(ctx, link.Token, ResolveInput{})
	wantKind(t, err, apperr.LinkUnusable)
}

func TestResolve_ConcurrentNoOverAdmission(t *testing.T) {
	svc, db, ctx := setup(t)
	owner := primitive.NewObjectID()
	f := newFile(t, db, ctx, owner, false)

	const limit, callers = 3, 20
	link, err := svc.ShareFile(ctx, f.ID, owner, ShareInput{MaxDownloads: ptr(int64(limit))})
	if err != nil {
		t.Fatalf("ShareFile() error = %v", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		unusable int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Resolve(ctx, link.Token, ResolveInput{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.Is(err, apperr.LinkUnusable):
				unusable++
			default:
				t.Errorf("Resolve() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != limit || unusable != callers-limit {
		t.Errorf("ok = %d, unusable = %d, want %d and %d", ok, unusable, limit, callers-limit)
	}
}

func TestResolve_ZeroExpiryUnusable(t *testing.T) {
	svc, db, ctx := setup(t)
	owner := primitive.NewObjectID()
	f := newFile(t, db, ctx, owner, false)

	link, err := svc.ShareFile(ctx, f.ID, owner, ShareInput{ExpiresIn: ptr(time.Duration(0))})
	if err != nil {
		t.Fatalf("ShareFile() error = %v", err)
	}
	_, err = svc.Resolve(ctx, link.Token, ResolveInput{})
	wantKind(t, err, apperr.LinkUnusable)
}

func TestResolve_ExpiresLater(t *testing.T) {
	svc, db, ctx := setup(t)
	owner := primitive.NewObjectID()
	f := newFile(t, db, ctx, owner, false)

	link, err := svc.ShareFile(ctx, f.ID, owner, ShareInput{ExpiresIn: ptr(time.Hour)})
	if err != nil {
		t.Fatalf("ShareFile() error = %v", err)
	}
	if _, err := svc.Resolve(ctx, link.Token, ResolveInput{}); err != nil {
		t.Fatalf("Resolve() before expiry error = %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Resolve(ctx, link.Token, ResolveInput{})
	wantKind(t, err, apperr.LinkUnusable)
}

func TestResolve_Credentials(t *testing.T) {
	svc, db, ctx := setup(t)
	owner := primitive.NewObjectID()
	f := newFile(t, db, ctx, owner, false)

	link, err := svc.ShareFile(ctx, f.ID, owner, ShareInput{
		Password:      "correct horse",
		AllowedEmails: []string{"friend@example.com"},
	})
	if err != nil {
		t.Fatalf("ShareFile() error = %v", err)
	}
	if link.PasswordHash == "" || link.PasswordHash == "correct horse" {
		t.Fatalf("PasswordHash = %q, want a bcrypt hash", link.PasswordHash)
	}

	_, err = svc.Resolve(ctx, link.Token, ResolveInput{Password: "wrong", Email: "friend@example.com"})
	wantKind(t, err, apperr.AccessDenied)
	_, err = svc.Resolve(ctx, link.Token, ResolveInput{Password: "correct horse", Email: "enemy@example.com"})
	wantKind(t, err, apperr.AccessDenied)

	res, err := svc.Resolve(ctx, link.Token, ResolveInput{Password: "correct horse", Email: " Friend@Example.COM"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	// Rejected attempts do not consume the link.
	if res.Link.DownloadCount != 1 {
		t.Errorf("DownloadCount = %d, want 1", res.Link.DownloadCount)
	}
}

func TestResolve_UnknownAndTrashed(t *testing.T) {
	svc, db, ctx := setup(t)
	owner := primitive.NewObjectID()
	f := newFile(t, db, ctx, owner, false)

	_, err := svc.Resolve(ctx, "no-such-token", ResolveInput{})
	wantKind(t, err, apperr.NotFound)
	_, err = svc.Resolve(ctx, "", ResolveInput{})
	wantKind(t, err, apperr.NotFound)

	link, err := svc.ShareFile(ctx, f.ID, owner, ShareInput{})
	if err != nil {
		t.Fatalf("ShareFile() error = %v", err)
	}
	if err := file.New(db).Trash(ctx, f.ID, owner); err != nil {
		t.Fatalf("Trash() error = %v", err)
	}
	_, err = svc.Resolve(ctx, link.Token, ResolveInput{})
	wantKind(t, err, apperr.NotFound)
}

func TestRevoke(t *testing.T) {
	svc, db, ctx := setup(t)
	owner := primitive.NewObjectID()
	viewer := primitive.NewObjectID()
	f := newFile(t, db, ctx, owner, false)
	if err := file.New(db).AddPermission(ctx, f.ID, models.Permission{PrincipalID: viewer, Role: models.RoleViewer}); err != nil {
		t.Fatalf("AddPermission() error = %v", err)
	}

	mine, err := svc.ShareFile(ctx, f.ID, owner, ShareInput{})
	if err != nil {
		t.Fatalf("ShareFile() error = %v", err)
	}
	theirs, err := svc.ShareFile(ctx, f.ID, viewer, ShareInput{})
	if err != nil {
		t.Fatalf("ShareFile(viewer) error = %v", err)
	}

	// Creator only, even against the file owner.
	wantKind(t, svc.Revoke(ctx, theirs.ID, owner), apperr.AccessDenied)

	if err := svc.Revoke(ctx, mine.ID, owner); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if err := svc.Revoke(ctx, mine.ID, owner); err != nil {
		t.Fatalf("second Revoke() error = %v", err)
	}
	wantKind(t, svc.Revoke(ctx, primitive.NewObjectID(), owner), apperr.NotFound)

	_, err = svc.Resolve(ctx, mine.Token, ResolveInput{})
	wantKind(t, err, apperr.LinkUnusable)

	links, err := svc.List(ctx, f.ID, viewer)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(links) != 1 || links[0].ID != theirs.ID {
		t.Errorf("List() = %d links, want only the active one", len(links))
	}
}

func TestList(t *testing.T) {
	svc, db, ctx := setup(t)
	owner := primitive.NewObjectID()
	f := newFile(t, db, ctx, owner, false)

	first, err := svc.ShareFile(ctx, f.ID, owner, ShareInput{})
	if err != nil {
		t.Fatalf("ShareFile() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := svc.ShareFile(ctx, f.ID, owner, ShareInput{})
	if err != nil {
		t.Fatalf("ShareFile() error = %v", err)
	}

	links, err := svc.List(ctx, f.ID, owner)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(links) != 2 || links[0].ID != second.ID || links[1].ID != first.ID {
		t.Errorf("List() not newest first")
	}

	_, err = svc.List(ctx, f.ID, primitive.NewObjectID())
	wantKind(t, err, apperr.AccessDenied)
}
