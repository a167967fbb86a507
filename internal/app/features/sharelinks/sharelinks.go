// Package sharelinks serves the public share-link endpoint. Resolving a
// token needs no authentication, only the password or email the link
// demands.
package sharelinks

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/service/shares"
	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/dalemusser/stratafiles/internal/app/system/inputval"
	"github.com/dalemusser/stratafiles/internal/app/system/jsonutil"
	"github.com/dalemusser/stratafiles/internal/app/system/network"
	"github.com/dalemusser/stratafiles/internal/app/system/normalize"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Resolver consumes share tokens.
type Resolver interface {
	Resolve(ctx context.Context, token string, in shares.ResolveInput) (*shares.Resolution, error)
}

// Opener reads the object behind a shared file.
type Opener interface {
	OpenForShare(ctx context.Context, f *models.StoredFile) (io.ReadCloser, error)
}

// Handler serves share links.
type Handler struct {
	shares     Resolver
	files      Opener
	baseURL    string
	trustProxy bool
	logger     *zap.Logger
}

// NewHandler creates a share-link Handler. Forwarding headers are trusted
// for the client IP only when trustProxy is set.
func NewHandler(resolver Resolver, opener Opener, baseURL string, trustProxy bool, logger *zap.Logger) *Handler {
	return &Handler{
		shares:     resolver,
		files:      opener,
		baseURL:    baseURL,
		trustProxy: trustProxy,
		logger:     logger,
	}
}

// Routes returns a chi.Router with share routes mounted. POST lets a client
// send the password in a form body instead of the URL.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/{token}", h.serve)
	r.Post("/{token}", h.serve)
	return r
}

type resolveParams struct {
	Password string `validate:"max=72" label:"Password"`
	Email    string `validate:"max=254" label:"Email"`
	Mode     string `validate:"oneof=download view" label:"Mode"`
}

// FileView is the metadata returned when a link is opened for viewing.
type FileView struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Kind        string    `json:"kind"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	// Canonical addresses for signed-in clients; the link itself is the
	// recipient's way in.
	ViewURL     string `json:"view_url"`
	DownloadURL string `json:"download_url"`
	PreviewURL  string `json:"preview_url,omitempty"`
}

// LinkView describes what the link still allows.
type LinkView struct {
	CanView            bool       `json:"can_view"`
	CanDownload        bool       `json:"can_download"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	DownloadsRemaining *int64     `json:"downloads_remaining,omitempty"`
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		jsonutil.BadRequest(w, "invalid form")
		return
	}

	params := resolveParams{
		Password: r.FormValue("password"),
		Email:    normalize.Email(r.FormValue("email")),
		Mode:     normalize.QueryParam(r.FormValue("mode")),
	}
	if params.Mode == "" {
		params.Mode = "download"
	}
	if res := inputval.Validate(params); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}

	token := chi.URLParam(r, "token")
	res, err := h.shares.Resolve(r.Context(), token, shares.ResolveInput{
		Password:  params.Password,
		Email:     params.Email,
		IP:        network.ClientIP(r, h.trustProxy),
		UserAgent: network.UserAgent(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// A view-only link always answers with metadata; a download-only link
	// always streams.
	if res.Link.CanView && (params.Mode == "view" || !res.Link.CanDownload) {
		jsonutil.OK(w, map[string]any{
			"file": fileView(res.File, h.baseURL),
			"link": linkView(res.Link),
		})
		return
	}
	h.stream(w, r, res.File)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, f *models.StoredFile) {
	rc, err := h.files.OpenForShare(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.FileName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("share download interrupted",
			zap.String("file_id", f.ID.Hex()),
			zap.Error(err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if jsonutil.StatusFor(apperr.KindOf(err)) >= http.StatusInternalServerError {
		h.logger.Error("share link request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	jsonutil.AppError(w, err)
}

func fileView(f *models.StoredFile, baseURL string) FileView {
	return FileView{
		ID:          f.ID.Hex(),
		FileName:    f.FileName,
		ContentType: f.ContentType,
		Kind:        string(f.Kind),
		Size:        f.Size,
		CreatedAt:   f.CreatedAt,
		ViewURL:     f.ViewURL(baseURL),
		DownloadURL: f.DownloadURL(baseURL),
		PreviewURL:  f.PreviewURL(baseURL),
	}
}

func linkView(l *models.ShareLink) LinkView {
	v := LinkView{CanView: l.CanView, CanDownload: l.CanDownload, ExpiresAt: l.ExpiresAt}
	if l.MaxDownloads != nil {
		left := max(*l.MaxDownloads-l.DownloadCount, 0)
		v.DownloadsRemaining = &left
	}
	return v
}
