package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Upload("ok", 100)
	m.Upload("ok", 50)
	m.Upload("storage_unavailable", 10)
	m.ShareResolve("link_unusable")

	if got := testutil.ToFloat64(m.uploads.WithLabelValues("ok")); got != 2 {
		t.Errorf("uploads{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.uploadBytes); got != 150 {
		t.Errorf("upload bytes = %v, want 150", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `stratafiles_share_resolutions_total{result="link_unusable"} 1`) {
		t.Errorf("exposition missing share counter:\n%s", rec.Body.String())
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Upload("ok", 1)
	m.Download("ok")
	m.Delete("trash")
	m.ShareResolve("ok")
	m.ShareLinks("active", 3)
}

func TestShareLinksGauge(t *testing.T) {
	m := New()
	m.ShareLinks("expired", 4)
	m.ShareLinks("expired", 2)
	m.ShareLinks("revoked", 1)

	if got := testutil.ToFloat64(m.shareLinks.WithLabelValues("expired")); got != 2 {
		t.Errorf("share_links{expired} = %v, want 2 (gauge is set, not added)", got)
	}
	if got := testutil.ToFloat64(m.shareLinks.WithLabelValues("revoked")); got != 1 {
		t.Errorf("share_links{revoked} = %v, want 1", got)
	}
}
