package addok

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/couchcryptid/student-map/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"

	marseilleResponse = `{
		"type": "FeatureCollection",
		"version": "draft",
		"features": [{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [5.4, 43.3]},
			"properties": {"label": "Marseille", "name": "Marseille", "citycode": "13055", "type": "municipality"}
		}],
		"query": "Marseille"
	}`
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(baseURL, timeout, testLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	return c
}

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Lookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/", r.URL.Path)
		assert.Equal(t, "Marseille", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "municipality", r.URL.Query().Get("type"))
		assert.Equal(t, contentTypeJSON, r.Header.Get("Accept"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(marseilleResponse))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL+"/search/", 5*time.Second)
	res := c.Lookup(context.Background(), "Marseille")

	require.True(t, res.OK())
	assert.Equal(t, domain.GeocodeResult{Latitude: 43.3, Longitude: 5.4, DisplayName: "Marseille"}, res.Result)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("resolved")), 0)
}

func TestClient_Lookup_CitySentVerbatim(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("q")
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(marseilleResponse))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 5*time.Second)
	c.Lookup(context.Background(), "  Saint-Étienne & co ")

	assert.Equal(t, "  Saint-Étienne & co ", got)
}

func TestClient_Lookup_KeepsBaseQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("apikey"))
		assert.Equal(t, "Lyon", r.URL.Query().Get("q"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(marseilleResponse))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL+"/search/?apikey=abc", 5*time.Second)
	assert.True(t, c.Lookup(context.Background(), "Lyon").OK())
}

func TestClient_Lookup_DisplayNameFallback(t *testing.T) {
	tests := []struct {
		name       string
		properties string
		expected   string
	}{
		{"label", `{"label": "Lyon 3e", "name": "Lyon"}`, "Lyon 3e"},
		{"name when label missing", `{"name": "Lyon"}`, "Lyon"},
		{"queried city when both missing", `{}`, "lyon"},
		{"null properties", `null`, "lyon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"type":"FeatureCollection","features":[{"type":"Feature",` +
				`"geometry":{"type":"Point","coordinates":[4.83,45.76]},"properties":` + tt.properties + `}]}`
			srv := jsonServer(t, http.StatusOK, body)

			res := testClient(t, srv.URL, 5*time.Second).Lookup(context.Background(), "lyon")

			require.True(t, res.OK())
			assert.Equal(t, tt.expected, res.Result.DisplayName)
		})
	}
}

func TestClient_Lookup_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty features", http.StatusOK, `{"type":"FeatureCollection","features":[]}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"bad request", http.StatusBadRequest, `{"title":"Missing query"}`},
		{"not json", http.StatusOK, `<html>maintenance</html>`},
		{"not a feature collection", http.StatusOK, `{"type":"Feature","geometry":null,"properties":{}}`},
		{"no geometry", http.StatusOK, `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":null,"properties":{"label":"X"}}]}`},
		{"polygon geometry", http.StatusOK, `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{}}]}`},
		{"empty point", http.StatusOK, `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[]},"properties":{}}]}`},
		{"latitude out of range", http.StatusOK, `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[2.0,123.0]},"properties":{}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, tt.status, tt.body)
			c := testClient(t, srv.URL, 5*time.Second)

			res := c.Lookup(context.Background(), "Atlantis")

			assert.Equal(t, domain.LookupNotFound, res.Status)
			assert.Equal(t, domain.ReasonNotFound, res.Reason())
			assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("not_found")), 0)
		})
	}
}

func TestClient_Lookup_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	c := testClient(t, srv.URL, 50*time.Millisecond)
	res := c.Lookup(context.Background(), "Paris")

	assert.Equal(t, domain.LookupTransportError, res.Status)
	assert.Equal(t, domain.ReasonTransportError, res.Reason())
	require.Error(t, res.Err)
}

func TestClient_Lookup_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	res := testClient(t, addr, time.Second).Lookup(context.Background(), "Paris")

	assert.Equal(t, domain.LookupTransportError, res.Status)
	assert.Contains(t, res.Err.Error(), "geocode request")
}

func TestClient_Lookup_ContextCancelled(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, marseilleResponse)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := testClient(t, srv.URL, time.Second).Lookup(ctx, "Marseille")

	assert.Equal(t, domain.LookupTransportError, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("/search/", time.Second, testLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
}

func TestClient_SearchURL(t *testing.T) {
	c := testClient(t, "http://localhost:7878/search/", time.Second)

	u, err := url.Parse(c.searchURL("Aix-en-Provence"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:7878", u.Host)
	assert.Equal(t, "/search/", u.Path)
	assert.Equal(t, url.Values{
		"q":     {"Aix-en-Provence"},
		"limit": {"1"},
		"type":  {"municipality"},
	}, u.Query())
}

func TestClient_CheckReadiness(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"missing query is still alive", http.StatusBadRequest, false},
		{"server error", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, tt.status, `{}`)
			err := testClient(t, srv.URL, time.Second).CheckReadiness(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		err := testClient(t, addr, time.Second).CheckReadiness(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unreachable")
	})
}
