package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/deptree/pkg/deptree"
	"github.com/matzehuels/deptree/pkg/observability"
	"github.com/matzehuels/deptree/pkg/registry"
)

func testRegistry() registry.Source {
	pkgs := map[string]*registry.Metadata{
		"express@4.18.2": {Name: "express", Version: "4.18.2", Dependencies: registry.Deps{
			{Name: "accepts", Range: "~1.3.8"},
			{Name: "debug", Range: "2.6.9"},
		}},
		"accepts@1.3.8": {Name: "accepts", Version: "1.3.8"},
		"debug@2.6.9":   {Name: "debug", Version: "2.6.9"},
	}
	return registry.SourceFunc(func(ctx context.Context, name, version string) (*registry.Metadata, error) {
		if m, ok := pkgs[registry.Key(name, version)]; ok {
			return m, nil
		}
		return nil, fmt.Errorf("%s@%s not found", name, version)
	})
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	client := registry.NewClient(testRegistry(), nil, nil)
	return New(deptree.NewBuilder(client, deptree.Options{Concurrency: 4}), opts)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/dependency-tree", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDependencyTree_Success(t *testing.T) {
	s := newTestServer(t, Options{})

	w := post(t, s, `{"packages":[{"name":"express","version":"4.18.2"},{"name":"ghost","version":"1.0.0"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp TreeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.DependencyTrees, 1, "unavailable roots are omitted")

	root := resp.DependencyTrees[0]
	assert.Equal(t, "express", root.Name)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "accepts", root.Children[0].Name)
	assert.Equal(t, "debug", root.Children[1].Name)
}

func TestDependencyTree_WireFormat(t *testing.T) {
	s := newTestServer(t, Options{})

	w := post(t, s, `{"packages":[{"name":"accepts","version":"1.3.8","isDev":true}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dependencyTrees":[{
		"name": "accepts",
		"version": "1.3.8",
		"children": [],
		"isDev": true,
		"isPeer": false,
		"isCircular": false,
		"depth": 0
	}]}`, w.Body.String())
}

func TestDependencyTree_EmptyPackages(t *testing.T) {
	s := newTestServer(t, Options{})

	w := post(t, s, `{"packages":[]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dependencyTrees":[]}`, w.Body.String())
}

func TestDependencyTree_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null packages", `{"packages":null}`},
		{"missing packages", `{}`},
		{"string packages", `{"packages":"express"}`},
		{"object packages", `{"packages":{"name":"express"}}`},
		{"not json", `{packages:`},
		{"empty body", ``},
	}
	s := newTestServer(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, s, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "INVALID_INPUT", resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestDependencyTree_InvalidElementsSkipped(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"missing version", `{"name":"ghost"}`},
		{"missing name", `{"version":"1.0.0"}`},
		{"empty name", `{"name":"","version":"1.0.0"}`},
		{"not an object", `"express"`},
		{"wrong field type", `{"name":42,"version":"1.0.0"}`},
		{"null element", `null`},
	}
	s := newTestServer(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"packages":[{"name":"express","version":"4.18.2"},` + tt.bad + `]}`
			w := post(t, s, body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp TreeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Len(t, resp.DependencyTrees, 1)
			assert.Equal(t, "express", resp.DependencyTrees[0].Name)
		})
	}
}

func TestDependencyTree_OnlyInvalidElements(t *testing.T) {
	s := newTestServer(t, Options{})

	w := post(t, s, `{"packages":[{"name":"ghost"},"x"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dependencyTrees":[]}`, w.Body.String())
}

type panicResolver struct{}

func (panicResolver) Build(ctx context.Context, roots []deptree.Request) []*deptree.Node {
	panic("database on fire: secret detail")
}

func TestDependencyTree_InternalError(t *testing.T) {
	s := New(panicResolver{}, Options{})

	w := post(t, s, `{"packages":[{"name":"a","version":"1.0.0"}]}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error","code":"INTERNAL_ERROR"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestDependencyTree_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/dependency-tree", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, Options{})

	w := post(t, s, `{"packages":[]}`)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36, "a UUID is assigned")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Version)
}

func TestMetrics(t *testing.T) {
	t.Cleanup(observability.Reset)

	m := NewMetrics()
	m.Register()
	s := newTestServer(t, Options{Metrics: m})

	post(t, s, `{"packages":[{"name":"express","version":"4.18.2"}]}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `deptree_resolutions_total 1`)
	assert.Contains(t, text, `deptree_registry_fetches_total{outcome="exact"} 3`)
	assert.Contains(t, text, `deptree_http_requests_total{method="POST",route="/api/dependency-tree",status="200"} 1`)
	assert.Contains(t, text, `deptree_cache_events_total{event="set",key_type="metadata"} 3`)
}

func TestNoMetricsRouteWithoutMetrics(t *testing.T) {
	s := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

type slowResolver struct{}

func (slowResolver) Build(ctx context.Context, roots []deptree.Request) []*deptree.Node {
	<-ctx.Done()
	return nil
}

func TestDependencyTree_RequestTimeout(t *testing.T) {
	s := New(slowResolver{}, Options{RequestTimeout: 10 * time.Millisecond})

	w := post(t, s, `{"packages":[{"name":"a","version":"1.0.0"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dependencyTrees":[]}`, w.Body.String())
}
