package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/graphservice"
	"github.com/starford/ansuz/internal/vault"
)

// testEnv sets up a temp vault with seeded notes, the graph service, and the
// router. authToken="" means disabled auth mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	enabled := authToken != ""
	router, _ := testEnvFull(t, enabled, authToken, nil)
	return router
}

func testEnvFull(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (http.Handler, string) {
	t.Helper()

	vaultDir := t.TempDir()
	seed := map[string]string{
		"daily.md":       "---\ntitle: Daily\n---\nSee [[Target Note]], then [[daily note]] and [[daily notes]].",
		"target-note.md": "Linked from daily.",
		"orphan.md":      "Nothing links here and this links nowhere.",
	}
	for name, content := range seed {
		if err := os.WriteFile(filepath.Join(vaultDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	provider, err := vault.NewFS(vaultDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	analyzer := graph.NewService(provider, time.Minute)
	svc := graphservice.New(analyzer, graphservice.Config{})

	return NewRouter(svc, authEnabled, token, sseHandler), vaultDir
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGraphStats(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph")
	if w.Code != http.StatusOK {
		t.Fatalf("graph = %d, body = %s", w.Code, w.Body.String())
	}
	var st GraphStats
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.NoteCount != 3 {
		t.Errorf("noteCount = %d, want 3", st.NoteCount)
	}
	if len(st.DanglingLinks) != 2 {
		t.Errorf("dangling = %d, want 2", len(st.DanglingLinks))
	}
	if len(st.OrphanNotes) != 1 {
		t.Errorf("orphans = %d, want 1", len(st.OrphanNotes))
	}
}

func TestQuickStats(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph/quick")
	if w.Code != http.StatusOK {
		t.Fatalf("quick = %d", w.Code)
	}
	var qs GraphQuickStats
	_ = json.Unmarshal(w.Body.Bytes(), &qs)
	if qs.NoteCount != 3 {
		t.Errorf("noteCount = %d, want 3", qs.NoteCount)
	}
	if qs.DanglingCount != 2 {
		t.Errorf("danglingCount = %d, want 2", qs.DanglingCount)
	}
}

func TestBacklinksEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph/backlinks?title=Target+Note")
	if w.Code != http.StatusOK {
		t.Fatalf("backlinks = %d, body = %s", w.Code, w.Body.String())
	}
	var resp BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Backlinks) != 1 {
		t.Fatalf("backlinks = %d, want 1", len(resp.Backlinks))
	}
	if resp.Backlinks[0].SourceTitle != "Daily" {
		t.Errorf("source = %q, want Daily", resp.Backlinks[0].SourceTitle)
	}
}

func TestBacklinksMissingTitle(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph/backlinks")
	if w.Code != http.StatusBadRequest {
		t.Errorf("no title = %d, want 400", w.Code)
	}
}

func TestDanglingEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph/dangling")
	if w.Code != http.StatusOK {
		t.Fatalf("dangling = %d", w.Code)
	}
	var resp DanglingResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}

func TestOrphansEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph/orphans")
	if w.Code != http.StatusOK {
		t.Fatalf("orphans = %d", w.Code)
	}
	var resp OrphansResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	if resp.Orphans[0] != "orphan.md" {
		t.Errorf("orphan = %q", resp.Orphans[0])
	}
}

func TestClustersEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph/clusters")
	if w.Code != http.StatusOK {
		t.Fatalf("clusters = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ClustersResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Fatalf("clusters = %d, want 1", resp.Total)
	}
	if len(resp.Clusters[0].Members) != 2 {
		t.Errorf("members = %d, want 2", len(resp.Clusters[0].Members))
	}
}

func TestClustersHighThresholdEmpty(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph/clusters?threshold=0.99")
	if w.Code != http.StatusOK {
		t.Fatalf("clusters = %d", w.Code)
	}
	var resp ClustersResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 0 {
		t.Errorf("clusters = %d, want 0 at threshold 0.99", resp.Total)
	}
}

func TestSimilarEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph/similar?target=daily+note")
	if w.Code != http.StatusOK {
		t.Fatalf("similar = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SimilarResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	// "daily note" itself is excluded as an identical target.
	if len(resp.Matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(resp.Matches))
	}
	if resp.Matches[0].Link.Target != "daily notes" {
		t.Errorf("match = %q, want daily notes", resp.Matches[0].Link.Target)
	}
}

func TestSimilarMissingTarget(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph/similar")
	if w.Code != http.StatusBadRequest {
		t.Errorf("no target = %d, want 400", w.Code)
	}
}

func TestPageRankEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph/pagerank")
	if w.Code != http.StatusOK {
		t.Fatalf("pagerank = %d, body = %s", w.Code, w.Body.String())
	}
	var resp PageRankResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Scores) == 0 {
		t.Fatal("expected non-empty scores")
	}
	if !resp.Converged {
		t.Error("expected convergence on a tiny graph")
	}
	for title, score := range resp.Scores {
		if score < 0 || score > 1 {
			t.Errorf("score[%q] = %v outside [0,1]", title, score)
		}
	}
}

func TestRefreshEndpoint(t *testing.T) {
	router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/graph/refresh", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh = %d", w.Code)
	}
	var resp RefreshResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "refreshed" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	router := testEnv(t, "")

	// Populate cache first.
	if w := get(t, router, "/graph"); w.Code != http.StatusOK {
		t.Fatalf("graph = %d", w.Code)
	}
	w := get(t, router, "/cache/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("cache stats = %d", w.Code)
	}
	var stats CacheStatsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.CacheSize != 1 {
		t.Errorf("cacheSize = %d, want 1", stats.CacheSize)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/graph/quick", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")

	w := get(t, router, "/graph")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/graph", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/graph")
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSEStub writes headers and blocks until the request context is done.
func blockingSSEStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router, _ := testEnvFull(t, true, "secret", blockingSSEStub())

	w := get(t, router, "/events")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	router, _ := testEnvFull(t, false, "", blockingSSEStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router, _ := testEnvFull(t, true, "tok", blockingSSEStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
