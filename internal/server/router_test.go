package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"pixelpaws-server/internal/store"
)

func newTestRouter(t *testing.T, seed bool) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(store.Options{DatabaseURL: filepath.Join(t.TempDir(), "router.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if seed {
		if _, err := st.Seed(context.Background()); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(Deps{Store: st, Logger: logger, CORSOrigins: []string{"http://localhost:5173", "*"}, ServiceName: "PixelPaws API"})
	return r, st
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

type stateResp struct {
	Visible       bool    `json:"visible"`
	SelectedCatID *string `json:"selectedCatId"`
}

func expectState(t *testing.T, w *httptest.ResponseRecorder, visible bool, catID *string) {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got stateResp
	decode(t, w, &got)
	if got.Visible != visible {
		t.Fatalf("expected visible=%v, got %v", visible, got.Visible)
	}
	switch {
	case catID == nil && got.SelectedCatID != nil:
		t.Fatalf("expected null selectedCatId, got %q", *got.SelectedCatID)
	case catID != nil && (got.SelectedCatID == nil || *got.SelectedCatID != *catID):
		t.Fatalf("expected selectedCatId %q, got %v", *catID, got.SelectedCatID)
	}
}

func strp(s string) *string { return &s }

func TestCats_EmptyBeforeSeed(t *testing.T) {
	r, _ := newTestRouter(t, false)

	w := do(t, r, http.MethodGet, "/v1/cats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected [], got %s", w.Body.String())
	}
}

func TestCats_ListAfterSeed(t *testing.T) {
	r, _ := newTestRouter(t, true)

	w := do(t, r, http.MethodGet, "/v1/cats", nil)
	var cats []map[string]string
	decode(t, w, &cats)
	if len(cats) != 1 || cats[0]["id"] != "cat01" || cats[0]["version"] != "1" || len(cats[0]) != 2 {
		t.Fatalf("unexpected cats: %v", cats)
	}
}

func TestCats_Manifest(t *testing.T) {
	r, _ := newTestRouter(t, true)

	w := do(t, r, http.MethodGet, "/v1/cats/cat01/manifest", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var m struct {
		BaseURL string            `json:"baseUrl"`
		Version string            `json:"version"`
		Files   map[string]string `json:"files"`
	}
	decode(t, w, &m)
	if m.BaseURL != "https://cdn.example.com/cats/cat01/v1" || m.Version != "1" {
		t.Fatalf("unexpected manifest header: %+v", m)
	}
	want := map[string]string{
		"idle":    "cat01_idle_8fps.gif",
		"walk":    "cat01_walk_8fps.gif",
		"run":     "cat01_run_12fps.gif",
		"lifted":  "cat01_fright_12fps.gif",
		"attack":  "cat01_attack_12fps.gif",
		"sit":     "cat01_sit_8fps.gif",
		"liedown": "cat01_liedown_8fps.gif",
		"jump":    "cat01_jump_12fps.gif",
		"land":    "cat01_land_12fps.gif",
	}
	if len(m.Files) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), m.Files)
	}
	for k, v := range want {
		if m.Files[k] != v {
			t.Fatalf("files[%s]: expected %q, got %q", k, v, m.Files[k])
		}
	}
}

func TestCats_ManifestNotFound(t *testing.T) {
	r, _ := newTestRouter(t, true)

	w := do(t, r, http.MethodGet, "/v1/cats/nonexistent/manifest", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "cat not found") {
		t.Fatalf("expected cat not found message, got %s", w.Body.String())
	}
}

func TestDeviceState_DefaultForUnknownDevice(t *testing.T) {
	r, st := newTestRouter(t, true)

	w := do(t, r, http.MethodGet, "/v1/devices/never-seen/state", nil)
	expectState(t, w, false, nil)

	if _, err := st.Devices().Get(context.Background(), "never-seen"); err != store.ErrRecordNotFound {
		t.Fatalf("reading state must not create a row, got %v", err)
	}
}

func TestDeviceState_PatchThenGet(t *testing.T) {
	r, _ := newTestRouter(t, true)

	body := map[string]any{"visible": true, "selectedCatId": "cat01"}
	w := do(t, r, http.MethodPatch, "/v1/devices/dev-1/state", body)
	expectState(t, w, true, strp("cat01"))

	w = do(t, r, http.MethodGet, "/v1/devices/dev-1/state", nil)
	expectState(t, w, true, strp("cat01"))

	// same payload again is a no-op
	w = do(t, r, http.MethodPatch, "/v1/devices/dev-1/state", body)
	expectState(t, w, true, strp("cat01"))
	w = do(t, r, http.MethodGet, "/v1/devices/dev-1/state", nil)
	expectState(t, w, true, strp("cat01"))
}

func TestDeviceState_PatchIsPartial(t *testing.T) {
	r, _ := newTestRouter(t, true)

	do(t, r, http.MethodPatch, "/v1/devices/dev-1/state", map[string]any{"visible": true, "selectedCatId": "cat01"})

	w := do(t, r, http.MethodPatch, "/v1/devices/dev-1/state", map[string]any{"visible": false})
	expectState(t, w, false, strp("cat01"))

	w = do(t, r, http.MethodPatch, "/v1/devices/dev-1/state", `{"selectedCatId": null}`)
	expectState(t, w, false, nil)

	w = do(t, r, http.MethodPatch, "/v1/devices/dev-2/state", `{}`)
	expectState(t, w, false, nil)
}

func TestDeviceState_PutReplaces(t *testing.T) {
	r, _ := newTestRouter(t, true)

	do(t, r, http.MethodPatch, "/v1/devices/dev-1/state", map[string]any{"visible": true, "selectedCatId": "cat01"})

	w := do(t, r, http.MethodPut, "/v1/devices/dev-1/state", map[string]any{"visible": true})
	expectState(t, w, true, nil)

	w = do(t, r, http.MethodPut, "/v1/devices/dev-1/state", map[string]any{"selectedCatId": "cat01"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 when visible is missing, got %d", w.Code)
	}
}

func TestDeviceState_UnknownCat(t *testing.T) {
	r, _ := newTestRouter(t, true)

	w := do(t, r, http.MethodPatch, "/v1/devices/dev-1/state", map[string]any{"visible": true, "selectedCatId": "ghost"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "unknown cat") {
		t.Fatalf("expected unknown cat message, got %s", w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/v1/devices/dev-1/state", nil)
	expectState(t, w, false, nil)
}

func TestDeviceState_MalformedBody(t *testing.T) {
	r, _ := newTestRouter(t, true)

	for _, body := range []string{`{"visible": "yes"}`, `{"selectedCatId": 7}`, `not json`, `null`, `[]`} {
		w := do(t, r, http.MethodPatch, "/v1/devices/dev-1/state", body)
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("body %s: expected 422, got %d", body, w.Code)
		}
	}
}

func TestDeviceState_NullPatchLeavesNoRow(t *testing.T) {
	r, st := newTestRouter(t, true)

	w := do(t, r, http.MethodPatch, "/v1/devices/dev-null/state", `null`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if _, err := st.Devices().Get(context.Background(), "dev-null"); err != store.ErrRecordNotFound {
		t.Fatalf("rejected patch must not create a row, got %v", err)
	}
}

func TestDeviceState_WriteLogsCatID(t *testing.T) {
	_, st := newTestRouter(t, true)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewRouter(Deps{Store: st, Logger: logger})

	w := do(t, r, http.MethodPatch, "/v1/devices/dev-1/state", map[string]any{"visible": true, "selectedCatId": "cat01"})
	expectState(t, w, true, strp("cat01"))
	if !strings.Contains(buf.String(), "selected_cat_id=cat01") {
		t.Fatalf("expected cat id in debug log, got %s", buf.String())
	}

	buf.Reset()
	do(t, r, http.MethodPatch, "/v1/devices/dev-1/state", `{"selectedCatId": null}`)
	if !strings.Contains(buf.String(), `selected_cat_id=""`) {
		t.Fatalf("expected empty cat id in debug log, got %s", buf.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, true)

	w := do(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "PixelPaws API") {
		t.Fatalf("unexpected health response %d: %s", w.Code, w.Body.String())
	}

	do(t, r, http.MethodGet, "/v1/cats/cat01/manifest", nil)
	w = do(t, r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `pixelpaws_manifest_lookups_total{result="found"} 1`) {
		t.Fatalf("expected manifest counter in metrics output")
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	r, st := newTestRouter(t, false)
	_ = st.Close()

	w := do(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	r, _ := newTestRouter(t, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/devices/dev-1/state", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestCORS_PreflightCustomHeader(t *testing.T) {
	r, _ := newTestRouter(t, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/devices/dev-1/state", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-device-token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if allow := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")); !strings.Contains(allow, "x-device-token") {
		t.Fatalf("expected x-device-token in allowed headers, got %q", allow)
	}
}
