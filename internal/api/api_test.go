package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sitedog/preview/internal/editor"
	"github.com/sitedog/preview/internal/panel"
	"github.com/sitedog/preview/internal/preview"
	"github.com/sitedog/preview/internal/session"
	"github.com/sitedog/preview/internal/sse"
	"github.com/sitedog/preview/internal/testutil"
)

const relativeYAML = "domain:\n  expires in: 2 weeks\n"

// testEnv sets up a temp workspace, a running session and the router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (http.Handler, string) {
	t.Helper()

	root, fs := testutil.Workspace(t, map[string]string{
		"sitedog.yml":     "title: Demo\n",
		"app/sitedog.yml": relativeYAML,
		"notes.yml":       "a: 1\n",
	})
	logger := testutil.Logger()
	broker := sse.NewBroker(panel.StickyEvents...)
	t.Cleanup(broker.Close)
	hub := panel.NewHub(broker, "http://127.0.0.1/panel", nil, logger)
	ctrl := preview.NewController(hub, preview.NewRenderer(preview.DefaultAssets()), fs, logger)
	sess := session.New(fs, ctrl, logger, session.Options{
		Now:      func() time.Time { return time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local) },
		Notifier: &editor.Recorder{},
	})
	testutil.Run(t, sess)
	hub.OnUserClose(func(string) { _, _ = sess.ClosePanel(context.Background()) })

	router := NewRouter(NewHandler(sess, fs, hub), authToken != "", authToken, broker)
	return router, root
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestShowPreview_NoActiveEditor(t *testing.T) {
	router, _ := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/commands/show-preview", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[errResponse](t, w).Error; got != "No active editor found" {
		t.Errorf("error = %q", got)
	}
}

func TestShowPreview_WrongFileName(t *testing.T) {
	router, _ := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/commands/show-preview", CommandRequest{Path: "notes.yml"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[errResponse](t, w).Error; got != "Please open a sitedog.yml file" {
		t.Errorf("error = %q", got)
	}
	if w := do(t, router, http.MethodGet, "/panel/content", nil); w.Code != http.StatusConflict {
		t.Errorf("no panel expected, content status = %d", w.Code)
	}
}

func TestShowPreviewAndContent(t *testing.T) {
	router, _ := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/documents/sitedog.yml", nil); w.Code != http.StatusOK {
		t.Fatalf("open = %d, body = %s", w.Code, w.Body.String())
	}
	w := do(t, router, http.MethodPost, "/commands/show-preview", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("show = %d, body = %s", w.Code, w.Body.String())
	}
	st := decode[preview.State](t, w)
	if !st.Open || st.File != "sitedog.yml" || st.Kind != preview.KindCards {
		t.Errorf("state = %+v", st)
	}

	w = do(t, router, http.MethodGet, "/panel/content", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("content = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "renderCards") || !strings.Contains(w.Body.String(), "title: Demo") {
		t.Errorf("unexpected panel html")
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/panel/content", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d", rec.Code)
	}

	if got := decode[preview.State](t, do(t, router, http.MethodGet, "/panel", nil)); got.PanelID != st.PanelID {
		t.Errorf("panel state = %+v", got)
	}
}

func TestLiveEditRefreshesPanel(t *testing.T) {
	router, root := testEnv(t, "")

	do(t, router, http.MethodPost, "/commands/show-preview", CommandRequest{Path: "sitedog.yml"})
	w := do(t, router, http.MethodPut, "/documents/sitedog.yml", EditDocumentRequest{Text: "title: Live\n"})
	if w.Code != http.StatusOK {
		t.Fatalf("edit = %d, body = %s", w.Code, w.Body.String())
	}
	doc := decode[editor.Document](t, w)
	if !doc.Dirty || doc.Version != 2 {
		t.Errorf("doc = %+v", doc)
	}
	if body := do(t, router, http.MethodGet, "/panel/content", nil).Body.String(); !strings.Contains(body, "title: Live") {
		t.Error("panel not refreshed from live edit")
	}

	// Save writes the buffer.
	if w := do(t, router, http.MethodPost, "/documents/save/sitedog.yml", nil); w.Code != http.StatusOK {
		t.Fatalf("save = %d", w.Code)
	}
	data, _ := os.ReadFile(filepath.Join(root, "sitedog.yml"))
	if string(data) != "title: Live\n" {
		t.Errorf("disk = %q", data)
	}
}

func TestParseErrorView(t *testing.T) {
	router, _ := testEnv(t, "")
	do(t, router, http.MethodPost, "/commands/show-preview", CommandRequest{Path: "sitedog.yml"})
	do(t, router, http.MethodPut, "/documents/sitedog.yml", EditDocumentRequest{Text: "title: \"open\n"})

	st := decode[preview.State](t, do(t, router, http.MethodGet, "/panel", nil))
	if st.Kind != preview.KindParseError {
		t.Errorf("kind = %q", st.Kind)
	}
	if body := do(t, router, http.MethodGet, "/panel/content", nil).Body.String(); !strings.Contains(body, "YAML Error: ") {
		t.Error("expected error view")
	}
}

func TestConvertRelativeDates(t *testing.T) {
	router, root := testEnv(t, "")

	// Without confirm nothing changes.
	w := do(t, router, http.MethodPost, "/commands/convert-relative-dates", ConvertRequest{Path: "app/sitedog.yml"})
	if w.Code != http.StatusOK {
		t.Fatalf("convert = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[session.ConvertResult](t, w)
	if res.Found != 1 || res.Converted != 0 {
		t.Errorf("res = %+v", res)
	}
	if len(res.Dates) != 1 || res.Dates[0].Date != "2024-01-29" {
		t.Errorf("dates = %+v", res.Dates)
	}

	w = do(t, router, http.MethodPost, "/commands/convert-relative-dates", ConvertRequest{Confirm: true, Save: true})
	if w.Code != http.StatusOK {
		t.Fatalf("convert = %d, body = %s", w.Code, w.Body.String())
	}
	res = decode[session.ConvertResult](t, w)
	if res.Converted != 1 || !res.Saved {
		t.Errorf("res = %+v", res)
	}
	data, _ := os.ReadFile(filepath.Join(root, "app", "sitedog.yml"))
	want := relativeYAML + "    expires_date: 2024-01-29\n"
	if string(data) != want {
		t.Errorf("disk = %q, want %q", data, want)
	}
}

func TestConvert_NoActiveEditor(t *testing.T) {
	router, _ := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/commands/convert-relative-dates", ConvertRequest{Confirm: true})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRefreshWithoutPanel(t *testing.T) {
	router, _ := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/commands/refresh-preview", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if st := decode[preview.State](t, w); st.Open {
		t.Error("refresh must not open a panel")
	}
}

func TestPanelCloseAndMessage(t *testing.T) {
	router, _ := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/panel/message", PanelMessageRequest{YAML: "a: 1"}); w.Code != http.StatusConflict {
		t.Errorf("message without panel = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/panel/close", nil); w.Code != http.StatusConflict {
		t.Errorf("close without panel = %d", w.Code)
	}

	do(t, router, http.MethodPost, "/commands/show-preview", CommandRequest{Path: "sitedog.yml"})
	if w := do(t, router, http.MethodPost, "/panel/message", PanelMessageRequest{YAML: "a: 1"}); w.Code != http.StatusAccepted {
		t.Errorf("message = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/panel/close", ClosePanelRequest{ID: "someone-else"}); w.Code != http.StatusConflict {
		t.Errorf("close of unknown panel = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/panel/close", nil); w.Code != http.StatusNoContent {
		t.Errorf("close = %d", w.Code)
	}
	if st := decode[preview.State](t, do(t, router, http.MethodGet, "/panel", nil)); st.Open {
		t.Error("panel still open after close")
	}
}

func TestDocuments(t *testing.T) {
	router, _ := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/documents/sitedog.yml", nil); w.Code != http.StatusNotFound {
		t.Errorf("get unopened = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/documents/missing.yml", nil); w.Code != http.StatusNotFound {
		t.Errorf("open missing = %d", w.Code)
	}
	do(t, router, http.MethodPost, "/documents/app%2Fsitedog.yml", nil)

	list := decode[DocumentListResponse](t, do(t, router, http.MethodGet, "/documents", nil))
	if len(list.Documents) != 1 || list.Active != "app/sitedog.yml" {
		t.Errorf("list = %+v", list)
	}

	if w := do(t, router, http.MethodDelete, "/documents/app/sitedog.yml", nil); w.Code != http.StatusNoContent {
		t.Errorf("close = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/documents/app/sitedog.yml", nil); w.Code != http.StatusNotFound {
		t.Errorf("double close = %d", w.Code)
	}
	if w := do(t, router, http.MethodPut, "/documents/sitedog.yml", "not an object"); w.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d", w.Code)
	}
}

func TestListFiles(t *testing.T) {
	router, _ := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/files", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	files := decode[FileListResponse](t, w).Files
	if len(files) != 2 || files[0] != "app/sitedog.yml" || files[1] != "sitedog.yml" {
		t.Errorf("files = %v", files)
	}
}

func TestAuthMiddleware(t *testing.T) {
	router, _ := testEnv(t, "secret")

	if w := do(t, router, http.MethodGet, "/panel", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/panel", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/panel", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("bearer = %d, want 200", w.Code)
	}

	if w := do(t, router, http.MethodGet, "/panel?token=secret", nil); w.Code != http.StatusOK {
		t.Errorf("query token = %d, want 200", w.Code)
	}
}

func TestEventsStreamPanelContent(t *testing.T) {
	router, _ := testEnv(t, "")
	do(t, router, http.MethodPost, "/commands/show-preview", CommandRequest{Path: "sitedog.yml"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "event: panel.state") || !strings.Contains(body, "event: panel.content") {
		t.Errorf("sticky panel events not replayed: %q", body)
	}
}
