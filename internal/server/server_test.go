package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"dlscan/internal"
	"dlscan/internal/config"
	"dlscan/internal/ocr"
	"dlscan/internal/pipeline"
	"dlscan/internal/refdata"
	"dlscan/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		ReferenceIDColumn:    "DL_NO",
		IdentifierPrefix:     "MH",
		IdentifierMinDigits:  10,
		IdentifierMaxDigits:  15,
		MatchThreshold:       90,
		MatchIndexMinRecords: 5000,
		HTTPMaxUploadMB:      1,
	}
}

func licenceDataset(source string) *refdata.Dataset {
	recs := []internal.ReferenceRecord{
		{Identifier: "MH1234567890123", Attributes: map[string]any{"AGE": "26-39", "SPEEDING_VIOLATIONS": int64(2)}},
	}
	return refdata.NewDataset("DL_NO", nil, recs, source)
}

func newTestServer(t *testing.T, load refdata.LoadFunc) (*Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	store := refdata.NewStore(load, quietLogger())
	store.Swap(licenceDataset("initial"))
	extractor := ocr.NewExtractor(nil, ocr.Config{}, quietLogger())
	scanner := pipeline.NewScanService(db, cfg, store, extractor, nil, quietLogger())
	return New(cfg, scanner, store, db, quietLogger()), db
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/scan-license", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestScanLicenseValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	cases := []struct {
		name    string
		req     *http.Request
		wantErr string
	}{
		{"wrong field", uploadRequest(t, "photo", "a.txt", []byte("x")), "No image file provided"},
		{"empty filename", uploadRequest(t, uploadField, "", nil), "No image selected"},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/scan-license", strings.NewReader("{}")), "No image file provided"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, c.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := decode(t, rec)["error"]; got != c.wantErr {
				t.Fatalf("error = %v, want %q", got, c.wantErr)
			}
		})
	}
}

func TestScanLicenseResolved(t *testing.T) {
	srv, db := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, uploadField, "front.txt", []byte("INDIAN UNION DRIVING LICENCE MH 1234567890123")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["status"] != internal.StatusDBSuccess {
		t.Fatalf("body = %v", body)
	}
	parsed := body["parsed_data"].(map[string]any)
	if parsed["DL_NO"] != "MH1234567890123" || parsed["SPEEDING_VIOLATIONS"] != float64(2) {
		t.Fatalf("parsed = %v", parsed)
	}

	id := rec.Header().Get("X-Scan-Id")
	if _, err := db.GetScan(context.Background(), id); err != nil {
		t.Fatalf("scan %q not stored: %v", id, err)
	}
}

func TestScanLicenseExtractionFailed(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, uploadField, "front.txt", []byte("nothing useful")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != internal.StatusOCRFail || body["error"] != internal.ExtractionFailedMessage {
		t.Fatalf("body = %v", body)
	}
}

func TestScanLicenseProcessingError(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	// no ocr engine is configured, so images cannot be read
	srv.Handler().ServeHTTP(rec, uploadRequest(t, uploadField, "front.png", []byte("png")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != internal.StatusError || body["error"] != "Failed to process image." {
		t.Fatalf("body = %v", body)
	}
}

func TestResolveEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve", strings.NewReader(`{"text":"DL MH1234567890123"}`)))
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != internal.StatusDBSuccess {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve", strings.NewReader("not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReloadKeepsSnapshotOnFailure(t *testing.T) {
	fail := true
	load := func(ctx context.Context) (*refdata.Dataset, error) {
		if fail {
			return nil, errors.New("source unreachable")
		}
		return licenceDataset("reloaded"), nil
	}
	srv, _ := newTestServer(t, load)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if srv.store.Current().Source != "initial" {
		t.Fatalf("snapshot replaced after failed reload")
	}

	fail = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["source"] != "reloaded" || body["records"] != float64(1) {
		t.Fatalf("body = %v", body)
	}
}

func TestHealthAndScanLookup(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if body := decode(t, rec); body["records"] != float64(1) || body["source"] != "initial" {
		t.Fatalf("health = %v", body)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve", strings.NewReader(`{"text":"MH1234567890123"}`)))
	id := rec.Header().Get("X-Scan-Id")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != internal.StatusDBSuccess || body["matched_identifier"] != "MH1234567890123" {
		t.Fatalf("scan = %v", body)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.cfg.HTTPAddr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
