package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"dlscan/internal"
	"dlscan/internal/ocr"
	"dlscan/internal/refdata"
	"dlscan/internal/storage"
)

func newTestService(t *testing.T) (*ScanService, *storage.DB, *refdata.Store) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := refdata.NewStore(nil, quietLogger())
	store.Swap(licenceDataset())

	cfg := testConfig()
	extractor := ocr.NewExtractor(nil, ocr.Config{}, quietLogger())
	svc := NewScanService(db, cfg, store, extractor, NewResolver(cfg, fixedClock, quietLogger()), quietLogger())
	return svc, db, store
}

func TestSmokeScanToXLSX(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newTestService(t)
	tmp := t.TempDir()

	txt := filepath.Join(tmp, "front.txt")
	if err := os.WriteFile(txt, []byte("DRIVING LICENCE DL No: MH 1234567890123"), 0o644); err != nil {
		t.Fatal(err)
	}
	resolved, err := svc.ScanFile(ctx, txt, SourceCLI)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Outcome.Kind != internal.OutcomeResolved || resolved.Outcome.IDColumn != "DL_NO" {
		t.Fatalf("outcome = %+v", resolved.Outcome)
	}

	fallback, err := svc.ResolveText(ctx, "DOB:15-06-1995 DOI:01-01-2015", SourceHTTP)
	if err != nil {
		t.Fatal(err)
	}
	if fallback.Outcome.Kind != internal.OutcomeFallbackExtracted {
		t.Fatalf("outcome = %+v", fallback.Outcome)
	}

	png := filepath.Join(tmp, "front.png")
	if err := os.WriteFile(png, []byte("not really a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ScanFile(ctx, png, SourceInbox); err == nil {
		t.Fatal("expected error without an ocr engine")
	}

	stored, err := db.GetScan(ctx, resolved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != internal.StatusDBSuccess || stored.Score == nil || *stored.Score != 100 {
		t.Fatalf("stored = %+v", stored)
	}
	if stored.MatchedIdentifier == nil || *stored.MatchedIdentifier != "MH1234567890123" {
		t.Fatalf("matched = %v", stored.MatchedIdentifier)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(stored.ParsedJSON), &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed["DL_NO"] != "MH1234567890123" {
		t.Fatalf("parsed = %v", parsed)
	}

	rows, err := db.ListScans(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("scans = %d", len(rows))
	}
	statuses := map[string]int{}
	for _, r := range rows {
		statuses[r.Status]++
	}
	if statuses[internal.StatusDBSuccess] != 1 || statuses[internal.StatusOCRSuccess] != 1 || statuses[internal.StatusError] != 1 {
		t.Fatalf("statuses = %v", statuses)
	}

	out := filepath.Join(tmp, "out", "scans.xlsx")
	if err := ExportScansToXLSX(rows, out); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sheetRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(sheetRows) != 4 || sheetRows[0][0] != "scan_id" {
		t.Fatalf("sheet rows = %v", sheetRows)
	}
}

func TestScanServiceFollowsSnapshotSwap(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newTestService(t)

	first, err := svc.ResolveText(ctx, "MH5555555555555", SourceCLI)
	if err != nil {
		t.Fatal(err)
	}
	if first.Outcome.Kind == internal.OutcomeResolved {
		t.Fatalf("unexpected resolution before swap: %+v", first.Outcome)
	}

	store.Swap(dataset("MH5555555555555"))
	second, err := svc.ResolveText(ctx, "MH5555555555555", SourceCLI)
	if err != nil {
		t.Fatal(err)
	}
	if second.Outcome.Kind != internal.OutcomeResolved {
		t.Fatalf("expected resolution after swap, got %+v", second.Outcome)
	}
}

func TestScanServiceWithoutDataset(t *testing.T) {
	svc, _, store := newTestService(t)
	store.Swap(nil)

	res, err := svc.ResolveText(context.Background(), "MH1234567890123", SourceCLI)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome.Cause != internal.CauseDatasetUnavailable {
		t.Fatalf("cause = %s", res.Outcome.Cause)
	}
}

func TestResolveKeepsOutcomeWhenHistoryWriteFails(t *testing.T) {
	svc, db, _ := newTestService(t)
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	res, err := svc.ResolveText(context.Background(), "DL No MH1234567890123", SourceHTTP)
	if err != nil {
		t.Fatalf("ResolveText: %v", err)
	}
	if res.Outcome.Kind != internal.OutcomeResolved || res.ID == "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestRecordSkipped(t *testing.T) {
	svc, db, _ := newTestService(t)
	id, err := svc.RecordSkipped(context.Background(), "Invoice", SourceInbox, "rules_negative")
	if err != nil {
		t.Fatal(err)
	}
	row, err := db.GetScan(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != internal.StatusSkipped || row.Cause != "rules_negative" {
		t.Fatalf("row = %+v", row)
	}
}

func TestTextFromInput(t *testing.T) {
	got, err := TextFromInput(context.Background(), nil, "text", "MH1234567890123")
	if err != nil || got != "MH1234567890123" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if _, err := TextFromInput(context.Background(), nil, "xml", "x"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
