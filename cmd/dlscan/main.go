package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"dlscan/internal/app"
	"dlscan/internal/config"
	"dlscan/internal/connectors"
	"dlscan/internal/listener"
	"dlscan/internal/ocr/tesseract"
	"dlscan/internal/pipeline"
	"dlscan/internal/server"
	"dlscan/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.Open(ctx, cfg, tesseract.New())
	must(err)
	defer a.Close()

	cmd := os.Args[1]
	switch cmd {
	case "refdata:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", cfg.ReferenceDataset, "csv or xlsx dataset path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		ds, err := a.Sync.ImportFile(ctx, *file)
		must(err)
		fmt.Printf("import complete: %d records id_column=%s\n", ds.Len(), ds.IDColumn)
	case "refdata:pull":
		ds, err := a.Sync.ImportURL(ctx)
		must(err)
		fmt.Printf("pull complete: %d records source=%s\n", ds.Len(), ds.Source)
	case "refdata:show":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "print the record with this identifier")
		_ = fs.Parse(os.Args[2:])
		ds := a.Store.Current()
		if ds == nil {
			must(fmt.Errorf("no reference dataset loaded"))
		}
		if *id != "" {
			positions := ds.Index().ByIdentifier[util.NormalizeForSearch(*id)]
			if len(positions) == 0 {
				must(fmt.Errorf("identifier %s not found", *id))
			}
			rec := ds.Records[positions[0]]
			out := map[string]any{ds.IDColumn: rec.Identifier}
			for k, v := range rec.Attributes {
				out[k] = v
			}
			printJSON(out)
			return
		}
		fmt.Printf("source=%s records=%d id_column=%s loaded_at=%s\n", ds.Source, ds.Len(), ds.IDColumn, ds.LoadedAt.Format("2006-01-02T15:04:05Z07:00"))
		if last, err := a.Sync.LastImport(); err == nil && last != nil {
			fmt.Printf("last import: %s\n", last.Format("2006-01-02T15:04:05Z07:00"))
		}
	case "resolve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		text := fs.String("text", "", "recognized text")
		file := fs.String("file", "", "image, pdf, eml, html or txt file")
		_ = fs.Parse(os.Args[2:])
		inType, input := "text", *text
		if *file != "" {
			inType, input = "file", *file
		}
		if strings.TrimSpace(input) == "" {
			must(fmt.Errorf("--text or --file is required"))
		}
		raw, err := pipeline.TextFromInput(ctx, a.Extractor, inType, input)
		must(err)
		res, err := a.Scanner.ResolveText(ctx, raw, pipeline.SourceCLI)
		must(err)
		printJSON(res.Outcome.Response())
		fmt.Fprintf(os.Stderr, "scan_id=%s\n", res.ID)
	case "serve":
		must(server.New(cfg, a.Scanner, a.Store, a.DB, a.Logger).Run(ctx))
	case "inbox:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		label := fs.String("label", cfg.MailLabel, "mailbox/label")
		max := fs.Int("max", cfg.MailFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.NewMailConnector(ctx, cfg)
		must(err)
		fetch := connectors.NewFetchService(a.DB, cfg.InboxDir, conn, a.Logger)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", cfg.MailProvider, result.Fetched, result.Stored)
	case "inbox:listen":
		svc, err := a.Inbox(ctx)
		must(err)
		must(svc.Run(ctx))
	case "inbox:once":
		svc, err := a.Inbox(ctx)
		must(err)
		res, err := svc.RunCycle(ctx)
		must(err)
		fmt.Printf("inbox cycle done fetched=%d processed=%d skipped=%d failed=%d\n", res.Fetched, res.Processed, res.Skipped, res.Failed)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", filepath.Join(cfg.OutputDir, "scans.xlsx"), "output xlsx path")
		limit := fs.Int("limit", 0, "most recent scans only, 0 for all")
		_ = fs.Parse(os.Args[2:])
		rows, err := a.DB.ListScans(ctx, *limit)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no scans recorded"))
		}
		must(os.MkdirAll(filepath.Dir(*out), 0o755))
		must(pipeline.ExportScansToXLSX(rows, *out))
		fmt.Printf("exported %d scans to %s\n", len(rows), *out)
	default:
		usage()
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	must(enc.Encode(v))
}

func usage() {
	fmt.Println("usage: dlscan <command>")
	fmt.Println("commands:")
	fmt.Println("  refdata:import --file=./data/licences.csv")
	fmt.Println("  refdata:pull")
	fmt.Println("  refdata:show [--id=MH...]")
	fmt.Println("  resolve --text=... | --file=./scan.jpg")
	fmt.Println("  serve")
	fmt.Println("  inbox:fetch [--label=INBOX] [--max=20]")
	fmt.Println("  inbox:listen")
	fmt.Println("  inbox:once")
	fmt.Println("  export:xlsx [--out=./out/scans.xlsx] [--limit=0]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
