package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dlscan/internal/app"
	"dlscan/internal/config"
	"dlscan/internal/ocr/tesseract"
)

func main() {
	cfg, err := config.Load()
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.Open(ctx, cfg, tesseract.New())
	must(err)
	defer a.Close()

	svc, err := a.Inbox(ctx)
	must(err)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
