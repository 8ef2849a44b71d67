// Command reconcile runs one repair pass between drafts and published
// replicas and prints the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/neurobridge-publish/internal/app"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	timeout := flag.Duration("timeout", 10*time.Minute, "upper bound for the pass")
	flag.Parse()

	_ = godotenv.Load(*envFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	report, err := a.Services.Reconciler.RunOnce(ctx)
	if err != nil {
		a.Log.Error("reconcile failed", "error", err)
		a.Close()
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
	if report.Errors > 0 {
		a.Close()
		os.Exit(2)
	}
}
