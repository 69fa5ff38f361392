package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"news2kindle/internal/config"
	"news2kindle/internal/convert"
	"news2kindle/internal/deliver"
	"news2kindle/internal/fetcher"
	"news2kindle/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	reportJSON := flag.Bool("report-json", false, "print the run report as JSON after each run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to build conversion engine: %v", err)
	}

	dests, err := buildDestinations(cfg)
	if err != nil {
		log.Fatalf("Failed to build destinations: %v", err)
	}

	p := pipeline.New(cfg, pipeline.Deps{
		Fetcher:      fetcher.NewRSSFetcher(),
		Engine:       engine,
		Destinations: dests,
	})

	runOnce := func(ctx context.Context) {
		report := p.Run(ctx)
		logReport(report)
		if *reportJSON {
			printReportJSON(report)
		}
	}

	// Single-run mode: run the pipeline once and exit
	if *once {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		log.Println("Running pipeline (once mode)...")
		runOnce(ctx)
		return
	}

	// Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunOnStart {
		log.Println("Running initial pipeline...")
		runOnce(ctx)
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Schedule, func() {
		log.Println("Cron triggered, running pipeline...")
		runOnce(ctx)
	})
	if err != nil {
		log.Fatalf("Failed to set up cron schedule %q: %v", cfg.Schedule, err)
	}
	c.Start()
	log.Printf("Scheduled pipeline with cron expression: %s", cfg.Schedule)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	cancel()
	c.Stop()
	log.Println("Shutdown complete")
}

func buildEngine(cfg *config.Config) (convert.Engine, error) {
	switch cfg.Converter.Engine {
	case "ebook-convert":
		return convert.NewEbookConvertEngine(cfg.Converter.Path), nil
	case "pandoc":
		return convert.NewPandocEngine(cfg.Converter.Path), nil
	default:
		return nil, fmt.Errorf("unknown converter engine %q", cfg.Converter.Engine)
	}
}

func buildDestinations(cfg *config.Config) ([]deliver.Destination, error) {
	var dests []deliver.Destination
	for _, d := range cfg.Destinations {
		switch d.Type {
		case "email":
			dests = append(dests, deliver.Destination{
				ID: d.ID,
				Transport: deliver.NewEmailTransport(
					d.Email.SMTPHost,
					d.Email.SMTPPort,
					d.Email.Username,
					d.Email.Password,
					d.Email.From,
					d.Email.To,
					cfg.Title,
				),
			})
		case "filedrop":
			dests = append(dests, deliver.Destination{
				ID:        d.ID,
				Transport: deliver.NewFileDropTransport(d.Dir),
			})
		default:
			return nil, fmt.Errorf("unknown destination type %q", d.Type)
		}
	}
	return dests, nil
}

func logReport(report *pipeline.RunReport) {
	log.Printf("Run finished: state=%s success=%v articles=%d failures=%d duration=%s",
		report.State,
		report.Success,
		report.Assembly.TotalArticles,
		len(report.Failures),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)
	for _, f := range report.Failures {
		if f.ID != "" {
			log.Printf("  %s failure (%s): %s", f.Kind, f.ID, f.Message)
		} else {
			log.Printf("  %s failure: %s", f.Kind, f.Message)
		}
	}
}

func printReportJSON(report *pipeline.RunReport) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("Failed to marshal report: %v", err)
		return
	}
	fmt.Println(string(data))
}
