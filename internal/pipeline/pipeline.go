package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"news2kindle/internal/assemble"
	"news2kindle/internal/config"
	"news2kindle/internal/convert"
	"news2kindle/internal/deliver"
	"news2kindle/internal/fetcher"
	"news2kindle/internal/normalize"
	"news2kindle/internal/retry"
)

// Deps wires the stage implementations into the orchestrator.
type Deps struct {
	Fetcher      fetcher.Fetcher
	Engine       convert.Engine
	Destinations []deliver.Destination
}

// Pipeline orchestrates one fetch -> normalize -> assemble -> convert ->
// deliver run. Configuration is captured at construction; repeated runs
// cannot observe partial mutation.
type Pipeline struct {
	cfg          *config.Config
	fetcher      fetcher.Fetcher
	engine       convert.Engine
	destinations []deliver.Destination
	now          func() time.Time
}

func New(cfg *config.Config, deps Deps) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		fetcher:      deps.Fetcher,
		engine:       deps.Engine,
		destinations: deps.Destinations,
		now:          time.Now,
	}
}

// Run executes the full pipeline once. It never returns an error: every
// failure, fatal or not, lands in the RunReport.
func (p *Pipeline) Run(ctx context.Context) *RunReport {
	report := &RunReport{StartedAt: p.now().UTC()}

	// Fetching: every source independently, joined before assembly.
	log.Printf("Fetching %d sources...", len(p.cfg.Sources))
	results := fetcher.FetchAll(ctx, p.fetcher, p.cfg.Sources,
		p.cfg.Timeouts.Fetch.Std(),
		retry.Config{MaxRetries: p.cfg.Retry.MaxRetries, BaseDelay: p.cfg.Retry.BaseDelay.Std()},
	)

	// Normalizing: pure per batch, in configured source order.
	bySource := make(map[string][]normalize.Article, len(results))
	succeeded := 0
	for _, src := range p.cfg.Sources {
		res := results[src.ID]
		sr := SourceReport{SourceID: src.ID}

		if res.Err != nil {
			sr.Error = res.Err.Error()
			report.addFailure(KindFetch, src.ID, res.Err.Error())
			report.Sources = append(report.Sources, sr)
			log.Printf("WARNING: source %s failed: %v", src.ID, res.Err)
			continue
		}

		articles, stats := normalize.Normalize(res)
		sr.OK = true
		sr.Fetched = len(res.Entries)
		sr.Normalized = stats.Normalized
		sr.DroppedEmpty = stats.DroppedEmpty
		sr.DroppedDuplicate = stats.DroppedDuplicate
		report.Sources = append(report.Sources, sr)

		if len(res.Entries) > 0 && stats.Normalized == 0 {
			report.addFailure(KindNormalization, src.ID,
				fmt.Sprintf("all %d entries dropped during normalization", len(res.Entries)))
		}

		bySource[src.ID] = articles
		succeeded++
	}

	if succeeded == 0 {
		report.addFailure(KindFetch, "", "no source fetched successfully, nothing to assemble")
		log.Printf("Run failed: all %d sources failed", len(p.cfg.Sources))
		return report.finish(StateFailed)
	}

	// Assembling: one document per run.
	doc, summary := assemble.Assemble(
		p.cfg.Title, p.cfg.Author, p.now().UTC(),
		p.cfg.Sources, bySource,
		assemble.Limits{
			MaxTotalArticles: p.cfg.Limits.MaxTotalArticles,
			MaxPerSource:     p.cfg.Limits.MaxPerSource,
		},
	)
	report.Assembly = AssemblyReport{
		TotalArticles: summary.TotalArticles,
		Truncated:     summary.Truncated,
	}
	if summary.Truncated > 0 {
		report.addFailure(KindAssemblyLimit, "",
			fmt.Sprintf("%d articles truncated by assembly limits", summary.Truncated))
	}
	log.Printf("Assembled %d articles in %d sections (%d truncated)",
		summary.TotalArticles, len(doc.Sections), summary.Truncated)

	// Converting: serialized, bounded, fatal on failure.
	adapter := convert.NewAdapter(p.engine, p.cfg.Converter.Format, p.cfg.Timeouts.Convert.Std())
	conv := adapter.Convert(ctx, doc)
	report.Conversion = ConversionReport{
		Attempted: true,
		OK:        conv.OK,
		Format:    conv.Format,
		Bytes:     len(conv.Artifact),
	}
	if !conv.OK {
		report.Conversion.Error = conv.Err.Error()
		report.addFailure(KindConversion, "", conv.Err.Error())
		log.Printf("Run failed: conversion error: %v", conv.Err)
		return report.finish(StateFailed)
	}
	log.Printf("Converted document to %s (%d bytes)", conv.Format, len(conv.Artifact))

	// Delivering: every destination independently; Done once all have
	// been attempted.
	artifact := deliver.Artifact{
		Data:     conv.Artifact,
		Filename: p.artifactFilename(conv.Format),
	}
	outcomes := deliver.Dispatch(ctx, p.destinations, artifact, p.cfg.Timeouts.Deliver.Std())

	delivered := 0
	for _, out := range outcomes {
		dr := DeliveryReport{DestinationID: out.DestinationID, OK: out.OK}
		if out.OK {
			delivered++
			log.Printf("Delivered to %s", out.DestinationID)
		} else {
			dr.Error = out.Err.Error()
			report.addFailure(KindDelivery, out.DestinationID, out.Err.Error())
			log.Printf("WARNING: delivery to %s failed: %v", out.DestinationID, out.Err)
		}
		report.Deliveries = append(report.Deliveries, dr)
	}

	report.Success = delivered > 0
	return report.finish(StateDone)
}

// artifactFilename derives the dated name the delivered file carries,
// e.g. "dailynews-2026-08-24.epub".
func (p *Pipeline) artifactFilename(format string) string {
	slug := strings.ToLower(strings.ReplaceAll(p.cfg.Title, " ", ""))
	if slug == "" {
		slug = "news"
	}
	return fmt.Sprintf("%s-%s.%s", slug, p.now().Format("2006-01-02"), format)
}
