package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"pharmawatch/internal/classify"
	"pharmawatch/internal/collector"
	"pharmawatch/internal/config"
	"pharmawatch/internal/llm"
	"pharmawatch/internal/storage"
)

// buildCollectors returns one collector per selected source tag, or for every
// configured source when tags is empty.
func buildCollectors(cfg *config.Config, store *storage.NewsStore, tags []string) ([]*collector.Collector, error) {
	sources := cfg.Sources
	if len(tags) > 0 {
		sources = sources[:0:0]
		for _, tag := range tags {
			s, ok := cfg.Source(tag)
			if !ok {
				return nil, fmt.Errorf("unknown source %q", tag)
			}
			sources = append(sources, s)
		}
	}

	collectors := make([]*collector.Collector, 0, len(sources))
	for _, s := range sources {
		collectors = append(collectors, collector.New(s, nil, store, cfg.SummaryMaxLen))
	}
	return collectors, nil
}

func newClassifier(cfg *config.Config, store *storage.NewsStore) *classify.Classifier {
	return classify.New(llm.NewClient(cfg.Completion), store, classify.OptionsFromConfig(cfg))
}

// runPipeline collects every source and then classifies one batch.
func runPipeline(ctx context.Context, cfg *config.Config, store *storage.NewsStore, out io.Writer) error {
	collectors, err := buildCollectors(cfg, store, nil)
	if err != nil {
		return err
	}
	printCollectStats(out, collector.CollectAll(ctx, collectors))

	if ctx.Err() != nil {
		return nil
	}

	report, err := newClassifier(cfg, store).Run(ctx)
	if err != nil {
		return err
	}
	printClassifyReport(out, report)
	return nil
}

func printCollectStats(out io.Writer, results []collector.Stats) {
	total := 0
	for _, s := range results {
		if s.FetchErr != nil {
			fmt.Fprintf(out, "%-8s fetch failed: %v\n", s.Source, s.FetchErr)
			continue
		}
		fmt.Fprintf(out, "%-8s found %d, inserted %d, skipped %d", s.Source, s.Found, s.Inserted, s.Skipped())
		if s.Failed > 0 {
			fmt.Fprintf(out, ", failed %d", s.Failed)
		}
		fmt.Fprintln(out)
		total += s.Inserted
	}
	fmt.Fprintf(out, "%d new items collected\n", total)
}

func printClassifyReport(out io.Writer, r classify.Report) {
	switch {
	case r.Aborted:
		fmt.Fprintf(out, "completion endpoint unavailable, nothing classified: %v\n", r.AbortErr)
		return
	case r.Pending == 0:
		fmt.Fprintln(out, "no pending news")
		return
	}

	for _, o := range r.Outcomes {
		if o.Kind == classify.KindClassified {
			fmt.Fprintf(out, "  %-6d %-5s %4.1f  %s\n", o.NewsID, o.Ticker, o.Score, o.Type)
		}
	}

	status := ""
	if r.Interrupted {
		status = " (interrupted)"
	}
	fmt.Fprintf(out, "%d/%d companies identified, %d without a company%s\n",
		r.Identified(), len(r.Outcomes), r.Fallbacks(), status)
}

func joinTags(sources []config.Source) string {
	tags := make([]string, len(sources))
	for i, s := range sources {
		tags[i] = s.Tag
	}
	return strings.Join(tags, ", ")
}
