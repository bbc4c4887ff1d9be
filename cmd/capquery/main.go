// Command capquery loads a CAP alert CSV once, reconciles alert chains, and
// prints the display alerts matching a query.
//
// Usage:
//
//	go run ./cmd/capquery -source data/alerts.csv -severities Severe,Extreme
//	go run ./cmd/capquery -query 'categories=Met&q=rain' -format table
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/joshmcarthur/cap-alerts/internal/capdoc"
	"github.com/joshmcarthur/cap-alerts/internal/config"
	"github.com/joshmcarthur/cap-alerts/internal/domain"
	"github.com/joshmcarthur/cap-alerts/internal/filter"
	"github.com/joshmcarthur/cap-alerts/internal/ingest"
	"github.com/joshmcarthur/cap-alerts/internal/observability"
	"github.com/joshmcarthur/cap-alerts/internal/pipeline"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// report is the JSON output shape.
type report struct {
	Query    string                `json:"query"`
	Stats    pipeline.BatchStats   `json:"stats"`
	Count    int                   `json:"count"`
	Alerts   []domain.DisplayAlert `json:"alerts"`
	Selected *domain.DisplayAlert  `json:"selected,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("capquery", flag.ContinueOnError)
	fs.SetOutput(stderr)

	source := fs.String("source", sharedcfg.EnvOrDefault("ALERTS_SOURCE", "data/alerts.csv"), "CSV file path or http(s) URL")
	rawQuery := fs.String("query", "", "URL-style query, e.g. 'severities=Severe&q=flood'")
	start := fs.String("start", "", "earliest sent day, YYYY-MM-DD")
	end := fs.String("end", "", "latest sent day, YYYY-MM-DD")
	categories := fs.String("categories", "", "comma-separated categories")
	severities := fs.String("severities", "", "comma-separated severities")
	urgencies := fs.String("urgencies", "", "comma-separated urgencies")
	statuses := fs.String("statuses", "", "comma-separated statuses")
	types := fs.String("types", "", "comma-separated message types")
	search := fs.String("q", "", "free-text search")
	selected := fs.String("alert", "", "id of an alert to print in full")
	format := fs.String("format", formatJSON, "output format: json or table")
	workers := fs.Int("workers", 4, "rows processed concurrently")
	bounds := fs.String("region", "-53,165,-29,180", "expected region minLat,minLng,maxLat,maxLng, or off")
	timeout := fs.Duration("timeout", 30*time.Second, "fetch timeout")
	verbose := fs.Bool("v", false, "log pipeline progress to stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *format != formatJSON && *format != formatTable {
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return 2
	}
	if *workers < 1 {
		fmt.Fprintln(stderr, "workers must be at least 1")
		return 2
	}

	region, err := config.ParseBounds(*bounds)
	if err != nil {
		fmt.Fprintf(stderr, "invalid region: %v\n", err)
		return 2
	}

	values, err := url.ParseQuery(*rawQuery)
	if err != nil {
		fmt.Fprintf(stderr, "invalid query: %v\n", err)
		return 2
	}
	// Individual flags override the raw query.
	overrides := map[string]string{
		filter.ParamStart:        *start,
		filter.ParamEnd:          *end,
		filter.ParamCategories:   *categories,
		filter.ParamSeverities:   *severities,
		filter.ParamUrgencies:    *urgencies,
		filter.ParamStatuses:     *statuses,
		filter.ParamMessageTypes: *types,
		filter.ParamSearch:       *search,
		filter.ParamSelected:     *selected,
	}
	for k, v := range overrides {
		if v != "" {
			values.Set(k, v)
		}
	}
	spec, selectedID := filter.DecodeParams(values)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	processor := pipeline.NewRowProcessor(capdoc.NewParser(capdoc.XMLTreeParser{}), nil, region, logger)
	svc := pipeline.New(ingest.NewSource(*source, *timeout), processor, nil, logger,
		observability.NewUnregisteredMetrics(), pipeline.Settings{FetchAttempts: 1, RowWorkers: *workers})

	st, err := svc.Reload(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load %s: %v\n", *source, err)
		return 1
	}

	out := report{
		Query:  filter.EncodeParams(spec, selectedID).Encode(),
		Alerts: svc.Query(spec),
	}
	out.Count = len(out.Alerts)
	if st.Stats != nil {
		out.Stats = *st.Stats
	}
	if selectedID != "" {
		if d, ok := svc.Lookup(selectedID); ok {
			out.Selected = &d
		} else {
			fmt.Fprintf(stderr, "alert not found: %s\n", selectedID)
		}
	}

	if *format == formatTable {
		err = writeTable(stdout, out)
	} else {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(out)
	}
	if err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func writeTable(w io.Writer, r report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SENT\tID\tSTATUS\tTYPE\tCATEGORY\tSEVERITY\tVERSIONS\tTITLE")
	for _, a := range r.Alerts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			a.Sent.UTC().Format(time.RFC3339), a.ID, a.Status, a.MsgType,
			a.Category, a.Severity, a.GroupSize, a.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := r.Stats
	_, err := fmt.Fprintf(w, "\n%d shown; %d rows read, %d alerts, %d skipped, %d failed, %d groups\n",
		r.Count, s.RowsRead, s.Alerts, s.Skipped, len(s.Failures), s.Groups)
	if err != nil {
		return err
	}
	for _, f := range s.Failures {
		if _, err := fmt.Fprintf(w, "  row %d: %s\n", f.Row, strings.TrimSpace(f.Message)); err != nil {
			return err
		}
	}
	return nil
}
