// orgsync-report is a standalone tool to render archived comparison and
// migration run records as human-readable reports.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/orglens/orgsync/audit"
	"github.com/orglens/orgsync/audit/backends"
	"github.com/orglens/orgsync/compare"
	"github.com/orglens/orgsync/migrate"
)

const version = "v1.0.0"

// Config holds the command-line configuration
type Config struct {
	InputFile string
	StoreDir  string
	RecordID  string
	Format    string
	Output    string
	ListOnly  bool
	Verbose   bool
}

func main() {
	config := parseFlags()

	if config.Verbose {
		log.Printf("orgsync report generator %s", version)
	}

	reporter := &Reporter{config: config}

	if err := reporter.Run(context.Background()); err != nil {
		log.Fatalf("Report generation failed: %v", err)
	}
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.InputFile, "input", "", "Path to a record JSON file")
	flag.StringVar(&config.StoreDir, "dir", "", "Path to a local record store directory")
	flag.StringVar(&config.RecordID, "id", "", "Record id to load from the store")
	flag.StringVar(&config.Format, "format", "text", "Output format: text or json")
	flag.StringVar(&config.Output, "output", "", "Output file path (default: stdout)")
	flag.BoolVar(&config.ListOnly, "list", false, "List record ids in the store and exit")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")

	var showHelp bool
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message")

	flag.Parse()

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	if config.InputFile == "" && config.StoreDir == "" {
		fmt.Fprintf(os.Stderr, "Error: either -input or -dir is required\n\n")
		printHelp()
		os.Exit(1)
	}

	if config.StoreDir != "" && config.RecordID == "" && !config.ListOnly {
		fmt.Fprintf(os.Stderr, "Error: -dir requires -id or -list\n\n")
		printHelp()
		os.Exit(1)
	}

	if config.Format != "text" && config.Format != "json" {
		fmt.Fprintf(os.Stderr, "Error: unsupported format %q\n\n", config.Format)
		printHelp()
		os.Exit(1)
	}

	return config
}

func printHelp() {
	fmt.Printf(`orgsync report generator %s

Renders archived comparison and migration run records as reports.

USAGE:
    orgsync-report [OPTIONS]

INPUT FLAGS (one of):
    -input PATH         Path to a record JSON file
    -dir PATH           Path to a local record store directory

OPTIONAL FLAGS:
    -id ID              Record id to load from the store
    -list               List record ids in the store and exit
    -format FORMAT      Output format: text or json (default: text)
    -output PATH        Output file path (default: stdout)
    -verbose            Enable verbose logging
    -help, -h           Show this help message

EXAMPLES:
    # Render a record file
    orgsync-report -input run.json

    # Render a record from a local store
    orgsync-report -dir ./orgsync-runs -id 7f3c2a

    # List archived runs
    orgsync-report -dir ./orgsync-runs -list
`, version)
}

// Reporter loads a record and renders it
type Reporter struct {
	config *Config
}

// Run executes the configured reporting action
func (r *Reporter) Run(ctx context.Context) error {
	out, closer, err := r.output()
	if err != nil {
		return err
	}
	defer closer()

	if r.config.ListOnly {
		return r.list(ctx, out)
	}

	record, err := r.load(ctx)
	if err != nil {
		return err
	}

	if r.config.Format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(record)
	}

	return renderRecord(out, record)
}

func (r *Reporter) output() (io.Writer, func(), error) {
	if r.config.Output == "" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(r.config.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func (r *Reporter) list(ctx context.Context, out io.Writer) error {
	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}

	ids, err := store.List(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

func (r *Reporter) load(ctx context.Context) (*audit.Record, error) {
	if r.config.InputFile != "" {
		data, err := os.ReadFile(r.config.InputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}

		var record audit.Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to parse record JSON: %w", err)
		}
		return &record, nil
	}

	store, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, r.config.RecordID)
}

func (r *Reporter) openStore(ctx context.Context) (audit.Store, error) {
	return backends.CreateAndConfigureStore(ctx, backends.StoreTypeLocal,
		map[string]interface{}{"dir": r.config.StoreDir})
}

func renderRecord(out io.Writer, record *audit.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Record:   %s\n", record.ID)
	fmt.Fprintf(out, "Kind:     %s\n", record.Kind)
	fmt.Fprintf(out, "Subject:  %s\n", record.Subject)
	if record.SourceLabel != "" || record.TargetLabel != "" {
		fmt.Fprintf(out, "Route:    %s -> %s\n", record.SourceLabel, record.TargetLabel)
	}
	fmt.Fprintf(out, "Created:  %s\n\n", record.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	switch record.Kind {
	case audit.KindMigration:
		result, err := record.MigrationResult()
		if err != nil {
			return err
		}
		renderMigration(out, result)
	case audit.KindComparison:
		result, err := record.ComparisonResult()
		if err != nil {
			return err
		}
		renderComparison(out, result)
	}

	return nil
}

func renderMigration(out io.Writer, result *migrate.MigrationResult) {
	fmt.Fprintf(out, "Phase:    %s\n", result.Phase)
	fmt.Fprintf(out, "Success:  %d\n", result.Success)
	fmt.Fprintf(out, "Failed:   %d\n", result.Failed)
	fmt.Fprintf(out, "Skipped:  %d\n", result.Skipped)
	fmt.Fprintf(out, "Mapped:   %d root record(s)\n", len(result.IDMap))
	if len(result.AuxMap) > 0 {
		fmt.Fprintf(out, "Aux map:  %d reference(s) remapped\n", len(result.AuxMap))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	}

	if len(result.Log) > 0 {
		fmt.Fprintf(out, "\nRun log:\n")
		for _, entry := range result.Log {
			fmt.Fprintf(out, "  [%s] %-20s %s\n",
				entry.Time.Format("15:04:05"), entry.Phase, entry.Message)
		}
	}
}

func renderComparison(out io.Writer, result *compare.Result) {
	fmt.Fprintf(out, "Total:        %d\n", result.TotalItems)
	fmt.Fprintf(out, "Matched:      %d\n", result.Matches)
	fmt.Fprintf(out, "Changed:      %d\n", result.Differences)
	fmt.Fprintf(out, "Source only:  %d\n", result.SourceOnly)
	fmt.Fprintf(out, "Target only:  %d\n", result.TargetOnly)

	var changed []compare.Item
	for _, item := range result.Items {
		if item.Status != compare.StatusMatched {
			changed = append(changed, item)
		}
	}
	if len(changed) == 0 {
		return
	}

	fmt.Fprintf(out, "\nDrift:\n")
	for _, item := range changed {
		line := fmt.Sprintf("  %-12s %s", item.Status, item.Key)
		if len(item.ChangedAttributes) > 0 {
			attrs := append([]string(nil), item.ChangedAttributes...)
			sort.Strings(attrs)
			line += " (" + strings.Join(attrs, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
}
