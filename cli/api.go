package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/southsales/tolmap/config"
	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
	"github.com/southsales/tolmap/logging"
	"github.com/southsales/tolmap/output"
	"github.com/southsales/tolmap/server"
	"github.com/southsales/tolmap/tui"
)

// ============================================================================
// CONFIGURATION STRUCTS
// ============================================================================

// OutputConfig contains output formatting options
type OutputConfig struct {
	Compact bool
	Plain   bool
}

// Snapshot size in inches for PNG exports.
const (
	pngWidth  = 10
	pngHeight = 8
)

// ============================================================================
// MAIN ENTRY POINTS - These are the only functions that should be called externally
// ============================================================================

// Serve loads the dataset and runs the web dashboard until ctx is cancelled
// or the process receives SIGINT or SIGTERM.
func Serve(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.Global.LogLevel, cfg.Global.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ds, err := loadDataset(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(ds, cfg, log).ListenAndServe(ctx)
}

// TUI loads the dataset and runs the terminal dashboard. Diagnostics are kept
// at error level so they do not draw over the screen.
func TUI(cfg *config.Config) error {
	log, err := logging.New("error", cfg.Global.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ds, err := loadDataset(cfg, log)
	if err != nil {
		return err
	}
	app, err := tui.NewApp(ds, cfg)
	if err != nil {
		return err
	}
	return app.Run()
}

// Query prints the options, bounds, summary and filtered records for sel.
func Query(cfg *config.Config, sel filter.Selection, limit int, outputConfig OutputConfig) error {
	start := time.Now()
	log, err := logging.New(cfg.Global.LogLevel, cfg.Global.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ds, err := loadDataset(cfg, log)
	if err != nil {
		return err
	}

	result, _ := executeQuery(ds, cfg, sel, limit, "query", start)
	result.UpdateDuration(start)
	return outputResult(result, outputConfig)
}

// Export writes the filtered view to out in the given format and prints a
// summary envelope.
func Export(cfg *config.Config, sel filter.Selection, format, out string, outputConfig OutputConfig) error {
	start := time.Now()
	log, err := logging.New(cfg.Global.LogLevel, cfg.Global.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ds, err := loadDataset(cfg, log)
	if err != nil {
		return err
	}

	result, rows := executeQuery(ds, cfg, sel, -1, "export", start)
	if err := writeExport(rows, result, cfg, format, out); err != nil {
		return err
	}
	log.Debug("export written", zap.String("format", format), zap.String("path", out), zap.Int("rows", len(rows)))

	result.AddWarning("info", fmt.Sprintf("%s export written in %v to %s", format, time.Since(start).Round(time.Millisecond), out), len(rows))
	result.UpdateDuration(start)
	return outputResult(result, outputConfig)
}

// ============================================================================
// CORE EXECUTION LOGIC - Single unified execution path
// ============================================================================

// loadDataset resolves the data path and loads it, logging the outcome.
func loadDataset(cfg *config.Config, log *zap.Logger) (*dataset.Dataset, error) {
	path := dataset.ResolvePath(cfg.Global.DataFile)
	loadStart := time.Now()
	ds, err := dataset.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	log.Info("dataset loaded",
		zap.String("path", path),
		zap.Int("records", ds.Len()),
		zap.Duration("took", time.Since(loadStart)),
	)
	return ds, nil
}

// executeQuery runs the filters and fills the output envelope. A negative
// limit omits the record list, which export uses since the file holds the rows.
func executeQuery(ds *dataset.Dataset, cfg *config.Config, sel filter.Selection, limit int, queryType string, start time.Time) (*output.QueryOutput, []dataset.Record) {
	def := filter.Point{Lat: cfg.Map.DefaultCenterLat, Lon: cfg.Map.DefaultCenterLon}
	rows := filter.Run(ds, sel, cfg.Map.ParallelThreshold, cfg.Map.Workers)

	options := filter.NewResolver(ds).Cascade(sel)
	bounds := filter.Bounds(ds)

	result := output.NewQueryOutput(queryType, start)
	result.General = output.General{
		DataFile:     ds.Source,
		LoadedAt:     ds.LoadedAt,
		TotalRecords: ds.Len(),
		Parallel:     cfg.Map.ParallelThreshold > 0 && ds.Len() >= cfg.Map.ParallelThreshold,
	}
	result.Filters = sel
	result.Options = &options
	result.Bounds = &bounds
	result.Center = filter.Center(rows, filter.DatasetCenter(ds, def))
	result.Summary = filter.Summarize(rows)

	if limit < 0 {
		result.General.FilteredRecords = len(rows)
	} else {
		result.SetRecords(rows, limit)
	}
	if len(rows) == 0 {
		result.AddWarning("no_match", "no rows match the filters", 0)
	}
	return result, rows
}

func writeExport(rows []dataset.Record, result *output.QueryOutput, cfg *config.Config, format, out string) error {
	mapOpts := output.MapOptionsFromConfig(cfg)

	switch format {
	case "html":
		return output.WriteHTML(out, output.BubbleMap(rows, result.Center, mapOpts))
	case "png":
		return output.SavePNG(out, rows, result.Center, mapOpts, pngWidth, pngHeight)
	case "xlsx":
		return output.SaveXLSX(out, rows, result.Filters, result.Summary)
	case "geojson":
		b, err := output.GeoJSONBytes(rows)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, b, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		return nil
	}
	return fmt.Errorf("invalid export format %q", format)
}

// ============================================================================
// OUTPUT FORMATTING
// ============================================================================

// outputResult handles output formatting based on configuration
func outputResult(result *output.QueryOutput, outputConfig OutputConfig) error {
	if outputConfig.Plain {
		fmt.Print(formatPlain(result))
		return nil
	}

	var jsonBytes []byte
	var err error

	if outputConfig.Compact {
		jsonBytes, err = result.ToCompactJSON()
	} else {
		jsonBytes, err = result.ToJSON()
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}

// formatPlain renders the output as human-readable plain text
func formatPlain(result *output.QueryOutput) string {
	var b strings.Builder
	rule := strings.Repeat("═", 80)
	line := strings.Repeat("─", 80)

	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "                         tolmap Results (%s)\n", result.Metadata.QueryType)
	fmt.Fprintf(&b, "%s\n\n", rule)

	fmt.Fprintf(&b, "📊 OVERVIEW\n%s\n", line)
	fmt.Fprintf(&b, "Data File:       %s\n", result.General.DataFile)
	fmt.Fprintf(&b, "Generated:       %s\n", result.Metadata.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Duration:        %d ms\n", result.Metadata.DurationMS)
	fmt.Fprintf(&b, "Total Records:   %s\n", formatNumber(float64(result.General.TotalRecords)))
	fmt.Fprintf(&b, "Active Filters:  ")
	if filters := activeFiltersPlain(result.Filters); len(filters) > 0 {
		fmt.Fprintf(&b, "%s\n", strings.Join(filters, ", "))
	} else {
		fmt.Fprintf(&b, "None\n")
	}
	fmt.Fprintf(&b, "\n")

	s := result.Summary
	fmt.Fprintf(&b, "🎯 SUMMARY\n%s\n", line)
	fmt.Fprintf(&b, "Locations:              %s\n", formatNumber(float64(s.Count)))
	fmt.Fprintf(&b, "Port Use:               %s\n", formatNumber(s.PortUse))
	fmt.Fprintf(&b, "Install:                %s\n", formatNumber(s.Install))
	fmt.Fprintf(&b, "Net Add:                %s\n", formatNumber(s.NetAdd))
	fmt.Fprintf(&b, "Mean Potential Score:   %.2f\n", s.MeanPotentialScore)
	fmt.Fprintf(&b, "Mean Market Share True: %.2f%%\n", s.MeanMarketShareTrue)
	fmt.Fprintf(&b, "Map Center:             %.4f, %.4f\n", result.Center.Lat, result.Center.Lon)
	fmt.Fprintf(&b, "\n")

	if o := result.Options; o != nil {
		fmt.Fprintf(&b, "🔽 OPTIONS\n%s\n", line)
		fmt.Fprintf(&b, "Provinces:     %s\n", joinOrNone(o.Provinces))
		fmt.Fprintf(&b, "Districts:     %s\n", joinOrNone(o.Districts))
		fmt.Fprintf(&b, "Sub-districts: %s\n", joinOrNone(o.SubDistricts))
		fmt.Fprintf(&b, "Happy Blocks:  %s\n", joinOrNone(o.HappyBlocks))
		fmt.Fprintf(&b, "\n")
	}

	if len(result.Records) > 0 {
		fmt.Fprintf(&b, "📍 RECORDS (%d of %d)\n%s\n", result.General.ReturnedRecords, result.General.FilteredRecords, line)
		fmt.Fprintf(&b, "%-12s %-18s %-18s %8s %9s %8s %10s\n",
			"Happy Block", "District", "Sub-district", "Net Add", "Potential", "Port Use", "Share True")
		for _, r := range result.Records {
			fmt.Fprintf(&b, "%-12s %-18s %-18s %8s %9s %8s %9.2f%%\n",
				r.HappyBlock, r.District, r.SubDistrict,
				formatNumber(r.NetAdd), formatNumber(r.PotentialScore), formatNumber(r.PortUse), r.MarketShareTrue)
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(result.Warnings) > 0 || len(result.Errors) > 0 {
		fmt.Fprintf(&b, "⚠️  DIAGNOSTICS\n%s\n", line)
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "[%s] %s\n", w.Type, w.Message)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "[ERROR %s] %s\n", e.Type, e.Message)
		}
	}
	return b.String()
}

func activeFiltersPlain(sel filter.Selection) []string {
	var filters []string
	add := func(name, v string) {
		if v != "" {
			filters = append(filters, fmt.Sprintf("%s=%s", name, v))
		}
	}
	add("Province", sel.Province)
	add("District", sel.District)
	add("Sub-district", sel.SubDistrict)
	add("Happy Block", sel.HappyBlock)
	addRange := func(name string, r *filter.Range) {
		if r != nil {
			filters = append(filters, fmt.Sprintf("%s=[%s]", name, r))
		}
	}
	addRange("Net Add", sel.NetAdd)
	addRange("Potential Score", sel.PotentialScore)
	addRange("Market Share True", sel.MarketShareTrue)
	return filters
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}

// formatNumber adds thousand separators to the integer part of v
func formatNumber(v float64) string {
	str := strconv.FormatFloat(v, 'f', -1, 64)
	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}
	intPart, frac, hasFrac := strings.Cut(str, ".")
	if len(intPart) <= 3 {
		return sign + str
	}

	var result strings.Builder
	result.WriteString(sign)
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}
	if hasFrac {
		result.WriteString(".")
		result.WriteString(frac)
	}
	return result.String()
}
