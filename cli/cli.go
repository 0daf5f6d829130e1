package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/southsales/tolmap/config"
	"github.com/southsales/tolmap/filter"
	"github.com/southsales/tolmap/version"
	cli "github.com/urfave/cli/v2"
)

// parseDate attempts to parse the build date
func parseDate(d string) time.Time {
	t, err := time.Parse(time.RFC3339, d)
	if err != nil {
		return time.Now()
	}
	return t
}

// Shared flag definitions to eliminate duplication
var (
	// Configuration flags
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to configuration file (mutually exclusive with --data and --port)",
	}
	envFileFlag = &cli.StringFlag{
		Name:  "envFile",
		Usage: "Path to a .env file with TOLMAP_* overrides (ignored when missing)",
		Value: ".env",
	}
	dataFlag = &cli.StringFlag{
		Name:  "data",
		Usage: "Path to the dataset (CSV or XLSX). Defaults to Prepared_True_Dataset.csv beside the executable",
	}
	portFlag = &cli.IntFlag{
		Name:  "port",
		Usage: "Port to listen on",
	}

	// Filtering flags
	provinceFlag = &cli.StringFlag{
		Name:  "province",
		Usage: "Only rows in this province",
	}
	districtFlag = &cli.StringFlag{
		Name:  "district",
		Usage: "Only rows in this district",
	}
	subDistrictFlag = &cli.StringFlag{
		Name:  "subdistrict",
		Usage: "Only rows in this sub-district",
	}
	happyBlockFlag = &cli.StringFlag{
		Name:  "happyblock",
		Usage: "Only rows in this happy block",
	}
	netAddFlag = &cli.StringFlag{
		Name:  "netAdd",
		Usage: "Inclusive Net Add range as min,max (e.g., '-4,10')",
	}
	potentialFlag = &cli.StringFlag{
		Name:  "potential",
		Usage: "Inclusive Potential Score range as min,max (e.g., '50,100')",
	}
	marketShareFlag = &cli.StringFlag{
		Name:  "marketShare",
		Usage: "Inclusive Market Share True (%) range as min,max (e.g., '20,60')",
	}

	// Output flags
	compactFlag = &cli.BoolFlag{
		Name:  "compact",
		Usage: "Output compact JSON (no pretty printing)",
		Value: false,
	}
	plainFlag = &cli.BoolFlag{
		Name:  "plain",
		Usage: "Output plain text format for easy readability",
		Value: false,
	}
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of records to print (0 prints all)",
		Value: 0,
	}
	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Export format: html, png, xlsx or geojson",
		Value: "html",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Export file path (default tolmap-map.<format>)",
	}
)

var filterFlags = []cli.Flag{
	provinceFlag,
	districtFlag,
	subDistrictFlag,
	happyBlockFlag,
	netAddFlag,
	potentialFlag,
	marketShareFlag,
}

// exportExtensions maps every export format to its file extension.
var exportExtensions = map[string]string{
	"html":    ".html",
	"png":     ".png",
	"xlsx":    ".xlsx",
	"geojson": ".geojson",
}

// Shared validation functions
func validateConfigModeFlags(c *cli.Context, allowedFlags []string) error {
	// Create a map for quick lookup of allowed flags
	allowed := make(map[string]bool)
	for _, flag := range allowedFlags {
		allowed[flag] = true
	}

	// Flags that the configuration file also sets
	flagsToCheck := []string{"data", "port"}

	for _, flag := range flagsToCheck {
		if c.IsSet(flag) && !allowed[flag] {
			return fmt.Errorf("--%s cannot be combined with --config; set it in the configuration file instead", flag)
		}
	}
	return nil
}

func validateDataFileExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("data file does not exist: %s", path)
	}
	return nil
}

func validateOutPath(outPath string) error {
	if outPath != "" {
		outDir := filepath.Dir(outPath)
		if outDir == "." {
			outDir, _ = os.Getwd()
		}
		if _, err := os.Stat(outDir); os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", outDir)
		}
	}
	return nil
}

func validateFormat(format string) error {
	if _, ok := exportExtensions[format]; !ok {
		return fmt.Errorf("invalid export format %q: use html, png, xlsx or geojson", format)
	}
	return nil
}

// parseSelection reads the filter flags. Range flags use "min,max".
func parseSelection(c *cli.Context) (filter.Selection, error) {
	sel := filter.Selection{
		Province:    strings.TrimSpace(c.String("province")),
		District:    strings.TrimSpace(c.String("district")),
		SubDistrict: strings.TrimSpace(c.String("subdistrict")),
		HappyBlock:  strings.TrimSpace(c.String("happyblock")),
	}

	var err error
	if sel.NetAdd, err = filter.ParseRange(c.String("netAdd")); err != nil {
		return sel, fmt.Errorf("invalid --netAdd: %w", err)
	}
	if sel.PotentialScore, err = filter.ParseRange(c.String("potential")); err != nil {
		return sel, fmt.Errorf("invalid --potential: %w", err)
	}
	if sel.MarketShareTrue, err = filter.ParseRange(c.String("marketShare")); err != nil {
		return sel, fmt.Errorf("invalid --marketShare: %w", err)
	}
	return sel, nil
}

// Command handler functions to reduce deep nesting

// resolveConfig builds the configuration from --config or from defaults and
// flags. TOLMAP_* variables apply on top of either, then flags win.
func resolveConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()

	if configPath := c.String("config"); configPath != "" {
		if err := validateConfigModeFlags(c, nil); err != nil {
			return nil, err
		}
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if err := cfg.LoadEnv(c.String("envFile")); err != nil {
		return nil, err
	}

	if c.IsSet("data") {
		cfg.Global.DataFile = c.String("data")
	}
	if c.IsSet("port") {
		cfg.Server.Port = strconv.Itoa(c.Int("port"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Global.DataFile != "" {
		if err := validateDataFileExists(cfg.Global.DataFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// handleServeCommand runs the web dashboard until interrupted
func handleServeCommand(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	return Serve(c.Context, cfg)
}

// handleTUICommand runs the terminal dashboard
func handleTUICommand(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	return TUI(cfg)
}

// handleQueryCommand prints the options and filtered rows once
func handleQueryCommand(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	sel, err := parseSelection(c)
	if err != nil {
		return err
	}
	if c.Int("limit") < 0 {
		return fmt.Errorf("limit must not be negative")
	}

	return Query(cfg, sel, c.Int("limit"), OutputConfig{
		Compact: c.Bool("compact"),
		Plain:   c.Bool("plain"),
	})
}

// handleExportCommand writes the filtered view to a file
func handleExportCommand(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	sel, err := parseSelection(c)
	if err != nil {
		return err
	}

	format := strings.ToLower(c.String("format"))
	if err := validateFormat(format); err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		out = "tolmap-map" + exportExtensions[format]
	}
	if err := validateOutPath(out); err != nil {
		return err
	}

	return Export(cfg, sel, format, out, OutputConfig{
		Compact: c.Bool("compact"),
		Plain:   c.Bool("plain"),
	})
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var App = &cli.App{
	Name:     "tolmap",
	Usage:    "Explore sales potential and market share on a filtered bubble map",
	Version:  version.Version,
	Compiled: parseDate(version.Date),
	Commands: []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Run the web dashboard",
			Flags:  []cli.Flag{configFlag, envFileFlag, dataFlag, portFlag},
			Action: handleServeCommand,
		},
		{
			Name:   "tui",
			Usage:  "Run the terminal dashboard",
			Flags:  []cli.Flag{configFlag, envFileFlag, dataFlag},
			Action: handleTUICommand,
		},
		{
			Name:  "query",
			Usage: "Print dropdown options, summary and filtered records",
			Flags: withFlags(
				[]cli.Flag{configFlag, envFileFlag, dataFlag},
				filterFlags,
				[]cli.Flag{compactFlag, plainFlag, limitFlag},
			),
			Action: handleQueryCommand,
		},
		{
			Name:  "export",
			Usage: "Write the filtered map as HTML or PNG, or the rows as XLSX or GeoJSON",
			Flags: withFlags(
				[]cli.Flag{configFlag, envFileFlag, dataFlag},
				filterFlags,
				[]cli.Flag{formatFlag, outFlag, compactFlag, plainFlag},
			),
			Action: handleExportCommand,
		},
	},
}
