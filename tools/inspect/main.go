package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/feral-file/ff-transfer-monitor/internal/adapter"
	"github.com/feral-file/ff-transfer-monitor/internal/domain"
	"github.com/feral-file/ff-transfer-monitor/internal/store"
)

const (
	defaultRegion = "us-east-1"
	topTokens     = 10
)

type Config struct {
	Region          string
	Endpoint        string
	EventsTable     string
	ParametersTable string
	OutputFile      string // Output markdown file path (optional)
	SetWatermark    int64  // Overwrites the watermark when >= 0
	SaveConfigFile  bool
}

// Summary describes the stored transfers and the watermark
type Summary struct {
	TotalEvents    int
	Mints          int
	Burns          int
	DistinctTokens int
	FirstBlock     uint64
	LastBlock      uint64
	Watermark      uint64
	HasWatermark   bool
	ScanDuration   time.Duration
	TokenActivity  []TokenActivity
}

// TokenActivity is the number of stored transfers of one token
type TokenActivity struct {
	TokenID   string
	Transfers int
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	dialer := adapter.NewDynamoDBDialer()
	options := adapter.DynamoDBOptions{Region: cfg.Region, Endpoint: cfg.Endpoint}

	events, err := store.NewTransferEventDAO(cfg.EventsTable, dialer, options)
	if err != nil {
		fmt.Printf("Error creating transfer event store: %v\n", err)
		os.Exit(1)
	}
	if _, err := events.Connect(ctx); err != nil {
		fmt.Printf("Error connecting to %s: %v\n", cfg.EventsTable, err)
		os.Exit(1)
	}

	parameters, err := store.NewParameterDAO(cfg.ParametersTable, dialer, options)
	if err != nil {
		fmt.Printf("Error creating parameter store: %v\n", err)
		os.Exit(1)
	}
	if _, err := parameters.Connect(ctx); err != nil {
		fmt.Printf("Error connecting to %s: %v\n", cfg.ParametersTable, err)
		os.Exit(1)
	}
	cursor := store.NewCursorStore(parameters)

	fmt.Printf("Connected to DynamoDB (region: %s, endpoint: %s)\n", cfg.Region, displayEndpoint(cfg.Endpoint))

	if cfg.SetWatermark >= 0 {
		if err := cursor.SetBlockCursor(ctx, uint64(cfg.SetWatermark)); err != nil {
			fmt.Printf("Error setting watermark: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Watermark set to block %d\n", cfg.SetWatermark)
	}

	start := time.Now()
	stored, err := events.GetAll(ctx)
	if err != nil {
		fmt.Printf("Error scanning %s: %v\n", cfg.EventsTable, err)
		os.Exit(1)
	}
	scanDuration := time.Since(start)

	watermark, found, err := cursor.GetBlockCursor(ctx)
	if err != nil {
		fmt.Printf("Error reading watermark: %v\n", err)
		os.Exit(1)
	}

	summary := summarize(stored, watermark, found)
	summary.ScanDuration = scanDuration
	printSummary(summary)

	if cfg.OutputFile != "" {
		if err := writeMarkdownReport(cfg.OutputFile, summary, time.Now()); err != nil {
			fmt.Printf("Error writing report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nReport written to %s\n", cfg.OutputFile)
	}

	if cfg.SaveConfigFile {
		path := GetDefaultConfigPath()
		if err := SaveConfig(path, &InspectConfig{
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			EventsTable:     cfg.EventsTable,
			ParametersTable: cfg.ParametersTable,
		}); err != nil {
			fmt.Printf("Warning: failed to save config file: %v\n", err)
		} else {
			fmt.Printf("Config saved to %s\n", path)
		}
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Region, "region", defaultRegion, "AWS region")
	flag.StringVar(&cfg.Endpoint, "endpoint", "", "DynamoDB endpoint override, e.g. http://localhost:8000")
	flag.StringVar(&cfg.EventsTable, "events-table", store.TransferEventsTable, "Transfer events table")
	flag.StringVar(&cfg.ParametersTable, "parameters-table", store.ParametersTable, "Parameters table")
	flag.StringVar(&cfg.OutputFile, "output", "", "Output markdown file path (optional)")
	flag.Int64Var(&cfg.SetWatermark, "set-watermark", -1, "Overwrite the last checked block before inspecting (optional)")
	flag.BoolVar(&cfg.SaveConfigFile, "save-config", false, "Save the connection flags as the default config")

	configFile := flag.String("config", GetDefaultConfigPath(), "Path to config file (optional)")

	flag.Parse()

	// Load from config file, flags set on the command line win
	fileCfg, err := LoadConfig(*configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("Warning: failed to load config file: %v\n", err)
		}
		return cfg
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["region"] && fileCfg.Region != "" {
		cfg.Region = fileCfg.Region
	}
	if !set["endpoint"] && fileCfg.Endpoint != "" {
		cfg.Endpoint = fileCfg.Endpoint
	}
	if !set["events-table"] && fileCfg.EventsTable != "" {
		cfg.EventsTable = fileCfg.EventsTable
	}
	if !set["parameters-table"] && fileCfg.ParametersTable != "" {
		cfg.ParametersTable = fileCfg.ParametersTable
	}

	return cfg
}

// summarize aggregates the stored transfers
func summarize(events []domain.TransferEvent, watermark uint64, hasWatermark bool) *Summary {
	summary := &Summary{
		TotalEvents:  len(events),
		Watermark:    watermark,
		HasWatermark: hasWatermark,
	}

	perToken := make(map[string]int)
	for i, e := range events {
		if i == 0 || e.BlockNumber < summary.FirstBlock {
			summary.FirstBlock = e.BlockNumber
		}
		if e.BlockNumber > summary.LastBlock {
			summary.LastBlock = e.BlockNumber
		}
		if e.IsMint() {
			summary.Mints++
		}
		if e.IsBurn() {
			summary.Burns++
		}
		perToken[e.TokenID]++
	}
	summary.DistinctTokens = len(perToken)

	for tokenID, count := range perToken {
		summary.TokenActivity = append(summary.TokenActivity, TokenActivity{TokenID: tokenID, Transfers: count})
	}
	sort.Slice(summary.TokenActivity, func(i, j int) bool {
		a, b := summary.TokenActivity[i], summary.TokenActivity[j]
		if a.Transfers != b.Transfers {
			return a.Transfers > b.Transfers
		}
		return a.TokenID < b.TokenID
	})
	if len(summary.TokenActivity) > topTokens {
		summary.TokenActivity = summary.TokenActivity[:topTokens]
	}

	return summary
}

// watermarkBehind reports whether stored events lie past the watermark,
// which happens after an overlapping run moved it backwards
func (s *Summary) watermarkBehind() bool {
	return s.HasWatermark && s.TotalEvents > 0 && s.LastBlock > s.Watermark
}

func printSummary(s *Summary) {
	fmt.Printf("\n=== Stored Transfers ===\n")
	fmt.Printf("Total:           %d (scanned at %s)\n", s.TotalEvents, formatRate(s.TotalEvents, s.ScanDuration))
	if s.TotalEvents > 0 {
		fmt.Printf("Blocks:          %d - %d\n", s.FirstBlock, s.LastBlock)
	}
	fmt.Printf("Mints:           %d (%s)\n", s.Mints, percentageString(s.Mints, s.TotalEvents))
	fmt.Printf("Burns:           %d (%s)\n", s.Burns, percentageString(s.Burns, s.TotalEvents))
	fmt.Printf("Distinct tokens: %d\n", s.DistinctTokens)

	fmt.Printf("\n=== Watermark ===\n")
	if !s.HasWatermark {
		fmt.Printf("Not set, the monitor starts from its configured start block\n")
	} else {
		fmt.Printf("Last block checked: %d\n", s.Watermark)
		if s.watermarkBehind() {
			fmt.Printf("Warning: stored events reach block %d, past the watermark\n", s.LastBlock)
		}
	}

	if len(s.TokenActivity) > 0 {
		fmt.Printf("\n=== Most Transferred Tokens ===\n")
		for _, t := range s.TokenActivity {
			fmt.Printf("  %-30s %d\n", t.TokenID, t.Transfers)
		}
	}
}

func writeMarkdownReport(filepath string, s *Summary, generated time.Time) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	_, _ = fmt.Fprintf(file, "# Transfer Store Report\n\n")
	_, _ = fmt.Fprintf(file, "Generated: %s\n\n", generated.Format("2006-01-02 15:04:05"))

	_, _ = fmt.Fprintf(file, "## Summary\n\n")
	_, _ = fmt.Fprintf(file, "| Metric | Value |\n")
	_, _ = fmt.Fprintf(file, "|--------|-------|\n")
	_, _ = fmt.Fprintf(file, "| **Transfers** | %d |\n", s.TotalEvents)
	if s.TotalEvents > 0 {
		_, _ = fmt.Fprintf(file, "| **First Block** | %d |\n", s.FirstBlock)
		_, _ = fmt.Fprintf(file, "| **Last Block** | %d |\n", s.LastBlock)
	}
	_, _ = fmt.Fprintf(file, "| **Mints** | %d (%s) |\n", s.Mints, percentageString(s.Mints, s.TotalEvents))
	_, _ = fmt.Fprintf(file, "| **Burns** | %d (%s) |\n", s.Burns, percentageString(s.Burns, s.TotalEvents))
	_, _ = fmt.Fprintf(file, "| **Distinct Tokens** | %d |\n", s.DistinctTokens)
	if s.HasWatermark {
		_, _ = fmt.Fprintf(file, "| **Watermark** | %d |\n", s.Watermark)
	} else {
		_, _ = fmt.Fprintf(file, "| **Watermark** | not set |\n")
	}
	_, _ = fmt.Fprintf(file, "\n")

	if s.watermarkBehind() {
		_, _ = fmt.Fprintf(file, "> Stored events reach block %d, past the watermark.\n\n", s.LastBlock)
	}

	if len(s.TokenActivity) == 0 {
		_, _ = fmt.Fprintf(file, "*No transfers found.*\n")
		return nil
	}

	_, _ = fmt.Fprintf(file, "## Most Transferred Tokens\n\n")
	_, _ = fmt.Fprintf(file, "| Token ID | Transfers |\n")
	_, _ = fmt.Fprintf(file, "|----------|-----------|\n")
	for _, t := range s.TokenActivity {
		_, _ = fmt.Fprintf(file, "| `%s` | %d |\n", t.TokenID, t.Transfers)
	}

	return nil
}

func displayEndpoint(endpoint string) string {
	if endpoint == "" {
		return "default"
	}
	return endpoint
}
