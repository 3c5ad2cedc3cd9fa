package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mzhao577/medicaidspend/internal/config"
	"github.com/mzhao577/medicaidspend/internal/dashboard"
	"github.com/mzhao577/medicaidspend/internal/dataset"
	"github.com/mzhao577/medicaidspend/internal/fetch"
	"github.com/mzhao577/medicaidspend/internal/logger"
	"github.com/mzhao577/medicaidspend/internal/registry"
	"github.com/mzhao577/medicaidspend/internal/summary"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "download":
		err = runDownload(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "summarize":
		err = runSummarize(os.Args[2:])
	case "monthly":
		err = runMonthly(os.Args[2:])
	case "lookup":
		err = runLookup(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version":
		fmt.Printf("medicaidspend %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Medicaid provider spending toolkit.

Usage:
  medicaidspend <command> [flags]

Commands:
  download   Download a dataset release, resuming partial files
  inspect    Show dataset columns, sample rows and statistics
  summarize  Aggregate total paid per billing provider
  monthly    Build monthly series for the top billing providers
  lookup     Resolve provider names through the NPI Registry
  serve      Serve the provider trend dashboard
  version    Print the version

Run 'medicaidspend <command> -h' for command flags.
`)
}

// boot loads configuration and initializes logging for a subcommand.
func boot(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.GetZapLogger(), nil
}

// interruptContext returns a context canceled by SIGINT or SIGTERM.
func interruptContext(zapLogger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		zapLogger.Info("shutdown signal received")
		cancel()
	}()

	return ctx, cancel
}

// transferProgress writes a single updating progress line to stderr.
func transferProgress() fetch.ProgressFunc {
	var last time.Time
	return func(transferred, total int64) {
		if time.Since(last) < 200*time.Millisecond && transferred != total {
			return
		}
		last = time.Now()
		if total > 0 {
			fmt.Fprintf(os.Stderr, "\r%s / %s (%.1f%%)",
				humanize.Bytes(uint64(transferred)),
				humanize.Bytes(uint64(total)),
				float64(transferred)/float64(total)*100)
		} else {
			fmt.Fprintf(os.Stderr, "\r%s", humanize.Bytes(uint64(transferred)))
		}
	}
}

func runDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	format := fs.String("format", "parquet", "Release format to download (parquet, zip, or csv)")
	output := fs.String("output", "", "Destination directory (defaults to the dataset directory)")
	all := fs.Bool("all", false, "Download every release format")
	verify := fs.Bool("verify", false, "Print the SHA-256 digest after downloading")
	sum := fs.String("sha256", "", "Expected SHA-256 digest, checked after downloading")
	list := fs.Bool("list", false, "List the release files and exit")
	fs.Parse(args)

	cfg, zapLogger, err := boot(*configPath)
	if err != nil {
		return err
	}

	catalog := dataset.DefaultCatalog(cfg.Dataset.BaseURL)

	if *list {
		for _, f := range catalog.Formats() {
			info, err := catalog.File(f)
			if err != nil {
				return err
			}
			fmt.Printf("%-8s | %8s | %s\n", f, info.Size, info.Desc)
		}
		return nil
	}

	var formats []dataset.Format
	if *all {
		formats = catalog.Formats()
	} else {
		f, err := dataset.ParseFormat(*format)
		if err != nil {
			return err
		}
		formats = []dataset.Format{f}
	}

	dir := *output
	if dir == "" {
		dir = cfg.Dataset.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}

	fetcher := fetch.New(fetch.Config{
		ChunkSize:   cfg.Fetch.GetChunkSize(),
		HeadTimeout: cfg.Fetch.GetHeadTimeout(),
		Progress:    transferProgress(),
	}, zapLogger)

	ctx, cancel := interruptContext(zapLogger)
	defer cancel()

	for _, f := range formats {
		info, err := catalog.File(f)
		if err != nil {
			return err
		}
		url, err := catalog.URL(f)
		if err != nil {
			return err
		}
		dest := filepath.Join(dir, info.Name)

		if total, err := fetcher.RemoteSize(ctx, url); err == nil && total > 0 {
			if free, err := fetch.DiskFree(dir); err == nil && free < uint64(total) {
				zapLogger.Warn("free disk space is below the release size",
					zap.String("dest", dest),
					zap.String("needed", humanize.Bytes(uint64(total))),
					zap.String("free", humanize.Bytes(free)))
			}
		}

		result, err := fetcher.Fetch(ctx, url, dest)
		if result.Bytes > 0 {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		switch result.Status {
		case fetch.StatusAlreadyComplete:
			fmt.Printf("already complete: %s (%s)\n", dest, humanize.Bytes(uint64(result.Total)))
		default:
			size := result.Total
			if size <= 0 {
				size = result.Bytes
			}
			if result.Resumed {
				fmt.Printf("downloaded %s (%s, resumed)\n", dest, humanize.Bytes(uint64(size)))
			} else {
				fmt.Printf("downloaded %s (%s)\n", dest, humanize.Bytes(uint64(size)))
			}
		}

		if *verify || *sum != "" {
			digest, err := fetch.DigestFile(dest, cfg.Fetch.GetChunkSize(), transferProgress())
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return err
			}
			fmt.Printf("%s  %s\n", digest, dest)
			if *sum != "" {
				if !strings.EqualFold(digest, *sum) {
					return fmt.Errorf("sha256 mismatch for %s: got %s, want %s", dest, digest, *sum)
				}
				zapLogger.Info("sha256 verified", zap.String("path", dest))
			}
		}
	}

	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	file := fs.String("file", "", "Dataset file to inspect")
	rows := fs.Int("rows", 5, "Number of sample rows to print, 0 to skip")
	stats := fs.Bool("stats", false, "Scan the file and print numeric column statistics")
	columnsCSV := fs.String("columns-csv", "", "Write the column inventory to a CSV file")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("inspect: -file is required")
	}

	_, zapLogger, err := boot(*configPath)
	if err != nil {
		return err
	}

	info, err := os.Stat(*file)
	if err != nil {
		return fmt.Errorf("failed to stat dataset file: %w", err)
	}
	fmt.Printf("%s (%s)\n", *file, humanize.Bytes(uint64(info.Size())))

	if strings.EqualFold(filepath.Ext(*file), ".parquet") {
		if n, err := dataset.ParquetRowCount(*file); err == nil {
			fmt.Printf("%s rows\n", humanize.Comma(n))
		}
	}

	columns, err := dataset.Columns(*file)
	if err != nil {
		return err
	}
	fmt.Println("columns:")
	for _, c := range columns {
		fmt.Printf("  %2d  %-28s %s\n", c.Number, c.Name, c.Type)
	}

	if *columnsCSV != "" {
		if err := dataset.WriteColumnsCSV(*columnsCSV, columns); err != nil {
			return err
		}
		zapLogger.Info("wrote column inventory",
			zap.String("path", *columnsCSV),
			zap.Int("columns", len(columns)))
	}

	if *rows > 0 {
		if err := printSampleRows(*file, *rows); err != nil {
			return err
		}
	}

	if *stats {
		if err := printStats(*file, zapLogger); err != nil {
			return err
		}
	}

	return nil
}

func printSampleRows(path string, n int) error {
	r, err := dataset.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Printf("first %d rows:\n", n)
	fmt.Printf("  %-11s %-11s %-7s %-8s %6s %7s %14s\n",
		"billing", "servicing", "hcpcs", "month", "benef", "claims", "paid")
	for i := 0; i < n; i++ {
		claim, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		fmt.Printf("  %-11s %-11s %-7s %-8s %6d %7d %14.2f\n",
			claim.BillingNPI, claim.ServicingNPI, claim.HCPCS, claim.Month,
			claim.Beneficiaries, claim.Claims, claim.Paid)
	}
	return nil
}

func printStats(path string, zapLogger *zap.Logger) error {
	r, err := dataset.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	start := time.Now()
	st, err := dataset.Describe(r)
	if err != nil {
		return err
	}
	zapLogger.Info("scanned dataset",
		zap.Int64("rows", st.Rows),
		zap.Int64("skipped", r.Skipped()),
		zap.Duration("elapsed", time.Since(start)))

	fmt.Printf("%s rows", humanize.Comma(st.Rows))
	if skipped := r.Skipped(); skipped > 0 {
		fmt.Printf(" (%s malformed rows skipped)", humanize.Comma(skipped))
	}
	fmt.Println()
	for _, col := range []struct {
		name  string
		stats dataset.ColumnStats
	}{
		{dataset.ColBeneficiaries, st.Beneficiaries},
		{dataset.ColClaims, st.Claims},
		{dataset.ColPaid, st.Paid},
	} {
		fmt.Printf("  %-28s mean %16.2f  min %14.2f  max %16.2f\n",
			col.name, col.stats.Mean(), col.stats.Min, col.stats.Max)
	}
	return nil
}

func runSummarize(args []string) error {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	file := fs.String("file", "", "Dataset file to aggregate")
	output := fs.String("output", "billing_npi_summary.csv", "Billing provider summary output")
	top := fs.Int("top", 1000, "Number of top providers to keep")
	topOutput := fs.String("top-output", "top1000_npi.csv", "Ranked top provider output")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("summarize: -file is required")
	}

	_, zapLogger, err := boot(*configPath)
	if err != nil {
		return err
	}

	reader, err := dataset.Open(*file)
	if err != nil {
		return err
	}
	defer reader.Close()

	start := time.Now()
	rows, err := summary.ByBillingNPI(reader)
	if err != nil {
		return err
	}
	if skipped := reader.Skipped(); skipped > 0 {
		zapLogger.Warn("skipped malformed rows", zap.Int64("rows", skipped))
	}
	zapLogger.Info("aggregated billing providers",
		zap.Int("providers", len(rows)),
		zap.Duration("elapsed", time.Since(start)))

	if err := summary.WriteBillingCSV(*output, rows); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s providers)\n", *output, humanize.Comma(int64(len(rows))))

	topRows := summary.TopN(rows, *top)
	if err := summary.WriteTopCSV(*topOutput, topRows); err != nil {
		return err
	}

	totalPaid := 0.0
	for _, r := range topRows {
		totalPaid += r.Paid
	}
	fmt.Printf("wrote %s (%s providers, $%s paid)\n",
		*topOutput, humanize.Comma(int64(len(topRows))), humanize.CommafWithDigits(totalPaid, 2))

	fmt.Println("top providers by total paid:")
	for i, r := range summary.TopN(topRows, 10) {
		fmt.Printf("  %4d  %s  %12s claims  $%s\n",
			i+1, r.NPI, humanize.Comma(r.Claims), humanize.CommafWithDigits(r.Paid, 2))
	}

	return nil
}

func runMonthly(args []string) error {
	fs := flag.NewFlagSet("monthly", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	file := fs.String("file", "", "Dataset file to aggregate")
	top := fs.Int("top", 1000, "Number of top providers to keep")
	output := fs.String("output", "monthly_summary_top1000.csv", "Monthly summary output")
	trendOutput := fs.String("trend-output", "monthly_trend_top1000.csv", "Chart-ready trend output, empty to skip")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("monthly: -file is required")
	}

	_, zapLogger, err := boot(*configPath)
	if err != nil {
		return err
	}

	// First pass ranks the providers, second pass collects their months.
	reader, err := dataset.Open(*file)
	if err != nil {
		return err
	}
	start := time.Now()
	rows, err := summary.ByBillingNPI(reader)
	reader.Close()
	if err != nil {
		return err
	}
	topRows := summary.TopN(rows, *top)
	zapLogger.Info("ranked billing providers",
		zap.Int("providers", len(rows)),
		zap.Int("top", len(topRows)),
		zap.Duration("elapsed", time.Since(start)))

	npis := make([]string, len(topRows))
	for i, r := range topRows {
		npis[i] = r.NPI
	}

	reader, err = dataset.Open(*file)
	if err != nil {
		return err
	}
	start = time.Now()
	points, err := summary.MonthlyForProviders(reader, npis)
	reader.Close()
	if err != nil {
		return err
	}
	zapLogger.Info("aggregated monthly series",
		zap.Int("points", len(points)),
		zap.Duration("elapsed", time.Since(start)))

	if err := summary.WriteMonthlyCSV(*output, points); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s rows)\n", *output, humanize.Comma(int64(len(points))))

	if *trendOutput != "" {
		if err := summary.WriteTrendCSV(*trendOutput, topRows, points); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *trendOutput)
	}

	return nil
}

func runLookup(args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	input := fs.String("input", "top1000_npi.csv", "Ranked top provider CSV to read")
	output := fs.String("output", "top1000_npi_with_names.csv", "Enriched provider output")
	fs.Parse(args)

	cfg, zapLogger, err := boot(*configPath)
	if err != nil {
		return err
	}

	entries, err := summary.ReadTopCSV(*input)
	if err != nil {
		return err
	}
	npis := make([]string, len(entries))
	for i, e := range entries {
		npis[i] = e.NPI
	}

	var cache *registry.Cache
	if cfg.Registry.CachePath != "" {
		cache, err = registry.OpenCache(cfg.Registry.CachePath)
		if err != nil {
			zapLogger.Warn("lookup cache unavailable, querying the registry for every NPI",
				zap.String("path", cfg.Registry.CachePath),
				zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
			if n, err := cache.Count(); err == nil {
				zapLogger.Info("lookup cache opened",
					zap.String("path", cfg.Registry.CachePath),
					zap.Int64("providers", n))
			}
		}
	}

	client := registry.NewClient(cfg.Registry.APIURL, cfg.Registry.GetTimeout(), zapLogger)
	enricher := registry.NewEnricher(client, cache, cfg.Registry.GetInterval(), zapLogger)

	ctx, cancel := interruptContext(zapLogger)
	defer cancel()

	start := time.Now()
	providers, err := enricher.Run(ctx, npis)
	if err != nil {
		return err
	}

	enriched := make([]registry.EnrichedProvider, len(providers))
	found := 0
	typeCounts := map[string]int{}
	stateCounts := map[string]int{}
	for i, p := range providers {
		enriched[i] = registry.EnrichedProvider{
			Provider: p,
			Rank:     entries[i].Rank,
			Claims:   entries[i].Claims,
			Paid:     entries[i].Paid,
		}
		if !p.Found {
			continue
		}
		found++
		if p.Type != "" {
			typeCounts[p.Type]++
		}
		if p.State != "" {
			stateCounts[p.State]++
		}
	}
	zapLogger.Info("registry lookups finished",
		zap.Int("providers", len(providers)),
		zap.Int("found", found),
		zap.Duration("elapsed", time.Since(start)))

	if err := registry.WriteEnrichedCSV(*output, enriched); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d of %d resolved, %d not found)\n",
		*output, found, len(enriched), len(enriched)-found)

	if len(typeCounts) > 0 {
		fmt.Println("provider types:")
		for _, c := range sortedCounts(typeCounts) {
			fmt.Printf("  %-14s %d\n", c.name, c.count)
		}
	}
	if len(stateCounts) > 0 {
		fmt.Println("top 10 states:")
		for i, c := range sortedCounts(stateCounts) {
			if i == 10 {
				break
			}
			fmt.Printf("  %-3s %d\n", c.name, c.count)
		}
	}

	return nil
}

type nameCount struct {
	name  string
	count int
}

// sortedCounts orders a counter map by count descending, name ascending.
func sortedCounts(m map[string]int) []nameCount {
	out := make([]nameCount, 0, len(m))
	for name, count := range m {
		out = append(out, nameCount{name: name, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	addr := fs.String("addr", "", "Listen address, overriding the configuration")
	summaryPath := fs.String("summary", "monthly_summary_top1000.csv", "Monthly summary CSV to serve")
	namesPath := fs.String("names", "top1000_npi_with_names.csv", "Enriched provider CSV for display names")
	fs.Parse(args)

	cfg, zapLogger, err := boot(*configPath)
	if err != nil {
		return err
	}

	zapLogger.Info("starting medicaidspend dashboard",
		zap.String("version", version),
		zap.String("summary", *summaryPath))

	index, err := dashboard.LoadIndex(*summaryPath, *namesPath, zapLogger)
	if err != nil {
		return err
	}

	serverCfg := &dashboard.Config{
		BindAddr:     cfg.HTTP.BindAddr,
		ReadTimeout:  cfg.HTTP.GetReadTimeout(),
		WriteTimeout: cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:  cfg.HTTP.GetIdleTimeout(),
	}
	if *addr != "" {
		serverCfg.BindAddr = *addr
	}
	server := dashboard.New(serverCfg, index, zapLogger)

	go func() {
		if err := server.Start(); err != nil {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	zapLogger.Info("dashboard started successfully",
		zap.String("http_addr", serverCfg.BindAddr),
		zap.Int("providers", index.Len()))
	<-sigChan

	zapLogger.Info("shutdown signal received, stopping dashboard...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		zapLogger.Error("failed to stop HTTP server gracefully", zap.Error(err))
	}

	zapLogger.Info("dashboard stopped successfully")
	return nil
}
