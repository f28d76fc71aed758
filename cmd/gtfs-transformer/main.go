package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/theoremus-urban-solutions/gtfs-transformer/config"
	"github.com/theoremus-urban-solutions/gtfs-transformer/feedstore"
	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfsdb"
	"github.com/theoremus-urban-solutions/gtfs-transformer/internal/logging"
	"github.com/theoremus-urban-solutions/gtfs-transformer/transform"
)

func main() {
	logging.Init("info", "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gtfs-transformer:", err)
		os.Exit(1)
	}
}

type options struct {
	configPath      string
	input           string
	output          string
	dbDriver        string
	dbDSN           string
	agency          string
	strategies      string
	logLevel        string
	logFormat       string
	metricsTextfile string
	list            bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("gtfs-transformer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "config file (default: gtfs-transformer.yml or config.yml if present)")
	fs.StringVar(&o.input, "input", "", "input GTFS zip or .gob snapshot: path, file://, http(s):// or s3:// (overrides config)")
	fs.StringVar(&o.output, "output", "", "output .zip or .gob location (overrides config)")
	fs.StringVar(&o.dbDriver, "db-driver", "", "sqlite|pgx (overrides config)")
	fs.StringVar(&o.dbDSN, "db-dsn", "", "database DSN (overrides config)")
	fs.StringVar(&o.agency, "agency", "", "default agency id for stops, calendars and shapes")
	fs.StringVar(&o.strategies, "strategies", "", "comma-separated strategies to run, e.g. compact_ids")
	fs.StringVar(&o.logLevel, "log-level", "", "debug|info|warn|error")
	fs.StringVar(&o.logFormat, "log-format", "", "text|json")
	fs.StringVar(&o.metricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file")
	fs.BoolVar(&o.list, "list", false, "list available strategies and exit")
	err := fs.Parse(args)
	return o, err
}

func loadConfig(o options) (config.AppConfig, error) {
	if o.configPath != "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return config.AppConfig{}, err
		}
		return *cfg, nil
	}
	if err := config.LoadAppConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.AppConfig{}, err
	}
	return config.Config, nil
}

// applyFlags overrides config values with the flags that were set.
func applyFlags(cfg *config.AppConfig, o options) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Input, o.input)
	set(&cfg.Output.Path, o.output)
	set(&cfg.Output.Database.Driver, o.dbDriver)
	set(&cfg.Output.Database.DSN, o.dbDSN)
	set(&cfg.DefaultAgencyID, o.agency)
	set(&cfg.Logging.Level, o.logLevel)
	set(&cfg.Logging.Format, o.logFormat)
	set(&cfg.Metrics.Textfile, o.metricsTextfile)
	if o.strategies != "" {
		cfg.Strategies = nil
		for _, s := range strings.Split(o.strategies, ",") {
			s = strings.TrimSpace(strings.ToLower(s))
			if s != "" {
				cfg.Strategies = append(cfg.Strategies, s)
			}
		}
	}
	return cfg.Validate()
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if o.list {
		for _, name := range transform.StrategyNames() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, o); err != nil {
		return err
	}
	if cfg.Input == "" {
		return errors.New("no input: set -input or input in the config file")
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, stdout)
	slog.SetDefault(logger)

	strategies, err := transform.NewStrategies(cfg.Strategies)
	if err != nil {
		return err
	}

	store := feedstore.New(feedstore.S3Options{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		PathStyle:       cfg.S3.PathStyle,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})

	start := time.Now()
	ds, err := readDataset(ctx, store, cfg)
	if err != nil {
		return err
	}
	logger.Info("loaded feed", "input", cfg.Input, "duration", time.Since(start))

	reg := prometheus.NewRegistry()
	t := transform.New(
		transform.WithLogger(logger),
		transform.WithMetrics(transform.NewMetrics(reg)),
	)
	t.AddStrategy(strategies...)
	if err := t.Run(ctx, ds); err != nil {
		return err
	}

	if err := writeOutputs(ctx, store, cfg, ds, logger); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func isSnapshot(location string) bool {
	return strings.HasSuffix(strings.ToLower(location), ".gob")
}

func readDataset(ctx context.Context, store *feedstore.Store, cfg config.AppConfig) (*gtfs.Dataset, error) {
	data, err := store.Get(ctx, cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if isSnapshot(cfg.Input) {
		return gtfs.DeserializeDataset(data)
	}
	return gtfs.LoadFromBytes(data, gtfs.LoadOptions{DefaultAgencyID: cfg.DefaultAgencyID})
}

// writeOutputs encodes the file output before touching any sink so that an
// encoding failure leaves nothing behind.
func writeOutputs(ctx context.Context, store *feedstore.Store, cfg config.AppConfig, ds *gtfs.Dataset, logger *slog.Logger) error {
	var encoded []byte
	if cfg.Output.Path != "" {
		var err error
		if isSnapshot(cfg.Output.Path) {
			encoded, err = gtfs.SerializeDataset(ds)
		} else {
			encoded, err = gtfs.WriteToBytes(ds)
		}
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
	}

	if db := cfg.Output.Database; db.Driver != "" {
		s, err := gtfsdb.Open(ctx, db.Driver, db.DSN)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		if err := s.Write(ctx, ds); err != nil {
			return fmt.Errorf("write database: %w", err)
		}
		logger.Info("wrote database", "driver", db.Driver)
	}

	if encoded != nil {
		if err := store.Put(ctx, cfg.Output.Path, encoded); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		logger.Info("wrote feed", "output", cfg.Output.Path, "bytes", len(encoded))
	}
	return nil
}
