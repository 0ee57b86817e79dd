package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/rollcache/internal/bytesize"
	"github.com/marmos91/rollcache/internal/logger"
	"github.com/marmos91/rollcache/pkg/config"
	"github.com/marmos91/rollcache/pkg/metrics"
	"github.com/marmos91/rollcache/pkg/objectstore"
	objs3 "github.com/marmos91/rollcache/pkg/objectstore/s3"
	"github.com/marmos91/rollcache/pkg/stream"
	"github.com/marmos91/rollcache/pkg/tierstore"
)

// loadConfig loads the rollcache configuration from --config (or the
// default location) and initializes logging and metrics from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	return cfg, nil
}

// parseTierFlags parses "dir=budget" pairs (e.g. "/mnt/nvme=512Mi") into
// tierstore.Tier entries, overriding the configured tier list when
// non-empty.
func parseTierFlags(specs []string) ([]tierstore.Tier, error) {
	tiers := make([]tierstore.Tier, 0, len(specs))

	for _, spec := range specs {
		dir, budgetStr, found := strings.Cut(spec, "=")
		if !found || dir == "" {
			return nil, fmt.Errorf("invalid --tier %q, expected dir=budget", spec)
		}

		var budget uint64
		if budgetStr != "" && budgetStr != "0" {
			b, err := bytesize.ParseByteSize(budgetStr)
			if err != nil {
				return nil, fmt.Errorf("invalid --tier %q: %w", spec, err)
			}
			budget = b.Uint64()
		}

		tiers = append(tiers, tierstore.Tier{Dir: dir, Budget: budget})
	}

	return tiers, nil
}

func tiersFromConfig(cfg *config.Config) []tierstore.Tier {
	tiers := make([]tierstore.Tier, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		tiers = append(tiers, tierstore.Tier{Dir: t.Path, Budget: t.Budget.Uint64()})
	}
	return tiers
}

// openObjectStore builds an S3-compatible objectstore.Store from config.
func openObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	store, err := objs3.New(ctx, objs3.Config{
		Region:            cfg.ObjectStore.Region,
		Endpoint:          cfg.ObjectStore.Endpoint,
		AccessKeyID:       cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:   cfg.ObjectStore.SecretAccessKey,
		PathStyle:         cfg.ObjectStore.PathStyle,
		MaxRetries:        uint(cfg.ObjectStore.MaxRetries),
		InitialBackoff:    cfg.ObjectStore.InitialBackoff,
		MaxBackoff:        cfg.ObjectStore.MaxBackoff,
		BackoffMultiplier: cfg.ObjectStore.BackoffMultiplier,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to object store: %w", err)
	}
	return store, nil
}

// openStream builds a stream.Config from the loaded config and any CLI
// overrides, then opens the stream.
func openStream(
	ctx context.Context,
	store objectstore.Store,
	paths []string,
	cfg *config.Config,
	tierOverride []tierstore.Tier,
	blockSize uint64,
	headerBytes uint64,
) (*stream.Stream, error) {
	tiers := tierOverride
	if len(tiers) == 0 {
		tiers = tiersFromConfig(cfg)
	}

	streamCfg := stream.Config{
		BlockSize:        cfg.Stream.BlockSize.Uint64(),
		HeaderBytes:      cfg.Stream.HeaderBytes,
		Tiers:            tiers,
		EvictionTick:     cfg.Stream.EvictionTick,
		PrefetchBackoff:  cfg.Stream.PrefetchBackoff,
		BlockWaitTimeout: cfg.Stream.BlockWaitTimeout,
	}
	if blockSize > 0 {
		streamCfg.BlockSize = blockSize
	}
	if headerBytes > 0 {
		streamCfg.HeaderBytes = headerBytes
	}

	return stream.Open(ctx, store, paths, streamCfg, metrics.NewStreamMetrics())
}

func formatThroughput(bytes int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "n/a"
	}
	mbps := float64(bytes) / elapsed.Seconds() / (1024 * 1024)
	return fmt.Sprintf("%.2f MiB/s", mbps)
}
