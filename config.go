package raster

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config tunes partitioning, caching and compression.
type Config struct {
	// RowsInGrid and ColsInGrid are the number of grid cells the mask is cut
	// into along each spatial dimension.
	RowsInGrid int `yaml:"rows_in_grid"`
	ColsInGrid int `yaml:"cols_in_grid"`

	// MergeThreshold stops merging once a chunk is wider than this fraction
	// of the mask width. 1 leaves merging unrestricted.
	MergeThreshold float64 `yaml:"merge_threshold"`

	// CacheCapacity bounds the region entries of the metadata cache.
	CacheCapacity int `yaml:"cache_capacity"`

	// CompressionSamples is the number of chunks compressed to estimate a
	// region's compression ratio.
	CompressionSamples int `yaml:"compression_samples"`

	// Codec compresses chunk payloads, "gzip" or "zst".
	Codec string `yaml:"codec"`

	// Workers bounds the goroutines copying and sampling chunks. 0 uses
	// GOMAXPROCS.
	Workers int `yaml:"workers"`

	// Seed seeds chunk sampling. 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		RowsInGrid:         10,
		ColsInGrid:         10,
		MergeThreshold:     1,
		CacheCapacity:      DefaultCacheCapacity,
		CompressionSamples: 10,
		Codec:              CodecGzip,
	}
}

// ParseConfig reads YAML over the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse raster configuration")
	}
	return cfg, cfg.Validate()
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}

func (c Config) Validate() error {
	switch {
	case c.RowsInGrid <= 0 || c.ColsInGrid <= 0:
		return errors.Wrapf(ErrInvalidConfig, "grid %dx%d must be positive", c.RowsInGrid, c.ColsInGrid)
	case c.MergeThreshold <= 0:
		return errors.Wrapf(ErrInvalidConfig, "merge_threshold %v must be positive", c.MergeThreshold)
	case c.CacheCapacity <= 0:
		return errors.Wrapf(ErrInvalidConfig, "cache_capacity %d must be positive", c.CacheCapacity)
	case c.CompressionSamples < 0:
		return errors.Wrapf(ErrInvalidConfig, "compression_samples %d is negative", c.CompressionSamples)
	case !validCodec(c.Codec):
		return errors.Wrapf(ErrInvalidConfig, "unknown codec %q", c.Codec)
	case c.Workers < 0:
		return errors.Wrapf(ErrInvalidConfig, "workers %d is negative", c.Workers)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}
