// Package config loads and validates the build-time configuration record
// (spec §6): the tree's dimensional shape, storage layout and I/O
// parameters supplied to a build.
package config

import (
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"go.viam.com/pointindex/geom"
)

// Reprojection carries the input and output spatial reference strings
// for an optional reprojection stage.
type Reprojection struct {
	In  string `mapstructure:"in"`
	Out string `mapstructure:"out"`
}

// Config is the core's configuration record, matching spec §6 exactly.
type Config struct {
	BuildPath     string        `mapstructure:"buildPath"`
	TmpPath       string        `mapstructure:"tmpPath"`
	Reprojection  *Reprojection `mapstructure:"reprojection"`
	BBox          geom.BBox     `mapstructure:"-"`
	DimensionList []string      `mapstructure:"dimensionList"`
	NumThreads    int           `mapstructure:"numThreads"`
	NumDimensions int           `mapstructure:"numDimensions"`
	ChunkPoints   uint64        `mapstructure:"chunkPoints"`
	BaseDepth     uint64        `mapstructure:"baseDepth"`
	FlatDepth     uint64        `mapstructure:"flatDepth"`
	DiskDepth     uint64        `mapstructure:"diskDepth"`
}

type bboxRaw struct {
	MinX float64 `mapstructure:"minX"`
	MinY float64 `mapstructure:"minY"`
	MaxX float64 `mapstructure:"maxX"`
	MaxY float64 `mapstructure:"maxY"`
}

// Load reads configuration from path using viper (grounded on
// spf13/viper + go-viper/mapstructure/v2 appearing in the teacher's
// go.mod), validates it, and creates any missing local directories.
// Every failure here is fatal at construction, matching spec §7.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}

	var raw bboxRaw
	if err := v.UnmarshalKey("bbox", &raw); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal bbox")
	}
	cfg.BBox = geom.NewBBox(geom.Point{X: raw.MinX, Y: raw.MinY}, geom.Point{X: raw.MaxX, Y: raw.MaxY})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.NumDimensions != 2 {
		return errors.Errorf("config: numDimensions must be 2, got %d", c.NumDimensions)
	}
	if c.TmpPath == "" {
		return errors.New("config: tmpPath is required")
	}
	if isRemotePath(c.TmpPath) {
		return errors.Errorf("config: tmpPath must be a local filesystem path, got %q", c.TmpPath)
	}
	if c.BuildPath == "" {
		return errors.New("config: buildPath is required")
	}
	if c.ChunkPoints == 0 {
		return errors.New("config: chunkPoints must be positive")
	}
	if c.NumThreads <= 0 {
		return errors.New("config: numThreads must be positive")
	}

	if !isRemotePath(c.BuildPath) {
		if err := os.MkdirAll(c.BuildPath, 0o755); err != nil {
			return errors.Wrapf(err, "config: create buildPath %s", c.BuildPath)
		}
	}
	if err := os.MkdirAll(c.TmpPath, 0o755); err != nil {
		return errors.Wrapf(err, "config: create tmpPath %s", c.TmpPath)
	}
	return nil
}

func isRemotePath(p string) bool {
	for _, scheme := range []string{"s3://", "gs://"} {
		if len(p) >= len(scheme) && p[:len(scheme)] == scheme {
			return true
		}
	}
	return false
}
