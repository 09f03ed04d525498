// Package pointindex is the small facade wiring config, schema and the
// builder orchestrator together into the public entry point for a build
// (spec §2, §6).
package pointindex

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"go.viam.com/pointindex/builder"
	"go.viam.com/pointindex/config"
	"go.viam.com/pointindex/decoder"
	"go.viam.com/pointindex/manifest"
	"go.viam.com/pointindex/schema"
)

// Index is a running build: a bound Config, Schema and Builder, ready to
// accept files.
type Index struct {
	cfg     *config.Config
	schema  *schema.Schema
	builder *builder.Builder
}

// Open loads configuration from configPath, builds the schema described
// by its dimensionList, and either resumes a prior build at
// cfg.BuildPath or starts a fresh one, mirroring the teacher's
// config-driven entrypoint pattern.
func Open(configPath string, logger *zap.SugaredLogger) (*Index, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "pointindex: load config")
	}

	s, err := schemaFromConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "pointindex: build schema")
	}

	b, err := builder.Load(cfg, logger)
	switch {
	case err == nil:
		return &Index{cfg: cfg, schema: s, builder: b}, nil
	case errors.Is(err, builder.ErrNoBuild):
		b, err = builder.New(cfg, s, logger)
		if err != nil {
			return nil, errors.Wrap(err, "pointindex: new build")
		}
		return &Index{cfg: cfg, schema: s, builder: b}, nil
	default:
		return nil, errors.Wrap(err, "pointindex: load build")
	}
}

func schemaFromConfig(cfg *config.Config) (*schema.Schema, error) {
	if len(cfg.DimensionList) == 0 {
		return schema.New([]schema.DimInfo{
			{Name: "X", Size: 8},
			{Name: "Y", Size: 8},
		})
	}

	dims := make([]schema.DimInfo, len(cfg.DimensionList))
	for i, name := range cfg.DimensionList {
		dims[i] = schema.DimInfo{Name: name, Size: 8}
	}
	return schema.New(dims)
}

// RegisterDecoder installs an additional file-format driver, keyed by
// extension (e.g. ".las"), before any Insert call needs it.
func (idx *Index) RegisterDecoder(ext string, factory decoder.Factory) {
	idx.builder.Decoders().Register(ext, factory)
}

// Insert submits path for ingestion, returning false if no decoder could
// be inferred for it (recorded as a manifest omission rather than an
// error, per spec §7).
func (idx *Index) Insert(path string) (bool, error) {
	return idx.builder.Insert(path)
}

// Save drains all in-flight ingest tasks and persists the build's current
// state to cfg.BuildPath, matching spec §4.6's global barrier.
func (idx *Index) Save() error {
	return idx.builder.Save()
}

// Finalize rewrites the current tree into its terminal, portable chunked
// form at outPath.
func (idx *Index) Finalize(outPath string, chunkPoints, base uint64, compress bool) error {
	return idx.builder.Finalize(outPath, chunkPoints, base, compress)
}

// NumPoints returns the number of points accepted into the tree so far.
func (idx *Index) NumPoints() int64 { return idx.builder.NumPoints() }

// NumTossed returns the number of points discarded so far.
func (idx *Index) NumTossed() int64 { return idx.builder.NumTossed() }

// Manifest exposes the build's per-input bookkeeping.
func (idx *Index) Manifest() *manifest.Manifest { return idx.builder.Manifest() }
