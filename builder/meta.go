package builder

import (
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"go.viam.com/pointindex/config"
	"go.viam.com/pointindex/decoder"
	"go.viam.com/pointindex/geom"
	"go.viam.com/pointindex/manifest"
	"go.viam.com/pointindex/registry"
	"go.viam.com/pointindex/schema"
	"go.viam.com/pointindex/source"
	"go.viam.com/pointindex/workerpool"
)

const metaKey = "meta.json"

// ErrNoBuild is returned by Load when cfg.BuildPath has no persisted meta
// document yet, distinguishing "start a fresh build here" from a genuine
// I/O or corruption failure.
var ErrNoBuild = errors.New("builder: no build state at buildPath")

// metaJSON is the persisted top-level build document (spec §6): enough to
// fully reconstruct a Builder's schema, registry and manifest, plus the
// running counters. Reprojection is deliberately absent - it is a
// per-invocation input, not build state, so a resumed build must have it
// supplied again by its caller (spec §10).
type metaJSON struct {
	Schema      *schema.Schema     `json:"schema"`
	BBox        geom.BBox          `json:"bbox"`
	Dimensions  int                `json:"dimensions"`
	ChunkPoints uint64             `json:"chunkPoints"`
	BaseDepth   uint64             `json:"baseDepth"`
	FlatDepth   uint64             `json:"flatDepth"`
	DiskDepth   uint64             `json:"diskDepth"`
	NumPoints   int64              `json:"numPoints"`
	NumTossed   int64              `json:"numTossed"`
	Manifest    *manifest.Manifest `json:"manifest"`
	Registry    json.RawMessage    `json:"registry"`
}

// Save is the global barrier (spec §4.6): join drains every in-flight
// ingest task, the registry and manifest are captured into the persisted
// meta document, and the pool is reopened for a subsequent batch of
// Insert calls.
func (b *Builder) Save() error {
	if err := b.pool.Join(); err != nil {
		return errors.Wrap(err, "builder: join pool")
	}

	registryBlob, err := b.registry.Save()
	if err != nil {
		return errors.Wrap(err, "builder: save registry")
	}

	meta := metaJSON{
		Schema:      b.schema,
		BBox:        b.cfg.BBox,
		Dimensions:  b.cfg.NumDimensions,
		ChunkPoints: b.cfg.ChunkPoints,
		BaseDepth:   b.cfg.BaseDepth,
		FlatDepth:   b.cfg.FlatDepth,
		DiskDepth:   b.cfg.DiskDepth,
		NumPoints:   atomic.LoadInt64(&b.numPoints),
		NumTossed:   atomic.LoadInt64(&b.numTossed),
		Manifest:    b.manifest,
		Registry:    json.RawMessage(registryBlob),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "builder: marshal meta")
	}
	if err := b.buildSource.Put(metaKey, data); err != nil {
		return errors.Wrap(err, "builder: write meta")
	}

	b.pool.Go()
	return nil
}

// Load reconstructs a Builder from a previously Saved build at
// cfg.BuildPath. The disk branch's chunks page back in lazily on first
// touch, exactly as during a fresh build.
func Load(cfg *config.Config, logger *zap.SugaredLogger) (*Builder, error) {
	buildSrc, err := source.New(cfg.BuildPath)
	if err != nil {
		return nil, errors.Wrap(err, "builder: open build source")
	}
	tmpSrc, err := source.New(cfg.TmpPath)
	if err != nil {
		return nil, errors.Wrap(err, "builder: open tmp source")
	}

	raw, err := buildSrc.GetAsString(metaKey)
	if err != nil {
		if source.IsNotFound(err) {
			return nil, ErrNoBuild
		}
		return nil, errors.Wrap(err, "builder: read meta")
	}

	meta := metaJSON{Schema: &schema.Schema{}, Manifest: manifest.New()}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, errors.Wrap(err, "builder: unmarshal meta")
	}

	empty := make([]byte, meta.Schema.PointSize())
	store := source.NewChunkStore(buildSrc.Resolve("chunks"))
	reg, err := registry.Load(
		meta.Schema, meta.BaseDepth, meta.FlatDepth, meta.DiskDepth, meta.ChunkPoints,
		empty, store, logger, meta.Registry,
	)
	if err != nil {
		return nil, errors.Wrap(err, "builder: load registry")
	}

	return &Builder{
		cfg:         cfg,
		schema:      meta.Schema,
		logger:      logger,
		manifest:    meta.Manifest,
		registry:    reg,
		pool:        workerpool.New(cfg.NumThreads, logger),
		decoders:    decoder.NewRegistry(),
		buildSource: buildSrc,
		tmpSource:   tmpSrc,
		numPoints:   meta.NumPoints,
		numTossed:   meta.NumTossed,
	}, nil
}
