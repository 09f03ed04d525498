// Package builder implements the top-level ingest orchestrator (spec
// §4.6): infers a decoder per input file, stages remote inputs to local
// disk, streams every point through the registry under a per-task
// clipper, and drives the pool/save/finalize lifecycle.
package builder

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.viam.com/utils"

	"go.viam.com/pointindex/clipper"
	"go.viam.com/pointindex/config"
	"go.viam.com/pointindex/decoder"
	"go.viam.com/pointindex/entry"
	"go.viam.com/pointindex/geom"
	"go.viam.com/pointindex/manifest"
	"go.viam.com/pointindex/registry"
	"go.viam.com/pointindex/schema"
	"go.viam.com/pointindex/source"
	"go.viam.com/pointindex/workerpool"
)

// Builder owns one build: its configuration, schema and every
// collaborator ingest tasks need, plus the running point/toss counters
// (spec §7's "numPoints, numTossed" accounting).
type Builder struct {
	cfg    *config.Config
	schema *schema.Schema
	logger *zap.SugaredLogger

	manifest *manifest.Manifest
	registry *registry.Registry
	pool     *workerpool.Pool
	decoders *decoder.Registry

	buildSource source.Source
	tmpSource   source.Source

	numPoints int64
	numTossed int64
}

// New constructs an empty Builder ready to accept Insert calls.
func New(cfg *config.Config, s *schema.Schema, logger *zap.SugaredLogger) (*Builder, error) {
	buildSrc, err := source.New(cfg.BuildPath)
	if err != nil {
		return nil, errors.Wrap(err, "builder: open build source")
	}
	tmpSrc, err := source.New(cfg.TmpPath)
	if err != nil {
		return nil, errors.Wrap(err, "builder: open tmp source")
	}

	empty := make([]byte, s.PointSize())
	store := source.NewChunkStore(buildSrc.Resolve("chunks"))
	reg := registry.New(s, cfg.BaseDepth, cfg.FlatDepth, cfg.DiskDepth, cfg.ChunkPoints, empty, store, logger)

	return &Builder{
		cfg:         cfg,
		schema:      s,
		logger:      logger,
		manifest:    manifest.New(),
		registry:    reg,
		pool:        workerpool.New(cfg.NumThreads, logger),
		decoders:    decoder.NewRegistry(),
		buildSource: buildSrc,
		tmpSource:   tmpSrc,
	}, nil
}

// Decoders exposes the format registry so callers can register additional
// drivers before the first Insert (spec §6's "pluggable decoder"
// requirement).
func (b *Builder) Decoders() *decoder.Registry { return b.decoders }

// name derives this build's identifying name from the last path segment
// of buildPath, used to key staged input files under tmpPath (spec §10).
func (b *Builder) name() string {
	return filepath.Base(filepath.Clean(b.cfg.BuildPath))
}

// stagingName is the tmpPath key a remote input at origin is staged
// under: "<buildName>-<origin>".
func (b *Builder) stagingName(origin geom.Origin) string {
	return b.name() + "-" + strconv.FormatUint(uint64(origin), 10)
}

// Insert infers a decoder for path and, if one is found, allocates it an
// Origin and submits its ingest as a pool task. A path with no inferrable
// decoder is recorded as a manifest omission and reported to the caller
// without ever entering the pool, matching spec §4.6 and §7.
func (b *Builder) Insert(path string) (bool, error) {
	factory, ok := b.decoders.Infer(path)
	if !ok {
		b.manifest.AddOmission(path)
		return false, nil
	}

	origin := b.manifest.AddOrigin(path)
	b.pool.Add(func(ctx context.Context) error {
		return b.insertFile(ctx, path, origin, factory)
	})
	return true, nil
}

// insertFile stages a remote input locally if needed, then streams it
// through the decoder into the registry under a single per-task clipper
// (spec §4.5, §4.6). A decode failure is recorded against origin and does
// not abort the build; only a failure to clean up a staged file is fatal,
// since a leftover staged blob under tmpPath would otherwise silently
// accumulate across every subsequent build using the same tmpPath.
func (b *Builder) insertFile(ctx context.Context, path string, origin geom.Origin, factory decoder.Factory) error {
	src, err := source.New(path)
	if err != nil {
		b.manifest.AddFailure(origin, err.Error())
		return nil
	}

	localPath := path
	var stagedPath string
	if src.IsRemote() {
		data, err := src.GetRoot()
		if err != nil {
			b.manifest.AddFailure(origin, err.Error())
			return nil
		}
		stagedName := b.stagingName(origin)
		if err := b.tmpSource.Put(stagedName, data); err != nil {
			b.manifest.AddFailure(origin, err.Error())
			return nil
		}
		stagedPath = filepath.Join(b.cfg.TmpPath, stagedName)
		localPath = stagedPath
	}

	if err := b.decodeFile(localPath, origin, factory); err != nil {
		b.manifest.AddFailure(origin, err.Error())
	}

	if stagedPath != "" {
		if err := os.Remove(stagedPath); err != nil {
			return errors.Wrapf(err, "builder: remove staged file %s", stagedPath)
		}
	}
	return nil
}

func (b *Builder) decodeFile(localPath string, origin geom.Origin, factory decoder.Factory) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "builder: open %s", localPath)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	dec := factory(f)
	if err := dec.Prepare(b.schema); err != nil {
		return errors.Wrap(err, "builder: prepare decoder")
	}
	if b.cfg.Reprojection != nil {
		dec.SetSpatialReference(b.cfg.Reprojection.In)
	}

	clip := clipper.New(uint64(origin), b.registry)
	defer clip.Close()

	originOffset := b.schema.OriginOffset()
	dec.SetReadCb(func(view *decoder.View, pointID uint64) error {
		return b.insertPoint(view, origin, originOffset, clip)
	})

	if err := dec.Execute(); err != nil {
		return errors.Wrap(err, "builder: execute decoder")
	}
	return nil
}

// insertPoint discards points outside the build's bounding box (spec §7's
// bbox-containment toss), stamps the Origin field, and walks the point
// into the registry, updating the running counters with the outcome.
func (b *Builder) insertPoint(view *decoder.View, origin geom.Origin, originOffset uint32, clip *clipper.Clipper) error {
	p := geom.Point{X: view.X, Y: view.Y}

	root := geom.NewRoller(b.cfg.BBox)
	if !root.BBox().Contains(p) {
		atomic.AddInt64(&b.numTossed, 1)
		return nil
	}

	binary.LittleEndian.PutUint32(view.Data[originOffset:], uint32(origin))

	info := entry.PointInfo{Point: &p, Data: view.Data}
	kept, err := b.registry.AddPoint(info, root, clip)
	if err != nil {
		return err
	}
	if kept {
		atomic.AddInt64(&b.numPoints, 1)
	} else {
		atomic.AddInt64(&b.numTossed, 1)
	}
	return nil
}

// NumPoints returns the running count of points accepted into the tree.
func (b *Builder) NumPoints() int64 { return atomic.LoadInt64(&b.numPoints) }

// NumTossed returns the running count of points discarded, whether for
// falling outside the bbox or for losing every contention round in an
// exhausted tree (spec §8 E4).
func (b *Builder) NumTossed() int64 { return atomic.LoadInt64(&b.numTossed) }

// Manifest exposes the build's per-input bookkeeping.
func (b *Builder) Manifest() *manifest.Manifest { return b.manifest }
