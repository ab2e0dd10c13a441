package memvec

import (
	"log/slog"

	"github.com/ragmem/memvec/blobstore"
	"github.com/ragmem/memvec/codec"
	"github.com/ragmem/memvec/snapshot"
)

const (
	// DefaultIndexArtifact is the default blob name of the vector artifact.
	DefaultIndexArtifact = "vectors.mvix"
	// DefaultMetadataArtifact is the default blob name of the metadata artifact.
	DefaultMetadataArtifact = "metadata.mvmd"
)

type options struct {
	store            blobstore.BlobStore
	indexArtifact    string
	metadataArtifact string
	codec            codec.Codec
	compression      snapshot.Compression
	metricsCollector MetricsCollector
	logger           *Logger
	parallelMinRows  int
}

// Option configures Store constructor behavior.
type Option func(*options)

// WithBlobStore configures the blob store snapshot artifacts are written to.
// The default is an in-memory store, meaning Persist is a no-op across
// process restarts.
func WithBlobStore(bs blobstore.BlobStore) Option {
	return func(o *options) {
		if bs != nil {
			o.store = bs
		}
	}
}

// WithPath is shorthand for WithBlobStore(blobstore.NewLocalStore(dir)).
func WithPath(dir string) Option {
	return WithBlobStore(blobstore.NewLocalStore(dir))
}

// WithArtifactNames overrides the blob names of the two snapshot artifacts.
// Useful when several stores share one blob store root.
func WithArtifactNames(index, meta string) Option {
	return func(o *options) {
		if index != "" {
			o.indexArtifact = index
		}
		if meta != "" {
			o.metadataArtifact = meta
		}
	}
}

// WithCodec configures the codec used for the metadata artifact.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures block compression of snapshot payloads.
func WithCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &memvec.BasicMetricsCollector{}
//	store, _ := memvec.New(384, memvec.WithMetricsCollector(metrics))
//	// ... use store ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Avg latency: %dns\n", stats.InsertCount, stats.InsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := memvec.NewJSONLogger(slog.LevelInfo)
//	store, _ := memvec.New(384, memvec.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithParallelThreshold sets the row count above which search scores
// entries on multiple goroutines. Set very high to force sequential scans.
func WithParallelThreshold(rows int) Option {
	return func(o *options) {
		if rows > 0 {
			o.parallelMinRows = rows
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		store:            blobstore.NewMemoryStore(),
		indexArtifact:    DefaultIndexArtifact,
		metadataArtifact: DefaultMetadataArtifact,
		codec:            codec.Default,
		compression:      snapshot.CompressionZstd,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		parallelMinRows:  defaultParallelMinRows,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
