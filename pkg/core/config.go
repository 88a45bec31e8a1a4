package core

import (
	"time"
)

type Config struct {
	Dir string // cache root

	Catalog   CatalogConfig
	Transform TransformConfig
	Limits    LimitsConfig
	Prune     PruneConfig
	Metadata  MetadataConfig
}

type CatalogConfig struct {
	Dir string
}

// TransformConfig selects how values are stored on disk. It is fixed for a
// cache directory: values written under one transform read back as
// ErrCorrupt under another.
type TransformConfig struct {
	Name      string
	ZstdLevel int
}

type LimitsConfig struct {
	MaxValueBytes    uint64
	MaxEntries       int
	MaxIdentifierLen int
	MaxHashers       int
}

type PruneConfig struct {
	Enabled  bool
	MaxAge   time.Duration
	RunEvery time.Duration
}

type MetadataConfig struct {
	// Path to a CBOR registry file. Empty means the built-in registry.
	Path string
}
