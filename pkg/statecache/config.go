package statecache

import (
	"github.com/agenthands/statekeys/pkg/core"
)

type Config = core.Config
type CatalogConfig = core.CatalogConfig
type TransformConfig = core.TransformConfig
type LimitsConfig = core.LimitsConfig
type PruneConfig = core.PruneConfig
type MetadataConfig = core.MetadataConfig
