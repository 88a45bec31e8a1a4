package metadata

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/agenthands/statekeys/pkg/core"
	"github.com/agenthands/statekeys/pkg/hasher"
	"github.com/fxamacker/cbor/v2"
)

// Shape classifies a storage item by its key arity.
type Shape uint8

const (
	Plain Shape = iota
	Map
	DoubleMap
	NMap
)

func (s Shape) String() string {
	switch s {
	case Plain:
		return "plain"
	case Map:
		return "map"
	case DoubleMap:
		return "double_map"
	default:
		return "nmap"
	}
}

// Entry describes how the keys of one storage item are built.
type Entry struct {
	Pallet  string        `cbor:"pallet"`
	Item    string        `cbor:"item"`
	Hashers []hasher.Kind `cbor:"hashers,omitempty"`
}

// Arity is the number of key arguments the item expects.
func (e Entry) Arity() int { return len(e.Hashers) }

func (e Entry) Shape() Shape {
	switch len(e.Hashers) {
	case 0:
		return Plain
	case 1:
		return Map
	case 2:
		return DoubleMap
	default:
		return NMap
	}
}

// Provider supplies storage entry descriptions for (pallet, item) pairs.
type Provider interface {
	Lookup(pallet, item string) (Entry, error)
}

// Registry is an in-memory Provider. Lookups match names exactly.
type Registry struct {
	mu      sync.RWMutex
	entries map[entryID]Entry
}

type entryID struct {
	pallet, item string
}

// NewRegistry returns a registry holding the given entries.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[entryID]Entry, len(entries))}
	for _, e := range entries {
		if err := r.Add(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers e, replacing any entry with the same pallet and item.
func (r *Registry) Add(e Entry) error {
	if e.Pallet == "" || e.Item == "" {
		return fmt.Errorf("%w: entry needs pallet and item names", core.ErrInvalidIdentifier)
	}
	for i, h := range e.Hashers {
		if !h.Valid() {
			return fmt.Errorf("%w: %s.%s hasher %d is %d", core.ErrUnknownHasherKind, e.Pallet, e.Item, i, uint8(h))
		}
	}

	cp := Entry{Pallet: e.Pallet, Item: e.Item, Hashers: append([]hasher.Kind(nil), e.Hashers...)}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryID{e.Pallet, e.Item}] = cp
	return nil
}

func (r *Registry) Lookup(pallet, item string) (Entry, error) {
	r.mu.RLock()
	e, ok := r.entries[entryID{pallet, item}]
	r.mu.RUnlock()
	if !ok {
		return Entry{}, fmt.Errorf("%w: storage entry %s.%s", core.ErrNotFound, pallet, item)
	}
	e.Hashers = append([]hasher.Kind(nil), e.Hashers...)
	return e, nil
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Entries returns all entries ordered by pallet then item.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Pallet != out[j].Pallet {
			return out[i].Pallet < out[j].Pallet
		}
		return out[i].Item < out[j].Item
	})
	return out
}

// RegistryV1 is the on-disk format of a registry file.
type RegistryV1 struct {
	Version uint16  `cbor:"version"`
	Entries []Entry `cbor:"entries"`
}

// Codec defines registry encoding/decoding and validation.
type Codec interface {
	Encode(r *Registry) ([]byte, error)
	Decode(b []byte) (*Registry, error)
}

type codec struct {
	limits  core.LimitsConfig
	encMode cbor.EncMode
}

// NewCodec returns a new Codec implementation.
func NewCodec(limits core.LimitsConfig) Codec {
	// Canonical CBOR so equal registries encode to equal bytes
	em, _ := cbor.CanonicalEncOptions().EncMode()
	return &codec{
		limits:  limits,
		encMode: em,
	}
}

func (c *codec) Encode(r *Registry) ([]byte, error) {
	doc := &RegistryV1{Version: 1, Entries: r.Entries()}
	if err := c.validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return c.encMode.Marshal(doc)
}

func (c *codec) Decode(b []byte) (*Registry, error) {
	var doc RegistryV1
	if err := cbor.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal registry: %v", core.ErrCorrupt, err)
	}

	if err := c.validate(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCorrupt, err)
	}

	return NewRegistry(doc.Entries...)
}

func (c *codec) validate(doc *RegistryV1) error {
	if doc.Version != 1 {
		return fmt.Errorf("unsupported registry version %d", doc.Version)
	}

	if len(doc.Entries) > c.limits.MaxEntries && c.limits.MaxEntries > 0 {
		return fmt.Errorf("too many entries: %d > %d", len(doc.Entries), c.limits.MaxEntries)
	}

	seen := make(map[entryID]struct{}, len(doc.Entries))
	for i, e := range doc.Entries {
		if e.Pallet == "" || e.Item == "" {
			return fmt.Errorf("entry %d has an empty name", i)
		}
		if n := c.limits.MaxIdentifierLen; n > 0 && (len(e.Pallet) > n || len(e.Item) > n) {
			return fmt.Errorf("entry %s.%s: identifier longer than %d", e.Pallet, e.Item, n)
		}
		if len(e.Hashers) > c.limits.MaxHashers && c.limits.MaxHashers > 0 {
			return fmt.Errorf("entry %s.%s: too many hashers: %d > %d", e.Pallet, e.Item, len(e.Hashers), c.limits.MaxHashers)
		}
		for _, h := range e.Hashers {
			if !h.Valid() {
				return fmt.Errorf("entry %s.%s: unknown hasher %d", e.Pallet, e.Item, uint8(h))
			}
		}

		id := entryID{e.Pallet, e.Item}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate entry %s.%s", e.Pallet, e.Item)
		}
		seen[id] = struct{}{}
	}

	return nil
}

// LoadFile reads a registry file written by SaveFile.
func LoadFile(path string, limits core.LimitsConfig) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return NewCodec(limits).Decode(b)
}

// SaveFile writes r to path in canonical CBOR.
func SaveFile(path string, r *Registry, limits core.LimitsConfig) error {
	b, err := NewCodec(limits).Encode(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// FromConfig loads the registry named by cfg, or the built-in one when no
// path is set.
func FromConfig(cfg core.MetadataConfig, limits core.LimitsConfig) (*Registry, error) {
	if cfg.Path == "" {
		return Builtin(), nil
	}
	return LoadFile(cfg.Path, limits)
}
