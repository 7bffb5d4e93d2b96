package stream

import (
	"log/slog"

	"github.com/zsiec/pvrbridge/internal/backend"
)

// Catalog owns the mapping from backend-assigned stream identifiers to
// descriptors and reconciles it against each new property snapshot. It has
// no internal locking: the surrounding player serializes all access to one
// playback session.
type Catalog struct {
	log              *slog.Logger
	includeAncillary bool
	streams          map[int]*Descriptor
}

// NewCatalog creates an empty catalog. includeAncillary controls whether
// ancillary-data records are surfaced as typed streams. If log is nil,
// slog.Default() is used.
func NewCatalog(includeAncillary bool, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{
		log:              log.With("component", "stream-catalog"),
		includeAncillary: includeAncillary,
		streams:          make(map[int]*Descriptor),
	}
}

// Reconcile updates the catalog from a backend property snapshot. Records
// whose id already maps to a descriptor of the same kind update that
// descriptor in place, preserving its identity so attached decoders survive
// the refresh. A record whose kind changed, or whose id is new, gets a
// fresh descriptor; descriptors absent from the snapshot are dropped. The
// mapping is replaced in one step, so readers never observe a partial
// update.
func (c *Catalog) Reconcile(records []backend.StreamProperties) {
	next := make(map[int]*Descriptor, len(records))

	for _, rec := range records {
		kind := classify(rec, c.includeAncillary)

		if existing, ok := c.streams[rec.ID]; ok && existing.Kind == kind {
			existing.update(rec)
			next[rec.ID] = existing
			continue
		}

		d := newDescriptor(rec, kind)
		next[rec.ID] = d
		c.log.Debug("stream descriptor created",
			"id", d.ID, "kind", d.Kind.String(), "codec", uint32(d.Codec), "language", d.Language)
	}

	for id, old := range c.streams {
		if _, ok := next[id]; !ok {
			c.log.Debug("stream descriptor dropped", "id", id, "kind", old.Kind.String())
		}
	}

	c.streams = next
}

// Lookup returns the descriptor for a stream id, or false when the id is
// not in the catalog.
func (c *Catalog) Lookup(id int) (*Descriptor, bool) {
	d, ok := c.streams[id]
	return d, ok
}

// Snapshot returns all live descriptors in no guaranteed order.
func (c *Catalog) Snapshot() []*Descriptor {
	out := make([]*Descriptor, 0, len(c.streams))
	for _, d := range c.streams {
		out = append(out, d)
	}
	return out
}

// Count returns the number of catalog entries.
func (c *Catalog) Count() int {
	return len(c.streams)
}

// Clear drops all entries. Called when the playback session closes; no
// descriptor survives beyond one open/close cycle.
func (c *Catalog) Clear() {
	c.streams = make(map[int]*Descriptor)
}
