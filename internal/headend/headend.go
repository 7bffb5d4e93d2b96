// Package headend implements a self-contained PVR backend: live channels
// fed over SRT, recordings served from transport stream files on disk.
// It exposes the channel lineup, resolves logical playback targets, and
// hands out per-session clients.
package headend

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/zsiec/pvrbridge/internal/backend"
	"github.com/zsiec/pvrbridge/internal/config"
)

// deletedDirName is the recordings subdirectory holding soft-deleted
// recordings, kept resolvable so playback attempts can be rejected
// distinctly from unknown targets.
const deletedDirName = "deleted"

// Headend owns the channel lineup and the recordings directory. It
// implements backend.Resolver.
type Headend struct {
	log           *slog.Logger
	recordingsDir string

	channels   map[int]*Channel
	byStreamID map[string]*Channel
}

// New builds a Headend from configuration. If log is nil, slog.Default()
// is used.
func New(cfg config.HeadendConfig, log *slog.Logger) *Headend {
	if log == nil {
		log = slog.Default()
	}

	h := &Headend{
		log:           log.With("component", "headend"),
		recordingsDir: cfg.RecordingsDir,
		channels:      make(map[int]*Channel, len(cfg.Channels)),
		byStreamID:    make(map[string]*Channel, len(cfg.Channels)),
	}

	for _, cc := range cfg.Channels {
		ch := newChannel(cc.ID, cc.Name, cc.StreamID, cc.Radio)
		h.channels[ch.ID] = ch
		if ch.StreamID != "" {
			h.byStreamID[ch.StreamID] = ch
		}
	}

	return h
}

// Channel returns the lineup entry for the given identifier.
func (h *Headend) Channel(id int) (*Channel, bool) {
	ch, ok := h.channels[id]
	return ch, ok
}

// channelByStreamKey returns the lineup entry fed by the given SRT stream
// key.
func (h *Headend) channelByStreamKey(key string) (*Channel, bool) {
	ch, ok := h.byStreamID[key]
	return ch, ok
}

// Stats returns feed metrics for every channel, ordered by channel id.
func (h *Headend) Stats() []ChannelStats {
	stats := make([]ChannelStats, 0, len(h.channels))
	for _, ch := range h.channels {
		stats = append(stats, ch.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats
}

// NewClient creates a fresh per-session client bound to this headend.
func (h *Headend) NewClient() *Client {
	return newClient(h, h.log)
}

// Resolve classifies a logical playback target against the lineup and the
// recordings directory.
func (h *Headend) Resolve(target string) (backend.Target, error) {
	kind, ident := backend.SplitTargetPath(target)

	switch kind {
	case backend.TargetLiveChannel:
		id, err := strconv.Atoi(ident)
		if err != nil {
			return backend.Target{}, nil
		}
		ch, ok := h.channels[id]
		if !ok {
			return backend.Target{}, nil
		}
		return backend.Target{
			Kind:    backend.TargetLiveChannel,
			Channel: backend.ChannelRef{ID: ch.ID, Name: ch.Name, Radio: ch.Radio},
		}, nil

	case backend.TargetRecording:
		return h.resolveRecording(ident)

	default:
		return backend.Target{}, nil
	}
}

func (h *Headend) resolveRecording(ident string) (backend.Target, error) {
	if ident == "" || strings.ContainsAny(ident, "/\\") {
		return backend.Target{}, nil
	}

	path := h.recordingPath(ident, false)
	if _, err := os.Stat(path); err == nil {
		return backend.Target{
			Kind:      backend.TargetRecording,
			Recording: backend.RecordingRef{ID: ident, Title: recordingTitle(ident)},
		}, nil
	} else if !os.IsNotExist(err) {
		return backend.Target{}, fmt.Errorf("headend: stat recording %s: %w", ident, err)
	}

	deleted := h.recordingPath(ident, true)
	if _, err := os.Stat(deleted); err == nil {
		return backend.Target{
			Kind:      backend.TargetDeletedRecording,
			Recording: backend.RecordingRef{ID: ident, Title: recordingTitle(ident), Deleted: true},
		}, nil
	} else if !os.IsNotExist(err) {
		return backend.Target{}, fmt.Errorf("headend: stat recording %s: %w", ident, err)
	}

	return backend.Target{}, nil
}

func (h *Headend) recordingPath(ident string, deleted bool) string {
	name := ident
	if !strings.HasSuffix(name, ".ts") {
		name += ".ts"
	}
	if deleted {
		return filepath.Join(h.recordingsDir, deletedDirName, name)
	}
	return filepath.Join(h.recordingsDir, name)
}

func recordingTitle(ident string) string {
	return strings.TrimSuffix(ident, ".ts")
}
