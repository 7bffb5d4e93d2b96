package backend

import (
	"strconv"
	"strings"
)

// TargetKind classifies a logical playback target path.
type TargetKind int

// Target classifications.
const (
	TargetUnknown TargetKind = iota
	TargetLiveChannel
	TargetRecording
	TargetDeletedRecording
)

func (k TargetKind) String() string {
	switch k {
	case TargetLiveChannel:
		return "live-channel"
	case TargetRecording:
		return "recording"
	case TargetDeletedRecording:
		return "deleted-recording"
	default:
		return "unknown"
	}
}

// ChannelRef identifies a broadcast channel in the backend's lineup.
type ChannelRef struct {
	ID    int
	Name  string
	Radio bool
}

// RecordingRef identifies a recorded program.
type RecordingRef struct {
	ID      string
	Title   string
	Deleted bool
}

// Target is the result of classifying a logical playback path. Exactly the
// field matching Kind is populated.
type Target struct {
	Kind      TargetKind
	Channel   ChannelRef
	Recording RecordingRef
}

// Resolver classifies a logical target path against the backend's channel
// and recording catalogs. Paths outside both catalogs resolve to
// TargetUnknown without error; only lookup failures are reported as errors.
type Resolver interface {
	Resolve(target string) (Target, error)
}

// Path prefixes for logical playback targets.
const (
	channelPathPrefix   = "pvr://channels/"
	recordingPathPrefix = "pvr://recordings/"
)

// SplitTargetPath parses a logical target path into its category and
// trailing identifier. Category is TargetLiveChannel or TargetRecording for
// recognized prefixes and TargetUnknown otherwise; resolvers decide whether
// the identifier exists and whether a recording is deleted.
func SplitTargetPath(target string) (TargetKind, string) {
	switch {
	case strings.HasPrefix(target, channelPathPrefix):
		return TargetLiveChannel, strings.TrimPrefix(target, channelPathPrefix)
	case strings.HasPrefix(target, recordingPathPrefix):
		return TargetRecording, strings.TrimPrefix(target, recordingPathPrefix)
	default:
		return TargetUnknown, ""
	}
}

// ChannelPath builds the logical path for a channel identifier.
func ChannelPath(id int) string {
	return channelPathPrefix + strconv.Itoa(id)
}

// RecordingPath builds the logical path for a recording identifier.
func RecordingPath(id string) string {
	return recordingPathPrefix + id
}
