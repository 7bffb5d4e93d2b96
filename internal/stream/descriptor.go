// Package stream models the typed elementary streams exposed to the player
// and the catalog that reconciles them against the backend's periodically
// refreshed property records.
package stream

import (
	"fmt"

	"github.com/zsiec/pvrbridge/internal/backend"
)

// Kind is the elementary stream classification visible to the player.
type Kind int

// Stream kinds, in classification precedence order.
const (
	KindUnknown Kind = iota
	KindAudio
	KindVideo
	KindSubtitle
	KindTeletext
	KindAncillary
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	case KindSubtitle:
		return "subtitle"
	case KindTeletext:
		return "teletext"
	case KindAncillary:
		return "ancillary"
	default:
		return "unknown"
	}
}

// AudioProps carries the audio-specific fields of a descriptor.
type AudioProps struct {
	Channels      int
	SampleRate    int
	BlockAlign    int
	BitRate       int
	BitsPerSample int
}

// VideoProps carries the video-specific fields of a descriptor. StereoMode
// is fixed to "mono": broadcast backends do not signal stereoscopic layouts.
type VideoProps struct {
	FPSNum     int
	FPSDen     int
	Width      int
	Height     int
	Aspect     float64
	StereoMode string
}

// SubtitleProps carries the subtitle-specific fields of a descriptor.
// Extra is the 4-byte page descriptor handed to the subtitle decoder,
// nil when the backend reported no subtitle info.
type SubtitleProps struct {
	Extra []byte
}

// Descriptor is the identity-stable representation of one elementary
// stream. Exactly the payload field matching Kind is non-nil. Decoders hold
// the *Descriptor across catalog refreshes; as long as the backend keeps
// reporting the same kind for the stream id, the pointer stays valid and
// only the fields change underneath it.
type Descriptor struct {
	ID       int
	Kind     Kind
	Codec    backend.CodecID
	Language string
	Realtime bool

	Audio    *AudioProps
	Video    *VideoProps
	Subtitle *SubtitleProps
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("stream %d (%s codec=%d lang=%q)", d.ID, d.Kind, d.Codec, d.Language)
}

// classify maps a backend property record to a stream kind. The precedence
// is a contract: audio and video type tags win first, then the teletext
// codec identifier is checked before the subtitle type tag, so a record
// tagged subtitle but carrying the teletext codec is teletext. Ancillary
// data records are surfaced only when enabled; everything else, including
// ancillary records while disabled, is an untyped descriptor.
func classify(rec backend.StreamProperties, includeAncillary bool) Kind {
	switch {
	case rec.Type == backend.TypeAudio:
		return KindAudio
	case rec.Type == backend.TypeVideo:
		return KindVideo
	case rec.Codec == backend.CodecIDTeletext:
		return KindTeletext
	case rec.Type == backend.TypeSubtitle:
		return KindSubtitle
	case rec.Type == backend.TypeRDS && includeAncillary:
		return KindAncillary
	default:
		return KindUnknown
	}
}

// newDescriptor builds a fresh descriptor of the given kind from a backend
// record. Streams delivered through this session type are always realtime.
func newDescriptor(rec backend.StreamProperties, kind Kind) *Descriptor {
	d := &Descriptor{
		ID:       rec.ID,
		Kind:     kind,
		Realtime: true,
	}
	d.update(rec)
	return d
}

// update refreshes the descriptor's fields in place from a backend record
// of the same kind, preserving the descriptor's identity.
func (d *Descriptor) update(rec backend.StreamProperties) {
	d.Codec = rec.Codec
	d.Language = rec.LanguageCode()

	switch d.Kind {
	case KindAudio:
		if d.Audio == nil {
			d.Audio = &AudioProps{}
		}
		d.Audio.Channels = rec.Channels
		d.Audio.SampleRate = rec.SampleRate
		d.Audio.BlockAlign = rec.BlockAlign
		d.Audio.BitRate = rec.BitRate
		d.Audio.BitsPerSample = rec.BitsPerSample
	case KindVideo:
		if d.Video == nil {
			d.Video = &VideoProps{}
		}
		d.Video.FPSNum = rec.FPSNum
		d.Video.FPSDen = rec.FPSDen
		d.Video.Width = rec.Width
		d.Video.Height = rec.Height
		d.Video.Aspect = rec.Aspect
		d.Video.StereoMode = "mono"
	case KindSubtitle:
		if d.Subtitle == nil {
			d.Subtitle = &SubtitleProps{}
		}
		if rec.SubtitleInfo != 0 {
			d.Subtitle.Extra = subtitleExtra(rec.SubtitleInfo)
		} else {
			d.Subtitle.Extra = nil
		}
	}
}

// subtitleExtra unpacks the backend's packed 32-bit subtitle info into the
// 4-byte descriptor the subtitle decoder expects. The emission order is
// fixed: 0xAABBCCDD becomes [0xBB, 0xDD, 0xAA, 0xCC].
func subtitleExtra(info uint32) []byte {
	return []byte{
		byte(info >> 16),
		byte(info),
		byte(info >> 24),
		byte(info >> 8),
	}
}
