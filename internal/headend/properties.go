package headend

import (
	"github.com/zsiec/pvrbridge/internal/backend"
	"github.com/zsiec/pvrbridge/internal/mpegts"
)

// propertiesFromPMT maps the elementary streams of a PMT to flat
// backend-native property records. The elementary PID doubles as the
// stream identifier.
func propertiesFromPMT(pmt *mpegts.PMTData) []backend.StreamProperties {
	props := make([]backend.StreamProperties, 0, len(pmt.ElementaryStreams))
	for _, es := range pmt.ElementaryStreams {
		p := backend.StreamProperties{ID: int(es.PID)}
		p.SetLanguage(es.Language)

		switch es.StreamType {
		case mpegts.StreamTypeMPEG2Video:
			p.Type = backend.TypeVideo
			p.Codec = backend.CodecIDMPEG2Video
		case mpegts.StreamTypeH264Video:
			p.Type = backend.TypeVideo
			p.Codec = backend.CodecIDH264
		case mpegts.StreamTypeHEVCVideo:
			p.Type = backend.TypeVideo
			p.Codec = backend.CodecIDHEVC
		case mpegts.StreamTypeMPEG1Audio, mpegts.StreamTypeMPEG2Audio:
			p.Type = backend.TypeAudio
			p.Codec = backend.CodecIDMPEG2Audio
		case mpegts.StreamTypeAACAudio:
			p.Type = backend.TypeAudio
			p.Codec = backend.CodecIDAAC
		case mpegts.StreamTypeAC3Audio:
			p.Type = backend.TypeAudio
			p.Codec = backend.CodecIDAC3
		case mpegts.StreamTypeEAC3Audio:
			p.Type = backend.TypeAudio
			p.Codec = backend.CodecIDEAC3
		case mpegts.StreamTypePrivateData:
			classifyPrivateStream(es, &p)
		default:
			p.Type = backend.TypeUnknown
		}

		props = append(props, p)
	}
	return props
}

// classifyPrivateStream inspects the ES descriptors of a private data
// stream. Teletext and DVB subtitles both surface as subtitle records,
// distinguished by codec; AC-3 family audio hides here too.
func classifyPrivateStream(es *mpegts.ElementaryStream, p *backend.StreamProperties) {
	switch {
	case es.Teletext != nil:
		p.Type = backend.TypeSubtitle
		p.Codec = backend.CodecIDTeletext
		p.SetLanguage(es.Teletext.Language)

	case es.Subtitle != nil:
		p.Type = backend.TypeSubtitle
		p.Codec = backend.CodecIDDVBSubtitle
		p.SetLanguage(es.Subtitle.Language)
		p.SubtitleInfo = packSubtitleInfo(es.Subtitle.CompositionPageID, es.Subtitle.AncillaryPageID)

	case es.EAC3:
		p.Type = backend.TypeAudio
		p.Codec = backend.CodecIDEAC3

	case es.AC3:
		p.Type = backend.TypeAudio
		p.Codec = backend.CodecIDAC3

	default:
		p.Type = backend.TypeData
	}
}

// packSubtitleInfo folds the DVB composition and ancillary page
// identifiers into the 32-bit subtitle info field.
func packSubtitleInfo(composition, ancillary uint16) uint32 {
	return uint32(ancillary>>8)<<24 |
		uint32(composition>>8)<<16 |
		uint32(ancillary&0xFF)<<8 |
		uint32(composition&0xFF)
}

// layoutChanged reports whether the set of streams differs between two
// property lists: an identifier appearing, disappearing, or switching
// classification. Property-only edits are not layout changes.
func layoutChanged(prev, next []backend.StreamProperties) bool {
	if len(prev) != len(next) {
		return true
	}

	kinds := make(map[int]backend.CodecType, len(prev))
	for _, p := range prev {
		kinds[p.ID] = p.Type
	}
	for _, n := range next {
		t, ok := kinds[n.ID]
		if !ok || t != n.Type {
			return true
		}
	}
	return false
}
