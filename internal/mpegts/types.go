// Package mpegts implements MPEG-TS demuxing for transport stream parsing.
// It supports PAT/PMT discovery with elementary stream descriptor parsing,
// and PES reassembly with PTS/DTS extraction.
package mpegts

// ISO/IEC 13818-1 stream_type values carried in the PMT.
const (
	StreamTypeMPEG2Video  uint8 = 0x02
	StreamTypeMPEG1Audio  uint8 = 0x03
	StreamTypeMPEG2Audio  uint8 = 0x04
	StreamTypePrivateData uint8 = 0x06
	StreamTypeAACAudio    uint8 = 0x0F
	StreamTypeH264Video   uint8 = 0x1B
	StreamTypeHEVCVideo   uint8 = 0x24
	StreamTypeAC3Audio    uint8 = 0x81
	StreamTypeEAC3Audio   uint8 = 0x87
)

// Packet is a parsed 188-byte MPEG-TS transport stream packet.
type Packet struct {
	Header  PacketHeader
	Payload []byte
}

// PacketHeader contains the parsed header fields of a transport stream packet.
type PacketHeader struct {
	PID                       uint16
	ContinuityCounter         uint8
	HasAdaptationField        bool
	HasPayload                bool
	PayloadUnitStartIndicator bool
	TransportErrorIndicator   bool
	DiscontinuityIndicator    bool
	RandomAccessIndicator     bool
}

// DemuxerData is the output of the demuxer for each logical unit (PAT, PMT,
// or PES packet). Exactly one of PAT, PMT, or PES will be non-nil.
type DemuxerData struct {
	PID uint16
	PAT *PATData
	PMT *PMTData
	PES *PESData
}

// PATData contains the parsed Program Association Table.
type PATData struct {
	TransportStreamID uint16
	Programs          []*PATProgram
}

// PATProgram maps a program number to its PMT PID.
type PATProgram struct {
	ProgramMapID  uint16
	ProgramNumber uint16
}

// PMTData contains the parsed Program Map Table.
type PMTData struct {
	ProgramNumber     uint16
	Version           uint8
	PCRPID            uint16
	ElementaryStreams []*ElementaryStream
}

// ElementaryStream describes a single elementary stream in a PMT,
// including the ES descriptors needed for stream classification.
type ElementaryStream struct {
	PID        uint16
	StreamType uint8

	// From the ISO 639 language descriptor, empty if absent.
	Language  string
	AudioType uint8

	// Descriptor-driven natures for private data streams.
	Teletext *TeletextDescriptor
	Subtitle *SubtitlingDescriptor
	AC3      bool
	EAC3     bool
}

// TeletextDescriptor is the first entry of a teletext descriptor (tag 0x56).
type TeletextDescriptor struct {
	Language    string
	Type        uint8
	MagazineNum uint8
	PageNum     uint8
}

// SubtitlingDescriptor is the first entry of a DVB subtitling descriptor
// (tag 0x59).
type SubtitlingDescriptor struct {
	Language          string
	SubtitlingType    uint8
	CompositionPageID uint16
	AncillaryPageID   uint16
}

// PESData contains a reassembled Packetized Elementary Stream.
type PESData struct {
	Data   []byte
	Header *PESHeader
}

// PESHeader contains the parsed PES packet header.
type PESHeader struct {
	OptionalHeader *PESOptionalHeader
	StreamID       uint8
}

// PESOptionalHeader carries optional PES fields including timestamps.
type PESOptionalHeader struct {
	PTS *ClockReference
	DTS *ClockReference
}

// ClockReference holds a 33-bit MPEG-TS timestamp base value (90 kHz clock).
type ClockReference struct {
	Base int64
}

// Micros converts the 90 kHz timestamp to microseconds.
func (c *ClockReference) Micros() int64 {
	return c.Base * 100 / 9
}
