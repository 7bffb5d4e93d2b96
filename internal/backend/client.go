// Package backend defines the narrow surface consumed from a pluggable
// media backend: live and recorded stream control, raw byte access,
// server-side demultiplexing, and the flat stream-property records the
// backend reports for its elementary streams.
package backend

// CodecType is the generic classification tag a backend attaches to each
// elementary stream it reports.
type CodecType int

// Generic stream classification tags.
const (
	TypeUnknown CodecType = iota
	TypeVideo
	TypeAudio
	TypeData
	TypeSubtitle
	TypeRDS
)

// CodecID identifies the codec of an elementary stream. The value space is
// shared between the backend and the player so that decoders can be matched
// without inspecting payload bytes.
type CodecID uint32

// Known codec identifiers.
const (
	CodecIDNone CodecID = iota
	CodecIDMPEG2Video
	CodecIDH264
	CodecIDHEVC
	CodecIDMPEG2Audio
	CodecIDAAC
	CodecIDAC3
	CodecIDEAC3
	CodecIDDVBSubtitle
	CodecIDTeletext
	CodecIDRDS
)

// Reserved stream identifiers carried by demux packets. Packets tagged with
// these values signal a metadata event instead of decodable payload.
const (
	// StreamIDInfo marks a packet that announces updated stream properties.
	// The packet itself carries no payload to decode.
	StreamIDInfo = -1

	// StreamIDChange marks a packet that announces a changed stream layout.
	// No packet is deliverable for the read that observes it.
	StreamIDChange = -2
)

// NoPTS is the timestamp value used when a packet carries no PTS or DTS.
const NoPTS int64 = -1

// StreamProperties is one record of the backend's flat property list,
// describing a single elementary stream in backend-native terms. Fields
// outside the record's own classification are left zero.
type StreamProperties struct {
	ID       int
	Type     CodecType
	Codec    CodecID
	Language [4]byte

	// Audio fields.
	Channels      int
	SampleRate    int
	BlockAlign    int
	BitRate       int
	BitsPerSample int

	// Video fields.
	FPSNum int
	FPSDen int
	Width  int
	Height int
	Aspect float64

	// Subtitle fields. SubtitleInfo packs the DVB composition and
	// ancillary page identifiers into a single 32-bit value.
	SubtitleInfo uint32
}

// LanguageCode returns the language field as a string with trailing
// NUL padding removed.
func (p StreamProperties) LanguageCode() string {
	b := p.Language[:]
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}

// SetLanguage stores up to four bytes of code into the language field.
func (p *StreamProperties) SetLanguage(code string) {
	p.Language = [4]byte{}
	copy(p.Language[:], code)
}

// DemuxPacket is one demultiplexed packet delivered by a backend that
// performs its own demultiplexing. StreamID is either the identifier of a
// reported elementary stream or one of the reserved identifiers above.
// PTS and DTS are in microseconds, NoPTS when absent.
type DemuxPacket struct {
	StreamID int
	PTS      int64
	DTS      int64
	Duration int64
	Data     []byte
}

// StreamTimes reports the timing window of the stream currently playing.
// Start is the wall-clock start in Unix milliseconds; the PTS fields are
// in microseconds.
type StreamTimes struct {
	Start    int64
	PTSStart int64
	PTSBegin int64
	PTSEnd   int64
}

// Client is the per-session capability surface of one backend. A Client
// serves at most one open stream at a time; all methods refer to that
// stream. Implementations are expected to tolerate calls when no stream
// is open by returning neutral values.
type Client interface {
	// OpenLiveStream tunes the backend to a broadcast channel.
	OpenLiveStream(channel ChannelRef) error

	// OpenRecordedStream opens a previously recorded program.
	OpenRecordedStream(recording RecordingRef) error

	// CloseStream releases the open stream, if any.
	CloseStream()

	// ReadStream reads raw container bytes from the open stream. A zero
	// count with a nil error means the backend has nothing more to deliver.
	ReadStream(p []byte) (int, error)

	// SeekStream repositions the raw byte stream. A negative result means
	// the seek was not honored.
	SeekStream(offset int64, whence int) (int64, error)

	// StreamLength reports the total byte length, or a non-positive value
	// when unknown.
	StreamLength() int64

	// StreamTimes reports the current timing window.
	StreamTimes() (StreamTimes, error)

	CanSeekStream() bool
	CanPauseStream() bool
	PauseStream(paused bool) error
	SetSpeed(speed int)

	// DemuxRead returns the next demultiplexed packet, or nil when none is
	// available yet. Only meaningful for backends that demultiplex
	// server-side.
	DemuxRead() (*DemuxPacket, error)

	// StreamProperties returns the current flat list of elementary stream
	// records for the open stream.
	StreamProperties() ([]StreamProperties, error)

	// DemuxAbort cancels an in-flight DemuxRead.
	DemuxAbort()

	// DemuxFlush discards buffered packets after a seek or
	// reconfiguration.
	DemuxFlush()

	// SeekTime seeks to the given absolute time in milliseconds. It
	// reports the achieved start presentation timestamp in microseconds
	// and whether the seek was honored.
	SeekTime(millis int, backwards bool) (startPTS int64, ok bool)

	IsRealTimeStream() bool

	CanRecordInstantly() bool
	IsRecordingOnPlayingChannel() bool
	StartRecordingOnPlayingChannel(on bool) error

	// CurrentInputFormat reports the container MIME type of the open
	// stream, or the empty string when the backend demultiplexes the
	// stream itself and no container format applies.
	CurrentInputFormat() string
}
