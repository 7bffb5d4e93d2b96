package mpegts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

// sectionPayload wraps a PSI section with a zero pointer field for
// embedding in a TS packet.
func sectionPayload(section []byte) []byte {
	payload := make([]byte, 1+len(section))
	copy(payload[1:], section)
	return payload
}

func TestDemuxer_Synthetic(t *testing.T) {
	t.Parallel()
	// Build a synthetic TS stream: PAT, PMT, then interleaved PES.
	var stream bytes.Buffer

	pat := buildPAT(1, []struct{ num, pid uint16 }{{1, 0x1000}})
	stream.Write(tsPacket(0x0000, 0, true, sectionPayload(pat)))

	pmt := buildPMT(1, 0x100, 0, []pmtStream{
		{streamType: StreamTypeH264Video, pid: 0x100},
		{streamType: StreamTypeAACAudio, pid: 0x101, esInfo: descriptor(descTagISO639Language, []byte{'e', 'n', 'g', 0x00})},
	})
	stream.Write(tsPacket(0x1000, 0, true, sectionPayload(pmt)))

	videoData := []byte{0x00, 0x00, 0x00, 0x01, 0x65}
	stream.Write(tsPacket(0x100, 0, true, buildPESPacket(0xE0, 90000, 0, true, false, videoData)))

	audioData := []byte{0xFF, 0xF1, 0x50, 0x40}
	stream.Write(tsPacket(0x101, 0, true, buildPESPacket(0xC0, 90000, 0, true, false, audioData)))

	// Second PES on each PID triggers flush of the first.
	stream.Write(tsPacket(0x100, 1, true, buildPESPacket(0xE0, 93754, 0, true, false, videoData)))
	stream.Write(tsPacket(0x101, 1, true, buildPESPacket(0xC0, 97680, 0, true, false, audioData)))

	dmx := NewDemuxer(context.Background(), &stream)

	var gotPAT, gotPMT bool
	var videoPTS, audioPTS []int64

	for {
		data, err := dmx.NextData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}

		switch {
		case data.PAT != nil:
			gotPAT = true
			if len(data.PAT.Programs) != 1 {
				t.Errorf("PAT programs = %d, want 1", len(data.PAT.Programs))
			}

		case data.PMT != nil:
			gotPMT = true
			if len(data.PMT.ElementaryStreams) != 2 {
				t.Errorf("PMT streams = %d, want 2", len(data.PMT.ElementaryStreams))
			}
			if lang := data.PMT.ElementaryStreams[1].Language; lang != "eng" {
				t.Errorf("audio language = %q, want eng", lang)
			}

		case data.PES != nil:
			oh := data.PES.Header.OptionalHeader
			if oh == nil || oh.PTS == nil {
				continue
			}
			switch data.PID {
			case 0x100:
				videoPTS = append(videoPTS, oh.PTS.Base)
			case 0x101:
				audioPTS = append(audioPTS, oh.PTS.Base)
			}
		}
	}

	if !gotPAT {
		t.Error("did not receive PAT")
	}
	if !gotPMT {
		t.Error("did not receive PMT")
	}
	if len(videoPTS) < 1 || videoPTS[0] != 90000 {
		t.Errorf("video PTS = %v, want first 90000", videoPTS)
	}
	if len(audioPTS) < 1 || audioPTS[0] != 90000 {
		t.Errorf("audio PTS = %v, want first 90000", audioPTS)
	}
}

func TestDemuxer_PMTVersionChange(t *testing.T) {
	t.Parallel()
	var stream bytes.Buffer

	pat := buildPAT(1, []struct{ num, pid uint16 }{{1, 0x1000}})
	stream.Write(tsPacket(0x0000, 0, true, sectionPayload(pat)))

	pmtV0 := buildPMT(1, 0x100, 0, []pmtStream{
		{streamType: StreamTypeH264Video, pid: 0x100},
	})
	stream.Write(tsPacket(0x1000, 0, true, sectionPayload(pmtV0)))

	pmtV1 := buildPMT(1, 0x100, 1, []pmtStream{
		{streamType: StreamTypeH264Video, pid: 0x100},
		{streamType: StreamTypeAACAudio, pid: 0x101},
	})
	stream.Write(tsPacket(0x1000, 1, true, sectionPayload(pmtV1)))

	dmx := NewDemuxer(context.Background(), &stream)

	var versions []uint8
	for {
		data, err := dmx.NextData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if data.PMT != nil {
			versions = append(versions, data.PMT.Version)
		}
	}

	if len(versions) != 2 {
		t.Fatalf("PMT count = %d, want 2", len(versions))
	}
	if versions[0] != 0 || versions[1] != 1 {
		t.Errorf("versions = %v, want [0 1]", versions)
	}
}

func TestDemuxer_EOF(t *testing.T) {
	t.Parallel()
	dmx := NewDemuxer(context.Background(), bytes.NewReader(nil))

	_, err := dmx.NextData()
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDemuxer_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dmx := NewDemuxer(ctx, bytes.NewReader(make([]byte, 1000)))

	_, err := dmx.NextData()
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDemuxer_CorruptPacketSkipped(t *testing.T) {
	t.Parallel()
	var stream bytes.Buffer

	pat := buildPAT(1, []struct{ num, pid uint16 }{{1, 0x1000}})
	stream.Write(tsPacket(0x0000, 0, true, sectionPayload(pat)))

	corrupt := make([]byte, PacketSize)
	corrupt[0] = 0x00
	stream.Write(corrupt)

	stream.Write(tsPacket(0x0000, 1, true, sectionPayload(pat)))

	dmx := NewDemuxer(context.Background(), &stream)

	gotPAT := 0
	for {
		data, err := dmx.NextData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if data.PAT != nil {
			gotPAT++
		}
	}

	if gotPAT == 0 {
		t.Error("should have parsed at least one PAT despite corrupt packet")
	}
}
