package stream

import (
	"bytes"
	"testing"

	"github.com/zsiec/pvrbridge/internal/backend"
)

func TestSubtitleExtraByteOrder(t *testing.T) {
	t.Parallel()
	got := subtitleExtra(0xAABBCCDD)
	want := []byte{0xBB, 0xDD, 0xAA, 0xCC}
	if !bytes.Equal(got, want) {
		t.Errorf("subtitleExtra(0xAABBCCDD) = % X, want % X", got, want)
	}
}

func TestClassifyPrecedence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		rec       backend.StreamProperties
		ancillary bool
		want      Kind
	}{
		{"audio tag", backend.StreamProperties{Type: backend.TypeAudio, Codec: backend.CodecIDAAC}, false, KindAudio},
		{"video tag", backend.StreamProperties{Type: backend.TypeVideo, Codec: backend.CodecIDH264}, false, KindVideo},
		{"subtitle tag", backend.StreamProperties{Type: backend.TypeSubtitle, Codec: backend.CodecIDDVBSubtitle}, false, KindSubtitle},
		// The teletext codec wins even when the generic tag says subtitle.
		{"teletext codec under subtitle tag", backend.StreamProperties{Type: backend.TypeSubtitle, Codec: backend.CodecIDTeletext}, false, KindTeletext},
		{"teletext codec under data tag", backend.StreamProperties{Type: backend.TypeData, Codec: backend.CodecIDTeletext}, false, KindTeletext},
		// Audio and video tags win over the teletext codec check.
		{"audio tag with teletext codec", backend.StreamProperties{Type: backend.TypeAudio, Codec: backend.CodecIDTeletext}, false, KindAudio},
		{"ancillary enabled", backend.StreamProperties{Type: backend.TypeRDS, Codec: backend.CodecIDRDS}, true, KindAncillary},
		{"ancillary disabled falls to unknown", backend.StreamProperties{Type: backend.TypeRDS, Codec: backend.CodecIDRDS}, false, KindUnknown},
		{"data tag", backend.StreamProperties{Type: backend.TypeData}, false, KindUnknown},
	}
	for _, tt := range tests {
		if got := classify(tt.rec, tt.ancillary); got != tt.want {
			t.Errorf("%s: classify = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewDescriptorAudio(t *testing.T) {
	t.Parallel()
	rec := backend.StreamProperties{
		ID:            17,
		Type:          backend.TypeAudio,
		Codec:         backend.CodecIDAC3,
		Channels:      6,
		SampleRate:    48000,
		BlockAlign:    4,
		BitRate:       448000,
		BitsPerSample: 16,
	}
	rec.SetLanguage("ger")

	d := newDescriptor(rec, classify(rec, false))
	if d.Kind != KindAudio {
		t.Fatalf("kind = %v, want audio", d.Kind)
	}
	if !d.Realtime {
		t.Error("descriptor should be realtime")
	}
	if d.Language != "ger" {
		t.Errorf("language = %q, want %q", d.Language, "ger")
	}
	if d.Audio == nil {
		t.Fatal("audio payload missing")
	}
	if d.Video != nil || d.Subtitle != nil {
		t.Error("non-audio payloads should be nil")
	}
	if d.Audio.Channels != 6 || d.Audio.SampleRate != 48000 || d.Audio.BitRate != 448000 {
		t.Errorf("audio payload = %+v", d.Audio)
	}
}

func TestNewDescriptorVideo(t *testing.T) {
	t.Parallel()
	rec := backend.StreamProperties{
		ID:     1,
		Type:   backend.TypeVideo,
		Codec:  backend.CodecIDH264,
		FPSNum: 50,
		FPSDen: 1,
		Width:  1920,
		Height: 1080,
		Aspect: 1.777778,
	}
	d := newDescriptor(rec, classify(rec, false))
	if d.Video == nil {
		t.Fatal("video payload missing")
	}
	if d.Video.StereoMode != "mono" {
		t.Errorf("stereo mode = %q, want mono", d.Video.StereoMode)
	}
	if d.Video.Width != 1920 || d.Video.Height != 1080 {
		t.Errorf("dimensions = %dx%d", d.Video.Width, d.Video.Height)
	}
}

func TestSubtitleDescriptorWithoutInfo(t *testing.T) {
	t.Parallel()
	rec := backend.StreamProperties{ID: 5, Type: backend.TypeSubtitle, Codec: backend.CodecIDDVBSubtitle}
	d := newDescriptor(rec, classify(rec, false))
	if d.Subtitle == nil {
		t.Fatal("subtitle payload missing")
	}
	if d.Subtitle.Extra != nil {
		t.Errorf("extra = % X, want nil when no subtitle info reported", d.Subtitle.Extra)
	}

	rec.SubtitleInfo = 0x00010002
	d.update(rec)
	if want := []byte{0x01, 0x02, 0x00, 0x00}; !bytes.Equal(d.Subtitle.Extra, want) {
		t.Errorf("extra = % X, want % X", d.Subtitle.Extra, want)
	}
}
