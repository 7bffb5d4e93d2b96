package headend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zsiec/pvrbridge/internal/backend"
)

func TestPackSubtitleInfo(t *testing.T) {
	info := packSubtitleInfo(0xBBDD, 0xAACC)
	assert.Equal(t, uint32(0xAABBCCDD), info)
}

func TestLayoutChanged(t *testing.T) {
	base := []backend.StreamProperties{
		{ID: 1, Type: backend.TypeVideo},
		{ID: 2, Type: backend.TypeAudio},
	}

	same := []backend.StreamProperties{
		{ID: 2, Type: backend.TypeAudio},
		{ID: 1, Type: backend.TypeVideo},
	}
	assert.False(t, layoutChanged(base, same), "order and property edits are not layout changes")

	added := append(same, backend.StreamProperties{ID: 3, Type: backend.TypeSubtitle})
	assert.True(t, layoutChanged(base, added))

	swapped := []backend.StreamProperties{
		{ID: 1, Type: backend.TypeVideo},
		{ID: 2, Type: backend.TypeSubtitle},
	}
	assert.True(t, layoutChanged(base, swapped), "classification switch is a layout change")

	replaced := []backend.StreamProperties{
		{ID: 1, Type: backend.TypeVideo},
		{ID: 9, Type: backend.TypeAudio},
	}
	assert.True(t, layoutChanged(base, replaced))
}
