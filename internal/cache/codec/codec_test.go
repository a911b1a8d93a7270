package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type featured struct {
	ID      string
	Rank    int
	Created time.Time
	Tags    []string
}

// Both codecs must preserve the values the catalog caches, including times
// and nil-vs-empty slices that the handlers render.
func TestCodecsPreserveCatalogShapes(t *testing.T) {
	in := []featured{
		{ID: "a", Rank: 1, Created: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), Tags: []string{"news"}},
		{ID: "b", Rank: 2, Created: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)},
	}

	codecs := map[string]Codec[[]featured]{
		"msgpack": Msgpack[[]featured]{},
		"json":    JSON[[]featured]{},
	}
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			b, err := c.Encode(in)
			require.NoError(t, err)
			out, err := c.Decode(b)
			require.NoError(t, err)
			require.Len(t, out, 2)
			assert.Equal(t, in[0].ID, out[0].ID)
			assert.True(t, in[0].Created.Equal(out[0].Created))
			assert.Equal(t, in[0].Tags, out[0].Tags)
			assert.Empty(t, out[1].Tags)
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Msgpack[map[string]int]{}.Decode([]byte{0xc1})
	assert.Error(t, err)
	_, err = JSON[map[string]int]{}.Decode([]byte("{"))
	assert.Error(t, err)
}
