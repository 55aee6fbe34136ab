package nfp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/deepnest/internal/geom"
)

func samplePoly() geom.Polygon {
	return geom.Polygon{
		Source: 3,
		Points: []geom.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5}},
		Children: []geom.Polygon{{
			Source: 4,
			Points: []geom.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}},
		}},
	}
}

func TestKeyString(t *testing.T) {
	key := Key{ASource: 3, BSource: 7, ARotation: 90, BRotation: 180, AFlipped: true}
	assert.Equal(t, "3-7-90-180-1-0", key.String())

	plain := Key{ASource: 0, BSource: 1}
	assert.Equal(t, "0-1-0-0-0-0", plain.String())
}

func TestCacheInsertFind(t *testing.T) {
	c := NewCache()
	key := Key{ASource: 1, BSource: 2}

	c.Insert(key, false, []geom.Polygon{samplePoly()})
	assert.Equal(t, 1, c.Stats())

	got, ok := c.Find(key, false)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, samplePoly().Points, got[0].Points)
	require.Len(t, got[0].Children, 1)
}

func TestCacheReturnsDeepClones(t *testing.T) {
	c := NewCache()
	key := Key{ASource: 1, BSource: 2}
	original := samplePoly()
	c.Insert(key, false, []geom.Polygon{original})

	// mutating the inserted value must not affect the cache
	original.Points[0].X = 999

	first, ok := c.Find(key, false)
	require.True(t, ok)
	assert.Equal(t, 0.0, first[0].Points[0].X)

	// mutating a returned value must not affect later reads
	first[0].Points[1].X = -1
	second, ok := c.Find(key, false)
	require.True(t, ok)
	assert.Equal(t, 5.0, second[0].Points[1].X)
}

func TestCacheInnerOuterTagsAreDistinct(t *testing.T) {
	c := NewCache()
	key := Key{ASource: 1, BSource: 2}
	c.Insert(key, true, []geom.Polygon{samplePoly()})

	_, ok := c.Find(key, false)
	assert.False(t, ok, "outer lookup must miss an inner entry")

	_, ok = c.Find(key, true)
	assert.True(t, ok)
}

func TestCacheIgnoresEmptyInsert(t *testing.T) {
	c := NewCache()
	c.Insert(Key{ASource: 1, BSource: 2}, false, nil)
	assert.Equal(t, 0, c.Stats())
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.Insert(Key{ASource: 1, BSource: 2}, false, []geom.Polygon{samplePoly()})
	c.Clear()
	assert.Equal(t, 0, c.Stats())
}

func TestCacheConcurrentReaders(t *testing.T) {
	c := NewCache()
	key := Key{ASource: 1, BSource: 2}
	c.Insert(key, false, []geom.Polygon{samplePoly()})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok := c.Find(key, false); !ok {
					t.Error("expected cache hit")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestCacheFindsDoNotShareStorage(t *testing.T) {
	c := NewCache()
	key := Key{ASource: 9, BSource: 10}
	c.Insert(key, false, []geom.Polygon{samplePoly()})

	a, _ := c.Find(key, false)
	b, _ := c.Find(key, false)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.NotSame(t, &a[0].Points[0], &b[0].Points[0], "reads must not share point storage")
}
