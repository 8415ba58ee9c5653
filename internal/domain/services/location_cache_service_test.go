package services

import (
	"testing"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocationCacheSetGetEvict(t *testing.T) {
	cache := NewMemoryLocationCacheService()

	_, hit, err := cache.Get("em-1")
	require.NoError(t, err)
	assert.False(t, hit)

	now := time.Now()
	entry := models.LocationCacheEntry{
		Location:   models.Location{Latitude: 12.97, Longitude: 77.59},
		ObservedAt: now,
		ReceivedAt: now,
	}
	require.NoError(t, cache.Set("em-1", entry))

	got, hit, err := cache.Get("em-1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 12.97, got.Location.Latitude)
	assert.Equal(t, 77.59, got.Location.Longitude)

	require.NoError(t, cache.Evict("em-1"))
	_, hit, err = cache.Get("em-1")
	require.NoError(t, err)
	assert.False(t, hit)

	// 删除不存在的条目不报错
	assert.NoError(t, cache.Evict("em-unknown"))
}

func TestMemoryLocationCacheOverwrites(t *testing.T) {
	cache := NewMemoryLocationCacheService()

	first := models.LocationCacheEntry{Location: models.Location{Latitude: 1, Longitude: 1}}
	second := models.LocationCacheEntry{Location: models.Location{Latitude: 2, Longitude: 2}}

	require.NoError(t, cache.Set("em-1", first))
	require.NoError(t, cache.Set("em-1", second))

	got, hit, err := cache.Get("em-1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 2.0, got.Location.Latitude)
}

func TestMemoryLocationCacheReturnsCopy(t *testing.T) {
	cache := NewMemoryLocationCacheService()

	require.NoError(t, cache.Set("em-1", models.LocationCacheEntry{
		Location: models.Location{Latitude: 1, Longitude: 1},
	}))

	got, _, err := cache.Get("em-1")
	require.NoError(t, err)
	got.Location.Latitude = 99

	again, _, err := cache.Get("em-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Location.Latitude)
}
