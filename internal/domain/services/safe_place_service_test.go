package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNearbyPlacesSortedByDistance(t *testing.T) {
	service := NewSafePlaceService()

	places := service.GetNearbyPlaces(12.9716, 77.5946, "")
	require.NotEmpty(t, places)

	for i := 1; i < len(places); i++ {
		assert.LessOrEqual(t, places[i-1].Distance, places[i].Distance)
	}

	// 坐标围绕请求位置展开
	for _, p := range places {
		assert.InDelta(t, 12.9716, p.Lat, 0.1)
		assert.InDelta(t, 77.5946, p.Lng, 0.1)
	}
}

func TestGetNearbyPlacesTypeFilter(t *testing.T) {
	service := NewSafePlaceService()

	police := service.GetNearbyPlaces(0, 0, "police")
	require.NotEmpty(t, police)
	for _, p := range police {
		assert.Equal(t, "police", p.Type)
	}

	// 过滤大小写不敏感
	upper := service.GetNearbyPlaces(0, 0, "POLICE")
	assert.Len(t, upper, len(police))

	none := service.GetNearbyPlaces(0, 0, "airport")
	assert.Empty(t, none)
}

func TestGetPlaceDetails(t *testing.T) {
	service := NewSafePlaceService()

	place, found := service.GetPlaceDetails("sp-001")
	require.True(t, found)
	assert.Equal(t, "Central Police Station", place.Name)

	_, found = service.GetPlaceDetails("sp-999")
	assert.False(t, found)
}
