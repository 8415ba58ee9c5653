package services

import (
	"math"
	"sort"
	"strings"
)

// InterfaceSafePlaceService 定义安全场所服务接口
type InterfaceSafePlaceService interface {
	GetNearbyPlaces(lat, lng float64, placeType string) []SafePlace
	GetPlaceDetails(placeID string) (*SafePlace, bool)
}

// SafePlace 一个可供求助者前往的安全场所
type SafePlace struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Address  string  `json:"address"`
	Phone    string  `json:"phone,omitempty"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Distance float64 `json:"distance_km"`
	OpenNow  bool    `json:"open_now"`
}

// SafePlaceService 安全场所服务的实现
// 目前使用内置目录，按请求坐标平移后返回；接入地图服务商后替换数据来源
type SafePlaceService struct {
	catalog []SafePlace
}

// NewSafePlaceService 创建一个新的安全场所服务
func NewSafePlaceService() *SafePlaceService {
	return &SafePlaceService{
		catalog: []SafePlace{
			{ID: "sp-001", Name: "Central Police Station", Type: "police", Address: "12 MG Road", Phone: "100", Lat: 0.004, Lng: 0.002, OpenNow: true},
			{ID: "sp-002", Name: "City General Hospital", Type: "hospital", Address: "48 Hospital Road", Phone: "108", Lat: -0.006, Lng: 0.005, OpenNow: true},
			{ID: "sp-003", Name: "24x7 Pharmacy", Type: "pharmacy", Address: "3 Market Street", Phone: "+91-4000-1234", Lat: 0.002, Lng: -0.003, OpenNow: true},
			{ID: "sp-004", Name: "North Fire Station", Type: "fire_station", Address: "91 Station Road", Phone: "101", Lat: 0.009, Lng: -0.007, OpenNow: true},
			{ID: "sp-005", Name: "Community Shelter", Type: "shelter", Address: "7 Park Avenue", Phone: "", Lat: -0.003, Lng: -0.008, OpenNow: false},
			{ID: "sp-006", Name: "Railway Police Outpost", Type: "police", Address: "Platform 1, Central Station", Phone: "1512", Lat: 0.011, Lng: 0.009, OpenNow: true},
		},
	}
}

// GetNearbyPlaces 返回请求坐标附近的安全场所，按距离升序
// placeType非空时按类型过滤
func (s *SafePlaceService) GetNearbyPlaces(lat, lng float64, placeType string) []SafePlace {
	places := make([]SafePlace, 0, len(s.catalog))
	for _, p := range s.catalog {
		if placeType != "" && !strings.EqualFold(p.Type, placeType) {
			continue
		}

		// 目录中的坐标是相对偏移，叠加到请求坐标上
		place := p
		place.Lat = lat + p.Lat
		place.Lng = lng + p.Lng
		place.Distance = roundKm(haversineKm(lat, lng, place.Lat, place.Lng))
		places = append(places, place)
	}

	sort.Slice(places, func(i, j int) bool {
		return places[i].Distance < places[j].Distance
	})
	return places
}

// GetPlaceDetails 按ID查找场所
func (s *SafePlaceService) GetPlaceDetails(placeID string) (*SafePlace, bool) {
	for _, p := range s.catalog {
		if p.ID == placeID {
			place := p
			return &place, true
		}
	}
	return nil, false
}

// haversineKm 计算两个坐标间的球面距离，单位公里
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
