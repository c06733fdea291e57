package helper

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"Storyworld-App/internal/domain/model"
)

// DistanceMeters は2地点間の距離を計算する (m)
func DistanceMeters(p1, p2 model.LatLng) float64 {
	return geo.DistanceHaversine(p1.ToPoint(), p2.ToPoint())
}

// RandomPointInBound は境界ボックス内の一様ランダムな地点を返す
// u, v は [0, 1) の乱数
func RandomPointInBound(bound orb.Bound, u, v float64) model.LatLng {
	lng := bound.Min.Lon() + u*(bound.Max.Lon()-bound.Min.Lon())
	lat := bound.Min.Lat() + v*(bound.Max.Lat()-bound.Min.Lat())
	return model.LatLng{Lat: lat, Lng: lng}
}

// ClampLatitude はWeb Mercatorで扱える緯度に丸める
func ClampLatitude(lat float64) float64 {
	if lat > model.MaxMercatorLatitude {
		return model.MaxMercatorLatitude
	}
	if lat < -model.MaxMercatorLatitude {
		return -model.MaxMercatorLatitude
	}
	return lat
}
