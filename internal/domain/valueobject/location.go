package valueobject

import (
	"math"

	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

const earthRadiusKm = 6371.0

type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

func NewLocation(lat, lng float64) (Location, error) {
	if lat < -90 || lat > 90 {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "longitude must be between -180 and 180")
	}
	return Location{Latitude: lat, Longitude: lng}, nil
}

// DistanceKm считает расстояние по формуле гаверсинусов.
func (l Location) DistanceKm(other Location) float64 {
	dLat := toRadians(other.Latitude - l.Latitude)
	dLng := toRadians(other.Longitude - l.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(l.Latitude))*math.Cos(toRadians(other.Latitude))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// DistanceBetween возвращает nil, если хотя бы одна точка неизвестна.
func DistanceBetween(from, to *Location) *float64 {
	if from == nil || to == nil {
		return nil
	}
	d := math.Round(from.DistanceKm(*to)*100) / 100
	return &d
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
