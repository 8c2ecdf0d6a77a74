package geo

import (
	"fmt"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

// zeroSpanPadding keeps single-location bounds from collapsing to a point.
const zeroSpanPadding = 0.05

// CalculateBounds returns the bounding rectangle of the locations expanded
// by 10% of each axis span, so edge points stay visible when rendered.
func CalculateBounds(locations []model.GeoPoint) (model.Bounds, error) {
	if len(locations) == 0 {
		return model.Bounds{}, fmt.Errorf("no locations to bound")
	}

	north, south := locations[0].Lat, locations[0].Lat
	east, west := locations[0].Lng, locations[0].Lng
	for _, p := range locations[1:] {
		if p.Lat > north {
			north = p.Lat
		}
		if p.Lat < south {
			south = p.Lat
		}
		if p.Lng > east {
			east = p.Lng
		}
		if p.Lng < west {
			west = p.Lng
		}
	}

	latPad := (north - south) * 0.1
	if latPad == 0 {
		latPad = zeroSpanPadding
	}
	lngPad := (east - west) * 0.1
	if lngPad == 0 {
		lngPad = zeroSpanPadding
	}

	return model.Bounds{
		North: north + latPad,
		South: south - latPad,
		East:  east + lngPad,
		West:  west - lngPad,
	}, nil
}
