package geo

import (
	"math"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

// AvgTileSizeBytes is the assumed size of one raster tile, used for the
// advisory storage estimate. Never reconciled against downloaded bytes.
const AvgTileSizeBytes = 15 * 1024

// TileRange is the tile-index rectangle covering a bounding box at one
// zoom level.
type TileRange struct {
	Zoom       int
	MinX, MaxX int
	MinY, MaxY int
}

// Count returns the number of tiles in the rectangle.
func (r TileRange) Count() int {
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// TileXY converts a coordinate to slippy-map tile indices at the given
// zoom: longitude maps to X linearly, latitude to Y via inverse Mercator.
func TileXY(lat, lng float64, zoom int) (x, y int) {
	n := float64(int(1) << uint(zoom))
	x = int(math.Floor((lng + 180.0) / 360.0 * n))
	latRad := lat * math.Pi / 180.0
	y = int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))
	max := int(n) - 1
	x = clamp(x, 0, max)
	y = clamp(y, 0, max)
	return x, y
}

// RangeForBounds returns the tile rectangle covering the bounds at one
// zoom level. Y grows southward, so the north edge yields the minimum Y.
func RangeForBounds(b model.Bounds, zoom int) TileRange {
	minX, minY := TileXY(b.North, b.West, zoom)
	maxX, maxY := TileXY(b.South, b.East, zoom)
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return TileRange{Zoom: zoom, MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}
}

// RangesForBounds returns one tile rectangle per integer zoom level in
// [zoomMin, zoomMax].
func RangesForBounds(b model.Bounds, zoomMin, zoomMax int) []TileRange {
	var ranges []TileRange
	for z := zoomMin; z <= zoomMax; z++ {
		ranges = append(ranges, RangeForBounds(b, z))
	}
	return ranges
}

// EstimateTileCount sums tile counts across all zoom levels in range.
func EstimateTileCount(b model.Bounds, zoomMin, zoomMax int) int {
	total := 0
	for _, r := range RangesForBounds(b, zoomMin, zoomMax) {
		total += r.Count()
	}
	return total
}

// EstimateSizeMB converts a tile count into an advisory storage estimate.
func EstimateSizeMB(tileCount int) float64 {
	return float64(tileCount) * AvgTileSizeBytes / (1024 * 1024)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
