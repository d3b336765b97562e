// Package matrixsrc builds cost matrices from coordinates when no routing
// service is available.
package matrixsrc

import (
	"fmt"
	"math"
	"strings"

	"tourplan/internal/opt"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Mode selects what the matrix measures.
type Mode string

const (
	ModeDistance Mode = "distance"
	ModeDriving  Mode = "driving"
	ModeCycling  Mode = "cycling"
	ModeWalking  Mode = "walking"
)

// speeds in km/h
var speeds = map[Mode]float64{
	ModeDriving: 50,
	ModeCycling: 15,
	ModeWalking: 5,
}

const earthRadiusMeters = 6371000.0

// ParseMode accepts a mode name case-insensitively. The empty string is
// ModeDistance.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModeDistance, nil
	}
	if m == ModeDistance {
		return m, nil
	}
	if _, ok := speeds[m]; ok {
		return m, nil
	}
	return "", fmt.Errorf("matrixsrc: unknown mode %q", s)
}

// Unit reports what the matrix entries measure for mode.
func (m Mode) Unit() opt.Unit {
	if m == ModeDistance || m == "" {
		return opt.UnitMeters
	}
	return opt.UnitSeconds
}

// Haversine returns the great-circle matrix between points: metres for
// ModeDistance, otherwise seconds at the mode's average speed. The matrix is
// symmetric and fully reachable.
func Haversine(points []Point, mode Mode) (*opt.CostMatrix, error) {
	if mode == "" {
		mode = ModeDistance
	}
	speed, timed := speeds[mode]
	if !timed && mode != ModeDistance {
		return nil, fmt.Errorf("matrixsrc: unknown mode %q", mode)
	}
	for i, p := range points {
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.Abs(p.Lat) > 90 || math.Abs(p.Lng) > 180 {
			return nil, fmt.Errorf("matrixsrc: point %d (%v, %v) is not a valid coordinate", i, p.Lat, p.Lng)
		}
	}
	n := len(points)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := Meters(points[i], points[j])
			if timed {
				d = d / (speed * 1000 / 3600)
			}
			rows[i][j], rows[j][i] = d, d
		}
	}
	return opt.NewCostMatrix(rows)
}

// Meters is the great-circle distance between a and b.
func Meters(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
