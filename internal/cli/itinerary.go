package cli

import (
	"fmt"
	"io"
	"strconv"

	"tourplan/internal/matrixsrc"
	"tourplan/internal/model"
	"tourplan/internal/opt"
)

// writeItinerary prints the numbered visiting order followed by the totals.
// With points the great-circle length of the tour is listed as well.
func writeItinerary(w io.Writer, rep opt.Report, points []model.GeoPoint) error {
	ew := &errWriter{w: w}
	ew.printf("Optimal Route Order:\n")
	for i, stop := range rep.Tour {
		name := "stop " + strconv.Itoa(stop)
		if rep.Labels != nil {
			name = rep.Labels[i]
		}
		ew.printf("%d. %s\n", i+1, name)
	}
	ew.printf("\n")
	switch rep.Unit {
	case opt.UnitSeconds:
		ew.printf("Total Duration: %s\n", rep.TotalFormatted)
	case opt.UnitMeters:
		ew.printf("Total Distance: %s\n", rep.TotalFormatted)
	default:
		ew.printf("Total Cost: %s\n", strconv.FormatFloat(rep.TotalCost, 'f', -1, 64))
	}
	if points != nil && rep.Unit != opt.UnitMeters {
		var meters float64
		for _, leg := range rep.Legs {
			a, b := points[leg.From], points[leg.To]
			meters += matrixsrc.Meters(matrixsrc.Point{Lat: a.Lat, Lng: a.Lng}, matrixsrc.Point{Lat: b.Lat, Lng: b.Lng})
		}
		ew.printf("Total Distance: %s\n", opt.FormatDistance(meters))
	}
	return ew.err
}

// errWriter keeps the first write error so printing code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
