package opt

import (
	"fmt"
	"math"
)

// Unit names what the numbers in a CostMatrix measure.
type Unit string

const (
	UnitSeconds Unit = "seconds"
	UnitMeters  Unit = "meters"
)

// Leg is one consecutive pair of the final tour.
type Leg struct {
	Seq       int     `json:"seq"`
	From      int     `json:"from"`
	To        int     `json:"to"`
	FromLabel string  `json:"fromLabel,omitempty"`
	ToLabel   string  `json:"toLabel,omitempty"`
	Cost      float64 `json:"cost"`
}

// Report is the record handed to exporters: the visiting order, its total
// and the cost of every leg.
type Report struct {
	Tour           []int    `json:"tour"`
	Labels         []string `json:"labels,omitempty"`
	Legs           []Leg    `json:"legs"`
	TotalCost      float64  `json:"totalCost"`
	Unit           Unit     `json:"unit,omitempty"`
	TotalFormatted string   `json:"totalFormatted,omitempty"`
	Stats          Stats    `json:"stats"`
}

// NewReport breaks res down into legs. labels is optional; when given it
// must name every stop and the labels are listed in visiting order.
func NewReport(m *CostMatrix, res Result, labels []string, unit Unit) (Report, error) {
	if labels != nil && len(labels) != m.N() {
		return Report{}, fmt.Errorf("report: %d labels for %d stops", len(labels), m.N())
	}
	rep := Report{
		Tour:  append([]int(nil), res.Tour...),
		Legs:  make([]Leg, 0, len(res.Tour)),
		Unit:  unit,
		Stats: res.Stats,
	}
	for k := 0; k+1 < len(res.Tour); k++ {
		from, to := res.Tour[k], res.Tour[k+1]
		leg := Leg{Seq: k + 1, From: from, To: to, Cost: m.At(from, to)}
		if labels != nil {
			leg.FromLabel, leg.ToLabel = labels[from], labels[to]
		}
		if IsUnreachable(leg.Cost) {
			return Report{}, fmt.Errorf("report: leg %d→%d is unreachable", from, to)
		}
		rep.Legs = append(rep.Legs, leg)
		rep.TotalCost += leg.Cost
	}
	if labels != nil {
		for _, stop := range res.Tour {
			rep.Labels = append(rep.Labels, labels[stop])
		}
	}
	switch unit {
	case UnitSeconds:
		rep.TotalFormatted = FormatDuration(rep.TotalCost)
	case UnitMeters:
		rep.TotalFormatted = FormatDistance(rep.TotalCost)
	}
	return rep, nil
}

// FormatDuration renders seconds as "1h 2m 3s".
func FormatDuration(seconds float64) string {
	s := int(math.Round(seconds))
	return fmt.Sprintf("%dh %dm %ds", s/3600, s%3600/60, s%60)
}

// FormatDistance renders metres as kilometres with two decimals.
func FormatDistance(meters float64) string {
	return fmt.Sprintf("%.2f km", meters/1000)
}
