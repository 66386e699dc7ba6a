package engine

import (
	"sort"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// Returns converts a chronological price/value series into periodic
// returns: r[i] = (p[i] - p[i-1]) / p[i-1], dated at the later
// observation. Points are sorted by date first; observations following a
// non-positive value are skipped since no return is defined there.
func Returns(points []models.PricePoint) []models.ReturnPoint {
	if len(points) < 2 {
		return []models.ReturnPoint{}
	}

	sorted := make([]models.PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	returns := make([]models.ReturnPoint, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1].Value
		if !prev.IsPositive() {
			continue
		}
		r := sorted[i].Value.Sub(prev).Div(prev)
		returns = append(returns, models.ReturnPoint{
			Date:   sorted[i].Date,
			Return: r.InexactFloat64(),
		})
	}
	return returns
}

// alignReturns inner-joins two return series on date. Dates present on
// only one side are dropped, never forward-filled.
func alignReturns(a, b []models.ReturnPoint) (x, y []float64) {
	byDate := make(map[string]float64, len(b))
	for _, p := range b {
		byDate[p.Date.UTC().Format("2006-01-02")] = p.Return
	}

	for _, p := range a {
		if v, ok := byDate[p.Date.UTC().Format("2006-01-02")]; ok {
			x = append(x, p.Return)
			y = append(y, v)
		}
	}
	return x, y
}

func returnValues(points []models.ReturnPoint) []float64 {
	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Return
	}
	return vals
}
