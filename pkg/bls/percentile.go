package bls

import "sort"

type percentilePoint struct {
	pct  float64
	wage float64
}

// EstimatePercentile estimates where a salary sits in the wage
// distribution by linear interpolation between the published percentile
// anchors. At least two anchors must be present; the second return is
// false when the data is too sparse. Below the lowest anchor the
// estimate scales linearly down toward zero; above the highest it
// extrapolates against an assumed 99th percentile of 1.5x the top
// anchor, capped at 99.
func EstimatePercentile(salary float64, data *WageData) (float64, bool) {
	if data == nil {
		return 0, false
	}

	var points []percentilePoint
	add := func(pct float64, wage *float64) {
		if wage != nil && *wage > 0 {
			points = append(points, percentilePoint{pct: pct, wage: *wage})
		}
	}
	add(10, data.Pct10)
	add(25, data.Pct25)
	add(50, data.Median)
	add(75, data.Pct75)
	add(90, data.Pct90)

	if len(points) < 2 {
		return 0, false
	}
	sort.Slice(points, func(i, j int) bool { return points[i].wage < points[j].wage })

	lowest, highest := points[0], points[len(points)-1]
	if salary <= lowest.wage {
		est := lowest.pct * (salary / lowest.wage)
		if est < 0 {
			est = 0
		}
		return est, true
	}
	if salary >= highest.wage {
		top := highest.wage * 1.5
		excess := (salary - highest.wage) / (top - highest.wage)
		est := highest.pct + (99-highest.pct)*excess
		if est > 99 {
			est = 99
		}
		return est, true
	}

	for i := 0; i < len(points)-1; i++ {
		lo, hi := points[i], points[i+1]
		if salary >= lo.wage && salary <= hi.wage {
			ratio := (salary - lo.wage) / (hi.wage - lo.wage)
			return lo.pct + ratio*(hi.pct-lo.pct), true
		}
	}
	return 0, false
}
