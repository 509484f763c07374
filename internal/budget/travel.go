package budget

import (
	"context"

	"go.uber.org/zap"

	"github.com/policyengine/grantkit/internal/model"
	"github.com/policyengine/grantkit/pkg/gsa"
)

// Conservative defaults used when no per-diem listing is available for
// a destination.
const (
	FallbackLodgingRate = 200.0
	FallbackMIERate     = 79.0
)

// RateSource looks up per-diem rates for a destination. A nil result
// with a nil error means no rates are published for it.
type RateSource interface {
	Rates(ctx context.Context, city, state string, fiscalYear int) (*gsa.PerDiemRates, error)
}

// TripCost is the estimated cost of one trip with its per-person
// breakdown. Dollar figures are truncated the same way every budget
// rollup is.
type TripCost struct {
	Description string  `json:"description"`
	Travelers   int     `json:"travelers"`
	Nights      int     `json:"nights"`
	LodgingRate float64 `json:"lodging_rate"`
	MIERate     float64 `json:"mie_rate"`
	RateSource  string  `json:"rate_source"`
	Lodging     int     `json:"lodging"`
	MIE         int     `json:"mie"`
	Airfare     int     `json:"airfare"`
	Total       int     `json:"total"`
}

// Rate provenance values recorded on each estimate.
const (
	RatesExplicit = "explicit"
	RatesPerDiem  = "per_diem"
	RatesFallback = "fallback"
)

// TravelEstimator prices planned trips from per-diem rates. A nil
// source estimates everything at the fallback rates.
type TravelEstimator struct {
	source RateSource
}

// NewTravelEstimator returns an estimator backed by the given source.
func NewTravelEstimator(source RateSource) *TravelEstimator {
	return &TravelEstimator{source: source}
}

// EstimateTrip prices one trip. Rates resolve in order: explicit rates
// on the trip, then the per-diem source, then the fallback defaults.
// Lodging covers nights (days minus one); a single-day trip gets 75%
// of the daily M&IE and no lodging.
func (e *TravelEstimator) EstimateTrip(ctx context.Context, trip model.TripSpec) TripCost {
	lodgingRate, mieRate, source := e.resolveRates(ctx, trip)

	travelers := trip.Travelers
	if travelers < 1 {
		travelers = 1
	}
	nights := trip.Days - 1
	if nights < 0 {
		nights = 0
	}

	mie := float64(trip.Days) * mieRate
	if trip.Days <= 1 {
		mie = 0.75 * mieRate
	}

	lodging := int(float64(nights) * lodgingRate * float64(travelers))
	mieTotal := int(mie * float64(travelers))
	airfare := int(trip.AirfarePerPerson * float64(travelers))

	return TripCost{
		Description: trip.Description,
		Travelers:   travelers,
		Nights:      nights,
		LodgingRate: lodgingRate,
		MIERate:     mieRate,
		RateSource:  source,
		Lodging:     lodging,
		MIE:         mieTotal,
		Airfare:     airfare,
		Total:       lodging + mieTotal + airfare,
	}
}

// EstimateTravel prices every trip and returns the estimates alongside
// ready-made domestic travel line items, one per trip, keyed to each
// trip's budget year (year 1 when unset).
func (e *TravelEstimator) EstimateTravel(ctx context.Context, trips []model.TripSpec) ([]TripCost, []model.LineItem) {
	costs := make([]TripCost, 0, len(trips))
	items := make([]model.LineItem, 0, len(trips))
	for _, trip := range trips {
		cost := e.EstimateTrip(ctx, trip)
		costs = append(costs, cost)

		year := trip.BudgetYear
		if year < 1 {
			year = 1
		}
		items = append(items, model.LineItem{
			Description: trip.Description,
			Category:    "E",
			Years:       map[int]int{year: cost.Total},
		})
	}
	return costs, items
}

// resolveRates picks the lodging and M&IE rates for a trip. Lookup
// failures degrade to the fallback rates rather than failing the
// estimate.
func (e *TravelEstimator) resolveRates(ctx context.Context, trip model.TripSpec) (lodging, mie float64, source string) {
	if trip.LodgingRate > 0 || trip.MIERate > 0 {
		lodging, mie = trip.LodgingRate, trip.MIERate
		if mie == 0 {
			mie = FallbackMIERate
		}
		return lodging, mie, RatesExplicit
	}

	if e.source != nil && trip.City != "" {
		rates, err := e.source.Rates(ctx, trip.City, trip.State, trip.FiscalYear)
		if err != nil {
			zap.S().Warnw("per-diem lookup failed, using fallback rates",
				"city", trip.City, "state", trip.State, "error", err)
		} else if rates != nil {
			return rates.Lodging, rates.MIE, RatesPerDiem
		}
	}
	return FallbackLodgingRate, FallbackMIERate, RatesFallback
}
