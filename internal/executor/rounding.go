package executor

import "github.com/shopspring/decimal"

const (
	notionalPlaces = 2
	sharePlaces    = 4
	pricePlaces    = 4
)

// floorTo truncates v toward negative infinity at the given number of
// decimal places. Going through decimal avoids binary artifacts such as
// 0.29 flooring to 0.28.
func floorTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).RoundFloor(places).Float64()
	return f
}

// FloorNotional floors a USDC amount to cents.
func FloorNotional(v float64) float64 { return floorTo(v, notionalPlaces) }

// FloorShares floors a share quantity to the venue's size precision.
func FloorShares(v float64) float64 { return floorTo(v, sharePlaces) }

// FloorPrice floors a limit price to the venue's tick precision.
func FloorPrice(v float64) float64 { return floorTo(v, pricePlaces) }

// exceedsTolerance reports whether price is more than tolerance above ref.
func exceedsTolerance(price, ref, tolerance float64) bool {
	p := decimal.NewFromFloat(price)
	return p.Sub(decimal.NewFromFloat(tolerance)).GreaterThan(decimal.NewFromFloat(ref))
}
