package domain

// Position is a wallet's holding in one outcome token.
type Position struct {
	ConditionID string
	Asset       string
	Size        float64
	AvgPrice    float64
	Outcome     string
	Title       string
}

// Open reports whether the position holds any shares.
func (p Position) Open() bool {
	return p.Size > 0
}

// FindByAsset returns the open position in asset, if any.
func FindByAsset(positions []Position, asset string) (Position, bool) {
	for _, p := range positions {
		if p.Asset == asset && p.Open() {
			return p, true
		}
	}
	return Position{}, false
}

// FindOpposing returns an open position in the same condition but a different
// outcome token than asset.
func FindOpposing(positions []Position, conditionID, asset string) (Position, bool) {
	for _, p := range positions {
		if p.ConditionID == conditionID && p.Asset != asset && p.Open() {
			return p, true
		}
	}
	return Position{}, false
}
