package market

// BookLevel is a single resting price level in an order book snapshot
type BookLevel struct {
	Price float64
	Size  float64
}

// OrderBookSnapshot is a read-only view of resting liquidity around the
// current price, supplied by an external collaborator. The decision core
// only inspects it, it never mutates or refreshes it.
type OrderBookSnapshot struct {
	Bids []BookLevel // sorted best (highest) first
	Asks []BookLevel // sorted best (lowest) first
}

// WallNear reports whether a resting wall of at least minSize sits within
// maxDistancePercent of price, on either side of the book.
func (ob *OrderBookSnapshot) WallNear(price, maxDistancePercent, minSize float64) bool {
	if ob == nil || price <= 0 {
		return false
	}
	check := func(levels []BookLevel) bool {
		for _, lvl := range levels {
			dist := (lvl.Price - price) / price * 100
			if dist < 0 {
				dist = -dist
			}
			if dist <= maxDistancePercent && lvl.Size >= minSize {
				return true
			}
		}
		return false
	}
	return check(ob.Bids) || check(ob.Asks)
}

// NearestWallAbove returns the closest ask wall above price with at least
// minSize, or nil when none exists.
func (ob *OrderBookSnapshot) NearestWallAbove(price, minSize float64) *BookLevel {
	if ob == nil {
		return nil
	}
	var best *BookLevel
	for i := range ob.Asks {
		lvl := ob.Asks[i]
		if lvl.Price <= price || lvl.Size < minSize {
			continue
		}
		if best == nil || lvl.Price < best.Price {
			best = &ob.Asks[i]
		}
	}
	return best
}

// NearestWallBelow returns the closest bid wall below price with at least
// minSize, or nil when none exists.
func (ob *OrderBookSnapshot) NearestWallBelow(price, minSize float64) *BookLevel {
	if ob == nil {
		return nil
	}
	var best *BookLevel
	for i := range ob.Bids {
		lvl := ob.Bids[i]
		if lvl.Price >= price || lvl.Size < minSize {
			continue
		}
		if best == nil || lvl.Price > best.Price {
			best = &ob.Bids[i]
		}
	}
	return best
}
