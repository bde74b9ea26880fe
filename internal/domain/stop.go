package domain

// Stop is a point on a route. StopOrder is unique within the route and
// defines the sequence used for all stretch comparisons.
type Stop struct {
	ID        int64
	RouteID   int64
	Name      string
	StopOrder int
}

// StopRange is a half-open stretch [From, To) of a route's stop orders.
type StopRange struct {
	From int
	To   int
}

// Valid reports whether the range covers at least one unit of travel.
func (r StopRange) Valid() bool {
	return r.From >= 0 && r.To > r.From
}

// Overlaps reports whether two stretches on the same seat/trip share any
// unit of stop order. Adjacent ranges ([1,5) and [5,9)) do not overlap,
// so a seat can be resold for a disjoint stretch of the same trip.
func (r StopRange) Overlaps(other StopRange) bool {
	return r.From < other.To && other.From < r.To
}
