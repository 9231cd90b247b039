package flow

// Kind identifies one of the drone-facing operation state machines.
type Kind string

const (
	KindStore   Kind = "store"
	KindPickup  Kind = "pickup"
	KindShip    Kind = "ship"
	KindRecycle Kind = "recycle"
)

// StoreResult is the outcome of a completed storage run.
type StoreResult struct {
	// Bay is the 1-based bay the parcel was stored in, 0 if the PLC
	// reported an unrecognized position code.
	Bay int
	// EmptyCollected reports whether the drone took an empty box away
	// (branch A of the storage sequence).
	EmptyCollected bool
	// EmptyBoxBay is the bay the empty box came from; only meaningful
	// when EmptyCollected is true.
	EmptyBoxBay int
	// Raw holds the result register snapshots for diagnostics.
	Raw map[string]uint16
}

// PickupResult is the outcome of a completed drone pickup run.
type PickupResult struct {
	Bay int
	Raw map[string]uint16
}

// ShipResult is the outcome of a completed shipping run.
type ShipResult struct {
	Bay int
	// WeightKg is the send box weight converted from the raw gram
	// register value.
	WeightKg float64
	Raw      map[string]uint16
}