package domain

import "errors"

// Sentinel errors for the evaluation core. Callers classify failures with
// errors.Is rather than string matching; the transport layer maps each kind
// to a response status.
var (
	// ErrInvalidGeometry marks caller input that cannot be normalized:
	// empty, degenerate (zero-area polygon), self-intersecting, or an
	// unsupported geometry kind.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrUnsupportedCRS marks input tagged with a coordinate reference
	// system that has no registered transform to the canonical CRS.
	ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

	// ErrUnknownHazardType is returned by the spatial index when queried
	// for a hazard type absent at build time. Callers that tolerate missing
	// layers treat it as "zero matches", not a request failure.
	ErrUnknownHazardType = errors.New("unknown hazard type")

	// ErrNoData marks a hazard type that could not be scored at all.
	// One unscored hazard type never blocks the remaining types.
	ErrNoData = errors.New("no hazard data")
)
