package price

import (
	"errors"
	"fmt"
	"time"
)

/*
Price is the unit of data tracked by the store: the value of one instrument as
of one instant. Payloads are opaque; the type parameter fixes what a given
deployment carries without the core ever inspecting it. A zero AsOf stands for
an unknown observation time and loses to any timestamped value during
selection.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrEmptyInstrument is returned when constructing a price with no instrument.
var ErrEmptyInstrument = errors.New("instrument must not be empty")

// Price is the value of one instrument at one observation time.
type Price[P any] struct {
	Instrument string    `json:"instrument"`
	AsOf       time.Time `json:"asOf"`
	Payload    P         `json:"payload"`
}

// New returns a price for the given instrument. The instrument must be
// nonempty; the timestamp and payload are unconstrained.
func New[P any](instrument string, asOf time.Time, payload P) (Price[P], error) {
	if instrument == "" {
		return Price[P]{}, ErrEmptyInstrument
	}
	return Price[P]{Instrument: instrument, AsOf: asOf, Payload: payload}, nil
}

// HasTimestamp reports whether the price carries an observation time.
func (p Price[P]) HasTimestamp() bool {
	return !p.AsOf.IsZero()
}

func (p Price[P]) String() string {
	if !p.HasTimestamp() {
		return p.Instrument + "@unknown"
	}
	return fmt.Sprintf("%s@%s", p.Instrument, p.AsOf.Format(time.RFC3339Nano))
}

// Latest selects between the existing and candidate price for an instrument,
// returning the retained price and whether the candidate displaced the
// existing value. The candidate wins only with a strictly later timestamp.
// Ties keep the existing value, an untimestamped candidate never wins, and an
// untimestamped existing value yields to any timestamped candidate.
func Latest[P any](existing, candidate Price[P]) (Price[P], bool) {
	switch {
	case !candidate.HasTimestamp():
		return existing, false
	case !existing.HasTimestamp():
		return candidate, true
	case candidate.AsOf.After(existing.AsOf):
		return candidate, true
	default:
		return existing, false
	}
}
