// Package selector implements the candidate protocol selector (C5):
// filtering and ranking the protocol registry by a transport-properties
// map, per §4.1 of SPEC_FULL.md. The algorithm itself is a direct port of
// original_source/pytaps/transports.py's create_candidates, restructured
// around the Go registry/descriptor types in internal/protocol.
package selector

import (
	"sort"

	tapserrors "github.com/taps-go/taps/internal/errors"
	"github.com/taps-go/taps/internal/protocol"
)

// PreferenceLevel mirrors taps.PreferenceLevel without importing the root
// package (which itself depends on this one); the root package converts
// its own level type to this one at the call boundary.
type PreferenceLevel int

const (
	Ignore PreferenceLevel = iota
	Require
	Prefer
	Avoid
	Prohibit
)

// Candidate is one ranked entry of the selector's output: a protocol name
// plus its prefer/avoid tally.
type Candidate struct {
	Protocol protocol.Name
	Prefer   int
	Avoid    int
}

// Select filters registry by props and returns the surviving protocols
// ordered most-preferred first. It returns a *tapserrors.SelectionError
// when filtering leaves nothing standing.
func Select(props map[protocol.Property]PreferenceLevel, registry []protocol.Descriptor) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(registry))
	alive := make(map[protocol.Name]*Candidate, len(registry))

	for _, d := range registry {
		c := Candidate{Protocol: d.Name}
		candidates = append(candidates, c)
		alive[d.Name] = &candidates[len(candidates)-1]
	}

	remove := func(name protocol.Name) {
		delete(alive, name)
	}

	// A key no descriptor declares has no effect, whatever its level.
	known := make(map[protocol.Property]bool)
	for _, d := range registry {
		for prop := range d.Capabilities {
			known[prop] = true
		}
	}

	for _, d := range registry {
		for prop, level := range props {
			if !known[prop] {
				continue
			}
			cap := d.Capability(prop)
			switch level {
			case Require:
				if !cap.SatisfiesRequire() {
					remove(d.Name)
				}
			case Prohibit:
				if cap.ViolatesProhibit() {
					remove(d.Name)
				}
			case Prefer:
				if cap.CountsForPreferAvoid() {
					if c, ok := alive[d.Name]; ok {
						c.Prefer++
					}
				}
			case Avoid:
				if cap.CountsForPreferAvoid() {
					if c, ok := alive[d.Name]; ok {
						c.Avoid--
					}
				}
			case Ignore:
				// no effect
			}
		}
	}

	survivors := make([]Candidate, 0, len(alive))
	for _, d := range registry {
		if c, ok := alive[d.Name]; ok {
			survivors = append(survivors, *c)
		}
	}

	if len(survivors) == 0 {
		return nil, &tapserrors.SelectionError{Details: "no protocol in the registry satisfies every Require and violates no Prohibit"}
	}

	// Stable sort descending by (Prefer, Avoid); ties retain registry
	// order because sort.SliceStable preserves the relative order of
	// equal elements.
	sort.SliceStable(survivors, func(i, j int) bool {
		if survivors[i].Prefer != survivors[j].Prefer {
			return survivors[i].Prefer > survivors[j].Prefer
		}
		return survivors[i].Avoid > survivors[j].Avoid
	})

	return survivors, nil
}
