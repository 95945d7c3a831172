package racing

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/taps-go/taps/internal/protocol"
	"github.com/taps-go/taps/internal/transport"
)

// Candidate is one entry of the racing engine's cross-product candidate
// set: a protocol plus a concrete remote address and (optionally) a
// concrete local address to bind from.
type Candidate struct {
	Protocol protocol.Name
	Remote   net.Addr
	Local    net.Addr
}

// DialerFor resolves a protocol name to the Dialer that can attempt it.
// The caller (Preconnection.Initiate) builds this from the security
// parameters and framer configuration in scope for the attempt.
type DialerFor func(protocol.Name) (transport.Dialer, error)

// Options tunes the racing engine's timing.
type Options struct {
	// StaggerDelay is D, the fixed inter-attempt delay between stream
	// candidate launches. Zero selects the 100ms design default.
	StaggerDelay time.Duration
}

func (o Options) stagger() time.Duration {
	if o.StaggerDelay <= 0 {
		return 100 * time.Millisecond
	}
	return o.StaggerDelay
}

// Winner is what Race delivers for the candidate that reached
// Established first.
type Winner struct {
	Adapter   transport.Adapter
	Candidate Candidate
}

type attemptResult struct {
	winner Winner
	err    error
}

// Race runs the staggered-launch/first-wins-commit protocol over
// candidates, in order, per §4.2 steps 4–6. It returns the winning
// adapter and candidate, or an error aggregating every attempt's failure
// if none succeeded.
//
// Stream candidates are launched asynchronously, separated by D; a
// datagram candidate is attempted synchronously and, on success, wins
// immediately without waiting for D or trying any further candidate —
// "the first datagram candidate succeeds immediately and racing stops".
func Race(ctx context.Context, candidates []Candidate, dialerFor DialerFor, opts Options) (Winner, error) {
	if len(candidates) == 0 {
		return Winner{}, fmt.Errorf("racing: no candidates to try")
	}

	raceCtx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	results := make(chan attemptResult, len(candidates))
	inFlight := 0
	var failures []error

	launch := func(c Candidate) {
		dialer, err := dialerFor(c.Protocol)
		if err != nil {
			results <- attemptResult{err: fmt.Errorf("%s: %w", c.Protocol, err)}
			return
		}
		adapter, err := dialer.Dial(raceCtx, c.Local, c.Remote)
		if err != nil {
			results <- attemptResult{err: fmt.Errorf("%s %s: %w", c.Protocol, c.Remote, err)}
			return
		}
		results <- attemptResult{winner: Winner{Adapter: adapter, Candidate: c}}
	}

	i := 0
	for i < len(candidates) {
		c := candidates[i]
		i++

		if protocol.IsDatagram(c.Protocol) {
			// Attempted synchronously and, on success, wins without
			// waiting on any in-flight stream attempts or launching any
			// further candidate.
			dialer, err := dialerFor(c.Protocol)
			if err != nil {
				failures = append(failures, fmt.Errorf("%s: %w", c.Protocol, err))
				continue
			}
			adapter, err := dialer.Dial(raceCtx, c.Local, c.Remote)
			if err != nil {
				failures = append(failures, fmt.Errorf("%s %s: %w", c.Protocol, c.Remote, err))
				continue
			}
			drainLosers(raceCtx, cancelAll, results, inFlight)
			return Winner{Adapter: adapter, Candidate: c}, nil
		}

		inFlight++
		go launch(c)

		timer := time.NewTimer(opts.stagger())
		select {
		case res := <-results:
			timer.Stop()
			inFlight--
			if res.err != nil {
				failures = append(failures, res.err)
				continue
			}
			drainLosers(raceCtx, cancelAll, results, inFlight)
			return res.winner, nil
		case <-timer.C:
			// D elapsed without a result; launch the next candidate
			// while this one keeps racing.
		case <-ctx.Done():
			timer.Stop()
			return Winner{}, ctx.Err()
		}
	}

	// Every candidate has been launched; wait for the remaining
	// in-flight attempts to settle.
	for inFlight > 0 {
		select {
		case res := <-results:
			inFlight--
			if res.err != nil {
				failures = append(failures, res.err)
				continue
			}
			drainLosers(raceCtx, cancelAll, results, inFlight)
			return res.winner, nil
		case <-ctx.Done():
			return Winner{}, ctx.Err()
		}
	}

	return Winner{}, &raceFailure{attempts: failures}
}

// drainLosers cancels every outstanding attempt's context and discards
// whatever they eventually return, closing any socket a loser managed to
// open before the cancellation reached it — §4.2's commit rule and §5's
// "already-in-flight data on a loser MUST be discarded".
func drainLosers(ctx context.Context, cancel context.CancelFunc, results <-chan attemptResult, inFlight int) {
	cancel()
	go func() {
		for ; inFlight > 0; inFlight-- {
			res := <-results
			if res.err == nil && res.winner.Adapter != nil {
				res.winner.Adapter.Close()
			}
		}
	}()
}

// raceFailure aggregates every candidate's failure when none succeeded.
type raceFailure struct {
	attempts []error
}

func (e *raceFailure) Error() string {
	if len(e.attempts) == 0 {
		return "racing: no candidate reached Established"
	}
	return fmt.Sprintf("racing: all %d candidates failed, last error: %v", len(e.attempts), e.attempts[len(e.attempts)-1])
}

func (e *raceFailure) Unwrap() []error { return e.attempts }
