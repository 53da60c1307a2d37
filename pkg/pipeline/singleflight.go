package pipeline

import (
	"sync"

	"costwatch-hq/saturn/pkg/costdata"
)

// inflight is a shared pending-result handle for one profile's fetch.
type inflight struct {
	done   chan struct{}
	result *Result
	err    error
}

// flightGroup guarantees at most one live fetch per profile. A second
// caller for the same profile while one is outstanding joins the first's
// result instead of issuing a duplicate provider call.
//
// A timer fire racing a manual refresh is the expected case here; joining
// is cheaper than cancelling and the result is identical.
type flightGroup struct {
	mu      sync.Mutex
	flights map[costdata.Profile]*inflight
}

func newFlightGroup() *flightGroup {
	return &flightGroup{flights: make(map[costdata.Profile]*inflight)}
}

// do runs fn for the profile unless a fetch is already in flight, in
// which case it waits for and returns the in-flight result. The joined
// bool reports which happened.
func (g *flightGroup) do(profile costdata.Profile, fn func() (*Result, error)) (result *Result, err error, joined bool) {
	g.mu.Lock()
	if existing, ok := g.flights[profile]; ok {
		g.mu.Unlock()
		<-existing.done
		return existing.result, existing.err, true
	}

	flight := &inflight{done: make(chan struct{})}
	g.flights[profile] = flight
	g.mu.Unlock()

	flight.result, flight.err = fn()

	g.mu.Lock()
	delete(g.flights, profile)
	g.mu.Unlock()
	close(flight.done)

	return flight.result, flight.err, false
}
