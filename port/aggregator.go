package port

import (
	"maps"
	"sync"

	"github.com/c360/framecore/element"
)

// AggregatedEdges counts the connectors leading from ports below one edge
// aggregator to ports below other edge aggregators. It is attached to the
// source aggregator on its first outgoing connector.
type AggregatedEdges struct {
	mu     sync.Mutex
	counts map[element.Handle]int
}

// Count returns the number of connectors to the aggregator with handle dest
func (a *AggregatedEdges) Count(dest element.Handle) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[dest]
}

// Destinations returns a copy of all counts keyed by destination aggregator
func (a *AggregatedEdges) Destinations() map[element.Handle]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.counts)
}

func (a *AggregatedEdges) add(dest element.Handle, delta int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[dest] += delta
	if a.counts[dest] <= 0 {
		delete(a.counts, dest)
	}
}

// EdgesOf returns the aggregated edge statistics of an edge aggregator, or
// nil if it never had an outgoing connector
func EdgesOf(aggregator *element.Element) *AggregatedEdges {
	return element.GetAnnotation[AggregatedEdges](aggregator)
}

func aggregatorOf(p *Port) *element.Element {
	return p.ParentWithFlags(element.FlagEdgeAggregator)
}

func recordAggregatedEdge(c *Connector, delta int) {
	src, dst := aggregatorOf(c.source), aggregatorOf(c.destination)
	if src == nil || dst == nil || src == dst {
		return
	}
	edges := EdgesOf(src)
	if edges == nil {
		if delta < 0 {
			return
		}
		edges = &AggregatedEdges{counts: make(map[element.Handle]int)}
		if err := element.Annotate(src, edges); err != nil {
			if edges = EdgesOf(src); edges == nil {
				return
			}
		}
	}
	edges.add(dst.Handle(), delta)
}
