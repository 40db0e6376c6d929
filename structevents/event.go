package structevents

import (
	"fmt"
	"time"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/port"
)

// Kind names the kind of structure an event describes
type Kind string

const (
	// KindElement events report framework elements being published, deleted
	// or changing status
	KindElement Kind = "element"
	// KindConnector events report connectors between ports
	KindConnector Kind = "connector"
	// KindURIConnector events report URI connectors and their status
	KindURIConnector Kind = "uri"
)

// Event is the JSON document published for one structural change. Sequence
// numbers are assigned in the order the changes happened.
type Event struct {
	Runtime     string `json:"runtime"`
	Sequence    uint64 `json:"sequence"`
	Timestamp   string `json:"timestamp"` // RFC3339 format
	Kind        Kind   `json:"kind"`
	Change      string `json:"change"`
	Handle      uint32 `json:"handle,omitempty"`
	Path        string `json:"path,omitempty"`
	Flags       string `json:"flags,omitempty"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
	ID          string `json:"id,omitempty"`
	URI         string `json:"uri,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Subject returns the subject the event is published on:
// {prefix}.{runtime}.{kind}.{change}
func (ev Event) Subject(prefix string) string {
	return fmt.Sprintf("%s.%s.%s.%s", prefix, ev.Runtime, ev.Kind, ev.Change)
}

func newEvent(kind Kind, change element.ChangeType) Event {
	return Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Kind:      kind,
		Change:    change.String(),
	}
}

func elementEvent(change element.ChangeType, e *element.Element) Event {
	ev := newEvent(KindElement, change)
	ev.Handle = uint32(e.Handle())
	ev.Path = e.QualifiedName()
	ev.Flags = e.Flags().String()
	return ev
}

func connectorEvent(change element.ChangeType, c *port.Connector) Event {
	ev := newEvent(KindConnector, change)
	ev.Source = c.Source().QualifiedName()
	ev.Destination = c.Destination().QualifiedName()
	ev.Flags = c.Flags().String()
	return ev
}

func uriConnectorEvent(change element.ChangeType, u port.URIConnector) Event {
	ev := newEvent(KindURIConnector, change)
	ev.ID = u.ID().String()
	ev.URI = u.URI()
	ev.Owner = u.Owner().QualifiedName()
	ev.Status = u.Status().String()
	return ev
}
