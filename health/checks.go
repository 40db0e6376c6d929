package health

import (
	"fmt"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/pkg/reclaim"
	"github.com/c360/framecore/structevents"
)

// Check computes the current status of one service
type Check func() Status

// RuntimeCheck reports the element tree. It is unhealthy once the runtime
// root was torn down.
func RuntimeCheck(rt *element.Runtime) Check {
	return func() Status {
		root := rt.Root()
		if root.IsDeleted() || !root.IsReady() {
			return NewUnhealthy("runtime", "runtime root is not ready")
		}
		n := rt.Registry().Len()
		return NewHealthy("runtime", fmt.Sprintf("%d elements registered", n)).
			WithMetrics(&Metrics{Elements: n})
	}
}

// ReclaimerCheck reports the deferred reclaimer. It is unhealthy when the
// worker is not running and degraded when more than maxPending objects wait
// for release. maxPending <= 0 disables the backlog check.
func ReclaimerCheck(r *reclaim.Reclaimer, maxPending int) Check {
	return func() Status {
		stats := r.Stats()
		metrics := &Metrics{Pending: stats.Pending, Cycle: stats.Cycle}
		var s Status
		switch {
		case !r.Running():
			s = NewUnhealthy("reclaimer", "reclaimer is not running")
		case maxPending > 0 && stats.Pending > maxPending:
			s = NewDegraded("reclaimer", fmt.Sprintf("%d retired objects pending", stats.Pending))
		default:
			s = NewHealthy("reclaimer", fmt.Sprintf("cycle %d", stats.Cycle))
		}
		return s.WithMetrics(metrics)
	}
}

// BrokerCheck reports the event broker connection. A reconnecting broker is
// degraded since events are buffered by the client meanwhile.
func BrokerCheck(b *structevents.Broker) Check {
	return func() Status {
		status := b.Status()
		switch status {
		case structevents.StatusConnected:
			return NewHealthy("events", "connected")
		case structevents.StatusConnecting, structevents.StatusReconnecting:
			return NewDegraded("events", status.String())
		default:
			return NewUnhealthy("events", status.String())
		}
	}
}

// EmitterCheck reports dropped or failed structural events as degraded
func EmitterCheck(e *structevents.Emitter) Check {
	return func() Status {
		stats := e.Stats()
		lost := stats.Dropped + stats.Failed
		if lost > 0 {
			return NewDegraded("emitter", fmt.Sprintf("%d events lost, %d published", lost, stats.Published)).
				WithMetrics(&Metrics{ErrorCount: int(lost)})
		}
		return NewHealthy("emitter", fmt.Sprintf("%d events published", stats.Published))
	}
}
