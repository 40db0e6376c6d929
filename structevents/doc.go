// Package structevents publishes structural changes of a runtime to NATS.
//
// An Emitter registers as runtime listener and turns every element, connector
// and URI connector change into a JSON Event. Events are published on
//
//	{prefix}.{runtime id}.{kind}.{change}
//
// for example framecore.events.6f1c....element.add. Each event carries a
// sequence number assigned under the structure lock, so consumers can
// restore the order in which changes happened.
//
// Broker wraps the NATS connection with retrying connect, status tracking and
// draining close. Tests publish through any Publisher instead.
package structevents
