// Package errors provides the error taxonomy of the framework core.
//
// # Overview
//
// Errors fall into three classes:
//
//   - Transient: environmental failures such as a missing port or a lost
//     broker connection. Callers may retry, log or ignore them.
//   - Invalid: programmer errors such as malformed connect options or an
//     unparsable URI. They are returned, never silently tolerated.
//   - Fatal: violated structural invariants (hierarchy depth, link limit,
//     duplicate qualified names among ready siblings). Continuing would make
//     path based addressing ambiguous, so the core panics via Fatal.
//
// The classification works with errors.Is and errors.As across wrap chains.
//
// # Usage
//
//	if err := p.ConnectTo(other, opts); err != nil {
//	    if errors.IsInvalid(err) {
//	        return err // caller bug
//	    }
//	    logger.Warn("connect failed", "error", err)
//	}
//
// Wrap third-party errors with context:
//
//	return errors.Wrap(err, "Loader", "Load", "decode yaml")
//
// produces "Loader.Load: decode yaml failed: <cause>".
package errors
