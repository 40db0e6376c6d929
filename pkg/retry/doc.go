// Package retry provides exponential backoff retry for transient failures.
//
// The framework runner uses it to connect to the event broker at startup:
//
//	nc, err := retry.DoWithResult(ctx, retry.Startup(), func() (*nats.Conn, error) {
//	    return nats.Connect(url)
//	})
//
// Errors wrapped with NonRetryable stop the loop immediately.
package retry
