// Package taps implements the application-facing side of a Transport
// Services (TAPS) API: an application states abstract transport properties
// and endpoints, and the package chooses, races and returns a concrete
// connection rather than making the application name a protocol.
//
// A typical active open:
//
//	props := taps.NewTransportProperties()
//	props.Require(taps.Reliability)
//	props.Prefer(taps.PreserveMsgBoundaries)
//
//	pre := taps.NewPreconnection(taps.WithProperties(props))
//	pre.SetRemoteEndpoint(new(taps.RemoteEndpoint).WithHostName("example.com").WithPort(443))
//	pre.SetHandler(myHandler)
//
//	conn, err := pre.Initiate(ctx)
//
// The package never blocks the caller's goroutine on event delivery:
// every on_* callback on the configured EventHandler runs on a private
// per-Connection dispatch goroutine, in the order the underlying events
// occurred.
package taps
