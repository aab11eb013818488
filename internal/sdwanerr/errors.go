// Package sdwanerr defines the error taxonomy shared by every subsystem in
// the control plane. Call sites wrap a sentinel with fmt.Errorf's %w so
// callers can classify a failure with errors.Is without parsing strings.
package sdwanerr

import "errors"

var (
	// ErrInvalidArgument marks bad configuration or API payload at a
	// boundary. It surfaces to the caller (422/400 for the API, a fatal
	// exit at config load) and is never retried.
	ErrInvalidArgument = errors.New("sdwan: invalid argument")

	// ErrTransportFailure marks an HTTP timeout, connection refusal, or
	// unexpected status from the controller. Recovered locally by the
	// retry wrapper, which reports a spent budget as a false/absent result.
	ErrTransportFailure = errors.New("sdwan: transport failure")

	// ErrRetryExhausted names the spent-retry-budget kind. No call site
	// returns it: the controller client reports exhaustion as a false or
	// absent result, and that result drives the agent's fallback transition.
	ErrRetryExhausted = errors.New("sdwan: retry exhausted")

	// ErrSubnetViolation marks a route whose destination or next-hop lies
	// outside the configured overlay subnet. The offending command is
	// skipped; sync continues with the rest of the diff.
	ErrSubnetViolation = errors.New("sdwan: subnet violation")

	// ErrForwardingCommandFailure marks a non-zero exit or timeout from a
	// forwarding-table command. The destination is marked failed for the
	// cycle; the cycle continues.
	ErrForwardingCommandFailure = errors.New("sdwan: forwarding command failure")

	// ErrNoPath names the no-finite-cost-path kind. The solver does not
	// return it; it skips such destinations silently.
	ErrNoPath = errors.New("sdwan: no path")
)
