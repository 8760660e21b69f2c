package model

import "errors"

// Error taxonomy. Component errors wrap one of these so callers can
// classify a failure with errors.Is.
var (
	// ErrTransport covers open/send/close failures of the channel.
	ErrTransport = errors.New("transport failure")

	// ErrProtocol covers malformed or unparseable inbound payloads.
	ErrProtocol = errors.New("protocol error")

	// ErrPolicy covers requests refused by policy (protected symbol,
	// duplicate add, send while disconnected). State is left unchanged.
	ErrPolicy = errors.New("policy violation")

	// ErrExhaustedRetries is terminal until an explicit reconnect.
	ErrExhaustedRetries = errors.New("reconnection attempts exhausted")
)
