package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Feed sources and stores return
// these (optionally wrapped) so services can translate them into API errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the backing collection
// - ErrClosed: component has been torn down; no further reads or deliveries
// - ErrInvalidState: component in wrong state for the requested operation
// - ErrUnavailable: feed transport or backing service unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrClosed       = errors.New("closed")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
