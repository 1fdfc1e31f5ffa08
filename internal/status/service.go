package status

import "context"

// Service is the contract between the light core and its transports.
//
// SetStatus applies a request on behalf of source. When something changed
// the returned snapshot carries the request duration and source, and the
// same snapshot has been broadcast to every update sink. When nothing
// changed it is a plain snapshot and nothing is broadcast.
//
// GetStatus is a side-effect-free read.
type Service interface {
	SetStatus(ctx context.Context, source string, req Request) (Snapshot, error)
	GetStatus(ctx context.Context) (Snapshot, error)
}
