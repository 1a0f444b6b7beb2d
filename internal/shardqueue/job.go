package shardqueue

import "context"

// Job is one unit of background work. Jobs submitted under the same key run
// in submission order; a Job reused across submissions must tolerate
// concurrent Run calls.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a plain function to the Job interface.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }
