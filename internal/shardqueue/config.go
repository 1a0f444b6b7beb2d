package shardqueue

import "time"

// Config tunes a ShardExecutor. Zero values take the defaults applied in
// NewShardExecutor, so Config{} is a valid configuration.
type Config struct {
	// Shards is the number of worker goroutines and queues.
	Shards int
	// QueueSize is the per-shard channel capacity.
	QueueSize int
	// EnqueueTimeout bounds how long Submit blocks waiting for queue space
	// before returning a QueueFullError.
	EnqueueTimeout time.Duration
	// MaxAttempts caps retries of a failing job, first attempt included.
	MaxAttempts int
	// BaseBackoff is the initial retry interval.
	BaseBackoff time.Duration
	// MaxInterval caps the exponential backoff interval.
	MaxInterval time.Duration
	// ErrorHandler, when set, receives every error that exhausted its
	// retries or was irrecoverable. It must not block.
	ErrorHandler func(error)
}
