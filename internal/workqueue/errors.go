package workqueue

import (
	"errors"
	"fmt"
)

// ErrQueueClosed is returned by Submit after Stop has been called.
var ErrQueueClosed = errors.New("workqueue: closed")

// ErrQueueFull matches any *QueueFullError via errors.Is.
var ErrQueueFull = errors.New("workqueue: shard full")

// QueueFullError reports which shard rejected a submission and how full it was.
type QueueFullError struct {
	Shard    int
	Length   int
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("workqueue: shard %d full (%d/%d)", e.Shard, e.Length, e.Capacity)
}

// Is lets errors.Is(err, ErrQueueFull) succeed for *QueueFullError values.
func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }
