package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/devhubhq/devhub/internal/jobs"
	"github.com/redis/go-redis/v9"
)

const notificationsKey = "devhub:jobs:notifications"

// Queue is a Redis-list backed job queue. The API enqueues, the worker pops.
type Queue struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

func (q *Queue) Enqueue(ctx context.Context, j jobs.Job) error {
	if !j.Type.IsValid() {
		return jobs.ErrInvalidJobType
	}

	b, err := json.Marshal(j)

	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return q.rdb.LPush(ctx, notificationsKey, b).Err()
}

// Dequeue blocks up to timeout for the next job. The second return is false
// when the wait expired with nothing to do.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, bool, error) {
	res, err := q.rdb.BRPop(ctx, timeout, notificationsKey).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, false, nil
		}

		return jobs.Job{}, false, err
	}

	// BRPOP returns [key, value]
	if len(res) != 2 {
		return jobs.Job{}, false, fmt.Errorf("unexpected brpop reply of length %d", len(res))
	}

	var j jobs.Job

	err = json.Unmarshal([]byte(res[1]), &j)

	if err != nil {
		return jobs.Job{}, false, fmt.Errorf("unmarshal job: %w", err)
	}

	return j, true, nil
}
