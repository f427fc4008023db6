package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextLearnerKey ctxKey = "learner"

// Learner is the authenticated caller attached to a request context.
type Learner struct {
	ID    int64
	Email string
}

func LearnerFromContext(ctx context.Context) (Learner, bool) {
	if ctx == nil {
		return Learner{}, false
	}
	learner, ok := ctx.Value(ContextLearnerKey).(Learner)
	return learner, ok
}

func ContextWithLearner(ctx context.Context, learner Learner) context.Context {
	return context.WithValue(ctx, ContextLearnerKey, learner)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
