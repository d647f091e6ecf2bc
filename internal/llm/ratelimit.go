package llm

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	ChatClient
	limiter *rate.Limiter
}

// RateLimited wraps c so that calls start at most rps times per second, with
// bursts of one. A non-positive rps disables limiting.
func RateLimited(c ChatClient, rps float64) ChatClient {
	if rps <= 0 {
		return c
	}
	return &rateLimited{ChatClient: c, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (r *rateLimited) Chat(ctx context.Context, system, user string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.ChatClient.Chat(ctx, system, user)
}
