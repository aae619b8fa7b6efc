package traffic

import (
	"fmt"
	"math/rand"
)

// TokenConfig parameterizes a token bucket. The bucket starts full, gains
// Rate tokens per tick up to Capacity, and each packet spends one token.
// Packets without a token wait in a queue of QueueLimit (0 means unbounded).
type TokenConfig struct {
	Arrivals   `yaml:",inline"`
	Capacity   int `json:"capacity" yaml:"capacity" toml:"capacity"`
	Rate       int `json:"rate" yaml:"rate" toml:"rate"`
	QueueLimit int `json:"queue_limit,omitempty" yaml:"queue_limit,omitempty" toml:"queue_limit"`
}

// Validate checks the bucket parameters and the arrival description.
func (c TokenConfig) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrConfig, c.Capacity)
	}
	if c.Rate < 1 {
		return fmt.Errorf("%w: rate must be positive, got %d", ErrConfig, c.Rate)
	}
	if c.QueueLimit < 0 {
		return fmt.Errorf("%w: queue_limit must be non-negative, got %d", ErrConfig, c.QueueLimit)
	}
	return c.Arrivals.validate()
}

// TokenBucket generates a token bucket timeline. Unlike the leaky bucket it
// lets a burst of up to Capacity packets through in a single tick.
func TokenBucket(cfg TokenConfig, rng *rand.Rand) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Algorithm: "token-bucket"}
	rec := recorder{name: "token", res: &res}

	tokens, queue := cfg.Capacity, 0
	ticks := cfg.ticks()
	for tick := 0; tick < ticks; tick++ {
		if tick > 0 && tokens < cfg.Capacity {
			added := min(cfg.Rate, cfg.Capacity-tokens)
			tokens += added
			rec.emit(tick, EventTokens, Event{Packets: added, Level: queue, Tokens: tokens}, "%d token(s) added, %d/%d available", added, tokens, cfg.Capacity)
		}

		n := cfg.at(tick, rng)
		res.Arrived += n
		admitted := n
		if cfg.QueueLimit > 0 {
			admitted = min(n, cfg.QueueLimit-queue)
		}
		queue += admitted
		res.PeakLevel = max(res.PeakLevel, queue)
		if n > 0 {
			rec.emit(tick, EventArrival, Event{Packets: admitted, Level: queue, Tokens: tokens}, "%d packet(s) arrive, %d queued", n, queue)
		}
		if over := n - admitted; over > 0 {
			res.Dropped += over
			rec.emit(tick, EventDrop, Event{Packets: over, Level: queue, Tokens: tokens}, "queue full, %d packet(s) dropped", over)
		}

		out := min(queue, tokens)
		if out == 0 {
			continue
		}
		queue -= out
		tokens -= out
		res.Sent += out
		res.PeakSend = max(res.PeakSend, out)
		rec.emit(tick, EventSend, Event{Packets: out, Level: queue, Tokens: tokens}, "%d packet(s) sent, %d token(s) left", out, tokens)
	}
	res.Ticks = ticks
	res.Level = queue
	rec.emit(ticks, EventDone, Event{Level: queue, Tokens: tokens}, "%d arrived, %d sent, %d dropped, %d queued", res.Arrived, res.Sent, res.Dropped, queue)
	return res, nil
}
