package source

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
)

// Synthetic generates plausible arrivals locally. It backs demo mode and the
// degraded path when the remote source fails.
type Synthetic struct {
	mu       sync.Mutex
	rng      *rand.Rand
	poolSize int
	latency  time.Duration
}

// NewSynthetic creates a generator. A zero seed seeds from the clock.
func NewSynthetic(seed int64, poolSize int) *Synthetic {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if poolSize <= 0 {
		poolSize = 50
	}
	return &Synthetic{
		rng:      rand.New(rand.NewSource(seed)),
		poolSize: poolSize,
	}
}

// WithLatency makes every call wait d, or until ctx is done.
func (s *Synthetic) WithLatency(d time.Duration) *Synthetic {
	s.latency = d
	return s
}

func (s *Synthetic) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Candidates returns a pool of arrivals spread over roughly the next half
// hour. The pool is larger than any board so dedup still leaves enough.
func (s *Synthetic) Candidates(ctx context.Context, st catalog.Station, dir catalog.Direction) ([]arrivals.RawCandidate, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if len(st.Lines) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]arrivals.RawCandidate, s.poolSize)
	for i := range out {
		out[i] = arrivals.RawCandidate{
			Line:      st.Lines[s.rng.Intn(len(st.Lines))],
			Direction: dir,
			Minutes:   float64(i)*0.6 + s.rng.Float64()*4 + 1,
			Delayed:   s.rng.Float64() > 0.8,
		}
	}
	return out, nil
}

// Alerts returns one alert per line; most report normal service.
func (s *Synthetic) Alerts(ctx context.Context, st catalog.Station) ([]arrivals.Alert, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]arrivals.Alert, 0, len(st.Lines))
	for _, l := range st.Lines {
		a := arrivals.Alert{
			ID:    fmt.Sprintf("%s-%s", st.ID, l),
			Lines: []catalog.LineID{l},
		}
		if s.rng.Float64() < 0.2 {
			a.Headline = "Delays"
			a.Description = fmt.Sprintf("Delays reported on the %s line due to signal maintenance.", l)
		} else {
			a.Headline = "Good Service"
			a.Description = fmt.Sprintf("%s train service is active.", l)
		}
		out = append(out, a)
	}
	return out, nil
}
