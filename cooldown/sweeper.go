/*
sweeper.go - Periodic removal of expired cooldowns

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Sweeps once immediately on Start, then on every tick
  - Only storage hygiene: reads already ignore and delete stale entries

USAGE:
  sweeper := cooldown.NewSweeper(manager)
  sweeper.Start()
  // ... later
  sweeper.Stop()
*/
package cooldown

import (
	"context"
	"log"
	"sync"
	"time"
)

// Sweeper calls Manager.CleanupExpired on an interval.
type Sweeper struct {
	Manager  *Manager
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	swept  int
}

// NewSweeper creates an enabled sweeper with a 10 minute interval.
func NewSweeper(manager *Manager) *Sweeper {
	return &Sweeper{
		Manager:  manager,
		Interval: 10 * time.Minute,
		Enabled:  true,
	}
}

// Start begins sweeping. It is a no-op when disabled or already running.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.Interval <= 0 {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	log.Printf("[Sweeper] Started with interval: %v", s.Interval)
}

// Stop stops sweeping and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.ticker = nil
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("[Sweeper] Stopped")
}

// Swept returns the number of entries removed since the sweeper was created.
func (s *Sweeper) Swept() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swept
}

func (s *Sweeper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.sweep()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-stop:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	n, err := s.Manager.CleanupExpired(context.Background())
	if err != nil {
		log.Printf("[Sweeper] Error removing expired cooldowns: %v", err)
		return
	}
	s.mu.Lock()
	s.swept += n
	s.mu.Unlock()
}
