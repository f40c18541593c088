package chat

import (
	"sync"
	"time"
)

// Ticker abstracts time.Ticker so tests can drive polls manually.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// TickerFactory builds the ticker a Poller runs on.
type TickerFactory func(d time.Duration) Ticker

func defaultTickerFactory(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Poller invokes a callback on an interval until stopped. Start and Stop
// are both idempotent; Stop never blocks and is safe from any goroutine.
type Poller struct {
	interval time.Duration
	onTick   func()
	factory  TickerFactory

	mu      sync.Mutex
	stop    chan struct{}
	stopped sync.Once
	running bool
}

func NewPoller(interval time.Duration, onTick func(), factory TickerFactory) *Poller {
	if factory == nil {
		factory = defaultTickerFactory
	}
	return &Poller{
		interval: interval,
		onTick:   onTick,
		factory:  factory,
		stop:     make(chan struct{}),
	}
}

func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	ticker := p.factory(p.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C():
				p.onTick()
			}
		}
	}()
}

func (p *Poller) Stop() {
	p.stopped.Do(func() { close(p.stop) })
}
