package inheritchain

import (
	"sync"
	"time"

	"github.com/EnzoRoselli/InheritChain/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	DefaultPollFloor   = 5 * time.Second
	DefaultPollCeiling = 60 * time.Second
)

// LivenessMonitor polls the derived dead flag for heirs watching an
// inheritance. The interval is re-derived from the current alive window every
// tick, so at least one check lands inside each window; cancellation is a
// stop signal checked on each tick, and a watch retires itself once the
// observer's claim is recorded.
type LivenessMonitor struct {
	cli     *Client
	floor   time.Duration
	ceiling time.Duration

	mu      sync.Mutex
	watches map[watchKey]*Watch
}

type watchKey struct {
	observer    ethcommon.Address
	inheritance ethcommon.Address
}

type Watch struct {
	monitor *LivenessMonitor
	key     watchKey
	onDead  func(dead bool)

	stop chan struct{}
	once sync.Once
	done chan struct{}
}

func NewLivenessMonitor(cli *Client, floor, ceiling time.Duration) *LivenessMonitor {
	if floor <= 0 {
		floor = DefaultPollFloor
	}
	if ceiling < floor {
		ceiling = DefaultPollCeiling
	}
	return &LivenessMonitor{
		cli:     cli,
		floor:   floor,
		ceiling: ceiling,
		watches: make(map[watchKey]*Watch),
	}
}

// interval keeps at least one poll per alive window: half the window,
// clamped to the configured bounds and never longer than the window itself.
func (m *LivenessMonitor) interval(aliveTimeOut int64) time.Duration {
	window := time.Duration(aliveTimeOut) * time.Second
	iv := window / 2
	if iv < m.floor {
		iv = m.floor
	}
	if iv > m.ceiling {
		iv = m.ceiling
	}
	if window > 0 && iv > window {
		iv = window
	}
	return iv
}

// Watch starts polling for one observer on one inheritance. onDead fires on
// every observed flip of the derived flag, including the initial read.
func (m *LivenessMonitor) Watch(observer, inheritance ethcommon.Address, onDead func(dead bool)) (*Watch, error) {
	key := watchKey{observer: observer, inheritance: inheritance}

	m.mu.Lock()
	if _, ok := m.watches[key]; ok {
		m.mu.Unlock()
		return nil, ErrWatchExist
	}
	w := &Watch{
		monitor: m,
		key:     key,
		onDead:  onDead,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	m.watches[key] = w
	m.mu.Unlock()

	go w.run()
	return w, nil
}

// Stop signals the watch to finish; the effect of an in-flight poll may
// still land.
func (w *Watch) Stop() {
	w.once.Do(func() { close(w.stop) })
}

// Done closes once the polling loop has exited.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

func (w *Watch) run() {
	defer close(w.done)
	defer func() {
		w.monitor.mu.Lock()
		delete(w.monitor.watches, w.key)
		w.monitor.mu.Unlock()
	}()

	var lastDead *bool
	poll := func() (stopNow bool) {
		claimed, err := w.monitor.cli.GetIsInheritanceClaimed(w.key.observer, w.key.inheritance)
		if err != nil {
			common.LivenessChecks.WithLabelValues("error").Inc()
			log.Error("liveness claimed check", "inheritance", w.key.inheritance.Hex(), "err", err)
			return false
		}
		if claimed {
			// terminal state for this observer, no more background work
			common.LivenessChecks.WithLabelValues("claimed").Inc()
			return true
		}
		dead, err := w.monitor.cli.IsAdministratorDead(w.key.inheritance)
		if err != nil {
			common.LivenessChecks.WithLabelValues("error").Inc()
			log.Error("liveness poll", "inheritance", w.key.inheritance.Hex(), "err", err)
			return false
		}
		if dead {
			common.LivenessChecks.WithLabelValues("dead").Inc()
		} else {
			common.LivenessChecks.WithLabelValues("alive").Inc()
		}
		if lastDead == nil || *lastDead != dead {
			lastDead = &dead
			if w.onDead != nil {
				w.onDead(dead)
			}
		}
		return false
	}

	if poll() {
		return
	}

	interval := w.currentInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if poll() {
				return
			}
			// the window is domain data and the administrator can change
			// it at any time; re-derive the cadence after every tick
			if next := w.currentInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (w *Watch) currentInterval() time.Duration {
	state, err := w.monitor.cli.InheritanceState(w.key.inheritance)
	if err != nil {
		return w.monitor.floor
	}
	return w.monitor.interval(state.Administrator.AliveTimeOut)
}

// StopAll cancels every active watch and waits for the loops to exit.
func (m *LivenessMonitor) StopAll() {
	m.mu.Lock()
	active := make([]*Watch, 0, len(m.watches))
	for _, w := range m.watches {
		active = append(active, w)
	}
	m.mu.Unlock()
	for _, w := range active {
		w.Stop()
		<-w.Done()
	}
}
