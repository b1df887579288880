package referral

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/everFinance/nftmarket/common"
	"github.com/everFinance/nftmarket/schema"
	"github.com/panjf2000/ants/v2"
)

var log = common.NewLog("referral")

type State string

const (
	StateIdle        State = "idle"        // no pending code
	StateCaptured    State = "captured"    // code pending, waiting for a wallet address
	StateRegistering State = "registering" // registration call in flight
)

const (
	DefaultRefParam = "ref"
	defaultWorkers  = 4
	eventBufSize    = 64
	releaseTimeout  = 5 * time.Second
)

// Registrar attributes a wallet address to a referral code on the remote side.
// Calling it twice with the same pair must be safe.
type Registrar interface {
	RegisterReferral(address, refCode string) error
}

type Option func(p *Pipeline)

func WithRefParam(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.refParam = name
		}
	}
}

func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

type eventKind int

const (
	captureEvent eventKind = iota
	addressEvent
	flushEvent
)

type event struct {
	kind  eventKind
	value string
	done  chan struct{} // flushEvent only
}

type result struct {
	address string
	refCode string
	err     error
}

// Pipeline captures referral codes from urls and registers the pending code
// whenever the wallet address changes to a non-empty value. Both event sources
// are handled by one loop goroutine; only the registration call runs outside it.
type Pipeline struct {
	store     *Store
	registrar Registrar
	refParam  string
	workers   int
	pool      *ants.Pool

	events  chan event
	results chan result
	quit    chan struct{}
	done    chan struct{}

	startOnce sync.Once
	closeOnce sync.Once

	state atomic.Value // State

	// owned by the loop goroutine
	lastAddress string
	inflight    map[string]struct{} // refCode -> call outstanding
}

func NewPipeline(store *Store, registrar Registrar, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		store:     store,
		registrar: registrar,
		refParam:  DefaultRefParam,
		workers:   defaultWorkers,
		events:    make(chan event, eventBufSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	// nonblocking: a busy pool must never stall the loop, the workers wait on it to take results
	pool, err := ants.NewPool(p.workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	p.pool = pool
	p.results = make(chan result, p.workers)
	p.state.Store(StateIdle)
	return p, nil
}

// Start runs the event loop. A pipeline closed before Start never runs.
func (p *Pipeline) Start() {
	p.startOnce.Do(func() {
		p.updateState()
		log.Info("referral pipeline started", "refParam", p.refParam, "workers", p.workers, "state", p.State())
		go p.run()
	})
}

// Close stops taking events, waits for in-flight registrations and applies
// their results to the store.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.startOnce.Do(func() {
			close(p.done)
		})
		<-p.done
		if err := p.pool.ReleaseTimeout(releaseTimeout); err != nil {
			log.Warn("release registration pool", "err", err)
		}
	})
}

func (p *Pipeline) State() State {
	return p.state.Load().(State)
}

// ObserveURL captures the referral parameter of query, if any.
func (p *Pipeline) ObserveURL(query url.Values) {
	code := strings.TrimSpace(query.Get(p.refParam))
	if code == "" {
		return
	}
	if err := p.send(event{kind: captureEvent, value: code}); err != nil {
		log.Warn("drop referral code", "refCode", code, "err", err)
	}
}

// ObserveAddress reports the current wallet address, "" meaning disconnected.
func (p *Pipeline) ObserveAddress(address string) {
	if err := p.send(event{kind: addressEvent, value: strings.TrimSpace(address)}); err != nil {
		log.Warn("drop address change", "address", address, "err", err)
	}
}

// flush returns once every event sent before it has been handled.
func (p *Pipeline) flush() bool {
	done := make(chan struct{})
	if err := p.send(event{kind: flushEvent, done: done}); err != nil {
		return false
	}
	select {
	case <-done:
		return true
	case <-p.done:
		return false
	}
}

// send never blocks the caller, a full queue drops the event.
func (p *Pipeline) send(ev event) error {
	select {
	case <-p.quit:
		return schema.ErrPipelineClosed
	default:
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return schema.ErrEventQueueFull
	}
}

func (p *Pipeline) run() {
	defer close(p.done)
	for {
		select {
		case ev := <-p.events:
			p.handle(ev)
		case res := <-p.results:
			p.settle(res)
		case <-p.quit:
			p.drain()
			return
		}
	}
}

// drain keeps the codes captured before Close and lets outstanding calls finish.
// Address changes still queued are dropped, no new call starts after Close.
func (p *Pipeline) drain() {
	for {
		select {
		case ev := <-p.events:
			if ev.kind != addressEvent {
				p.handle(ev)
			}
		default:
			for len(p.inflight) > 0 {
				p.settle(<-p.results)
			}
			return
		}
	}
}

func (p *Pipeline) handle(ev event) {
	switch ev.kind {
	case captureEvent:
		p.capture(ev.value)
	case addressEvent:
		p.addressChanged(ev.value)
	case flushEvent:
		close(ev.done)
	}
}

func (p *Pipeline) capture(code string) {
	if err := p.store.Capture(code); err != nil {
		log.Error("capture referral code failed", "refCode", code, "err", err)
		return
	}
	capturedCounter.Inc()
	log.Info("referral code captured", "refCode", code)
	p.updateState()
}

func (p *Pipeline) addressChanged(address string) {
	if address == p.lastAddress {
		return
	}
	p.lastAddress = address
	if address == "" {
		return
	}

	code, err := p.store.Read()
	if err != nil {
		log.Error("read pending referral code failed", "err", err)
		return
	}
	if code == "" {
		return
	}
	if _, ok := p.inflight[code]; ok {
		log.Debug("registration already in flight", "refCode", code, "address", address)
		return
	}

	p.inflight[code] = struct{}{}
	err = p.pool.Submit(func() {
		res := result{address: address, refCode: code}
		// the loop waits for every submitted call, a result must be sent even on panic
		defer func() {
			if r := recover(); r != nil {
				res.err = fmt.Errorf("%w: panic: %v", schema.ErrRegisterReferral, r)
			}
			p.results <- res
		}()
		res.err = p.registrar.RegisterReferral(address, code)
	})
	if err != nil {
		delete(p.inflight, code)
		metricRegistration(err)
		log.Warn("submit referral registration failed, keep code pending", "refCode", code, "address", address, "err", err)
		return
	}
	p.updateState()
}

func (p *Pipeline) settle(res result) {
	delete(p.inflight, res.refCode)
	metricRegistration(res.err)
	defer p.updateState()

	if res.err != nil {
		log.Warn("register referral failed, keep code pending", "refCode", res.refCode, "address", res.address, "err", res.err)
		return
	}
	cleared, err := p.store.ClearIf(res.refCode)
	if err != nil {
		log.Error("clear referral code failed", "refCode", res.refCode, "err", err)
		return
	}
	if !cleared {
		log.Info("referral registered, newer code stays pending", "refCode", res.refCode, "address", res.address)
		return
	}
	log.Info("referral registered", "refCode", res.refCode, "address", res.address)
}

func (p *Pipeline) updateState() {
	st := StateIdle
	if len(p.inflight) > 0 {
		st = StateRegistering
	} else if code, err := p.store.Read(); err == nil && code != "" {
		st = StateCaptured
	}
	p.state.Store(st)
	metricState(st)
}
