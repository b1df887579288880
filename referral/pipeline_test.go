package referral

import (
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/everFinance/nftmarket/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	addrA = "0xAA00000000000000000000000000000000000001"
	addrB = "0xBB00000000000000000000000000000000000002"

	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

type call struct {
	address string
	refCode string
}

type fakeRegistrar struct {
	mu    sync.Mutex
	calls []call
	err   error
	gate  chan struct{}
	panic bool
}

func (f *fakeRegistrar) RegisterReferral(address, refCode string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{address: address, refCode: refCode})
	gate, err, doPanic := f.gate, f.err, f.panic
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if doPanic {
		panic("boom")
	}
	return err
}

func (f *fakeRegistrar) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeRegistrar) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeRegistrar) callCount() func() bool {
	return func() bool { return len(f.Calls()) > 0 }
}

func newTestPipeline(t *testing.T, reg Registrar, opts ...Option) (*Pipeline, *Store) {
	store := newMemStore(t)
	p, err := NewPipeline(store, reg, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	p.Start()
	return p, store
}

func refQuery(code string) url.Values {
	return url.Values{"ref": {code}}
}

func pending(t *testing.T, s *Store) string {
	code, err := s.Read()
	require.NoError(t, err)
	return code
}

func TestPipeline_CaptureThenConnect(t *testing.T) {
	reg := &fakeRegistrar{}
	p, store := newTestPipeline(t, reg)

	p.ObserveURL(refQuery("ABC123"))
	require.True(t, p.flush())
	assert.Equal(t, "ABC123", pending(t, store))
	assert.Equal(t, StateCaptured, p.State())
	assert.Empty(t, reg.Calls())

	p.ObserveAddress(addrA)
	assert.Eventually(t, func() bool { return p.State() == StateIdle }, waitFor, tick)
	assert.Equal(t, []call{{addrA, "ABC123"}}, reg.Calls())
	assert.Equal(t, "", pending(t, store))
}

func TestPipeline_FailureKeepsCodeForNextConnect(t *testing.T) {
	reg := &fakeRegistrar{err: errors.New("network down")}
	p, store := newTestPipeline(t, reg)

	p.ObserveURL(refQuery("ABC123"))
	p.ObserveAddress(addrA)
	assert.Eventually(t, func() bool {
		return len(reg.Calls()) == 1 && p.State() == StateCaptured
	}, waitFor, tick)
	assert.Equal(t, "ABC123", pending(t, store))

	// no automatic retry
	require.True(t, p.flush())
	assert.Len(t, reg.Calls(), 1)

	reg.setErr(nil)
	p.ObserveAddress("")
	p.ObserveAddress(addrB)
	assert.Eventually(t, func() bool { return p.State() == StateIdle }, waitFor, tick)
	assert.Equal(t, []call{{addrA, "ABC123"}, {addrB, "ABC123"}}, reg.Calls())
	assert.Equal(t, "", pending(t, store))
}

func TestPipeline_ConnectWithoutCode(t *testing.T) {
	reg := &fakeRegistrar{}
	p, _ := newTestPipeline(t, reg)

	p.ObserveAddress(addrA)
	p.ObserveAddress("")
	p.ObserveAddress(addrB)
	require.True(t, p.flush())
	assert.Empty(t, reg.Calls())
	assert.Equal(t, StateIdle, p.State())
}

func TestPipeline_CaptureWhileConnectedWaitsForAddressChange(t *testing.T) {
	reg := &fakeRegistrar{}
	p, store := newTestPipeline(t, reg)

	p.ObserveAddress(addrA)
	p.ObserveURL(refQuery("ABC123"))
	require.True(t, p.flush())
	assert.Empty(t, reg.Calls())
	assert.Equal(t, "ABC123", pending(t, store))

	p.ObserveAddress(addrB)
	assert.Eventually(t, func() bool { return p.State() == StateIdle }, waitFor, tick)
	assert.Equal(t, []call{{addrB, "ABC123"}}, reg.Calls())
}

func TestPipeline_SameAddressIsNotAChange(t *testing.T) {
	reg := &fakeRegistrar{err: errors.New("rejected")}
	p, _ := newTestPipeline(t, reg)

	p.ObserveURL(refQuery("ABC123"))
	p.ObserveAddress(addrA)
	assert.Eventually(t, func() bool {
		return len(reg.Calls()) == 1 && p.State() == StateCaptured
	}, waitFor, tick)

	p.ObserveAddress(addrA)
	p.ObserveAddress(" " + addrA + " ")
	require.True(t, p.flush())
	assert.Len(t, reg.Calls(), 1)

	// reconnect with the same address
	p.ObserveAddress("")
	p.ObserveAddress(addrA)
	assert.Eventually(t, func() bool {
		return len(reg.Calls()) == 2 && p.State() == StateCaptured
	}, waitFor, tick)
}

func TestPipeline_NoDuplicateInFlight(t *testing.T) {
	gate := make(chan struct{})
	reg := &fakeRegistrar{gate: gate}
	p, store := newTestPipeline(t, reg)

	p.ObserveURL(refQuery("ABC123"))
	p.ObserveAddress(addrA)
	assert.Eventually(t, reg.callCount(), waitFor, tick)
	assert.Equal(t, StateRegistering, p.State())

	// rapid account switch before the first call resolves
	p.ObserveAddress(addrB)
	p.ObserveAddress(addrA)
	require.True(t, p.flush())
	assert.Len(t, reg.Calls(), 1)

	close(gate)
	assert.Eventually(t, func() bool { return p.State() == StateIdle }, waitFor, tick)
	assert.Equal(t, []call{{addrA, "ABC123"}}, reg.Calls())
	assert.Equal(t, "", pending(t, store))
}

func TestPipeline_LastReferrerWins(t *testing.T) {
	reg := &fakeRegistrar{}
	p, store := newTestPipeline(t, reg)

	p.ObserveURL(refQuery("FIRST"))
	p.ObserveURL(refQuery("SECOND"))
	require.True(t, p.flush())
	assert.Equal(t, "SECOND", pending(t, store))

	p.ObserveAddress(addrA)
	assert.Eventually(t, func() bool { return p.State() == StateIdle }, waitFor, tick)
	assert.Equal(t, []call{{addrA, "SECOND"}}, reg.Calls())
}

func TestPipeline_CaptureDuringRegistration(t *testing.T) {
	gate := make(chan struct{})
	reg := &fakeRegistrar{gate: gate}
	p, store := newTestPipeline(t, reg)

	p.ObserveURL(refQuery("OLD"))
	p.ObserveAddress(addrA)
	assert.Eventually(t, reg.callCount(), waitFor, tick)

	p.ObserveURL(refQuery("NEW"))
	require.True(t, p.flush())
	close(gate)

	// OLD was registered, NEW must survive its success
	assert.Eventually(t, func() bool { return p.State() == StateCaptured }, waitFor, tick)
	assert.Equal(t, "NEW", pending(t, store))
	assert.Equal(t, []call{{addrA, "OLD"}}, reg.Calls())
}

func TestPipeline_PoolFullKeepsCodePending(t *testing.T) {
	gate := make(chan struct{})
	reg := &fakeRegistrar{gate: gate}
	p, store := newTestPipeline(t, reg, WithWorkers(1))

	p.ObserveURL(refQuery("OLD"))
	p.ObserveAddress(addrA)
	assert.Eventually(t, reg.callCount(), waitFor, tick)

	// the single worker is busy, NEW cannot be submitted
	p.ObserveURL(refQuery("NEW"))
	p.ObserveAddress(addrB)
	require.True(t, p.flush())
	assert.Len(t, reg.Calls(), 1)

	close(gate)
	assert.Eventually(t, func() bool { return p.State() == StateCaptured }, waitFor, tick)
	assert.Equal(t, "NEW", pending(t, store))
}

func TestPipeline_IgnoresEmptyRef(t *testing.T) {
	reg := &fakeRegistrar{}
	p, store := newTestPipeline(t, reg)

	p.ObserveURL(url.Values{})
	p.ObserveURL(url.Values{"page": {"2"}})
	p.ObserveURL(refQuery(""))
	p.ObserveURL(refQuery("   "))
	require.True(t, p.flush())
	assert.Equal(t, "", pending(t, store))
	assert.Equal(t, StateIdle, p.State())
}

func TestPipeline_TrimsRef(t *testing.T) {
	p, store := newTestPipeline(t, &fakeRegistrar{})
	p.ObserveURL(refQuery("  ABC123\t"))
	require.True(t, p.flush())
	assert.Equal(t, "ABC123", pending(t, store))
}

func TestPipeline_CustomRefParam(t *testing.T) {
	p, store := newTestPipeline(t, &fakeRegistrar{}, WithRefParam("invite"))
	assert.Equal(t, "invite", p.refParam)

	p.ObserveURL(refQuery("IGNORED"))
	p.ObserveURL(url.Values{"invite": {"XYZ"}})
	require.True(t, p.flush())
	assert.Equal(t, "XYZ", pending(t, store))
}

func TestPipeline_PendingFromPreviousSession(t *testing.T) {
	store := newMemStore(t)
	require.NoError(t, store.Capture("OLD"))

	reg := &fakeRegistrar{}
	p, err := NewPipeline(store, reg)
	require.NoError(t, err)
	defer p.Close()
	p.Start()
	assert.Equal(t, StateCaptured, p.State())

	p.ObserveAddress(addrA)
	assert.Eventually(t, func() bool { return p.State() == StateIdle }, waitFor, tick)
	assert.Equal(t, []call{{addrA, "OLD"}}, reg.Calls())
}

func TestPipeline_RegistrarPanic(t *testing.T) {
	reg := &fakeRegistrar{panic: true}
	p, store := newTestPipeline(t, reg)

	p.ObserveURL(refQuery("ABC123"))
	p.ObserveAddress(addrA)
	assert.Eventually(t, func() bool {
		return len(reg.Calls()) == 1 && p.State() == StateCaptured
	}, waitFor, tick)
	assert.Equal(t, "ABC123", pending(t, store))
}

func TestPipeline_CloseWaitsForInFlight(t *testing.T) {
	gate := make(chan struct{})
	reg := &fakeRegistrar{gate: gate}
	p, store := newTestPipeline(t, reg)

	p.ObserveURL(refQuery("ABC123"))
	p.ObserveAddress(addrA)
	assert.Eventually(t, reg.callCount(), waitFor, tick)

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("Close returned with a call in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, "", pending(t, store))

	// closed pipeline ignores events
	p.ObserveURL(refQuery("LATE"))
	p.ObserveAddress(addrB)
	assert.False(t, p.flush())
	assert.Equal(t, "", pending(t, store))
	assert.Len(t, reg.Calls(), 1)
}

func TestPipeline_CloseBeforeStart(t *testing.T) {
	p, err := NewPipeline(newMemStore(t), &fakeRegistrar{})
	require.NoError(t, err)
	p.Close()
	p.Close()
	p.Start()
	p.ObserveURL(refQuery("ABC123"))
	assert.False(t, p.flush())
}

func TestPipeline_FullQueueDoesNotBlock(t *testing.T) {
	p, err := NewPipeline(newMemStore(t), &fakeRegistrar{})
	require.NoError(t, err)
	defer p.Close()

	// not started, nothing drains the queue
	done := make(chan struct{})
	go func() {
		for i := 0; i < eventBufSize+10; i++ {
			p.ObserveURL(refQuery("ABC123"))
			p.ObserveAddress(addrA)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("observing events blocked on a full queue")
	}
	assert.Equal(t, schema.ErrEventQueueFull, p.send(event{kind: captureEvent, value: "X"}))

	p.Close()
	assert.Equal(t, schema.ErrPipelineClosed, p.send(event{kind: captureEvent, value: "X"}))
}
