package computation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	reasoncodes "kyc-attestation/system/pkg/reason_codes"
)

const TimeoutReason = "timeout"

// Callback is what a registered handler receives for one offset.
type Callback struct {
	Outcome      mpc.ComputationOutcome
	Tag          string
	DispatchedAt time.Time
}

type CallbackHandler func(ctx context.Context, cb Callback) error

// Dispatcher queues a serialized request for the cluster. It must not wait for
// the result.
type Dispatcher interface {
	Dispatch(ctx context.Context, req mpc.ComputationRequest) error
}

type pendingEntry struct {
	callbackID   string
	tag          string
	dispatchedAt time.Time
	deadline     time.Time
	// delivering is set while a handler runs for the entry.
	delivering bool
}

// Gateway correlates dispatched computations with their callbacks. Every
// offset in flight is delivered to its handler exactly once, either with the
// cluster's outcome or as an abort when its deadline passes. An offset is only
// forgotten once its handler has accepted or permanently refused the outcome;
// a transient handler failure leaves it pending for redelivery or the sweeper.
type Gateway struct {
	mu        sync.Mutex
	pending   map[uint64]pendingEntry
	callbacks map[string]CallbackHandler

	dispatcher Dispatcher
	timeout    time.Duration
	now        func() time.Time
	metrics    *Metrics
	logger     *logger.Logger
}

func NewGateway(dispatcher Dispatcher, timeout time.Duration, metrics *Metrics, log *logger.Logger) *Gateway {
	return &Gateway{
		pending:    make(map[uint64]pendingEntry),
		callbacks:  make(map[string]CallbackHandler),
		dispatcher: dispatcher,
		timeout:    timeout,
		now:        time.Now,
		metrics:    metrics,
		logger:     log.Named("ComputationGateway"),
	}
}

// SetDispatcher replaces the dispatcher. Used when the dispatcher itself needs
// the gateway to deliver results.
func (g *Gateway) SetDispatcher(d Dispatcher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dispatcher = d
}

func (g *Gateway) RegisterCallback(id string, handler CallbackHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callbacks[id] = handler
}

// Dispatch records req as in flight under tag and hands it to the dispatcher.
func (g *Gateway) Dispatch(ctx context.Context, req mpc.ComputationRequest, tag string) error {
	g.mu.Lock()
	if _, inFlight := g.pending[req.Offset]; inFlight {
		g.mu.Unlock()
		return fmt.Errorf("offset %d: %w", req.Offset, ErrDuplicateOffset)
	}
	if _, ok := g.callbacks[req.CallbackID]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("callback %q: %w", req.CallbackID, ErrUnknownCallback)
	}
	now := g.now()
	entry := pendingEntry{
		callbackID:   req.CallbackID,
		tag:          tag,
		dispatchedAt: now,
	}
	if g.timeout > 0 {
		entry.deadline = now.Add(g.timeout)
	}
	g.pending[req.Offset] = entry
	dispatcher := g.dispatcher
	g.mu.Unlock()

	var err error
	if dispatcher == nil {
		err = fmt.Errorf("no dispatcher configured")
	} else {
		err = dispatcher.Dispatch(ctx, req)
	}
	if err != nil {
		g.mu.Lock()
		delete(g.pending, req.Offset)
		left := len(g.pending)
		g.mu.Unlock()

		g.metrics.onDispatchFailure(left)
		return fmt.Errorf("%w: offset %d: %v", ErrDispatch, req.Offset, err)
	}

	g.metrics.onDispatch(g.Pending())
	g.logger.Debugf("Dispatched computation %d for %s", req.Offset, tag)
	return nil
}

// Track records an offset dispatched by an earlier process as in flight, with
// a fresh deadline. Nothing is sent to the dispatcher.
func (g *Gateway) Track(offset uint64, callbackID, tag string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, inFlight := g.pending[offset]; inFlight {
		return fmt.Errorf("offset %d: %w", offset, ErrDuplicateOffset)
	}
	if _, ok := g.callbacks[callbackID]; !ok {
		return fmt.Errorf("callback %q: %w", callbackID, ErrUnknownCallback)
	}
	now := g.now()
	entry := pendingEntry{callbackID: callbackID, tag: tag, dispatchedAt: now}
	if g.timeout > 0 {
		entry.deadline = now.Add(g.timeout)
	}
	g.pending[offset] = entry
	return nil
}

// Deliver routes an outcome to the handler registered for its offset. The
// offset is released unless the handler fails with a retryable error.
func (g *Gateway) Deliver(ctx context.Context, outcome mpc.ComputationOutcome) error {
	g.mu.Lock()
	entry, ok := g.pending[outcome.Offset]
	if !ok || entry.delivering {
		g.mu.Unlock()
		return fmt.Errorf("offset %d: %w", outcome.Offset, ErrUnknownOffset)
	}
	if outcome.CallbackID != "" && outcome.CallbackID != entry.callbackID {
		g.mu.Unlock()
		return fmt.Errorf("offset %d answered for %q: %w", outcome.Offset, outcome.CallbackID, ErrUnknownCallback)
	}
	handler := g.claim(outcome.Offset, entry)
	g.mu.Unlock()

	err := g.invoke(ctx, handler, entry, outcome)
	left := g.settle(outcome.Offset, err)
	if !reasoncodes.IsRetryable(err) {
		g.metrics.onCallback(outcome.Status.String(), left)
	}
	return err
}

// SweepExpired aborts every computation whose deadline is before now and
// returns how many were aborted. Entries whose handler fails transiently stay
// pending and are aborted again on the next sweep.
func (g *Gateway) SweepExpired(ctx context.Context, now time.Time) int {
	type expired struct {
		offset  uint64
		entry   pendingEntry
		handler CallbackHandler
	}

	g.mu.Lock()
	var due []expired
	for offset, entry := range g.pending {
		if entry.delivering || entry.deadline.IsZero() || !entry.deadline.Before(now) {
			continue
		}
		due = append(due, expired{offset: offset, entry: entry, handler: g.claim(offset, entry)})
	}
	g.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].offset < due[j].offset })
	aborted := 0
	for _, e := range due {
		g.logger.Warnf("Computation %d for %s timed out", e.offset, e.entry.tag)

		outcome := mpc.Aborted(e.offset, e.entry.callbackID, TimeoutReason)
		err := g.invoke(ctx, e.handler, e.entry, outcome)
		left := g.settle(e.offset, err)
		if reasoncodes.IsRetryable(err) {
			g.logger.Errorf(err, "Timeout handler for computation %d failed, keeping it pending", e.offset)
			continue
		}
		if err != nil {
			g.logger.Errorf(err, "Timeout handler for computation %d refused the abort", e.offset)
		}
		aborted++
		g.metrics.onTimeout()
		g.metrics.onCallback(mpc.StatusAborted.String(), left)
	}
	return aborted
}

// claim marks an entry as being delivered. Callers hold g.mu.
func (g *Gateway) claim(offset uint64, entry pendingEntry) CallbackHandler {
	entry.delivering = true
	g.pending[offset] = entry
	return g.callbacks[entry.callbackID]
}

// settle releases a claimed entry, or returns it to the pending table when the
// handler failed transiently. It returns the number of entries left.
func (g *Gateway) settle(offset uint64, handlerErr error) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if reasoncodes.IsRetryable(handlerErr) {
		entry := g.pending[offset]
		entry.delivering = false
		g.pending[offset] = entry
	} else {
		delete(g.pending, offset)
	}
	return len(g.pending)
}

func (g *Gateway) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

func (g *Gateway) invoke(ctx context.Context, handler CallbackHandler, entry pendingEntry, outcome mpc.ComputationOutcome) error {
	if handler == nil {
		return fmt.Errorf("callback %q: %w", entry.callbackID, ErrUnknownCallback)
	}
	err := handler(ctx, Callback{
		Outcome:      outcome,
		Tag:          entry.tag,
		DispatchedAt: entry.dispatchedAt,
	})
	if err != nil {
		return fmt.Errorf("callback %q for offset %d: %w", entry.callbackID, outcome.Offset, err)
	}
	return nil
}
