// Package backend provides ComputeBackend implementations and composable
// middleware. The Local backend runs the statistics engine on a pool of
// worker goroutines behind a correlated request/response protocol, keeping
// the O(N^2)-pair, O(N)-Newton-iteration search off the caller's critical
// path; middleware layers add memoization, metrics, tracing, and rate
// limiting without the orchestrator knowing any of it exists.
package backend

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/ahrav/go-duel/internal/ports"
	"github.com/ahrav/go-duel/internal/stats"
)

// ErrShutDown is returned for requests issued after Shutdown.
var ErrShutDown = errors.New("compute backend shut down")

// requestKind discriminates the two backend operations on the wire.
type requestKind int

const (
	kindSelectPair requestKind = iota
	kindRefit
)

// request is one unit of work queued to the worker pool. The reply channel
// is buffered so a worker can never block on a caller that gave up.
type request struct {
	ctx   context.Context
	kind  requestKind
	sel   ports.SelectPairRequest
	refit ports.RefitRequest
	reply chan response
}

// response carries the correlated result back to the suspended caller.
type response struct {
	id    uint64
	sel   ports.SelectPairResponse
	refit ports.RefitResponse
	err   error
}

// LocalConfig configures a Local backend.
type LocalConfig struct {
	// Workers is the worker goroutine count; defaults to GOMAXPROCS.
	Workers int

	// Estimator scores top-K uncertainty during pair selection; defaults
	// to the quadrature surrogate.
	Estimator stats.TopKEstimator
}

// Local is an in-process ComputeBackend with an explicit init/shutdown
// lifecycle. It is owned and injected by the caller rather than held in
// ambient state, which keeps it substitutable in tests. Safe for
// concurrent use by any number of sessions.
type Local struct {
	estimator stats.TopKEstimator
	queue     chan request
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Compile-time verification that Local implements ComputeBackend.
var _ ports.ComputeBackend = (*Local)(nil)

// NewLocal creates and starts a Local backend.
func NewLocal(cfg LocalConfig) *Local {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	estimator := cfg.Estimator
	if estimator == nil {
		estimator = stats.QuadratureEstimator{}
	}

	b := &Local{
		estimator: estimator,
		queue:     make(chan request),
		done:      make(chan struct{}),
	}

	b.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go b.worker()
	}

	return b
}

// Shutdown stops the worker pool and waits for in-flight work to drain,
// or for ctx to expire. Requests issued after Shutdown fail with
// ErrShutDown.
func (b *Local) Shutdown(ctx context.Context) error {
	b.closeOnce.Do(func() { close(b.done) })

	drained := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectPair implements ports.ComputeBackend by dispatching to the worker
// pool and suspending until the correlated response arrives.
func (b *Local) SelectPair(ctx context.Context, req ports.SelectPairRequest) (ports.SelectPairResponse, error) {
	resp, err := b.dispatch(ctx, request{ctx: ctx, kind: kindSelectPair, sel: req})
	if err != nil {
		return ports.SelectPairResponse{}, err
	}
	return resp.sel, nil
}

// BayesianRefit implements ports.ComputeBackend by dispatching to the
// worker pool and suspending until the correlated response arrives.
func (b *Local) BayesianRefit(ctx context.Context, req ports.RefitRequest) (ports.RefitResponse, error) {
	resp, err := b.dispatch(ctx, request{ctx: ctx, kind: kindRefit, refit: req})
	if err != nil {
		return ports.RefitResponse{}, err
	}
	return resp.refit, nil
}

// dispatch queues one request and awaits its reply.
func (b *Local) dispatch(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)

	select {
	case b.queue <- req:
	case <-b.done:
		return response{}, ErrShutDown
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp, resp.err
	case <-ctx.Done():
		// The worker still completes and writes into the buffered reply;
		// nothing leaks, the result is simply discarded.
		return response{}, ctx.Err()
	}
}

// worker serves queued requests until shutdown.
func (b *Local) worker() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		case req := <-b.queue:
			req.reply <- b.handle(req)
		}
	}
}

// handle executes one request against the statistics engine, echoing the
// request's correlator in the response.
func (b *Local) handle(req request) response {
	switch req.kind {
	case kindSelectPair:
		i, j, err := stats.SelectPair(req.ctx, stats.SelectorParams{
			Mu:              req.sel.Mu,
			Sigma:           req.sel.Sigma,
			History:         req.sel.History,
			K:               req.sel.K,
			N:               req.sel.N,
			PriorVariance:   req.sel.PriorVariance,
			RecencyDiscount: req.sel.RecencyDiscount,
		}, b.estimator)
		if err != nil {
			return response{id: req.sel.ID, err: err}
		}
		return response{
			id:  req.sel.ID,
			sel: ports.SelectPairResponse{ID: req.sel.ID, I: i, J: j},
		}

	case kindRefit:
		est, err := stats.Fit(req.refit.History, req.refit.N, req.refit.PriorVariance)
		if err != nil {
			return response{id: req.refit.ID, err: err}
		}
		return response{
			id:    req.refit.ID,
			refit: ports.RefitResponse{ID: req.refit.ID, Mu: est.Mu, Sigma: est.Sigma},
		}

	default:
		return response{err: errors.New("unknown request kind")}
	}
}
