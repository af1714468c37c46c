package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pitabwire/util"
	"github.com/rs/xid"

	"github.com/pitabwire/nls/config"
)

var ErrWorkerPoolResultChannelIsClosed = errors.New("worker job is already closed")

// Options defines configurable options for the internal worker pool.
type Options struct {
	PoolCount          int
	SinglePoolCapacity int
	Concurrency        int
	ExpiryDuration     time.Duration
	Nonblocking        bool
	PreAlloc           bool
	PanicHandler       func(any)
	Logger             *util.LogEntry
	DisablePurge       bool
}

// Option defines a function that configures worker pool options.
type Option func(*Options)

// WithPoolCount sets the number of worker pools.
func WithPoolCount(count int) Option {
	return func(opts *Options) {
		opts.PoolCount = count
	}
}

// WithSinglePoolCapacity sets the capacity for a single worker pool.
func WithSinglePoolCapacity(capacity int) Option {
	return func(opts *Options) {
		opts.SinglePoolCapacity = capacity
	}
}

// WithConcurrency sets the concurrency for the worker pool.
func WithConcurrency(concurrency int) Option {
	return func(opts *Options) {
		opts.Concurrency = concurrency
	}
}

// WithPoolExpiryDuration sets the expiry duration for workers.
func WithPoolExpiryDuration(duration time.Duration) Option {
	return func(opts *Options) {
		opts.ExpiryDuration = duration
	}
}

// WithPoolNonblocking sets the non-blocking option for the pool.
func WithPoolNonblocking(nonblocking bool) Option {
	return func(opts *Options) {
		opts.Nonblocking = nonblocking
	}
}

// WithPoolPreAlloc pre-allocates memory for the pool.
func WithPoolPreAlloc(preAlloc bool) Option {
	return func(opts *Options) {
		opts.PreAlloc = preAlloc
	}
}

// WithPoolPanicHandler sets a panic handler for the pool.
func WithPoolPanicHandler(handler func(any)) Option {
	return func(opts *Options) {
		opts.PanicHandler = handler
	}
}

// WithPoolLogger sets a logger for the pool.
func WithPoolLogger(logger *util.LogEntry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithPoolDisablePurge disables the purge mechanism in the pool.
func WithPoolDisablePurge(disable bool) Option {
	return func(opts *Options) {
		opts.DisablePurge = disable
	}
}

// WithConfiguration derives pool sizing from the process configuration.
func WithConfiguration(cfg config.ConfigurationWorkerPool) Option {
	return func(opts *Options) {
		opts.Concurrency = runtime.NumCPU() * cfg.GetCPUFactor()
		opts.SinglePoolCapacity = cfg.GetCapacity()
		opts.PoolCount = cfg.GetCount()
		opts.ExpiryDuration = cfg.GetExpiryDuration()
	}
}

func defaultOptions(ctx context.Context) *Options {
	return &Options{
		Concurrency:        runtime.NumCPU(),
		SinglePoolCapacity: 100,
		PoolCount:          1,
		ExpiryDuration:     time.Second,
		Nonblocking:        false,
		PreAlloc:           false,
		PanicHandler:       nil,
		Logger:             util.Log(ctx),
		DisablePurge:       false,
	}
}

// NewPool builds a worker pool, a single ants pool when PoolCount is one and
// a multi pool otherwise.
func NewPool(ctx context.Context, opts ...Option) (WorkerPool, error) {
	wopts := defaultOptions(ctx)
	for _, opt := range opts {
		opt(wopts)
	}

	var antsOpts []ants.Option
	if wopts.ExpiryDuration > 0 {
		antsOpts = append(antsOpts, ants.WithExpiryDuration(wopts.ExpiryDuration))
	}
	antsOpts = append(antsOpts, ants.WithNonblocking(wopts.Nonblocking))
	if wopts.PreAlloc {
		antsOpts = append(antsOpts, ants.WithPreAlloc(wopts.PreAlloc))
	}
	if wopts.Concurrency > 0 {
		antsOpts = append(antsOpts, ants.WithMaxBlockingTasks(wopts.Concurrency))
	}
	if wopts.PanicHandler != nil {
		antsOpts = append(antsOpts, ants.WithPanicHandler(wopts.PanicHandler))
	}
	antsOpts = append(antsOpts, ants.WithLogger(wopts.Logger))
	antsOpts = append(antsOpts, ants.WithDisablePurge(wopts.DisablePurge))

	if wopts.PoolCount <= 1 {
		p, err := ants.NewPool(wopts.SinglePoolCapacity, antsOpts...)
		if err != nil {
			return nil, err
		}
		return &singlePoolWrapper{pool: p}, nil
	}

	mp, err := ants.NewMultiPool(wopts.PoolCount, wopts.SinglePoolCapacity, ants.LeastTasks, antsOpts...)
	if err != nil {
		return nil, err
	}
	return &multiPoolWrapper{multiPool: mp}, nil
}

// singlePoolWrapper adapts *ants.Pool to the WorkerPool interface.
type singlePoolWrapper struct {
	pool *ants.Pool
}

func (w *singlePoolWrapper) Submit(ctx context.Context, task func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return w.pool.Submit(task)
}

func (w *singlePoolWrapper) Shutdown() {
	w.pool.Release()
}

// multiPoolWrapper adapts *ants.MultiPool to the WorkerPool interface.
type multiPoolWrapper struct {
	multiPool *ants.MultiPool
}

func (w *multiPoolWrapper) Submit(ctx context.Context, task func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return w.multiPool.Submit(task)
}

func (w *multiPoolWrapper) Shutdown() {
	w.multiPool.Free()
}

// jobResult is the internal implementation of JobResult.
type jobResult[T any] struct {
	item  T
	error error
}

func (j *jobResult[T]) IsError() bool {
	return j.error != nil
}

func (j *jobResult[T]) Error() error {
	return j.error
}

func (j *jobResult[T]) Item() T {
	return j.item
}

func Result[T any](item T) JobResult[T] {
	return &jobResult[T]{item: item}
}

func ErrorResult[T any](err error) JobResult[T] {
	return &jobResult[T]{error: err}
}

// JobImpl is the concrete implementation of a Job.
type JobImpl[T any] struct {
	id             string
	resultChan     chan JobResult[T]
	resultChanDone atomic.Bool
	processFunc    func(ctx context.Context, result JobResultPipe[T]) error
}

// NewJob wraps a process function into a job with a fresh id and result pipe.
func NewJob[T any](processFunc func(ctx context.Context, result JobResultPipe[T]) error) *JobImpl[T] {
	return &JobImpl[T]{
		id:          xid.New().String(),
		resultChan:  make(chan JobResult[T], defaultJobResultBufferSize),
		processFunc: processFunc,
	}
}

func (ji *JobImpl[T]) ID() string {
	return ji.id
}

func (ji *JobImpl[T]) F() func(ctx context.Context, result JobResultPipe[T]) error {
	return ji.processFunc
}

func (ji *JobImpl[T]) ResultChan() <-chan JobResult[T] {
	return ji.resultChan
}

func (ji *JobImpl[T]) WriteResult(ctx context.Context, val T) error {
	return ji.write(ctx, Result(val))
}

func (ji *JobImpl[T]) WriteError(ctx context.Context, err error) error {
	return ji.write(ctx, ErrorResult[T](err))
}

func (ji *JobImpl[T]) write(ctx context.Context, result JobResult[T]) error {
	if ji.resultChanDone.Load() {
		return ErrWorkerPoolResultChannelIsClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ji.resultChan <- result:
		return nil
	}
}

func (ji *JobImpl[T]) ReadResult(ctx context.Context) (JobResult[T], bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case result, ok := <-ji.resultChan:
		return result, ok
	}
}

func (ji *JobImpl[T]) Close() {
	if ji.resultChanDone.CompareAndSwap(false, true) {
		close(ji.resultChan)
	}
}

// SubmitJob schedules a job on the pool. The job's result pipe is closed once
// its function returns; an execution error is written to the pipe first so
// readers always observe it before the close.
func SubmitJob[T any](ctx context.Context, pool WorkerPool, job Job[T]) error {
	return pool.Submit(ctx, func() {
		defer job.Close()
		if err := job.F()(ctx, job); err != nil {
			_ = job.WriteError(ctx, err)
		}
	})
}
