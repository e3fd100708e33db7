// Package worker provides a worker pool for compiling many CQL queries in
// parallel. Each query gets its own registry; designator expansions are
// shared through a cql.DesignatorCache.
package worker

import (
	"sync"
	"sync/atomic"

	"github.com/lgbarn/cql-go/internal/cql"
)

// Job is one query to compile.
type Job struct {
	Index  int    // Original index for tracking
	Name   string // File name used in error positions, may be empty
	Source string
}

// Result is the outcome of compiling a job.
type Result struct {
	Index int
	Name  string
	Query *cql.Query
	Err   error
}

// CompileFunc is the function signature for compiling a job.
type CompileFunc func(job Job) Result

// Pool manages a pool of workers for parallel compilation.
type Pool struct {
	numWorkers  int
	bufferSize  int
	jobChan     chan Job
	resultChan  chan Result
	compileFunc CompileFunc
	wg          sync.WaitGroup
	stopFlag    atomic.Bool // Early termination
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n >= 1 {
			p.numWorkers = n
		}
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) PoolOption {
	return func(p *Pool) {
		if size >= 1 {
			p.bufferSize = size
		}
	}
}

// NewPool creates a worker pool. compileFunc is required; other settings
// have sensible defaults. Default: 1 worker, buffer size of 10.
func NewPool(compileFunc CompileFunc, opts ...PoolOption) *Pool {
	p := &Pool{
		numWorkers:  1,
		bufferSize:  10,
		compileFunc: compileFunc,
	}
	for _, opt := range opts {
		opt(p)
	}
	// Create channels after options are applied
	p.jobChan = make(chan Job, p.bufferSize)
	p.resultChan = make(chan Result, p.bufferSize)
	return p
}

// Start starts the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker compiles jobs from the job channel until it is closed.
func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobChan {
		if p.IsStopped() {
			continue // Drain channel without compiling
		}
		p.resultChan <- p.compileFunc(job)
	}
}

// Submit submits a job for compilation.
// This may block if the job channel buffer is full.
func (p *Pool) Submit(job Job) {
	p.jobChan <- job
}

// Stop signals workers to stop compiling new jobs.
// Jobs already in the channel will be drained but not compiled.
func (p *Pool) Stop() {
	p.stopFlag.Store(true)
}

// IsStopped returns true if the pool has been stopped.
func (p *Pool) IsStopped() bool {
	return p.stopFlag.Load()
}

// Close closes the job channel and waits for all workers to finish.
// After calling Close, the result channel will be closed when all workers are done.
func (p *Pool) Close() {
	close(p.jobChan)
	p.wg.Wait()
	close(p.resultChan)
}

// Results returns the result channel for reading compiled results.
func (p *Pool) Results() <-chan Result {
	return p.resultChan
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}
