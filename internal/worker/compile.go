package worker

import "github.com/lgbarn/cql-go/internal/cql"

// Compiler returns a CompileFunc that compiles each job with opts, a fresh
// registry and the shared cache.
func Compiler(cache *cql.DesignatorCache, opts ...cql.Option) CompileFunc {
	return func(job Job) Result {
		jobOpts := make([]cql.Option, 0, len(opts)+2)
		jobOpts = append(jobOpts, opts...)
		jobOpts = append(jobOpts, cql.WithDesignatorCache(cache), cql.WithFileName(job.Name))

		q, err := cql.Compile(job.Source, jobOpts...)
		return Result{Index: job.Index, Name: job.Name, Query: q, Err: err}
	}
}

// CompileAll compiles jobs on the given number of workers and returns the
// results in job order. Job indexes are reassigned to their slice position.
func CompileAll(jobs []Job, workers int, opts ...cql.Option) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	pool := NewPool(Compiler(cql.NewDesignatorCache(), opts...),
		WithWorkers(min(workers, len(jobs))),
		WithBufferSize(len(jobs)),
	)
	pool.Start()

	go func() {
		for i, job := range jobs {
			job.Index = i
			pool.Submit(job)
		}
		pool.Close()
	}()

	for r := range pool.Results() {
		results[r.Index] = r
	}
	return results
}
