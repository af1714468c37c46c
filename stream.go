package nls

import (
	"context"

	"github.com/pitabwire/nls/workerpool"
)

// Transform turns one input file into its derived output records.
type Transform func(ctx context.Context, f *File) ([]*File, error)

// Run pushes every file from in through the transform on the pipeline's
// worker pool. Files are processed concurrently, but outputs preserve the
// input order and each file's own emission order. Per file failures surface
// on the error channel and do not stop the remaining files.
//
// Both returned channels are closed once the input is drained; callers must
// consume the two of them together.
func (p *Pipeline) Run(ctx context.Context, in <-chan *File, transform Transform) (<-chan *File, <-chan error) {
	out := make(chan *File)
	errs := make(chan error)
	jobs := make(chan workerpool.Job[[]*File])

	go func() {
		defer close(jobs)
		for f := range in {
			job := workerpool.NewJob(func(jctx context.Context, pipe workerpool.JobResultPipe[[]*File]) error {
				files, err := transform(jctx, f)
				if err != nil {
					return err
				}
				return pipe.WriteResult(jctx, files)
			})

			if err := workerpool.SubmitJob[[]*File](ctx, p.pool, job); err != nil {
				// Pool rejected the task; run it on the spot so ordering
				// and the one result per job contract still hold.
				func() {
					defer job.Close()
					if jerr := job.F()(ctx, job); jerr != nil {
						_ = job.WriteError(ctx, jerr)
					}
				}()
			}

			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer close(out)
		defer close(errs)
		for job := range jobs {
			for {
				result, ok := job.ReadResult(ctx)
				if !ok {
					break
				}
				if result.IsError() {
					select {
					case errs <- result.Error():
					case <-ctx.Done():
						return
					}
					continue
				}
				for _, f := range result.Item() {
					select {
					case out <- f:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, errs
}
