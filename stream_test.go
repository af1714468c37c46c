package nls_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/nls"
)

type StreamTestSuite struct {
	suite.Suite
}

func TestStreamSuite(t *testing.T) {
	suite.Run(t, &StreamTestSuite{})
}

func (s *StreamTestSuite) newPipeline(opts ...nls.Option) *nls.Pipeline {
	p, err := nls.New(context.Background(), opts...)
	s.Require().NoError(err)
	s.T().Cleanup(func() { p.Shutdown(context.Background()) })
	return p
}

func feed(files ...*nls.File) <-chan *nls.File {
	in := make(chan *nls.File)
	go func() {
		defer close(in)
		for _, f := range files {
			in <- f
		}
	}()
	return in
}

// drain consumes both channels until they close.
func drain(out <-chan *nls.File, errs <-chan error) ([]*nls.File, []error) {
	var files []*nls.File
	var failures []error
	for out != nil || errs != nil {
		select {
		case f, ok := <-out:
			if !ok {
				out = nil
				continue
			}
			files = append(files, f)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			failures = append(failures, err)
		}
	}
	return files, failures
}

func (s *StreamTestSuite) TestRunPreservesInputOrder() {
	p := s.newPipeline()

	inputs := make([]*nls.File, 8)
	for i := range inputs {
		inputs[i] = &nls.File{Path: fmt.Sprintf("f%d.js", i)}
	}

	// Later files finish first; output order must stay the input order.
	transform := func(_ context.Context, f *nls.File) ([]*nls.File, error) {
		var i int
		fmt.Sscanf(f.Path, "f%d.js", &i)
		time.Sleep(time.Duration(len(inputs)-i) * 2 * time.Millisecond)
		return []*nls.File{f}, nil
	}

	out, errs := p.Run(context.Background(), feed(inputs...), transform)
	files, failures := drain(out, errs)

	s.Require().Empty(failures)
	s.Require().Len(files, len(inputs))
	for i, f := range files {
		s.Equal(fmt.Sprintf("f%d.js", i), f.Path)
	}
}

func (s *StreamTestSuite) TestRunKeepsPerFileEmissionOrder() {
	p := s.newPipeline()

	transform := func(_ context.Context, f *nls.File) ([]*nls.File, error) {
		return []*nls.File{
			f,
			{Path: f.Path + ".derived"},
		}, nil
	}

	out, errs := p.Run(context.Background(), feed(
		&nls.File{Path: "a.js"},
		&nls.File{Path: "b.js"},
	), transform)
	files, failures := drain(out, errs)

	s.Require().Empty(failures)
	s.Require().Len(files, 4)
	s.Equal("a.js", files[0].Path)
	s.Equal("a.js.derived", files[1].Path)
	s.Equal("b.js", files[2].Path)
	s.Equal("b.js.derived", files[3].Path)
}

func (s *StreamTestSuite) TestRunIsolatesFailures() {
	p := s.newPipeline()

	boom := errors.New("bad file")
	transform := func(_ context.Context, f *nls.File) ([]*nls.File, error) {
		if f.Path == "bad.js" {
			return nil, fmt.Errorf("%s: %w", f.Path, boom)
		}
		return []*nls.File{f}, nil
	}

	out, errs := p.Run(context.Background(), feed(
		&nls.File{Path: "ok1.js"},
		&nls.File{Path: "bad.js"},
		&nls.File{Path: "ok2.js"},
	), transform)
	files, failures := drain(out, errs)

	s.Require().Len(failures, 1)
	s.Require().ErrorIs(failures[0], boom)

	s.Require().Len(files, 2)
	s.Equal("ok1.js", files[0].Path)
	s.Equal("ok2.js", files[1].Path)
}

func (s *StreamTestSuite) TestRunWithRewriteTransform() {
	p := s.newPipeline()

	out, errs := p.Run(context.Background(), feed(
		&nls.File{Path: "one.js", Contents: []byte(`localize('k.one', 'One');`)},
		&nls.File{Path: "oops.js", Contents: []byte(`localize(1, 'broken');`)},
		&nls.File{Path: "two.js", Contents: []byte(`localize('k.two', 'Two');`)},
	), p.RewriteFile)
	files, failures := drain(out, errs)

	s.Require().Len(failures, 1)
	var verr *nls.ValidationError
	s.Require().ErrorAs(failures[0], &verr)
	s.Equal("oops.js", verr.Path)

	s.Require().Len(files, 4)
	s.Equal("one.js", files[0].Path)
	s.Equal("one.nls.json", files[1].Path)
	s.Equal("two.js", files[2].Path)
	s.Equal("two.nls.json", files[3].Path)
}

func (s *StreamTestSuite) TestRunStopsOnContextCancel() {
	p := s.newPipeline()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := make(chan *nls.File)
	out, errs := p.Run(ctx, in, func(_ context.Context, f *nls.File) ([]*nls.File, error) {
		return []*nls.File{f}, nil
	})

	select {
	case in <- &nls.File{Path: "late.js"}:
	case <-time.After(50 * time.Millisecond):
	}
	close(in)

	// The guarantee under cancellation is prompt termination: both channels
	// close without the caller having to drain the remaining work.
	files, _ := drain(out, errs)
	s.LessOrEqual(len(files), 1)
}
