package services

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"sysplug.dev/cli/internal/core/capability"
	"sysplug.dev/cli/internal/core/descriptor"
)

var errNilElement = errors.New("nil plugin element")

// BatchOptions control LoadAll.
type BatchOptions struct {
	// Concurrency bounds parallel loads; zero or less means unbounded.
	Concurrency int
	// FailFast stops starting new loads after the first failure.
	FailFast bool
}

// BatchResult is the outcome of loading one element.
type BatchResult struct {
	Element *descriptor.Element
	Handle  *capability.Handle
	Err     error
}

// LoadAll loads every element, in parallel, and returns one result per
// element in input order. The error is the first failure when FailFast is
// set, and nil otherwise.
func (s *SystemLoader) LoadAll(ctx context.Context, elements []*descriptor.Element, opts BatchOptions) ([]BatchResult, error) {
	results := make([]BatchResult, len(elements))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, el := range elements {
		results[i].Element = el
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			d, ok := descriptor.FromElement(el)
			if !ok {
				results[i].Err = &LoadError{Kind: ErrConfiguration, Err: errNilElement}
				return nil
			}

			h, err := s.TryLoad(gctx, d)
			results[i].Handle, results[i].Err = h, err
			if err != nil && opts.FailFast {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
