package inspect

import (
	"context"
	"sync"
)

// Fake is a scripted Evaluator for tests. Evaluate pops the next queued
// outcome, or returns an undefined Result when the queue is empty, and
// records every source it was given. The zero value is ready to use.
type Fake struct {
	mu        sync.Mutex
	replies   []fakeReply
	scripts   []string
	navigated []string
	location  string
	closed    bool

	// NavigateErr, when set, is returned by every Navigate call.
	NavigateErr error
}

var _ Evaluator = (*Fake)(nil)

type fakeReply struct {
	result Result
	err    error
}

// Reply queues an evaluation outcome. It returns f for chaining.
func (f *Fake) Reply(r Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, fakeReply{result: r})
	return f
}

// ReplyErr queues a transport failure.
func (f *Fake) ReplyErr(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, fakeReply{err: err})
	return f
}

func (f *Fake) Evaluate(ctx context.Context, source string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, source)
	if len(f.replies) == 0 {
		return Result{Undefined: true}, nil
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	return next.result, next.err
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NavigateErr != nil {
		return f.NavigateErr
	}
	f.navigated = append(f.navigated, url)
	f.location = url
	return nil
}

func (f *Fake) Location() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.location == "" {
		return "about:blank"
	}
	return f.location
}

func (f *Fake) Describe() string { return "scripted fake" }

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Scripts returns a copy of every source passed to Evaluate, in order.
func (f *Fake) Scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scripts...)
}

// Navigated returns a copy of every URL passed to Navigate, in order.
func (f *Fake) Navigated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigated...)
}

// Closed reports whether Close has been called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
