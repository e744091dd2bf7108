package credential

import (
	"context"
	"strings"
	"time"

	"go.uber.org/atomic"
)

var (
	testAccessKeyID     = "STS." + strings.Repeat("a", 25)
	testAccessKeySecret = strings.Repeat("s", 44)
	testSecurityToken   = strings.Repeat("t", 536)
)

type funcFetcher struct {
	name  string
	fn    func(ctx context.Context) (*Credentials, error)
	count atomic.Int32
}

func newFuncFetcher(fn func(ctx context.Context) (*Credentials, error)) *funcFetcher {
	return &funcFetcher{name: "Func", fn: fn}
}

func (f *funcFetcher) Fetch(ctx context.Context) (*Credentials, error) {
	f.count.Inc()
	return f.fn(ctx)
}

func (f *funcFetcher) Name() string {
	return f.name
}

type fakeClock struct {
	t atomic.Time
}

func newFakeClock(t time.Time) *fakeClock {
	c := &fakeClock{}
	c.t.Store(t)
	return c
}

func (c *fakeClock) Now() time.Time {
	return c.t.Load()
}

func (c *fakeClock) Add(d time.Duration) {
	c.t.Store(c.t.Load().Add(d))
}
