// Package pool implements a bounded pool of database connections with
// explicit leases. The pool enforces the concurrency ceiling for the whole
// process: at no point do more than Size connections exist in the leased
// state, and a caller that cannot get a connection within the acquire
// timeout fails with ErrExhausted instead of queueing forever.
package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Conn is the subset of a driver connection the pool manages.
// *sql.Conn satisfies it.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Factory opens a new connection. Called lazily: the pool never dials until
// a lease actually needs a connection.
type Factory func(ctx context.Context) (Conn, error)

// ErrExhausted is returned by Acquire when no connection became available
// within the configured acquire timeout.
var ErrExhausted = errors.New("pool: no connection became available within the acquire timeout")

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("pool: closed")

// Config holds pool construction parameters.
type Config struct {
	Size           int
	AcquireTimeout time.Duration
}

// Pool is a bounded set of connections, each either idle or leased.
// Safe for concurrent use.
type Pool struct {
	factory        Factory
	sem            chan struct{}
	acquireTimeout time.Duration

	mu     sync.Mutex
	idle   []Conn
	leased int
	closed bool
}

// Stats is a snapshot of the pool's bookkeeping.
type Stats struct {
	Idle   int
	Leased int
}

// New creates a Pool. Panics on invalid config — pool sizing is startup
// configuration, not a runtime input.
func New(factory Factory, config Config) *Pool {
	if factory == nil {
		panic("pool: factory must be non-nil")
	}
	if config.Size <= 0 {
		panic(fmt.Sprintf("pool: size must be > 0, got %d", config.Size))
	}
	if config.AcquireTimeout <= 0 {
		panic(fmt.Sprintf("pool: acquire timeout must be > 0, got %s", config.AcquireTimeout))
	}
	return &Pool{
		factory:        factory,
		sem:            make(chan struct{}, config.Size),
		acquireTimeout: config.AcquireTimeout,
	}
}

// Acquire blocks until a connection slot is free, then hands out a lease over
// an idle connection (validated with a ping) or a freshly opened one.
// Fails with ErrExhausted when the acquire timeout elapses first, or with
// ctx.Err() when the caller's context is cancelled while waiting.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Unlock()

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case p.sem <- struct{}{}:
	case <-timer.C:
		return nil, ErrExhausted
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	conn, err := p.takeIdle(ctx)
	if err == nil && conn == nil {
		conn, err = p.factory(ctx)
	}
	if err != nil {
		<-p.sem
		return nil, err
	}

	p.mu.Lock()
	p.leased++
	p.mu.Unlock()
	return &Lease{pool: p, conn: conn}, nil
}

// takeIdle pops idle connections until one passes a ping. Broken connections
// are closed and discarded; the caller opens a replacement through the
// factory. Returns (nil, nil) when no usable idle connection exists.
func (p *Pool) takeIdle(ctx context.Context) (Conn, error) {
	for {
		p.mu.Lock()
		if len(p.idle) == 0 {
			p.mu.Unlock()
			return nil, nil
		}
		conn := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		p.mu.Unlock()

		if err := conn.PingContext(ctx); err != nil {
			conn.Close()
			continue
		}
		return conn, nil
	}
}

// Stats returns the current idle/leased counts.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Idle: len(p.idle), Leased: p.leased}
}

// Close closes all idle connections and rejects further acquires. Leased
// connections are closed as their leases are released.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, conn := range idle {
		conn.Close()
	}
}

// Lease is a temporary, exclusive right to use one pooled connection.
// It must be released exactly once; Release is idempotent so that handlers
// can release on every exit path without double-return bugs.
type Lease struct {
	pool *Pool
	conn Conn

	mu       sync.Mutex
	released bool
	broken   bool
}

// Conn returns the leased connection.
func (l *Lease) Conn() Conn {
	return l.conn
}

// MarkBroken flags the connection as unusable. On release it is closed
// instead of being returned to the idle set; the pool opens a replacement on
// a later Acquire.
func (l *Lease) MarkBroken() {
	l.mu.Lock()
	l.broken = true
	l.mu.Unlock()
}

// Release returns the connection to the pool (or closes it when broken or
// the pool is shut down) and frees the concurrency slot. Calling Release
// more than once is a no-op.
func (l *Lease) Release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	broken := l.broken
	l.mu.Unlock()

	p := l.pool
	p.mu.Lock()
	p.leased--
	if broken || p.closed {
		p.mu.Unlock()
		l.conn.Close()
	} else {
		p.idle = append(p.idle, l.conn)
		p.mu.Unlock()
	}
	<-p.sem
}
