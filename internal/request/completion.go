package request

import (
	"context"
	"sync"
)

// Completion 是结果回调的投递上下文。
type Completion interface {
	Deliver(fn func())
}

// CompletionFunc 让普通函数满足 Completion。
type CompletionFunc func(fn func())

// Deliver makes CompletionFunc satisfy Completion.
func (f CompletionFunc) Deliver(fn func()) {
	f(fn)
}

// Inline 在产生结果的 goroutine 上直接执行回调。
var Inline Completion = CompletionFunc(func(fn func()) { fn() })

// Loop 是串行的投递上下文：所有回调按投递顺序在同一个 goroutine 上执行。
// 调用方可以用 Run 在自己的 goroutine 上驱动它，也可以用 Start 交给后台。
// Close 之后的投递直接在调用方 goroutine 上执行。
type Loop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewLoop 创建一个尚未运行的 Loop。
func NewLoop() *Loop {
	return &Loop{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Deliver 将 fn 加入队列。
func (l *Loop) Deliver(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		fn()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Start 在后台 goroutine 上运行 Loop，直到 Close。
func (l *Loop) Start() {
	go func() {
		_ = l.Run(context.Background())
	}()
}

// Run 阻塞执行回调，直到 ctx 结束或 Close。Close 时会先执行完已排队的回调。
func (l *Loop) Run(ctx context.Context) error {
	for {
		if l.runPending() {
			continue
		}
		select {
		case <-l.notify:
		case <-l.done:
			l.runPending()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close 停止 Loop。可重复调用。
func (l *Loop) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.done)
	})
}

func (l *Loop) runPending() bool {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch) > 0
}
