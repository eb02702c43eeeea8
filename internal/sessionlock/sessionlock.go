// Package sessionlock provides a table of per-key mutual-exclusion locks.
// Entries are created on first use and reaped when no holder or waiter remains.
package sessionlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	ErrEmptyKey = errors.New("sessionlock: empty key")
)

type entry struct {
	sem  *semaphore.Weighted
	refs int // holders + waiters
}

// Table 按 key 串行化调用方。不同 key 之间互不阻塞。
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry

	// Metrics
	acquired  atomic.Int64
	abandoned atomic.Int64
	contended atomic.Int64
	waitNanos atomic.Int64
}

// Stats 锁表统计
type Stats struct {
	Active    int           // 当前存在的 key 数
	Acquired  int64         // 成功获取次数
	Abandoned int64         // 排队期间因 ctx 结束放弃的次数
	Contended int64         // 需要排队才获取到的次数
	TotalWait time.Duration // 累计排队时长
}

// New creates an empty table.
func New() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// Lock 阻塞直到获得 key 的独占权或 ctx 结束。
// 返回的 unlock 可重复调用，只有第一次生效。
func (t *Table) Lock(ctx context.Context, key string) (unlock func(), err error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	e := t.ref(key)

	start := time.Now()
	if !e.sem.TryAcquire(1) {
		t.contended.Add(1)
		if err := e.sem.Acquire(ctx, 1); err != nil {
			t.abandoned.Add(1)
			t.unref(key, e)
			return nil, err
		}
	}
	t.waitNanos.Add(int64(time.Since(start)))
	t.acquired.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			t.unref(key, e)
		})
	}, nil
}

// TryLock 尝试立即获取，失败时返回 false 且不留下痕迹。
func (t *Table) TryLock(key string) (unlock func(), ok bool) {
	if key == "" {
		return nil, false
	}

	e := t.ref(key)
	if !e.sem.TryAcquire(1) {
		t.unref(key, e)
		return nil, false
	}
	t.acquired.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			t.unref(key, e)
		})
	}, true
}

// WithLock 在持有 key 的独占权期间执行 fn。
func (t *Table) WithLock(ctx context.Context, key string, fn func() error) error {
	unlock, err := t.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// Len 返回当前存在的 key 数
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Stats 返回统计快照
func (t *Table) Stats() Stats {
	return Stats{
		Active:    t.Len(),
		Acquired:  t.acquired.Load(),
		Abandoned: t.abandoned.Load(),
		Contended: t.contended.Load(),
		TotalWait: time.Duration(t.waitNanos.Load()),
	}
}

func (t *Table) ref(key string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		t.entries[key] = e
	}
	e.refs++
	return e
}

func (t *Table) unref(key string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
}
