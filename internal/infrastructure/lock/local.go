// Package lock 提供进程内互斥锁，Redis 未启用时替代分布式锁
package lock

import (
	"context"
	"sync"
	"time"

	"ghostwriter-ai-api/internal/domain/service"
)

// LocalLocker 进程内带过期时间的互斥锁
type LocalLocker struct {
	mu      sync.Mutex
	holders map[string]holder
	seq     uint64
	now     func() time.Time
}

type holder struct {
	seq       uint64
	expiresAt time.Time
}

// NewLocalLocker 创建进程内锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{holders: make(map[string]holder), now: time.Now}
}

// Acquire 获取锁，已被持有且未过期时返回 service.ErrLockHeld
func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (service.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.holders[key]; ok && now.Before(h.expiresAt) {
		return nil, service.ErrLockHeld
	}
	l.seq++
	mine := holder{seq: l.seq, expiresAt: now.Add(ttl)}
	l.holders[key] = mine

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if h, ok := l.holders[key]; ok && h.seq == mine.seq {
			delete(l.holders, key)
		}
		return nil
	}, nil
}
