package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "ghostwriter-ai-api/pkg/errors"
)

// ErrLockHeld 锁已被其他请求持有
var ErrLockHeld = errors.New("lock is held by another request")

// ReleaseFunc 释放锁
type ReleaseFunc func(ctx context.Context) error

// Locker 分布式互斥锁
type Locker interface {
	// Acquire 获取锁，已被持有时返回 ErrLockHeld
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// ChapterLockKey 章节写入锁的键，生成与编辑共用
func ChapterLockKey(projectID string, n int) string {
	return fmt.Sprintf("chapter:%s:%d", projectID, n)
}

// AcquireChapterLock 获取章节写入锁；被占用时返回 Conflict，锁服务故障返回 CacheError
func AcquireChapterLock(ctx context.Context, l Locker, projectID string, n int, ttl time.Duration) (ReleaseFunc, error) {
	release, err := l.Acquire(ctx, ChapterLockKey(projectID, n), ttl)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			return nil, apperrors.Newf(apperrors.CodeConflict, "chapter %d is being written by another request", n)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to acquire chapter lock")
	}
	return release, nil
}
