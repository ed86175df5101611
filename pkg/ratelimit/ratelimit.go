package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	GetRemaining() int
}

// TokenBucket 令牌桶速率限制器（基于 x/time/rate）
type TokenBucket struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewTokenBucket 创建新的令牌桶：capacity 为突发容量，refillRate 为每秒补充的令牌数
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(refillRate), capacity),
		now:     time.Now,
	}
}

// Allow 检查是否允许请求
func (tb *TokenBucket) Allow() bool {
	return tb.limiter.AllowN(tb.now(), 1)
}

// Wait 等待直到允许请求。等待时间超过 ctx 截止时间时立即返回错误
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// GetRemaining 获取剩余令牌数
func (tb *TokenBucket) GetRemaining() int {
	return int(tb.limiter.TokensAt(tb.now()))
}

// SlidingWindow 滑动窗口速率限制器
type SlidingWindow struct {
	limit      int
	windowSize time.Duration
	requests   []time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewSlidingWindow 创建新的滑动窗口速率限制器
func NewSlidingWindow(limit int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:      limit,
		windowSize: windowSize,
		requests:   make([]time.Time, 0, limit),
		now:        time.Now,
	}
}

func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	sw.requests = sw.requests[i:]
}

// Allow 检查是否允许请求
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.prune(now)
	if len(sw.requests) < sw.limit {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

// Wait 等待直到窗口内最早的请求过期
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		sw.mu.Lock()
		waitTime := time.Millisecond
		if len(sw.requests) > 0 {
			if d := sw.requests[0].Add(sw.windowSize).Sub(sw.now()); d > waitTime {
				waitTime = d
			}
		}
		sw.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// GetRemaining 获取剩余请求数
func (sw *SlidingWindow) GetRemaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.prune(sw.now())
	return sw.limit - len(sw.requests)
}

// Endpoint groups used by the futures client.
const (
	GroupRequest = "request" // every REST call
	GroupOrder   = "order"   // order placement and cancellation
)

// Manager 按端点分组的速率限制管理器
type Manager struct {
	limiters map[string]RateLimiter
	mu       sync.RWMutex
}

// NewManager builds the default groups. requestsPerSecond <= 0 disables the
// per-request bucket; the order window mirrors the exchange's 300 orders / 10s rule.
func NewManager(requestsPerSecond int) *Manager {
	m := &Manager{limiters: make(map[string]RateLimiter)}
	if requestsPerSecond > 0 {
		m.limiters[GroupRequest] = NewTokenBucket(requestsPerSecond, float64(requestsPerSecond))
	}
	m.limiters[GroupOrder] = NewSlidingWindow(300, 10*time.Second)
	return m
}

// Set 替换某个分组的限制器
func (m *Manager) Set(group string, limiter RateLimiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limiter == nil {
		delete(m.limiters, group)
		return
	}
	m.limiters[group] = limiter
}

// Wait 等待所有给定分组放行；未配置的分组直接放行
func (m *Manager) Wait(ctx context.Context, groups ...string) error {
	if m == nil {
		return nil
	}
	for _, g := range groups {
		m.mu.RLock()
		l := m.limiters[g]
		m.mu.RUnlock()
		if l == nil {
			continue
		}
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
