// Package store 进程内短链接存储
//
// 记录只创建不删除，过期是读取时由 Expiry 与当前时间比较得出的状态。
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"shorturl-analytics/internal/model"
)

// MaxValidityMinutes 有效期上限（24 小时）
const MaxValidityMinutes = 24 * 60

var (
	// ErrConflict 短码已被占用
	ErrConflict = errors.New("shortcode already exists")
	// ErrNotFound 短码不存在
	ErrNotFound = errors.New("shortcode not found")
	// ErrInvalid 创建参数无效
	ErrInvalid = errors.New("invalid link record")
)

// Clock 返回当前时间，测试中可替换
type Clock func() time.Time

// entry 单条记录及其点击序列
// 不可变字段无需加锁，clicks 由 mu 保护
type entry struct {
	rec    model.LinkRecord
	mu     sync.Mutex
	clicks []model.ClickEvent
}

// Store 短链接存储
type Store struct {
	mu    sync.RWMutex
	links map[string]*entry
	now   Clock
}

// Option 配置 Store
type Option func(*Store)

// WithClock 注入时钟
func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// New 创建一个空的存储实例
func New(opts ...Option) *Store {
	s := &Store{
		links: make(map[string]*entry),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now 返回存储使用的当前时间
func (s *Store) Now() time.Time {
	return s.now()
}

// Create 原子地检查并插入一条新记录
func (s *Store) Create(shortcode, originalURL string, validityMinutes int) (model.LinkRecord, error) {
	if shortcode == "" || originalURL == "" {
		return model.LinkRecord{}, fmt.Errorf("%w: shortcode and url are required", ErrInvalid)
	}
	if validityMinutes < 1 || validityMinutes > MaxValidityMinutes {
		return model.LinkRecord{}, fmt.Errorf("%w: validity %d out of range 1..%d", ErrInvalid, validityMinutes, MaxValidityMinutes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.links[shortcode]; exists {
		return model.LinkRecord{}, fmt.Errorf("%w: %s", ErrConflict, shortcode)
	}

	createdAt := s.now()
	rec := model.LinkRecord{
		Shortcode:   shortcode,
		OriginalURL: originalURL,
		CreatedAt:   createdAt,
		Expiry:      createdAt.Add(time.Duration(validityMinutes) * time.Minute),
		Clicks:      []model.ClickEvent{},
	}
	s.links[shortcode] = &entry{rec: rec}
	return rec, nil
}

// Exists 检查短码是否已存在（包括已过期的记录）
func (s *Store) Exists(shortcode string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[shortcode]
	return ok
}

// Lookup 返回记录快照，点击序列为副本
func (s *Store) Lookup(shortcode string) (model.LinkRecord, error) {
	s.mu.RLock()
	e, ok := s.links[shortcode]
	s.mu.RUnlock()
	if !ok {
		return model.LinkRecord{}, fmt.Errorf("%w: %s", ErrNotFound, shortcode)
	}

	e.mu.Lock()
	clicks := make([]model.ClickEvent, len(e.clicks))
	copy(clicks, e.clicks)
	e.mu.Unlock()

	rec := e.rec
	rec.Clicks = clicks
	return rec, nil
}

// RecordClick 追加一次点击；短码不存在时静默忽略并返回 false
// Timestamp 为零值时在追加时加锁打点，保证序列顺序与时间顺序一致
func (s *Store) RecordClick(shortcode string, event model.ClickEvent) (model.ClickEvent, bool) {
	s.mu.RLock()
	e, ok := s.links[shortcode]
	s.mu.RUnlock()
	if !ok {
		return model.ClickEvent{}, false
	}

	e.mu.Lock()
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	e.clicks = append(e.clicks, event)
	e.mu.Unlock()
	return event, true
}

// IsExpired 按当前时间判断记录是否过期，每次调用重新计算
func (s *Store) IsExpired(rec model.LinkRecord) bool {
	return rec.ExpiredAt(s.now())
}

// Len 记录总数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links)
}
