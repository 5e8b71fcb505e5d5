// Package service 组合存储、短码生成、地理解析与归档，实现创建、统计与访问流程
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shorturl-analytics/internal/geo"
	"shorturl-analytics/internal/model"
	"shorturl-analytics/internal/shortcode"
	"shorturl-analytics/internal/store"

	"go.uber.org/zap"
)

const (
	// DefaultValidityMinutes 未指定有效期时使用
	DefaultValidityMinutes = 30
	// DefaultGeoTimeout 单次地理解析的超时
	DefaultGeoTimeout = 200 * time.Millisecond
)

// ErrGone 短链接已过期，拒绝重定向
var ErrGone = errors.New("short link expired")

// Recorder 接收创建与点击事件
type Recorder interface {
	LinkCreated(rec model.LinkRecord)
	ClickRecorded(shortcode string, click model.ClickEvent)
}

type nopRecorder struct{}

func (nopRecorder) LinkCreated(model.LinkRecord) {}
func (nopRecorder) ClickRecorded(string, model.ClickEvent) {}

// CreateInput 创建请求
type CreateInput struct {
	URL             string
	ValidityMinutes int    // 0 表示使用默认值
	Shortcode       string // 为空时自动生成
}

// Stats 统计结果，过期的记录同样返回完整数据
type Stats struct {
	model.LinkRecord
	Expired     bool
	TotalClicks int
}

// Visit 一次重定向访问
type Visit struct {
	Shortcode string
	Referer   string
	IP        string
}

// ShortLinkService 短链接业务
type ShortLinkService struct {
	store           *store.Store
	generator       *shortcode.Generator
	geo             geo.Resolver
	recorder        Recorder
	defaultValidity int
	geoTimeout      time.Duration
	logger          *zap.SugaredLogger
}

// Config 依赖与参数，Store 与 Generator 必填
type Config struct {
	Store           *store.Store
	Generator       *shortcode.Generator
	Geo             geo.Resolver
	Recorder        Recorder
	DefaultValidity int
	GeoTimeout      time.Duration
	Logger          *zap.SugaredLogger
}

// New 创建服务实例
func New(cfg Config) *ShortLinkService {
	s := &ShortLinkService{
		store:           cfg.Store,
		generator:       cfg.Generator,
		geo:             cfg.Geo,
		recorder:        cfg.Recorder,
		defaultValidity: cfg.DefaultValidity,
		geoTimeout:      cfg.GeoTimeout,
		logger:          cfg.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if s.generator == nil {
		s.generator = shortcode.NewGenerator(s.logger)
	}
	if s.geo == nil {
		s.geo = geo.Nop{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.defaultValidity <= 0 {
		s.defaultValidity = DefaultValidityMinutes
	}
	if s.geoTimeout <= 0 {
		s.geoTimeout = DefaultGeoTimeout
	}
	s.logger = s.logger.Named("shortlink")
	return s
}

// Create 创建短链接
// 指定短码时只尝试一次；自动生成时每个候选码直接尝试插入，
// 插入冲突即视为已占用，总抽取次数不超过 MaxAttempts
func (s *ShortLinkService) Create(ctx context.Context, in CreateInput) (model.LinkRecord, error) {
	validity := in.ValidityMinutes
	if validity == 0 {
		validity = s.defaultValidity
	}

	if in.Shortcode != "" {
		rec, err := s.store.Create(in.Shortcode, in.URL, validity)
		if err != nil {
			return model.LinkRecord{}, err
		}
		s.created(rec, validity)
		return rec, nil
	}

	if err := ctx.Err(); err != nil {
		return model.LinkRecord{}, err
	}

	var (
		rec       model.LinkRecord
		createErr error
	)
	// Exists 只是快速路径，真正的占用判定由 store.Create 原子完成
	_, err := s.generator.Unique(func(code string) bool {
		if s.store.Exists(code) {
			return true
		}
		rec, createErr = s.store.Create(code, in.URL, validity)
		return errors.Is(createErr, store.ErrConflict)
	})
	if err != nil {
		return model.LinkRecord{}, fmt.Errorf("生成短码失败: %w", err)
	}
	if createErr != nil {
		return model.LinkRecord{}, createErr
	}
	s.created(rec, validity)
	return rec, nil
}

func (s *ShortLinkService) created(rec model.LinkRecord, validity int) {
	s.recorder.LinkCreated(rec)
	s.logger.Infow("create.success", "shortcode", rec.Shortcode, "validityMinutes", validity)
}

// Stats 查询统计
func (s *ShortLinkService) Stats(_ context.Context, code string) (Stats, error) {
	rec, err := s.store.Lookup(code)
	if err != nil {
		return Stats{}, err
	}
	expired := s.store.IsExpired(rec)
	if expired {
		s.logger.Infow("stats.expired", "shortcode", code)
	}
	return Stats{
		LinkRecord:  rec,
		Expired:     expired,
		TotalClicks: len(rec.Clicks),
	}, nil
}

// Visit 处理一次重定向：过期的链接返回 ErrGone 且不记录点击
func (s *ShortLinkService) Visit(ctx context.Context, v Visit) (string, error) {
	rec, err := s.store.Lookup(v.Shortcode)
	if err != nil {
		return "", err
	}
	if s.store.IsExpired(rec) {
		return "", fmt.Errorf("%w: %s", ErrGone, v.Shortcode)
	}

	click := model.ClickEvent{
		Referer:  v.Referer,
		SourceIP: v.IP,
		Geo:      s.resolveCountry(ctx, v.IP),
	}
	if recorded, ok := s.store.RecordClick(v.Shortcode, click); ok {
		s.recorder.ClickRecorded(v.Shortcode, recorded)
	}
	return rec.OriginalURL, nil
}

// resolveCountry 尽力解析，失败或超时返回空
func (s *ShortLinkService) resolveCountry(ctx context.Context, ip string) string {
	if ip == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, s.geoTimeout)
	defer cancel()

	country, err := s.geo.Country(ctx, ip)
	if err != nil {
		s.logger.Debugw("geo.lookup_failed", "ip", ip, "error", err)
		return ""
	}
	return country
}

// Len 当前记录数
func (s *ShortLinkService) Len() int {
	return s.store.Len()
}
