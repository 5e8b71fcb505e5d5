// Package geo 将访问者 IP 解析为国家代码
package geo

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrInvalidIP IP 格式无法解析
var ErrInvalidIP = errors.New("invalid ip address")

// Resolver IP -> 国家代码，未知时返回空字符串
type Resolver interface {
	Country(ctx context.Context, ip string) (string, error)
}

// Nop 未配置地理库时使用，总是返回空
type Nop struct{}

// Country 实现 Resolver
func (Nop) Country(context.Context, string) (string, error) {
	return "", nil
}

// MaxMind 基于 GeoLite2/GeoIP2 Country 数据库
type MaxMind struct {
	reader *geoip2.Reader
}

// OpenMaxMind 打开 mmdb 文件
func OpenMaxMind(path string) (*MaxMind, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开地理数据库失败: %w", err)
	}
	return &MaxMind{reader: reader}, nil
}

// Country 实现 Resolver
func (m *MaxMind) Country(ctx context.Context, ip string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	record, err := m.reader.Country(parsed)
	if err != nil {
		return "", err
	}
	return record.Country.IsoCode, nil
}

// Close 释放数据库文件
func (m *MaxMind) Close() error {
	return m.reader.Close()
}
