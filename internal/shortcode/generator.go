package shortcode

import (
	"crypto/rand"
	"errors"
	"math/big"

	"go.uber.org/zap"
)

const (
	// Charset 包含用于生成短码的所有字符
	Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength 是生成的短码的长度
	CodeLength = 7
	// MaxAttempts 生成唯一短码的最大尝试次数
	MaxAttempts = 10
)

// ErrExhausted 多次尝试后仍然冲突
var ErrExhausted = errors.New("could not generate a unique shortcode")

// Generator 负责生成随机短码
type Generator struct {
	length   int
	attempts int
	random   func(length int) (string, error)
	logger   *zap.SugaredLogger
}

// Option 配置 Generator
type Option func(*Generator)

// WithSource 替换随机串来源，主要用于测试
func WithSource(source func(length int) (string, error)) Option {
	return func(g *Generator) {
		g.random = source
	}
}

// NewGenerator 创建一个新的短码生成器实例
func NewGenerator(logger *zap.SugaredLogger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	g := &Generator{
		length:   CodeLength,
		attempts: MaxAttempts,
		random:   generateRandomString,
		logger:   logger.Named("shortcode_generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate 生成一个随机短码，不检查唯一性
func (g *Generator) Generate() (string, error) {
	return g.random(g.length)
}

// Unique 生成一个 taken 判定为可用的短码
// taken 可以顺带占用该短码，返回 true 表示已被占用需要重新生成
// 最多尝试 MaxAttempts 次，全部冲突时返回 ErrExhausted
func (g *Generator) Unique(taken func(code string) bool) (string, error) {
	for i := 0; i < g.attempts; i++ {
		code, err := g.Generate()
		if err != nil {
			return "", err
		}
		if !taken(code) {
			return code, nil
		}
		g.logger.Debugf("短码 %s 已存在，重新生成 (%d/%d)", code, i+1, g.attempts)
	}
	g.logger.Warnf("已尝试%d次生成短码，但均存在冲突。", g.attempts)
	return "", ErrExhausted
}

// generateRandomString 使用加密安全的随机数生成器生成一个给定长度的字符串
func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(Charset)))
	for i := range b {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = Charset[num.Int64()]
	}
	return string(b), nil
}
