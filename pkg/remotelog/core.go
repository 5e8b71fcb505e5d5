package remotelog

import (
	"context"
	"strings"

	"go.uber.org/zap/zapcore"
)

// PackageKey 通过 zap.String(PackageKey, "...") 显式指定远程 package 字段
const PackageKey = "package"

// loggerPackages logger 名称到远程 package 的映射
var loggerPackages = map[string]string{
	"shortlink":           "service",
	"shortcode_generator": "utils",
	"archive":             "db",
	"geo_cache":           "cache",
	"http":                "middleware",
}

// Core 把 zap 日志转发到 Client，可与本地 core 通过 zapcore.NewTee 并联
type Core struct {
	zapcore.LevelEnabler
	client *Client
	pkg    string
}

// NewCore 创建转发 core
func NewCore(client *Client, enab zapcore.LevelEnabler) *Core {
	return &Core{LevelEnabler: enab, client: client}
}

// With 实现 zapcore.Core，只保留 package 字段
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	if pkg, ok := packageField(fields); ok {
		clone.pkg = pkg
	}
	return &clone
}

// Check 实现 zapcore.Core
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write 实现 zapcore.Core，投递失败不影响调用方
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	pkg := c.pkg
	if p, ok := packageField(fields); ok {
		pkg = p
	}
	if pkg == "" {
		pkg = packageForLogger(ent.LoggerName)
	}
	c.client.Log(context.Background(), "", levelName(ent.Level), pkg, ent.Message, nil)
	// Panic/Fatal 之后进程随即退出，必须等投递完成
	if ent.Level > zapcore.ErrorLevel {
		c.client.Flush()
	}
	return nil
}

// Sync 等待后台投递完成
func (c *Core) Sync() error {
	c.client.Flush()
	return nil
}

func packageField(fields []zapcore.Field) (string, bool) {
	for _, f := range fields {
		if f.Key == PackageKey && f.Type == zapcore.StringType {
			return f.String, true
		}
	}
	return "", false
}

// packageForLogger 取 logger 名称最后一段做映射，未知时交给客户端默认值
func packageForLogger(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if pkg, ok := loggerPackages[name]; ok {
		return pkg
	}
	if validPackages[name] {
		return name
	}
	return ""
}

func levelName(l zapcore.Level) string {
	switch l {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.InfoLevel:
		return "info"
	case zapcore.WarnLevel:
		return "warn"
	case zapcore.ErrorLevel:
		return "error"
	default:
		return "fatal"
	}
}
