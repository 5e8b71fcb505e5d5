// Package remotelog 把日志推送到远程评测日志服务
//
// 每条日志以 {stack, level, package, message} 的 JSON 形式 POST 到 Endpoint，
// 使用 Bearer Token 认证。字段取值受白名单约束，校验失败或投递失败只写 stderr，
// 不会把错误返回给记日志的一方。
package remotelog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

const (
	DefaultTimeout = 3 * time.Second
	maxMetaLength  = 2000
)

var (
	validStacks = map[string]bool{"backend": true, "frontend": true}
	validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "fatal": true}
	// validPackages 前端专用、共用、后端专用
	validPackages = map[string]bool{
		"component": true, "hook": true, "page": true, "state": true, "style": true,
		"auth": true, "config": true, "middleware": true, "utils": true,
		"cache": true, "controller": true, "cron_job": true, "db": true, "domain": true,
		"handler": true, "repository": true, "route": true, "service": true,
	}
)

// ErrInvalidEntry 字段不在白名单内或消息为空
var ErrInvalidEntry = errors.New("invalid log entry")

// Entry 一条远程日志
type Entry struct {
	Stack   string `json:"stack"`
	Level   string `json:"level"`
	Package string `json:"package"`
	Message string `json:"message"`
	Meta    string `json:"meta,omitempty"`
}

// Options 客户端选项
type Options struct {
	Endpoint       string
	Token          string
	DefaultStack   string // 默认 backend
	DefaultPackage string // 默认 middleware
	Timeout        time.Duration
	FireAndForget  bool // true 时 Log 立即返回，后台投递
	AllowMeta      bool
	HTTPClient     *http.Client
	ErrorOutput    io.Writer // 默认 os.Stderr
}

// Client 远程日志客户端
type Client struct {
	opts    Options
	http    *http.Client
	errOut  io.Writer
	errMu   sync.Mutex
	pending sync.WaitGroup
}

// New 创建客户端，Token 为空时返回错误
func New(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, errors.New("remote logger token missing")
	}
	if opts.Endpoint == "" {
		return nil, errors.New("remote logger endpoint missing")
	}
	if opts.DefaultStack == "" {
		opts.DefaultStack = "backend"
	}
	if opts.DefaultPackage == "" {
		opts.DefaultPackage = "middleware"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	c := &Client{opts: opts, http: opts.HTTPClient, errOut: opts.ErrorOutput}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.errOut == nil {
		c.errOut = os.Stderr
	}
	return c, nil
}

// Validate 校验并补全默认字段
func (c *Client) Validate(e Entry) (Entry, error) {
	if e.Stack == "" {
		e.Stack = c.opts.DefaultStack
	}
	if e.Package == "" {
		e.Package = c.opts.DefaultPackage
	}
	switch {
	case !validStacks[e.Stack]:
		return e, fmt.Errorf("%w: stack %q", ErrInvalidEntry, e.Stack)
	case !validLevels[e.Level]:
		return e, fmt.Errorf("%w: level %q", ErrInvalidEntry, e.Level)
	case !validPackages[e.Package]:
		return e, fmt.Errorf("%w: package %q", ErrInvalidEntry, e.Package)
	case e.Message == "":
		return e, fmt.Errorf("%w: message required", ErrInvalidEntry)
	}
	return e, nil
}

// Log 发送一条日志
// meta 只有在 AllowMeta 时才会序列化附带，且截断到 2000 字节
func (c *Client) Log(ctx context.Context, stack, level, pkg, message string, meta any) {
	entry, err := c.Validate(Entry{Stack: stack, Level: level, Package: pkg, Message: message})
	if err != nil {
		c.report("[remote-logger-validation] %v", err)
		return
	}
	if c.opts.AllowMeta && meta != nil {
		if raw, err := json.Marshal(meta); err == nil {
			if len(raw) > maxMetaLength {
				raw = raw[:maxMetaLength]
			}
			entry.Meta = string(raw)
		}
	}

	if !c.opts.FireAndForget {
		_ = c.Send(ctx, entry)
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		_ = c.Send(context.WithoutCancel(ctx), entry)
	}()
}

// Debug 等便捷方法使用默认 stack
func (c *Client) Debug(ctx context.Context, pkg, message string) {
	c.Log(ctx, "", "debug", pkg, message, nil)
}

func (c *Client) Info(ctx context.Context, pkg, message string) {
	c.Log(ctx, "", "info", pkg, message, nil)
}

func (c *Client) Warn(ctx context.Context, pkg, message string) {
	c.Log(ctx, "", "warn", pkg, message, nil)
}

func (c *Client) Error(ctx context.Context, pkg, message string) {
	c.Log(ctx, "", "error", pkg, message, nil)
}

func (c *Client) Fatal(ctx context.Context, pkg, message string) {
	c.Log(ctx, "", "fatal", pkg, message, nil)
}

// Send 同步投递已校验的日志，失败时写 stderr 并返回错误
func (c *Client) Send(ctx context.Context, entry Entry) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		c.report("[remote-logger] %v", err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.report("[remote-logger] %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("Log API failed %d: %s", resp.StatusCode, text)
		c.report("[remote-logger] %v", err)
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Flush 等待后台投递完成
func (c *Client) Flush() {
	c.pending.Wait()
}

func (c *Client) report(format string, args ...any) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	fmt.Fprintf(c.errOut, format+"\n", args...)
}
