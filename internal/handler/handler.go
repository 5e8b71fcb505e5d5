package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"shorturl-analytics/internal/middleware"
	"shorturl-analytics/internal/model"
	"shorturl-analytics/internal/service"
	"shorturl-analytics/internal/shortcode"
	"shorturl-analytics/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// isoLayout 与 JavaScript toISOString 一致的 UTC 毫秒格式
const isoLayout = "2006-01-02T15:04:05.000Z"

// ShortLinkHandler 处理器
type ShortLinkHandler struct {
	service *service.ShortLinkService
	baseURL string
	logger  *zap.SugaredLogger
}

// NewShortLinkHandler 创建处理器实例，baseURL 为空时使用请求 Host
func NewShortLinkHandler(svc *service.ShortLinkService, baseURL string, logger *zap.SugaredLogger) *ShortLinkHandler {
	RegisterValidators()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ShortLinkHandler{
		service: svc,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("handler"),
	}
}

// HealthCheck godoc
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *ShortLinkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now(), Links: h.service.Len()})
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp"`
	Links     int       `json:"links" example:"42"`
}

// CreateShortLinkRequest 创建请求
// validity 与 shortcode 可以省略，但显式传入的 null 或空串视为无效
// validity 按 JSON 数值接收，30.0 与 30 等价，小数部分非零时拒绝
type CreateShortLinkRequest struct {
	URL       string   `json:"url" binding:"required,url" example:"https://github.com/gin-gonic/gin"`
	Validity  *float64 `json:"validity" binding:"omitempty,wholenumber,min=1,max=1440" swaggertype:"integer" example:"30"`
	Shortcode *string  `json:"shortcode" binding:"omitempty,shortcode" example:"promo1"`
}

// CreateShortLinkResponse 创建响应
type CreateShortLinkResponse struct {
	ShortLink string `json:"shortLink" example:"http://localhost:3000/abc1234"`
	Expiry    string `json:"expiry" example:"2025-01-01T12:30:00.000Z"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string       `json:"error" example:"NOT_FOUND"`
	Details []FieldIssue `json:"details,omitempty"`
}

// CreateShortLink godoc
// @Summary 创建短链接
// @Description 为一个长 URL 创建短链接，可指定短码与有效期（分钟，默认 30）
// @Tags ShortLink
// @Accept  json
// @Produce  json
// @Param   body  body   CreateShortLinkRequest  true  "长链接 URL"
// @Success 201 {object} CreateShortLinkResponse
// @Failure 400 {object} ErrorResponse "请求无效"
// @Failure 409 {object} ErrorResponse "短码已被占用"
// @Failure 503 {object} ErrorResponse "短码空间冲突过多"
// @Router /shorturls [post]
func (h *ShortLinkHandler) CreateShortLink(c *gin.Context) {
	var req CreateShortLinkRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		h.logger.Warnw("create.invalid_input", "request_id", middleware.GetRequestID(c), "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_INPUT", Details: describeBindError(err)})
		return
	}
	if issues := explicitNulls(c, "validity", "shortcode"); len(issues) > 0 {
		h.logger.Warnw("create.invalid_input", "request_id", middleware.GetRequestID(c), "null_fields", len(issues))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_INPUT", Details: issues})
		return
	}

	in := service.CreateInput{URL: req.URL}
	if req.Validity != nil {
		in.ValidityMinutes = int(*req.Validity)
	}
	if req.Shortcode != nil {
		in.Shortcode = *req.Shortcode
	}

	rec, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			h.logger.Warnw("create.shortcode_conflict", "shortcode", in.Shortcode)
			c.JSON(http.StatusConflict, ErrorResponse{Error: "SHORTCODE_IN_USE"})
		case errors.Is(err, store.ErrInvalid):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_INPUT", Details: []FieldIssue{{Message: err.Error()}}})
		case errors.Is(err, shortcode.ErrExhausted):
			h.logger.Errorw("create.code_exhausted", "request_id", middleware.GetRequestID(c), "error", err)
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "CODE_SPACE_EXHAUSTED"})
		default:
			h.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, CreateShortLinkResponse{
		ShortLink: h.shortLink(c, rec.Shortcode),
		Expiry:    isoTime(rec.Expiry),
	})
}

// StatsResponse 统计响应
type StatsResponse struct {
	Shortcode   string          `json:"shortcode" example:"promo1"`
	OriginalURL string          `json:"originalUrl" example:"https://example.org"`
	CreatedAt   string          `json:"createdAt"`
	Expiry      string          `json:"expiry"`
	Expired     bool            `json:"expired"`
	TotalClicks int             `json:"totalClicks" example:"3"`
	Clicks      []ClickResponse `json:"clicks"`
}

// ClickResponse 单次点击，缺失字段为 null
type ClickResponse struct {
	TS      string  `json:"ts"`
	Referer *string `json:"referer"`
	IP      *string `json:"ip"`
	Geo     *string `json:"geo"`
}

// GetStats godoc
// @Summary 查询短链接统计
// @Description 过期的短链接同样返回完整数据，并标记 expired
// @Tags ShortLink
// @Produce json
// @Param   code  path  string  true  "短码"
// @Success 200 {object} StatsResponse
// @Failure 404 {object} ErrorResponse "短码不存在"
// @Router /shorturls/{code} [get]
func (h *ShortLinkHandler) GetStats(c *gin.Context) {
	code := c.Param("code")
	stats, err := h.service.Stats(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "NOT_FOUND"})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		Shortcode:   stats.Shortcode,
		OriginalURL: stats.OriginalURL,
		CreatedAt:   isoTime(stats.CreatedAt),
		Expiry:      isoTime(stats.Expiry),
		Expired:     stats.Expired,
		TotalClicks: stats.TotalClicks,
		Clicks:      toClickResponses(stats.Clicks),
	})
}

// RedirectToOriginal godoc
// @Summary 短链接跳转
// @Description 跳转到原始 URL 并记录一次点击；过期链接返回 410 且不记录
// @Tags ShortLink
// @Param   code  path  string  true  "短码"
// @Success 302 "跳转"
// @Failure 404 {object} ErrorResponse "短码不存在"
// @Failure 410 {object} ErrorResponse "短链接已过期"
// @Router /{code} [get]
func (h *ShortLinkHandler) RedirectToOriginal(c *gin.Context) {
	code := c.Param("code")
	target, err := h.service.Visit(c.Request.Context(), service.Visit{
		Shortcode: code,
		Referer:   c.Request.Referer(),
		IP:        c.ClientIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "NOT_FOUND"})
		case errors.Is(err, service.ErrGone):
			c.JSON(http.StatusGone, ErrorResponse{Error: "EXPIRED"})
		default:
			h.internalError(c, err)
		}
		return
	}
	c.Redirect(http.StatusFound, target)
}

// RouteNotFound 未匹配的路由
func (h *ShortLinkHandler) RouteNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "ROUTE_NOT_FOUND"})
}

func (h *ShortLinkHandler) internalError(c *gin.Context, err error) {
	h.logger.Errorw("error", "request_id", middleware.GetRequestID(c), "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "INTERNAL_ERROR"})
}

func (h *ShortLinkHandler) shortLink(c *gin.Context, code string) string {
	base := h.baseURL
	if base == "" {
		base = "http://" + c.Request.Host
	}
	return base + "/" + code
}

func toClickResponses(clicks []model.ClickEvent) []ClickResponse {
	out := make([]ClickResponse, 0, len(clicks))
	for _, click := range clicks {
		out = append(out, ClickResponse{
			TS:      isoTime(click.Timestamp),
			Referer: optional(click.Referer),
			IP:      optional(click.SourceIP),
			Geo:     optional(click.Geo),
		})
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isoTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
