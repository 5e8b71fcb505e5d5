package model

import (
	"time"
)

// LinkRecord 短链接记录
// Shortcode、OriginalURL、CreatedAt、Expiry 创建后不可变，Clicks 只追加
type LinkRecord struct {
	Shortcode   string       `json:"shortcode"`
	OriginalURL string       `json:"originalUrl"`
	CreatedAt   time.Time    `json:"createdAt"`
	Expiry      time.Time    `json:"expiry"`
	Clicks      []ClickEvent `json:"clicks"`
}

// ExpiredAt 判断在给定时刻记录是否已过期
func (r LinkRecord) ExpiredAt(now time.Time) bool {
	return r.Expiry.Before(now)
}

// TotalClicks 点击总数
func (r LinkRecord) TotalClicks() int {
	return len(r.Clicks)
}
