package model

import (
	"time"
)

// ClickEvent 一次重定向访问
// 空字符串表示该字段缺失
type ClickEvent struct {
	Timestamp time.Time `json:"ts"`
	Referer   string    `json:"referer"`
	SourceIP  string    `json:"ip"`
	Geo       string    `json:"geo"`
}
