package archive

import (
	"fmt"
	"testing"
	"time"

	"shorturl-analytics/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupDB 每个测试使用独立的内存数据库
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "无法连接到内存数据库")
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func TestArchiver_WritesLinksAndClicks(t *testing.T) {
	db := setupDB(t)
	a, err := New(db, 16, nil)
	require.NoError(t, err)
	a.Start()

	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	a.LinkCreated(model.LinkRecord{
		Shortcode:   "promo1",
		OriginalURL: "https://example.org",
		CreatedAt:   now,
		Expiry:      now.Add(30 * time.Minute),
	})
	a.ClickRecorded("promo1", model.ClickEvent{Timestamp: now, Referer: "https://ref.example", SourceIP: "1.2.3.4", Geo: "IN"})
	a.ClickRecorded("promo1", model.ClickEvent{Timestamp: now.Add(time.Second)})

	a.Stop()

	var links []LinkRow
	require.NoError(t, db.Find(&links).Error)
	require.Len(t, links, 1)
	assert.Equal(t, "promo1", links[0].Shortcode)
	assert.Equal(t, "https://example.org", links[0].OriginalURL)

	var clicks []ClickRow
	require.NoError(t, db.Order("id").Find(&clicks).Error)
	require.Len(t, clicks, 2)
	assert.Equal(t, "IN", clicks[0].Country)
	assert.Equal(t, "1.2.3.4", clicks[0].IPAddress)
	assert.Empty(t, clicks[1].Referer)
	assert.Zero(t, a.Dropped())
}

func TestArchiver_DropsAfterStop(t *testing.T) {
	db := setupDB(t)
	a, err := New(db, 4, nil)
	require.NoError(t, err)
	a.Start()
	a.Stop()
	a.Stop()

	a.ClickRecorded("late", model.ClickEvent{Timestamp: time.Now()})
	assert.Equal(t, int64(1), a.Dropped())

	var count int64
	db.Model(&ClickRow{}).Count(&count)
	assert.Zero(t, count)
}

func TestArchiver_DropsWhenFull(t *testing.T) {
	db := setupDB(t)
	a, err := New(db, 2, nil)
	require.NoError(t, err)

	// 未启动时没有消费者，第三条开始被丢弃
	for i := 0; i < 5; i++ {
		a.ClickRecorded("full", model.ClickEvent{Timestamp: time.Now()})
	}
	assert.Equal(t, int64(3), a.Dropped())

	a.Start()
	a.Stop()

	var count int64
	db.Model(&ClickRow{}).Count(&count)
	assert.Equal(t, int64(2), count)
}
