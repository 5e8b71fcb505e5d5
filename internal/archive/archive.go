// Package archive 将短链接创建与点击事件异步写入数据库，仅用于离线审计
//
// 归档数据不会回读到内存存储，服务重启后存储依然从空开始。
package archive

import (
	"sync"
	"sync/atomic"
	"time"

	"shorturl-analytics/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultBufferSize 事件通道的缓冲区大小
const DefaultBufferSize = 1024

// LinkRow 短链接归档行
type LinkRow struct {
	ID          uint      `gorm:"primarykey"`
	Shortcode   string    `gorm:"size:30;index;not null"`
	OriginalURL string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	Expiry      time.Time `gorm:"not null"`
}

// TableName 指定表名
func (LinkRow) TableName() string {
	return "archived_links"
}

// ClickRow 点击归档行
type ClickRow struct {
	ID        uint      `gorm:"primarykey"`
	Shortcode string    `gorm:"size:30;index;not null"`
	IPAddress string    `gorm:"size:45"`
	Referer   string    `gorm:"type:text"`
	Country   string    `gorm:"size:8"`
	ClickedAt time.Time `gorm:"index;not null"`
}

func (ClickRow) TableName() string {
	return "archived_clicks"
}

type event struct {
	link  *LinkRow
	click *ClickRow
}

// Archiver 后台写入器
// 入队永不阻塞，通道满时丢弃事件并记录警告
type Archiver struct {
	db      *gorm.DB
	events  chan event
	stop    chan struct{}
	wg      sync.WaitGroup
	stopped atomic.Bool
	dropped atomic.Int64
	logger  *zap.SugaredLogger
}

// New 创建归档器并迁移表结构
func New(db *gorm.DB, bufferSize int, logger *zap.SugaredLogger) (*Archiver, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := db.AutoMigrate(&LinkRow{}, &ClickRow{}); err != nil {
		return nil, err
	}
	return &Archiver{
		db:     db,
		events: make(chan event, bufferSize),
		stop:   make(chan struct{}),
		logger: logger.Named("archive"),
	}, nil
}

// Start 启动后台写入任务
func (a *Archiver) Start() {
	a.logger.Info("启动归档写入器...")
	a.wg.Add(1)
	go a.run()
}

// Stop 停止写入器，已入队的事件会先写完
func (a *Archiver) Stop() {
	if !a.stopped.CompareAndSwap(false, true) {
		return
	}
	a.logger.Info("正在停止归档写入器...")
	close(a.stop)
	a.wg.Wait()
	if n := a.dropped.Load(); n > 0 {
		a.logger.Warnf("运行期间共丢弃 %d 条归档事件", n)
	}
}

// LinkCreated 记录一次创建
func (a *Archiver) LinkCreated(rec model.LinkRecord) {
	a.enqueue(event{link: &LinkRow{
		Shortcode:   rec.Shortcode,
		OriginalURL: rec.OriginalURL,
		CreatedAt:   rec.CreatedAt,
		Expiry:      rec.Expiry,
	}})
}

// ClickRecorded 记录一次点击
func (a *Archiver) ClickRecorded(shortcode string, click model.ClickEvent) {
	a.enqueue(event{click: &ClickRow{
		Shortcode: shortcode,
		IPAddress: click.SourceIP,
		Referer:   click.Referer,
		Country:   click.Geo,
		ClickedAt: click.Timestamp,
	}})
}

// Dropped 因通道已满或已停止而丢弃的事件数
func (a *Archiver) Dropped() int64 {
	return a.dropped.Load()
}

func (a *Archiver) enqueue(ev event) {
	if a.stopped.Load() {
		a.dropped.Add(1)
		return
	}
	select {
	case a.events <- ev:
	default:
		a.dropped.Add(1)
		a.logger.Warn("归档通道已满，丢弃事件")
	}
}

func (a *Archiver) run() {
	defer a.wg.Done()
	for {
		select {
		case ev := <-a.events:
			a.write(ev)
		case <-a.stop:
			a.drain()
			a.logger.Info("归档写入器已停止。")
			return
		}
	}
}

func (a *Archiver) drain() {
	for {
		select {
		case ev := <-a.events:
			a.write(ev)
		default:
			return
		}
	}
}

func (a *Archiver) write(ev event) {
	var err error
	switch {
	case ev.link != nil:
		err = a.db.Create(ev.link).Error
	case ev.click != nil:
		err = a.db.Create(ev.click).Error
	}
	if err != nil {
		a.logger.Errorf("写入归档失败: %v", err)
	}
}
