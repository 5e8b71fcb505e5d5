package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shorturl-analytics/internal/archive"
	"shorturl-analytics/internal/config"
	"shorturl-analytics/internal/geo"
	"shorturl-analytics/internal/handler"
	"shorturl-analytics/internal/middleware"
	"shorturl-analytics/internal/service"
	"shorturl-analytics/internal/shortcode"
	"shorturl-analytics/internal/store"
	"shorturl-analytics/pkg/database"
	"shorturl-analytics/pkg/logger"
	"shorturl-analytics/pkg/redis"
	"shorturl-analytics/pkg/remotelog"

	_ "shorturl-analytics/docs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// @title 短链接统计服务 API
// @version 1.0
// @description 创建带有效期的短链接，跳转时记录点击来源与地理位置。
// @host localhost:3000
// @BasePath /
func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintln(os.Stderr, "配置加载失败:", err)
		os.Exit(1)
	}

	var remote *remotelog.Client
	var extra []zapcore.Core
	if cfg.RemoteLog.Enabled {
		remote, err = remotelog.New(remotelog.Options{
			Endpoint:      cfg.RemoteLog.Endpoint,
			Token:         cfg.RemoteLog.Token,
			DefaultStack:  cfg.RemoteLog.Stack,
			Timeout:       cfg.RemoteLog.Timeout,
			FireAndForget: true,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "远程日志初始化失败:", err)
			os.Exit(1)
		}
		level, err := zapcore.ParseLevel(cfg.RemoteLog.Level)
		if err != nil {
			level = zapcore.InfoLevel
		}
		extra = append(extra, remotelog.NewCore(remote, level))
	}

	logger.InitLogger(logger.Options{
		Level:      cfg.Log.Level,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}, extra...)
	defer func() {
		_ = logger.Logger.Sync()
	}()
	sugaredLogger := zap.S()

	resolver, closeGeo := setupGeo(cfg, sugaredLogger)
	defer closeGeo()

	var recorder service.Recorder
	if cfg.Archive.Enabled {
		archiver, closeDB, err := setupArchive(cfg, sugaredLogger)
		if err != nil {
			sugaredLogger.Fatalf("归档初始化失败: %v", err)
		}
		archiver.Start()
		defer closeDB()
		defer archiver.Stop()
		recorder = archiver
		sugaredLogger.Infof("✅ 归档已启用 (%s)", cfg.Archive.Driver)
	}

	svc := service.New(service.Config{
		Store:           store.New(),
		Generator:       shortcode.NewGenerator(sugaredLogger),
		Geo:             resolver,
		Recorder:        recorder,
		DefaultValidity: cfg.App.DefaultValidity,
		GeoTimeout:      cfg.Geo.LookupTimeout,
		Logger:          sugaredLogger,
	})

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// 默认不信任任何代理，点击记录的 IP 取连接地址
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		sugaredLogger.Fatalf("可信代理配置无效: %v", err)
	}
	router.Use(middleware.Standard(logger.Logger, cfg.CORS.AllowedOrigins)...)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	handler.RegisterRoutes(router, handler.NewShortLinkHandler(svc, cfg.App.BaseURL, sugaredLogger))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
		sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugaredLogger.Fatalf("服务启动失败: %v", err)
		}
	}()

	<-ctx.Done()
	sugaredLogger.Info("正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugaredLogger.Errorf("服务关闭失败: %v", err)
	}
	if remote != nil {
		remote.Flush()
	}
	sugaredLogger.Info("服务已退出")
}

// setupGeo 按配置组合 MaxMind 解析与 Redis 缓存，任何一环不可用时降级
func setupGeo(cfg *config.Config, log *zap.SugaredLogger) (geo.Resolver, func()) {
	if cfg.Geo.DatabasePath == "" {
		log.Info("未配置地理位置数据库，点击不记录 geo")
		return geo.Nop{}, func() {}
	}

	mm, err := geo.OpenMaxMind(cfg.Geo.DatabasePath)
	if err != nil {
		log.Warnf("地理位置数据库打开失败: %v", err)
		return geo.Nop{}, func() {}
	}
	closers := []func(){func() { _ = mm.Close() }}
	var resolver geo.Resolver = mm

	rdb, err := redis.NewClient(&redis.Config{
		Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
	})
	switch {
	case err != nil:
		log.Warnf("缓存连接失败: %v", err)
	case rdb != nil:
		resolver = geo.NewCached(rdb, mm, cfg.Geo.CacheTTL, log)
		closers = append(closers, func() {
			if err := rdb.Close(); err != nil {
				log.Errorf("关闭 Redis 连接失败: %v", err)
			}
		})
		log.Info("✅ 缓存连接成功")
	}

	return resolver, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

func setupArchive(cfg *config.Config, log *zap.SugaredLogger) (*archive.Archiver, func(), error) {
	db, err := database.Open(database.Options{
		Driver:   cfg.Archive.Driver,
		Host:     cfg.Archive.Host,
		Port:     cfg.Archive.Port,
		User:     cfg.Archive.User,
		Password: cfg.Archive.Password,
		Name:     cfg.Archive.Name,
	})
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	archiver, err := archive.New(db, cfg.Archive.BufferSize, log)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return archiver, closeDB, nil
}
