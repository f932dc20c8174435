package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talent-match-go/internal/api/handler"
	"talent-match-go/internal/api/router"
	"talent-match-go/internal/config"
	appCoreLogger "talent-match-go/internal/logger"
	"talent-match-go/internal/outbox"
	"talent-match-go/internal/processor"
	"talent-match-go/internal/storage"
	"talent-match-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"           //nolint:gochecknoglobals
	serviceName = "talent-match-go" //nolint:gochecknoglobals
)

func main() {
	initLogger()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		glog.Fatalf("配置校验失败: %v", err)
	}
	glog.Infof("配置加载成功 (version=%s)", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitTracerProvider(ctx, serviceName, cfg.Tracing)
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}
	if cfg.Tracing.Enabled {
		glog.Infof("链路追踪已启用，collector: %s", cfg.Tracing.Endpoint)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// 启动消息中继，负责把outbox表中的待发事件投递到RabbitMQ
	relayLogger := log.New(appCoreLogger.Logger, "[MessageRelay] ", log.LstdFlags|log.Lshortfile)
	messageRelay := outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, relayLogger)
	messageRelay.Start()
	glog.Info("消息中继服务已启动")

	profileService, err := processor.NewProfileService(cfg, storageManager)
	if err != nil {
		glog.Fatalf("初始化档案处理服务失败: %v", err)
	}
	glog.Info("档案处理服务初始化成功")

	profileHandler := handler.NewProfileHandler(cfg, storageManager, profileService)
	matchHandler, err := handler.NewMatchHandler(cfg, storageManager)
	if err != nil {
		glog.Fatalf("初始化匹配Handler失败: %v", err)
	}
	glog.Info("Handler初始化成功")

	go func() {
		done, err := profileHandler.StartIngestConsumers(ctx)
		if err != nil {
			glog.Fatalf("启动摄取消费者失败: %v", err)
		}
		glog.Infof("摄取消费者已启动，队列数: %d", len(done))
	}()

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, profileHandler, matchHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	messageRelay.Stop()
	glog.Info("消息中继服务已停止")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Errorf("链路追踪关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

func initLogger() {
	logFilePath := "logs/app.log"
	fileWriter, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("无法打开日志文件 %s: %v", logFilePath, err)
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	multiWriter := zerolog.MultiLevelWriter(consoleWriter, fileWriter)

	level := zerolog.InfoLevel
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = "15:04:05"

	logger := zerolog.New(multiWriter).With().Timestamp().Caller().Logger()

	appCoreLogger.Logger = logger
	zlog.Logger = logger

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
	glog.SetLevel(glog.LevelInfo)

	log.Println("Logger initialized with Zerolog (appCoreLogger & glog via adapter), writing to console and file:", logFilePath)
}
