package main

import (
	"flag"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/AutoHub/AutoHub/internal/audit"
	"github.com/AutoHub/AutoHub/internal/common/config"
	"github.com/AutoHub/AutoHub/internal/common/db"
	"github.com/AutoHub/AutoHub/internal/common/logger"
	"github.com/AutoHub/AutoHub/internal/common/server"
	"github.com/AutoHub/AutoHub/internal/common/tracing"
	"github.com/AutoHub/AutoHub/internal/eventbus"
	"github.com/AutoHub/AutoHub/internal/maintenance"
	"github.com/AutoHub/AutoHub/internal/servicelog"
	"github.com/AutoHub/AutoHub/internal/user"
	"github.com/AutoHub/AutoHub/internal/vehicle"
)

var (
	configPath = flag.String("config", "configs/autohub.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库
	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	err = gormDB.AutoMigrate(
		&user.User{},
		&vehicle.Vehicle{}, &vehicle.VehicleShare{},
		&vehicle.VehicleAttachment{}, &vehicle.VehicleAttachmentFile{},
		&maintenance.ScheduledServiceType{}, &maintenance.ScheduledServiceInstance{},
		&servicelog.ScheduledLog{}, &servicelog.RepairLog{},
		&audit.Changelog{}, &audit.VehicleChangelog{}, &audit.AppLog{},
	)
	if err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	// 事件总线与审计订阅：业务事件异步落为变更记录
	bus := eventbus.New(log)
	auditRepo := audit.NewRepo(gormDB, cfg.Retention.ChangelogPerUser, cfg.Retention.AppLogTotal)
	pub := audit.NewPublisher(bus)
	subs := audit.Subscribe(bus, auditRepo, log)
	defer subs.Unsubscribe()

	// 业务服务装配
	userSvc := user.NewService(user.NewRepo(gormDB), cfg, user.NewSMTPMailer(cfg.SMTP), pub, log)
	vehicleSvc := vehicle.NewService(vehicle.NewRepo(gormDB), userSvc, pub, log)
	maintRepo := maintenance.NewRepo(gormDB)
	maintSvc := maintenance.NewService(maintRepo, vehicleSvc, pub, log)
	logRepo := servicelog.NewRepo(gormDB)
	logSvc := servicelog.NewService(logRepo, maintRepo, vehicleSvc, pub, log)
	auditSvc := audit.NewService(auditRepo, vehicleSvc)
	transfer := vehicle.NewTransfer(vehicle.NewRepo(gormDB), maintRepo, logRepo, log)

	handlers := []interface{ RegisterRoutes(r *gin.Engine) }{
		user.NewHTTPHandler(userSvc, cfg),
		vehicle.NewHTTPHandler(vehicleSvc, transfer),
		maintenance.NewHTTPHandler(maintSvc),
		servicelog.NewHTTPHandler(logSvc),
		audit.NewHTTPHandler(auditSvc),
	}

	// 启动统一的 HTTP 服务模板
	err = server.RunHTTPServer(cfg, log, pub, func(r *gin.Engine) error {
		for _, h := range handlers {
			h.RegisterRoutes(r)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("autohub-server exited with error: %v", err)
	}
}
