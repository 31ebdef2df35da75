// Package main provides the main entry point for the parts pricing service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/parts-pricing/app/handlers"
	"github.com/amirphl/parts-pricing/app/middleware"
	"github.com/amirphl/parts-pricing/app/router"
	"github.com/amirphl/parts-pricing/app/scheduler"
	"github.com/amirphl/parts-pricing/app/services"
	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/amirphl/parts-pricing/config"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	stopFuncs []func()
	closers   []io.Closer
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logCloser := initializeLogging(cfg.Logging)
	if logCloser != nil {
		defer logCloser.Close()
	}

	log.Println("Starting parts pricing service...")

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErr <- app.router.Start(address)
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
	case err := <-serverErr:
		log.Printf("Server stopped unexpectedly: %v", err)
	}

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			log.Printf("Error closing resource: %v", err)
		}
	}

	log.Println("Server stopped")
}

// initializeLogging routes the standard logger to stdout, a rotating file, or both
func initializeLogging(cfg config.LoggingConfig) io.Closer {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)

	if cfg.Output != "file" && cfg.Output != "both" {
		log.SetOutput(os.Stdout)
		return nil
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotating))
	} else {
		log.SetOutput(rotating)
	}
	return rotating
}

// initializeDatabase opens the configured driver, sizes the pool and migrates the schema
func initializeDatabase(cfg config.DatabaseConfig, logging config.LoggingConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	logLevel := gormlogger.Warn
	if logging.Level == "debug" {
		logLevel = gormlogger.Info
	}
	slowThreshold := time.Duration(0)
	if cfg.SlowQueryLog {
		slowThreshold = cfg.SlowQueryTime
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(log.Default(), gormlogger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// sqlite serializes writers
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Printf("Database connection established (driver=%s)", cfg.Driver)
	return db, nil
}

// initializeCache initializes the redis client and verifies connectivity. Nil when disabled.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// initializeCaptcha returns nil when the captcha is disabled
func initializeCaptcha(cfg config.CaptchaConfig) (services.CaptchaService, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	svc, err := services.NewCaptchaServiceRotate(cfg.TTL, int(cfg.Tolerance), cfg.ImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize captcha: %w", err)
	}
	return svc, nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	app := &Application{config: cfg}

	db, err := initializeDatabase(cfg.Database, cfg.Logging)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, sqlDB)

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	probes := map[string]router.HealthProbe{
		"database": sqlDB.PingContext,
	}
	if rc != nil {
		app.closers = append(app.closers, rc)
		probes["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	// Repositories
	partRepo := repository.NewPartRepository(db)
	formulaRepo := repository.NewFormulaRepository(db)
	deviceModelRepo := repository.NewDeviceModelRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	captchaSvc, err := initializeCaptcha(cfg.Captcha)
	if err != nil {
		return nil, err
	}

	// Flows
	catalog := businessflow.NewDeviceCatalog(deviceModelRepo, rc, &cfg.Cache)
	partFlow := businessflow.NewPartFlow(partRepo, catalog)
	formulaFlow := businessflow.NewFormulaFlow(formulaRepo, partRepo)
	pricingFlow := businessflow.NewPricingFlow(partRepo, formulaRepo)
	deviceModelFlow := businessflow.NewDeviceModelFlow(deviceModelRepo, partRepo, catalog, db)
	importFlow := businessflow.NewImportFlow(partRepo, formulaRepo, catalog)
	userFlow := businessflow.NewUserFlow(userRepo, cfg.Security.BcryptCost)
	loginFlow := businessflow.NewLoginFlow(userRepo, tokenService, captchaSvc)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer seedCancel()
	if err := userFlow.SeedAdmin(seedCtx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}

	// Handlers
	appRouter := router.NewFiberRouter(
		cfg,
		middleware.NewAuthMiddleware(tokenService, loginFlow),
		router.Handlers{
			Auth:         handlers.NewAuthHandler(loginFlow),
			Parts:        handlers.NewPartHandler(partFlow),
			Formulas:     handlers.NewFormulaHandler(formulaFlow),
			DeviceModels: handlers.NewDeviceModelHandler(deviceModelFlow),
			Pricing:      handlers.NewPricingHandler(pricingFlow),
			Import:       handlers.NewImportHandler(importFlow),
			Users:        handlers.NewUserHandler(userFlow),
		},
		probes,
	)
	app.router = appRouter

	if cfg.Scheduler.ReannotateEnabled {
		sched, err := scheduler.NewReannotateScheduler(partFlow, log.Default(), cfg.Scheduler.ReannotateSpec)
		if err != nil {
			return nil, err
		}
		stop, err := sched.Start(context.Background())
		if err != nil {
			return nil, err
		}
		app.stopFuncs = append(app.stopFuncs, stop)
	}

	return app, nil
}
