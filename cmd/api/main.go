package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/config"
	appHTTP "github.com/cmlabs-hris/homecare-payroll/internal/handler/http"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/cron"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/daybook"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/storage"
	"github.com/cmlabs-hris/homecare-payroll/internal/repository/postgresql"
	advanceService "github.com/cmlabs-hris/homecare-payroll/internal/service/advance"
	attendanceService "github.com/cmlabs-hris/homecare-payroll/internal/service/attendance"
	"github.com/cmlabs-hris/homecare-payroll/internal/service/file"
	salaryService "github.com/cmlabs-hris/homecare-payroll/internal/service/salary"
	shiftService "github.com/cmlabs-hris/homecare-payroll/internal/service/shift"
	"github.com/redis/go-redis/v9"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Error loading config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.App.LogLevel),
	})))

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	nurseRepo := postgresql.NewNurseRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	assignmentRepo := postgresql.NewAssignmentRepository(db)
	salaryConfigRepo := postgresql.NewSalaryConfigRepository(db)
	salaryPaymentRepo := postgresql.NewSalaryPaymentRepository(db)
	advanceRepo := postgresql.NewAdvanceRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	var fileStorage storage.FileStorage
	var fileHandler appHTTP.FileHandler
	switch cfg.Storage.Type {
	case "local":
		local, err := storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL, cfg.Storage.SigningKey)
		if err != nil {
			slog.Error("Failed to initialize local storage", "error", err)
			os.Exit(1)
		}
		fileStorage = local
		fileHandler = appHTTP.NewFileHandler(local)
	case "cloudinary":
		fileStorage, err = storage.NewCloudinaryStorage(cfg.Storage.CloudinaryURL, cfg.Storage.Folder)
		if err != nil {
			slog.Error("Failed to initialize cloudinary storage", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Unsupported storage type", "type", cfg.Storage.Type)
		os.Exit(1)
	}
	receiptService := file.NewReceiptService(fileStorage, cfg.Storage.URLExpiry)

	scheduler := cron.NewScheduler()
	notifier, asyncNotifier, closeNotifier := newDaybookNotifier(cfg, scheduler)
	defer closeNotifier()

	attendanceSvc := attendanceService.NewAttendanceService(attendanceRepo, cfg.Conventions)
	shiftSvc := shiftService.NewShiftService(assignmentRepo, cfg.Conventions)
	configSvc := salaryService.NewConfigService(salaryConfigRepo, nurseRepo)
	paymentSvc := salaryService.NewPaymentService(
		salaryPaymentRepo,
		salaryConfigRepo,
		nurseRepo,
		attendanceRepo,
		assignmentRepo,
		notifier,
		cfg.Conventions,
	)
	advanceSvc := advanceService.NewAdvanceService(
		advanceRepo,
		nurseRepo,
		receiptService,
		notifier,
		cfg.Payroll.AdvanceDeleteWindow,
	)

	router := appHTTP.NewRouter(
		JWTService,
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.CORSAllowedOrigins,
			Env:            cfg.App.Env,
			Version:        version,
		},
		appHTTP.Handlers{
			Attendance: appHTTP.NewAttendanceHandler(attendanceSvc),
			Shift:      appHTTP.NewShiftHandler(shiftSvc),
			Salary:     appHTTP.NewSalaryHandler(configSvc, paymentSvc),
			Advance:    appHTTP.NewAdvanceHandler(advanceSvc),
			Files:      fileHandler,
		},
	)

	scheduler.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", "http://localhost"+server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		slog.Error("Server error", "error", err)
	case sig := <-quit:
		slog.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}

	scheduler.Stop()
	if asyncNotifier != nil {
		asyncNotifier.Wait()
	}
}

// newDaybookNotifier picks how payment events reach the bookkeeping service.
// With Redis configured entries go through the outbox and a cron job drains it.
// Without Redis they are posted in the background, and with no daybook URL
// they are dropped.
func newDaybookNotifier(cfg *config.Config, scheduler *cron.Scheduler) (daybook.Notifier, *daybook.AsyncNotifier, func()) {
	if cfg.Daybook.BaseURL == "" {
		slog.Info("Daybook posting disabled")
		return daybook.Noop{}, nil, func() {}
	}

	client := daybook.NewClient(daybook.ClientConfig{
		BaseURL:      cfg.Daybook.BaseURL,
		TokenURL:     cfg.Daybook.TokenURL,
		ClientID:     cfg.Daybook.ClientID,
		ClientSecret: cfg.Daybook.ClientSecret,
		Scopes:       cfg.Daybook.Scopes,
		Timeout:      cfg.Daybook.Timeout,
	})

	if cfg.Redis.Addr == "" {
		async := daybook.NewAsyncNotifier(client, cfg.Daybook.Timeout)
		return async, async, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		slog.Warn("Redis unreachable, daybook entries will queue once it recovers", "error", err)
	}

	outbox := daybook.NewOutbox(rdb, cfg.Redis.QueueKey)
	cron.NewDaybookJobs(outbox, client).RegisterJobs(scheduler, cfg.Daybook.DrainEvery)

	return outbox, nil, func() {
		if err := rdb.Close(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}
	}
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
