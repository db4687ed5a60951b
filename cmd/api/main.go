package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadp "group-savings-engine/internal/adapter/http"
	"group-savings-engine/internal/adapter/identity"
	"group-savings-engine/internal/adapter/middleware"
	"group-savings-engine/internal/adapter/notify"
	"group-savings-engine/internal/adapter/repository/memory"
	"group-savings-engine/internal/adapter/repository/mysql"
	"group-savings-engine/internal/config"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/uow"
	"group-savings-engine/internal/infrastructure/cache"
	"group-savings-engine/internal/infrastructure/db"
	"group-savings-engine/internal/infrastructure/jobs"
	"group-savings-engine/internal/infrastructure/lock"
	"group-savings-engine/internal/infrastructure/logging"
	"group-savings-engine/internal/usecase/aggregate"
	"group-savings-engine/internal/usecase/contribution"
	"group-savings-engine/internal/usecase/group"
	"group-savings-engine/internal/usecase/lending"
	"group-savings-engine/pkg/clock"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

type store struct {
	tx    uow.UnitOfWork
	repos uow.Repos
	ping  func(ctx context.Context) error
	close func() error
}

func openStore(cfg *config.Config, logger *zap.Logger) (*store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		s := memory.NewStore()
		logger.Warn("using in-memory store; data is lost on restart")
		return &store{tx: s, repos: s.Repos(), close: func() error { return nil }}, nil
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &store{
		tx:    mysql.NewGormUoW(gdb),
		repos: mysql.NewRepos(gdb),
		ping:  sqlDB.PingContext,
		close: sqlDB.Close,
	}, nil
}

func buildSinks(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (event.Sink, error) {
	var sinks notify.Multi
	for _, name := range cfg.NotifySinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, notify.NewLog(logger.Named("events")))
		case config.SinkRedis:
			sinks = append(sinks, notify.NewRedisPublisher(rdb, cfg.EventsChannel))
		case config.SinkSQS:
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, fmt.Errorf("aws config: %w", err)
			}
			sinks = append(sinks, notify.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL))
		}
	}
	return sinks, nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	var rdb *redis.Client
	if cfg.UsesRedis() {
		if rdb, err = cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB, logger); err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
	}

	var locker lock.Locker = lock.NewLocal(cfg.LockWait)
	if cfg.LockBackend == config.LockRedis {
		locker = lock.NewRedis(rdb, cfg.LockWait, cfg.LockTTL, logger)
	}

	sink, err := buildSinks(ctx, cfg, rdb, logger)
	if err != nil {
		return err
	}

	committer := aggregate.NewCommitter(st.tx, locker,
		aggregate.WithVerification(cfg.VerifySummary),
		aggregate.WithSink(sink),
		aggregate.WithLogger(logger),
	)
	idp := identity.NewLedger(st.repos.Members)
	clk := clock.System{}

	groups := group.NewUsecase(st.tx, st.repos, committer, idp, clk, logger,
		group.WithPrecision(cfg.CurrencyPrecision))
	contribs := contribution.NewUsecase(st.repos, committer, idp, clk, logger,
		contribution.WithPrecision(cfg.CurrencyPrecision))
	loans := lending.NewUsecase(st.repos, committer, idp,
		lending.WithPrecision(cfg.CurrencyPrecision),
		lending.WithClock(clk),
		lending.WithLogger(logger),
	)
	ledger := aggregate.NewUsecase(st.repos, committer, logger)

	e := httpadp.NewEcho(logger)
	var commands []echo.MiddlewareFunc
	if cfg.IdempTTLSecs > 0 {
		commands = append(commands, middleware.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second, logger))
	}
	httpadp.Register(e, httpadp.Handlers{
		Health:        httpadp.NewHandler(cfg.StoreDriver, st.ping),
		Groups:        httpadp.NewGroupHandler(groups, ledger, idp, logger),
		Contributions: httpadp.NewContributionHandler(contribs, logger),
		Loans:         httpadp.NewLoanHandler(loans, logger),
	}, commands...)

	sched := jobs.NewScheduler(st.repos.Groups, contribs, loans, logger)
	if err := sched.Start(cfg.SweepSchedule, cfg.CycleSchedule); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.AppPort
		logger.Info("listening", zap.String("addr", addr), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		<-sched.Stop().Done()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not drain in time")
	}
	return nil
}
