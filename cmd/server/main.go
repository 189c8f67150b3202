package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/wastemarket-backend/internal/config"
	"github.com/ignatzorin/wastemarket-backend/internal/db"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/repository"
	"github.com/ignatzorin/wastemarket-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/wastemarket-backend/internal/http/handlers"
	"github.com/ignatzorin/wastemarket-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/wastemarket-backend/internal/http/router"
	"github.com/ignatzorin/wastemarket-backend/internal/infrastructure/lock"
	"github.com/ignatzorin/wastemarket-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/wastemarket-backend/internal/infrastructure/messaging"
	"github.com/ignatzorin/wastemarket-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/wastemarket-backend/internal/interface/http/handler"
	"github.com/ignatzorin/wastemarket-backend/internal/logger"
	"github.com/ignatzorin/wastemarket-backend/internal/service"
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/bid"
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/listing"
	"github.com/ignatzorin/wastemarket-backend/internal/ws"
)

// storage - набор репозиториев выбранного драйвера.
type storage struct {
	listings   repository.ListingRepository
	bids       repository.BidRepository
	tx         repository.Transactor
	collectors repository.CollectorDirectory
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.Env)
	logg := logger.Get()

	checks := make(map[string]httpHandlers.HealthCheck)

	// Хранилище.
	var store storage
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		mem := memory.NewStore()
		store = storage{listings: mem.Listings(), bids: mem.Bids(), tx: mem, collectors: mem}
		logg.Warn("main: данные хранятся в памяти и пропадут при остановке")
	default:
		dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logg.Fatalf("main: ошибка подключения к базе: %v", err)
		}
		defer safeClose(dbConn)

		if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
			logg.Fatalf("main: ошибка миграций: %v", err)
		}

		store = storage{
			listings:   persistence.NewListingRepositoryAdapter(dbConn),
			bids:       persistence.NewBidRepositoryAdapter(dbConn),
			tx:         persistence.NewTransactor(dbConn),
			collectors: persistence.NewCollectorDirectory(dbConn),
		}
		checks["database"] = dbConn.PingContext
	}

	// Блокировка лотов: Redis для нескольких экземпляров, иначе память процесса.
	var (
		locker      repository.ListingLocker = lock.NewKeyedMutex()
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient, err = lock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logg.Fatalf("main: %v", err)
		}
		defer redisClient.Close()

		locker = lock.NewRedisLocker(redisClient, cfg.LockTTL)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	limitStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		logg.Fatalf("main: %v", err)
	}

	var background goroutine.Group

	// Вебсокеты.
	hub := ws.NewHub()
	background.Go(ctx, "ws.hub", hub.Run)
	local := ws.NewPublisher(hub)

	// События и расчёт: через NATS, если он настроен.
	var (
		publisher  event.Publisher         = local
		settlement event.SettlementTrigger = messaging.LogSettlement{}
	)
	if cfg.NATSURL != "" {
		natsConn, err := messaging.Connect(cfg.NATSURL)
		if err != nil {
			logg.Fatalf("main: %v", err)
		}
		defer natsConn.Drain()

		settlementPublisher, err := messaging.NewSettlementPublisher(ctx, natsConn)
		if err != nil {
			logg.Fatalf("main: %v", err)
		}
		settlement = settlementPublisher
		publisher = messaging.NewNATSPublisher(natsConn)

		relay := messaging.NewRelay(natsConn, local)
		background.Go(ctx, "nats.relay", func(ctx context.Context) {
			if err := relay.Run(ctx); err != nil {
				logg.WithError(err).Error("main: relay остановлен с ошибкой")
			}
		})
		checks["nats"] = natsCheck(natsConn)
	}

	// Сценарии.
	guard := listing.NewGuard(locker, store.tx, store.listings)

	createListingUC := listing.NewCreateListingUseCase(store.listings, publisher)
	publishListingUC := listing.NewPublishListingUseCase(guard, store.listings, publisher)
	getListingUC := listing.NewGetListingUseCase(store.listings)
	closeBiddingUC := listing.NewCloseBiddingUseCase(guard, store.listings, publisher)
	expireOverdueUC := listing.NewExpireOverdueUseCase(guard, store.listings, publisher)

	placeBidUC := bid.NewPlaceBidUseCase(guard, store.listings, store.bids, store.collectors, publisher)
	updateBidUC := bid.NewUpdateBidUseCase(guard, store.listings, store.bids, publisher)
	withdrawBidUC := bid.NewWithdrawBidUseCase(guard, store.listings, store.bids, publisher)
	acceptBidUC := bid.NewAcceptBidUseCase(guard, store.listings, store.bids, publisher, settlement)
	getListingBidsUC := bid.NewGetListingBidsUseCase(store.listings, store.bids)
	getMyBidsUC := bid.NewGetMyBidsUseCase(store.bids)

	sweeper := listing.NewSweeper(expireOverdueUC, cfg.SweepInterval)
	background.Go(ctx, "listing.sweeper", sweeper.Run)

	// HTTP.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Listing: handler.NewListingHandler(createListingUC, publishListingUC, getListingUC, closeBiddingUC),
		Bid:     handler.NewBidHandler(placeBidUC, updateBidUC, withdrawBidUC, acceptBidUC, getListingBidsUC, getMyBidsUC),
		WS:      httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:  httpHandlers.NewHealthHandler(checks),
	}, tokenManager, limitStore)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo("http.shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logg.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	stop()
	background.Wait()
	logg.Info("main: сервер остановлен")
}

func natsCheck(conn *nats.Conn) httpHandlers.HealthCheck {
	return func(context.Context) error {
		if !conn.IsConnected() {
			return errors.New("nats: нет соединения")
		}
		return nil
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Get().WithError(err).Error("main: ошибка закрытия базы")
	}
}
