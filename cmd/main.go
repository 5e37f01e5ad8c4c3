package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gochopp/config"
	"gochopp/internal/pkg/cache"
	"gochopp/internal/pkg/database"
	"gochopp/internal/pkg/lock"
	"gochopp/internal/pkg/logger"
	"gochopp/internal/pkg/notify"
	"gochopp/internal/pkg/token"

	"gochopp/internal/api/keg"
	"gochopp/internal/api/router"
	"gochopp/internal/api/sale"
	"gochopp/internal/repository/kegrepo"
	"gochopp/internal/repository/memory"
	"gochopp/internal/repository/movementrepo"
	"gochopp/internal/service/allocationservice"
	"gochopp/internal/service/kegservice"
)

// storage agrupa as implementações do Registro, do Livro e da transação
// escolhidas por STORAGE_DRIVER.
type storage struct {
	kegs interface {
		kegservice.KegRepository
		allocationservice.KegRepository
	}
	movements interface {
		kegservice.MovementRepository
		allocationservice.MovementRepository
	}
	tx    kegservice.Transactor
	close func()
}

func main() {
	log.Println("⚡ Inicializando serviço GoChopp...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	appLog, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("falha ao inicializar o logger: %v", err)
	}
	defer appLog.Sync()
	appLog.Info("Configurações carregadas.", map[string]interface{}{
		"env":            cfg.Environment,
		"storage_driver": cfg.StorageDriver,
		"lock_driver":    cfg.LockDriver,
	})

	// 1. Cache (Redis). Opcional, exceto com LOCK_DRIVER=redis.
	var cacheClient cache.Client
	redisClient, err := cache.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		if cfg.LockDriver == config.LockDriverRedis {
			appLog.Fatal("Redis indisponível e LOCK_DRIVER=redis.", err)
		}
		appLog.Warn("Redis indisponível. Cache e rate limit desligados.", map[string]interface{}{"addr": cfg.RedisAddr, "error": err.Error()})
	} else {
		cacheClient = redisClient
		appLog.Info("Conexão Redis estabelecida.", nil)
	}

	// 2. Armazenamento
	store := newStorage(cfg, cacheClient, appLog)
	defer store.close()

	// 3. Serialização por marca
	var locker lock.BrandLocker = lock.NewMemoryLocker()
	if cfg.LockDriver == config.LockDriverRedis {
		locker = lock.NewRedisLocker(redisClient.Redis(), cfg.LockTTL)
	}

	// 4. Notificações
	var notifier notify.Notifier = notify.NewLogNotifier(appLog)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, 256, appLog)
		defer kafkaNotifier.Close()
		notifier = notify.Multi{notifier, kafkaNotifier}
		appLog.Info("Publisher Kafka inicializado.", map[string]interface{}{"topic": cfg.KafkaTopic})
	}

	// 5. Injeção de dependências: Repository -> Service -> Handler
	kegSvc := kegservice.NewService(store.kegs, store.movements, store.tx, locker, notifier, appLog)
	allocSvc := allocationservice.NewService(store.kegs, store.movements, store.tx, locker, notifier, appLog, cfg.AllocationMaxRetries)
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)

	r := router.NewRouter(router.Deps{
		KegHandler:      keg.NewHandler(kegSvc, appLog),
		SaleHandler:     sale.NewHandler(allocSvc, appLog),
		TokenSvc:        tokenSvc,
		Logger:          appLog,
		Cache:           cacheClient,
		RateLimit:       cfg.RateLimitMaxRequests,
		RateLimitWindow: cfg.RateLimitPeriod,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLog.Info("Servidor GoChopp ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}

func newStorage(cfg *config.Config, cacheClient cache.Client, appLog logger.Logger) storage {
	if cfg.StorageDriver == config.StorageDriverMemory {
		appLog.Warn("Armazenamento em memória: os dados se perdem ao reiniciar.", nil)
		return storage{
			kegs:      memory.NewKegStore(),
			movements: memory.NewMovementStore(),
			tx:        memory.Transactor{},
			close:     func() {},
		}
	}

	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	appLog.Info("Conexão PostgreSQL estabelecida.", nil)

	return storage{
		kegs:      kegrepo.NewKegRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTimeout, appLog),
		movements: movementrepo.NewMovementRepository(db, cfg.DBTimeout, appLog),
		tx:        database.NewTxManager(db),
		close:     func() { db.Close() },
	}
}
