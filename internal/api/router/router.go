package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "gochopp/docs" // registra a especificação Swagger
	"gochopp/internal/api/keg"
	"gochopp/internal/api/sale"
	"gochopp/internal/domain"
	"gochopp/internal/pkg/cache"
	"gochopp/internal/pkg/logger"
	"gochopp/internal/pkg/middleware"
)

// Deps são os handlers e a infraestrutura já inicializados por injeção de dependências.
type Deps struct {
	KegHandler  *keg.Handler
	SaleHandler *sale.Handler
	TokenSvc    middleware.TokenService
	Logger      logger.Logger

	// Cache é opcional; nil desliga o rate limit.
	Cache           cache.Client
	RateLimit       int
	RateLimitWindow time.Duration
	RequestTimeout  time.Duration
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(d.RequestTimeout))
	if d.Cache != nil && d.RateLimit > 0 {
		r.Use(middleware.RateLimiter(d.Cache, d.RateLimit, d.RateLimitWindow, d.Logger))
	}

	r.Get("/ping", PingHandler)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(middleware.NewAuthMiddleware(d.TokenSvc))

		v1.Route("/kegs", func(kr chi.Router) {
			kr.Get("/", d.KegHandler.ListKegsHandler)
			kr.Post("/purchases", d.KegHandler.PurchaseHandler)
			kr.Route("/{id}", func(ir chi.Router) {
				ir.Get("/", d.KegHandler.GetKegHandler)
				ir.Post("/activate", d.KegHandler.ActivateHandler)
				ir.Post("/loss", d.KegHandler.LossHandler)
				ir.Post("/transfer", d.KegHandler.TransferHandler)
				ir.With(middleware.PermissionMiddleware(domain.RoleAdmin)).Delete("/", d.KegHandler.DeleteHandler)
			})
		})
		v1.Get("/brands/{brand}/summary", d.KegHandler.BrandSummaryHandler)
		v1.Get("/movements", d.KegHandler.ListMovementsHandler)
		v1.Post("/sales/external", d.SaleHandler.ExternalSaleHandler)
	})

	return r
}

// PingHandler é o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("Requisição concluída", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  chimw.GetReqID(r.Context()),
			})
		})
	}
}
