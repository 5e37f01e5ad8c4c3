package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"gochopp/internal/pkg/cache"
	"gochopp/internal/pkg/logger"
)

const rateLimitKey = "rate-limit:%s"

// RateLimiter limita requisições por IP numa janela fixa guardada no Redis.
// Falhas do Redis liberam a requisição: o limite não derruba a API.
func RateLimiter(client cache.Client, limit int, window time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := fmt.Sprintf(rateLimitKey, ip)
			ctx := r.Context()
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))

			count, err := client.GetInt(ctx, key)
			if err == cache.ErrCacheMiss {
				// Primeira requisição da janela: cria o contador com TTL.
				if err := client.Set(ctx, key, 1, window); err != nil {
					log.Warn("Falha ao abrir janela do rate limit.", map[string]interface{}{"ip": ip, "error": err.Error()})
				}
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-1))
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				log.Warn("Falha ao consultar rate limit no Redis.", map[string]interface{}{"ip": ip, "error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}

			if count >= limit {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			if _, err := client.Incr(ctx, key); err != nil {
				log.Warn("Falha ao incrementar rate limit.", map[string]interface{}{"ip": ip, "error": err.Error()})
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-count-1))
			next.ServeHTTP(w, r)
		})
	}
}
