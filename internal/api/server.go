package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
// Mutating routes require adminAPIKey as a bearer token when it is set.
func NewServer(port string, handler *Handler, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      Routes(handler, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Routes returns the API mux wrapped in request-id, logging and recovery middleware.
func Routes(handler *Handler, adminAPIKey string) http.Handler {
	protect := func(h http.HandlerFunc) http.Handler {
		if adminAPIKey == "" {
			return h
		}
		return requireAuth(adminAPIKey, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/v1/totals", handler.GetTotals)
	mux.HandleFunc("GET /api/v1/overview", handler.GetOverview)
	mux.HandleFunc("GET /api/v1/purchases", handler.ListPurchases)
	mux.HandleFunc("GET /api/v1/sales", handler.ListSales)
	mux.HandleFunc("GET /api/v1/remaining/{type}", handler.GetRemaining)
	mux.HandleFunc("GET /api/v1/export", handler.Export)
	mux.HandleFunc("GET /api/v1/gold-prices", handler.GetGoldPrices)

	mux.Handle("POST /api/v1/purchases", protect(handler.AddPurchase))
	mux.Handle("POST /api/v1/sales", protect(handler.AddSale))
	mux.Handle("POST /api/v1/refresh", protect(handler.Refresh))
	mux.Handle("POST /api/v1/import", protect(handler.Import))

	return withRequestID(withLogging(withRecovery(mux)))
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
