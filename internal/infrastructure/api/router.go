package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"thumbhash-placeholder-layer/internal/application"
	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/infrastructure/metrics"
	"thumbhash-placeholder-layer/internal/infrastructure/shopware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 5 << 20

// webhookTopics are the platform webhooks this app subscribes to
var webhookTopics = []string{
	domain.TopicShopDeleted,
	domain.TopicShopActivated,
	domain.TopicShopDeactivated,
	domain.TopicMediaUploaded,
}

// NewRouter builds the inbound HTTP surface: platform webhooks, the
// registration handshake, health and metrics.
func NewRouter(
	dispatcher *application.WebhookDispatcher,
	registration *application.RegistrationService,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Use(answerOptions)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/registration/authorize", authorizeHandler(registration, logger))
	r.Post("/registration/authorize/callback", authorizeCallbackHandler(registration, logger))

	for _, topic := range webhookTopics {
		r.Post("/"+topic, webhookHandler(topic, dispatcher, logger))
	}

	r.NotFound(methodNotAllowed)
	r.MethodNotAllowed(methodNotAllowed)

	return r
}

// answerOptions replies to every OPTIONS request before routing
func answerOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusOK)
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// webhookHandler passes the raw body and signature to the dispatcher, which resolves the shop
func webhookHandler(topic string, dispatcher *application.WebhookDispatcher, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			logger.Warn().Err(err).Str("topic", topic).Msg("Failed to read webhook body")
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		req := &domain.WebhookRequest{
			Topic:     topic,
			Body:      body,
			Signature: r.Header.Get(shopware.ShopSignatureHeader),
		}

		if err := dispatcher.Dispatch(r.Context(), req); err != nil {
			writeError(w, err, topic, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func authorizeHandler(registration *application.RegistrationService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proof, err := registration.Authorize(r.Context(), r.URL.RawQuery, r.Header.Get(shopware.AppSignatureHeader))
		if err != nil {
			writeError(w, err, "registration/authorize", logger)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(proof)
	}
}

func authorizeCallbackHandler(registration *application.RegistrationService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		if _, err := registration.ConfirmCallback(r.Context(), body, r.Header.Get(shopware.ShopSignatureHeader)); err != nil {
			writeError(w, err, "registration/authorize/callback", logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// writeError maps application errors to status codes.
// Unauthorized requests are client errors the platform should not retry;
// anything else is a 500 so the platform delivers the webhook again.
func writeError(w http.ResponseWriter, err error, route string, logger zerolog.Logger) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		logger.Warn().Err(err).Str("route", route).Msg("Rejected unauthorized request")
		http.Error(w, "Shop unauthorized", http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnsupportedTopic):
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		logger.Error().Err(err).Str("route", route).Msg("Request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// instrument records request metrics by route pattern and logs each request
func instrument(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			duration := time.Since(start)
			metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(duration.Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()

			logger.Debug().
				Str("requestId", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", duration).
				Msg("Handled request")
		})
	}
}
