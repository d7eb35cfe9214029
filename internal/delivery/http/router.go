package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"campushub/internal/delivery/http/controllers"
	"campushub/internal/delivery/http/helpers"
	"campushub/internal/delivery/http/middleware"
	"campushub/internal/domain"
)

// healthTimeout bounds the dependency ping behind GET /health.
const healthTimeout = 2 * time.Second

// RouterDeps holds everything the router mounts.
type RouterDeps struct {
	Accounts      *controllers.AccountController
	Events        *controllers.EventController
	Registrations *controllers.RegistrationController
	Checkout      *controllers.CheckoutController
	Verifier      domain.TokenVerifier
	Gatherer      prometheus.Gatherer
	// Health pings the store. Nil reports healthy.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(d RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()

	authed := middleware.RequireAuth(d.Verifier, d.Logger)
	optional := middleware.OptionalAuth(d.Verifier, d.Logger)
	adminOnly := func(h http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.RequireRole(domain.RoleAdmin)(h))
	}

	// Auth
	mux.HandleFunc("POST /auth/verification-codes", d.Accounts.RequestCode)
	mux.HandleFunc("POST /auth/verification-codes/verify", d.Accounts.VerifyCode)
	mux.HandleFunc("GET /me", authed(d.Accounts.GetMe))

	// Events
	mux.HandleFunc("POST /clubs/{clubID}/events", adminOnly(d.Events.CreateEvent))
	mux.HandleFunc("GET /clubs/{clubID}/events/{eventID}", d.Events.GetEvent)
	mux.HandleFunc("PATCH /clubs/{clubID}/events/{eventID}", adminOnly(d.Events.UpdateEvent))

	// Registration
	const event = "/clubs/{clubID}/events/{eventID}"
	const single = event + "/registrations/{partition}/{registrationID}"
	mux.HandleFunc("POST "+event+"/registrations", authed(d.Registrations.Register))
	mux.HandleFunc("POST "+event+"/guest-registrations", d.Registrations.RegisterGuest)
	mux.HandleFunc("POST "+event+"/checkout", optional(d.Checkout.Checkout))
	mux.HandleFunc("POST "+event+"/checkout/complete", optional(d.Checkout.CompleteCheckout))
	mux.HandleFunc("GET "+event+"/registrations/status", optional(d.Registrations.RegistrationStatus))
	mux.HandleFunc("GET "+event+"/registrations", adminOnly(d.Registrations.ListRegistrations))
	mux.HandleFunc("GET "+event+"/registrations/stats", adminOnly(d.Registrations.RegistrationStats))
	mux.HandleFunc("GET "+event+"/registrations/count", d.Registrations.RegistrationCount)
	mux.HandleFunc("GET "+single, adminOnly(d.Registrations.GetRegistration))
	mux.HandleFunc("POST "+single+"/check-in", adminOnly(d.Registrations.CheckIn))
	mux.HandleFunc("POST "+single+"/cancel", authed(d.Registrations.Cancel))
	mux.HandleFunc("PATCH "+single+"/status", adminOnly(d.Registrations.UpdateStatus))
	mux.HandleFunc("PATCH "+single+"/payment", adminOnly(d.Registrations.UpdatePayment))
	mux.HandleFunc("DELETE "+single, adminOnly(d.Registrations.DeleteRegistration))
	mux.HandleFunc("POST /me/registrations/lookup", authed(d.Registrations.LookupMyRegistrations))

	// Ops
	mux.HandleFunc("GET /health", healthHandler(d.Health, d.Logger))
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

func healthHandler(check func(ctx context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "err", err)
				helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeUnavailable, "store unavailable")
				return
			}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
