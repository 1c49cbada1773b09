package httpx

import (
	"log/slog"
	"net/http"

	"github.com/agrilink/sessiongate/internal/adapters/provider"
	"github.com/agrilink/sessiongate/internal/ports"
	"github.com/agrilink/sessiongate/internal/service"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Provisioner ports.Provisioner
	Profiles    ports.ProfileRepository
	Gateway     *provider.Gateway
	Mapper      *provider.PayloadMapper
	Controller  *service.SessionController
	Logger      *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	profiles := &ProfileHandlers{
		Provisioner: services.Provisioner,
		Profiles:    services.Profiles,
		Logger:      services.Logger,
	}
	mux.HandleFunc("POST /api/profiles/provision", profiles.Provision)
	mux.HandleFunc("GET /api/profiles/{authId}", profiles.Get)
	mux.HandleFunc("PATCH /api/profiles/{authId}", profiles.Update)

	if services.Gateway != nil && services.Mapper != nil && services.Controller != nil {
		events := &AuthEventHandlers{
			Gateway:    services.Gateway,
			Mapper:     services.Mapper,
			Controller: services.Controller,
			Logger:     services.Logger,
		}
		mux.HandleFunc("POST /api/auth/events", events.Ingest)
		mux.HandleFunc("GET /api/session", events.State)
		mux.HandleFunc("POST /api/session/refresh", events.Refresh)
	}

	return mux
}
