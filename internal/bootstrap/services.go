package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/agrilink/sessiongate/config"
	"github.com/agrilink/sessiongate/internal/adapters/provider"
	redisadapter "github.com/agrilink/sessiongate/internal/adapters/redis"
	"github.com/agrilink/sessiongate/internal/data"
	"github.com/agrilink/sessiongate/internal/observability/statsd"
	"github.com/agrilink/sessiongate/internal/observability/telemetry"
	"github.com/agrilink/sessiongate/internal/ports"
	"github.com/agrilink/sessiongate/internal/service"
)

// ServiceDeps groups the infrastructure handles services are built from.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient *goredis.Client // nil when Redis is not configured
	Logger      *slog.Logger
}

// Container holds the wired service graph.
type Container struct {
	Gateway     *provider.Gateway
	Mapper      *provider.PayloadMapper
	Profiles    ports.ProfileRepository
	Provisioner *service.ProvisionerService
	Loader      *service.ProfileLoader
	Controller  *service.SessionController
	Poller      *service.ProfilePoller
	Telemetry   telemetry.Recorder
	Statsd      *statsd.Client
}

// BuildServices wires adapters and services per configuration.
func BuildServices(deps *ServiceDeps) (*Container, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	statsdClient, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.MetricsEnabled,
		Address: cfg.Observability.StatsdAddress,
		Prefix:  cfg.Observability.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build statsd client: %w", err)
	}
	recorder := telemetry.NewRecorder(telemetry.Options{Logger: logger, Sink: statsdClient})

	var verifier *provider.TokenVerifier
	if cfg.Provider.JWKSVerify {
		verifier, err = provider.NewTokenVerifier(provider.VerifierConfig{ProviderURL: cfg.Provider.URL})
		if err != nil {
			return nil, fmt.Errorf("build token verifier: %w", err)
		}
	}

	gateway := provider.NewGateway(provider.Config{
		URL:      cfg.Provider.URL,
		AnonKey:  cfg.Provider.AnonKey,
		Verifier: verifier,
		Logger:   logger,
	})

	mapper, err := provider.NewPayloadMapper(provider.DefaultPayloadMapping())
	if err != nil {
		return nil, fmt.Errorf("build payload mapper: %w", err)
	}

	profiles := data.NewProfileRepo(deps.DB)
	provisioner := service.NewProvisionerService(service.ProvisionerServiceOptions{
		Profiles:  profiles,
		Telemetry: recorder,
	})

	var dedup ports.DedupStore
	if deps.RedisClient != nil {
		dedup = redisadapter.NewDedupStore(deps.RedisClient)
	} else {
		dedup = service.NewMemoryDedupStore()
	}

	loader := service.NewProfileLoader(service.ProfileLoaderOptions{
		Profiles:    profiles,
		Provisioner: provisioner,
		Provider:    gateway,
		Dedup:       dedup,
		Telemetry:   recorder,
		Logger:      logger,
		Config:      cfg.Session,
	})

	poller := service.NewProfilePoller(service.ProfilePollerOptions{
		Loader: loader,
		Logger: logger,
		Config: cfg.Session,
	})

	controller := service.NewSessionController(service.SessionControllerOptions{
		Provider:  gateway,
		Loader:    loader,
		Poller:    poller,
		Telemetry: recorder,
		Logger:    logger,
		Config:    cfg.Session,
	})

	return &Container{
		Gateway:     gateway,
		Mapper:      mapper,
		Profiles:    profiles,
		Provisioner: provisioner,
		Loader:      loader,
		Controller:  controller,
		Poller:      poller,
		Telemetry:   recorder,
		Statsd:      statsdClient,
	}, nil
}
