package provider

import (
	"net/http"

	"vehicle-data-service/internal/domain/repository"
	"vehicle-data-service/internal/infrastructure/config"
	"vehicle-data-service/pkg/logger"
	"vehicle-data-service/pkg/resilience"
)

// Set bundles the four provider services
type Set struct {
	History   repository.HistoryProvider
	Specs     repository.SpecsProvider
	MOT       repository.MOTProvider
	Valuation repository.ValuationProvider

	Name     string
	TestMode bool
	clients  []*Client
}

// NewSet builds the providers from config. motHTTP is the OAuth2 client for
// the government MOT API; when nil the main provider's MOT endpoint is used.
func NewSet(cfg *config.Config, motHTTP *http.Client, log logger.Logger) *Set {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.ProviderMaxAttempts

	main := NewClient(ClientConfig{
		Name:          cfg.ProviderName,
		BaseURL:       cfg.ProviderBaseURL,
		APIKey:        cfg.ProviderAPIKey,
		Timeout:       cfg.ProviderTimeout,
		RatePerSecond: cfg.ProviderRatePerSec,
		RateBurst:     cfg.ProviderRateBurst,
		Retry:         retry,
		Breaker:       resilience.DefaultCircuitBreakerConfig(),
		TestMode:      cfg.ProviderTestMode,
	}, log)

	set := &Set{
		History:   NewHistoryClient(main),
		Specs:     NewSpecsClient(main),
		MOT:       NewMOTClient(main),
		Valuation: NewValuationClient(main),
		Name:      cfg.ProviderName,
		TestMode:  cfg.ProviderTestMode,
		clients:   []*Client{main},
	}

	if motHTTP != nil && cfg.MOTBaseURL != "" {
		motHTTP.Timeout = cfg.ProviderTimeout
		mot := NewClient(ClientConfig{
			Name:          "dvsa",
			BaseURL:       cfg.MOTBaseURL,
			APIKey:        cfg.MOTAPIKey,
			APIKeyHeader:  "X-API-Key",
			Timeout:       cfg.ProviderTimeout,
			RatePerSecond: cfg.ProviderRatePerSec,
			RateBurst:     cfg.ProviderRateBurst,
			Retry:         retry,
			Breaker:       resilience.DefaultCircuitBreakerConfig(),
			HTTPClient:    motHTTP,
		}, log)
		set.MOT = NewDVSAMOTClient(mot)
		set.clients = append(set.clients, mot)
	}
	return set
}

// BreakerStates reports the circuit state per provider and service
func (s *Set) BreakerStates(services []string) map[string]string {
	states := make(map[string]string)
	for _, c := range s.clients {
		for _, svc := range services {
			states[c.Name()+"."+svc] = c.BreakerState(svc).String()
		}
	}
	return states
}
