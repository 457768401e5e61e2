package mlapi

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/clinsight-server/internal/domain"
)

// ResilientClient wraps the ML API client with a circuit breaker and an
// optional prediction cache. When the breaker is open or the service fails,
// callers receive an error and degrade to rule-based predictions only.
type ResilientClient struct {
	client  *Client
	cache   *PredictionCache
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Logger
}

// NewResilientClient creates a resilient ML API client. The cache is
// optional; pass nil to disable caching.
func NewResilientClient(config domain.MLAPIConfig, cache *PredictionCache, logger *logrus.Logger) *ResilientClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "MLAPI",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientClient{
		client:  NewClient(config),
		cache:   cache,
		breaker: breaker,
		log:     logger,
	}
}

// Predict queries the ML service with circuit breaker and caching.
func (r *ResilientClient) Predict(ctx context.Context, features domain.ClinicalDataSet) (map[string]interface{}, error) {
	if r.cache != nil {
		if cached, found, err := r.cache.Get(ctx, features); err == nil && found {
			return cached, nil
		}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.Predict(ctx, features)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, domain.NewEngineError(domain.ErrExternalAPI,
				"ML service is temporarily unavailable")
		}
		return nil, err
	}

	prediction, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected prediction result type %T", result)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, features, prediction, 0); err != nil {
			r.log.WithError(err).Warn("Failed to cache ML prediction")
		}
	}

	return prediction, nil
}

// Health checks the ML service through the circuit breaker.
func (r *ResilientClient) Health(ctx context.Context) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Health(ctx)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return domain.NewEngineError(domain.ErrExternalAPI,
			"ML service is temporarily unavailable")
	}
	return err
}
