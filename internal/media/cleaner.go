// Package media calls out to the external blob store to remove objects
// referenced by messages deleted for everyone. The call is advisory; the
// tombstone has already been committed when it runs.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fathima-sithara/messaging-service/internal/domain"
)

type Cleaner struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	log     *zap.SugaredLogger
}

// NewCleaner wraps the cleanup endpoint in a circuit breaker so a dead blob
// store does not pile up goroutines waiting on timeouts.
func NewCleaner(baseURL string, timeout time.Duration, log *zap.SugaredLogger) *Cleaner {
	st := gobreaker.Settings{
		Name:        "media-cleanup",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infow("circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Cleaner{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cb:      gobreaker.NewCircuitBreaker(st),
		log:     log,
	}
}

func (c *Cleaner) Cleanup(ctx context.Context, publicID string, mediaType domain.MediaType) error {
	if c.baseURL == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]string{
		"public_id":  publicID,
		"media_type": string(mediaType),
	})
	_, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/destroy", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("media cleanup status %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
