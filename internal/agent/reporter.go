package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

const HostStatsEvent = "host_stats"

// Reporter defines where host samples are sent.
type Reporter interface {
	Report(ctx context.Context, stats models.HostStats) error
}

// HTTPReporter posts samples to a FoodBridge server as system events.
type HTTPReporter struct {
	serverURL string
	token     string
	client    *http.Client
}

func NewHTTPReporter(serverURL, token string) *HTTPReporter {
	return &HTTPReporter{
		serverURL: serverURL,
		token:     token,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *HTTPReporter) Report(ctx context.Context, stats models.HostStats) error {
	details, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]any{
		"event_type":  HostStatsEvent,
		"description": fmt.Sprintf("host %s cpu %.1f%% mem %.1f%%", stats.Hostname, stats.CPUPercent, stats.MemoryPercent),
		"details":     string(details),
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/realtime/system-events", r.serverURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("server returned status: %d", resp.StatusCode)
	}

	return nil
}
