package alertsmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/core/ports"
)

const (
	serviceName = "amalgamd"

	maxRetries = 5
)

type Alert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    time.Time         `json:"startsAt"`
}

type service struct {
	baseUrl    string
	httpClient *http.Client
	baseDelay  time.Duration
}

// NewService returns an Alerts publisher posting to the Prometheus
// Alertmanager v2 api, ie. http://host:9093/api/v2/alerts.
func NewService(alertManagerURL string) ports.Alerts {
	return &service{
		baseUrl: alertManagerURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseDelay: 100 * time.Millisecond,
	}
}

func (s *service) Publish(ctx context.Context, topic ports.Topic, message any) error {
	labels := map[string]string{
		"alertname": string(topic),
		"service":   serviceName,
		"severity":  "info",
	}

	desc := ""
	annotations := map[string]string{}
	switch topic {
	case ports.ReserveShortfall:
		m, ok := message.(ports.ReserveShortfallAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		annotations["firing_title"] = "🚨 Reserve Shortfall"
		desc = formatReserveShortfallAlert(m)
		labels["severity"] = "critical"
		labels["contract"] = m.Contract
		labels["asset"] = m.Asset
	default:
		annotations["firing_title"] = fmt.Sprintf("🔔 %s", topic)
		desc = formatGenericAlert(map[string]any{"event": message})
	}

	annotations["description"] = desc
	alert := Alert{
		Labels:      labels,
		Annotations: annotations,
		StartsAt:    time.Now(),
	}

	if err := s.sendAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to send alert to AlertManager: %w", err)
	}

	return nil
}

func (s *service) sendAlert(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal([]Alert{alert})
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	for attempt := range maxRetries {
		req, err := http.NewRequestWithContext(ctx, "POST", s.baseUrl, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries-1 {
				if err := s.backoff(ctx, attempt); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("failed to send alert after %d attempts: %w", maxRetries, err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		// Retry on 5xx, but not on 4xx.
		if resp.StatusCode >= 500 && attempt < maxRetries-1 {
			if err := s.backoff(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		return fmt.Errorf(
			"failed to send alert to AlertManager with status %d after %d attempts",
			resp.StatusCode, attempt+1,
		)
	}

	return fmt.Errorf("failed to send alert after %d attempts", maxRetries)
}

// backoff waits baseDelay * 2^attempt.
func (s *service) backoff(ctx context.Context, attempt int) error {
	delay := s.baseDelay * time.Duration(1<<uint(attempt))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func formatReserveShortfallAlert(data ports.ReserveShortfallAlert) string {
	lines := []string{
		fmt.Sprintf("*Contract:* `%s`", data.Contract),
		fmt.Sprintf("*Asset:* `%s`", data.Asset),
		"\n*Reserve:*",
		fmt.Sprintf("• Balance: %s", data.Balance),
		fmt.Sprintf("• Accrued taxes: %s", data.Taxes),
		fmt.Sprintf("• Basket supply: %s", data.Supply),
	}
	return strings.Join(lines, "\n")
}

func formatGenericAlert(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("• %s: %v", key, data[key]))
	}
	return strings.Join(lines, "\n")
}
