// Package firebase reads sensor observations from, and writes forecasts to,
// a Firebase Realtime Database over its REST API.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/weather-forecast-service/internal/adapter/resilience"
	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
)

// Database nodes.
const (
	NodeTemp     = "data_temp"
	NodeHumidity = "data_humidity"
	NodeOther    = "data_other"
	NodeCurrent  = "weather_data"
	Node24h      = "weather_24h"
	Node7d       = "weather_7d"
)

// Client talks to one Realtime Database instance.
type Client struct {
	baseURL string
	auth    string
	http    *resilience.Client
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates a Firebase REST client. auth is passed as the ?auth=
// query parameter when set.
func NewClient(baseURL, auth string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		http:    resilience.NewClient("firebase", &http.Client{Timeout: timeout}, resilience.DefaultBackoff, logger),
		logger:  logger,
		metrics: metrics,
	}
}

// Name identifies the client as a publish sink.
func (c *Client) Name() string { return "firebase" }

func (c *Client) nodeURL(node string) string {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, node)
	if c.auth != "" {
		u += "?" + url.Values{"auth": {c.auth}}.Encode()
	}
	return u
}

// FetchObservations reads every sub-source node and returns their raw rows,
// ordered so that the current-conditions node is applied last. An empty
// database yields an empty slice.
func (c *Client) FetchObservations(ctx context.Context) ([]domain.RawRow, error) {
	nodes := []string{NodeTemp, NodeHumidity, NodeOther, NodeCurrent}
	bodies := make([][]byte, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		g.Go(func() error {
			body, err := c.get(gctx, node)
			if err != nil {
				c.metrics.FetchRequests.WithLabelValues(node, "error").Inc()
				return fmt.Errorf("fetch %s: %w", node, err)
			}
			c.metrics.FetchRequests.WithLabelValues(node, "success").Inc()
			bodies[i] = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []domain.RawRow
	var skipped int
	for i, node := range nodes {
		parsed, bad, err := parseNode(node, bodies[i])
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", node, err)
		}
		rows = append(rows, parsed...)
		skipped += bad
	}

	c.logger.Debug("observations fetched", "rows", len(rows), "skipped", skipped)
	return rows, nil
}

func (c *Client) get(ctx context.Context, node string) ([]byte, error) {
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.nodeURL(node), nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Push replaces node with payload: the node is deleted and then patched.
func (c *Client) Push(ctx context.Context, node string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", node, err)
	}

	if err := c.send(ctx, http.MethodDelete, node, nil); err != nil {
		return fmt.Errorf("delete %s: %w", node, err)
	}
	if err := c.send(ctx, http.MethodPatch, node, data); err != nil {
		return fmt.Errorf("patch %s: %w", node, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, node string, body []byte) error {
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.nodeURL(node), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Publish writes the hourly and daily forecasts of run to their nodes.
func (c *Client) Publish(ctx context.Context, run domain.ForecastRun) error {
	generated := run.GeneratedAt.Format(domain.TimestampLayout)
	if err := c.Push(ctx, Node24h, pushPayload{RunID: run.ID, GeneratedAt: generated, Forecast: run.HourlyForecast()}); err != nil {
		return err
	}
	return c.Push(ctx, Node7d, pushPayload{RunID: run.ID, GeneratedAt: generated, Forecast: run.DailyForecast()})
}

type pushPayload struct {
	RunID       string `json:"run_id"`
	GeneratedAt string `json:"generated_time"`
	Forecast    any    `json:"forecast"`
}
