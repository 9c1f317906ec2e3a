// Package modelserver calls sequence models hosted behind a
// TensorFlow-Serving style REST endpoint.
package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/adapter/resilience"
)

// Client is a connection to one model server.
type Client struct {
	baseURL string
	http    *resilience.Client
	logger  *slog.Logger
}

// NewClient creates a model server client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    resilience.NewClient("modelserver", &http.Client{Timeout: timeout}, resilience.DefaultBackoff, logger),
		logger:  logger,
	}
}

// Model returns a handle for the named model. The handle is long-lived and
// safe for concurrent use.
func (c *Client) Model(name string) *Model {
	return &Model{client: c, name: name}
}

// Model is one named model on the server.
type Model struct {
	client *Client
	name   string
}

type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions []json.RawMessage `json:"predictions"`
	Error       string            `json:"error"`
}

// Predict sends one window and returns the first prediction flattened
// row-major.
func (m *Model) Predict(ctx context.Context, window [][]float64) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Instances: [][][]float64{window}})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1/models/%s:predict", m.client.baseURL, url.PathEscape(m.name))

	start := time.Now()
	resp, err := m.client.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", m.name, err)
	}
	defer resp.Body.Close()

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", m.name, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("predict %s: %s", m.name, out.Error)
	}
	if len(out.Predictions) == 0 {
		return nil, fmt.Errorf("predict %s: empty predictions", m.name)
	}

	var nested any
	if err := json.Unmarshal(out.Predictions[0], &nested); err != nil {
		return nil, fmt.Errorf("decode %s prediction: %w", m.name, err)
	}
	values, err := flatten(nested, nil)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", m.name, err)
	}

	m.client.logger.Debug("model prediction", "model", m.name, "values", len(values), "duration", time.Since(start))
	return values, nil
}

// flatten walks nested JSON arrays of numbers in order.
func flatten(v any, out []float64) ([]float64, error) {
	switch t := v.(type) {
	case float64:
		return append(out, t), nil
	case []any:
		for _, item := range t {
			var err error
			if out, err = flatten(item, out); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, errors.New("prediction contains a non-numeric value")
	}
}
