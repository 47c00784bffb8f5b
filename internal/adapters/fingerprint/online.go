package fingerprint

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

const (
	// DefaultOnlineLookupURL is the macvendors.com lookup endpoint; the OUI is appended.
	DefaultOnlineLookupURL = "https://api.macvendors.com/"

	onlineLookupTimeout = 2 * time.Second
	maxVendorBodyBytes  = 512
)

// OnlineRepository queries a remote MAC vendor API. It is the last and
// slowest link of the chain.
type OnlineRepository struct {
	baseURL string
	client  *http.Client
}

// NewOnlineRepository builds a client for baseURL. An empty baseURL uses
// DefaultOnlineLookupURL.
func NewOnlineRepository(baseURL string) *OnlineRepository {
	if baseURL == "" {
		baseURL = DefaultOnlineLookupURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &OnlineRepository{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   onlineLookupTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (r *OnlineRepository) Name() string { return "online" }

func (r *OnlineRepository) LookupVendor(ctx context.Context, mac domain.MACAddress) (string, error) {
	if !mac.IsValid() {
		return "", ErrInvalidMAC
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+mac.OUI(), nil)
	if err != nil {
		return "", &LookupError{Source: r.Name(), Err: err}
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &LookupError{Source: r.Name(), Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", ErrVendorNotFound
	default:
		return "", &LookupError{Source: r.Name(), Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVendorBodyBytes))
	if err != nil {
		return "", &LookupError{Source: r.Name(), Err: err}
	}
	vendor := strings.TrimSpace(string(body))
	if vendor == "" {
		return "", ErrVendorNotFound
	}
	return vendor, nil
}

func (r *OnlineRepository) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
