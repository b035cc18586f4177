package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kilianp07/solarcast/auth"
)

// HTTPConfig configures an HTTP weather source.
type HTTPConfig struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	OAuth   auth.Conf     `json:"oauth"`
}

// HTTPSource queries a forecast API with GET <url>?time=<RFC3339> and
// decodes an Estimate from the JSON response.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
	creds  *auth.ClientCred
}

// NewHTTPSource returns an HTTPSource. OAuth2 client credentials are used
// when a token URL is configured.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid weather url %q", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s := &HTTPSource{base: u, client: &http.Client{Timeout: cfg.Timeout}}
	if cfg.OAuth.Enabled() {
		s.creds = auth.NewClientCred(cfg.OAuth)
	}
	return s, nil
}

// Estimate implements Source.
func (s *HTTPSource) Estimate(ctx context.Context, t time.Time) (Estimate, error) {
	u := *s.base
	q := u.Query()
	q.Set("time", t.Format(time.RFC3339))
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Estimate{}, err
	}
	req.Header.Set("Accept", "application/json")
	if s.creds != nil {
		if err := s.creds.SetAuthHeader(req); err != nil {
			return Estimate{}, err
		}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Estimate{}, fmt.Errorf("weather request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusUnauthorized && s.creds != nil {
		s.creds.Invalidate()
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Estimate{}, fmt.Errorf("weather api status %d: %s", resp.StatusCode, body)
	}
	var est Estimate
	if err := json.NewDecoder(resp.Body).Decode(&est); err != nil {
		return Estimate{}, fmt.Errorf("decode weather estimate: %w", err)
	}
	if err := est.Validate(); err != nil {
		return Estimate{}, err
	}
	return est, nil
}
