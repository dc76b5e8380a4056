// Package pincode resolves Indian postal codes to city names via the public
// postalpincode.in API.
package pincode

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"zingo/backend/internal/config"
)

// Client looks up cities by postal code. Lookups never fail hard: any
// transport or payload problem logs a warning and yields "".
type Client struct {
	httpClient *http.Client
	cfg        config.PincodeLookupConfig
	userAgent  string
	logger     *slog.Logger
}

func NewClient(cfg config.PincodeLookupConfig, userAgent string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cfg:        cfg,
		userAgent:  userAgent,
		logger:     logger,
	}
}

type lookupResult struct {
	Status     string `json:"Status"`
	PostOffice []struct {
		Name     string `json:"Name"`
		District string `json:"District"`
		Region   string `json:"Region"`
	} `json:"PostOffice"`
}

// LookupCity returns the city name for postalCode, or "" when the code is
// unknown or the lookup is disabled.
func (c *Client) LookupCity(ctx context.Context, postalCode string) string {
	postalCode = strings.TrimSpace(postalCode)
	if c == nil || postalCode == "" || !c.cfg.Enabled {
		return ""
	}
	base := c.cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	url := base + postalCode

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("pincode_lookup_failed", "url", url, "error", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn("pincode_lookup_status", "url", url, "status", resp.StatusCode)
		return ""
	}

	var results []lookupResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		c.logger.Warn("pincode_lookup_decode_failed", "url", url, "error", err)
		return ""
	}
	if len(results) == 0 || !strings.EqualFold(results[0].Status, "Success") {
		return ""
	}
	offices := results[0].PostOffice
	if len(offices) == 0 {
		return ""
	}
	office := offices[0]
	for _, candidate := range []string{office.District, office.Region, office.Name} {
		if name := strings.TrimSpace(candidate); name != "" {
			return capitalize(name)
		}
	}
	return ""
}

func capitalize(value string) string {
	lower := strings.ToLower(value)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
