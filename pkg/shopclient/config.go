package shopclient

import "time"

// Config represents the configuration for the storefront API client
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:5000/api
	BaseURL string

	// Token is the bearer access token of the shopper
	Token string

	// Timeout bounds every request. Zero means 30 seconds.
	Timeout time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConfig
	}
	return nil
}
