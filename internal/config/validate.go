package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config for required fields and valid values.
func Validate(c *Config) error {
	var errors []string

	if err := c.Provider.Validate(); err != nil {
		errors = append(errors, ValidationError{Field: "provider", Message: err.Error()}.Error())
	}

	if c.Provider.IsCustom() && len(c.CustomLinks) == 0 {
		errors = append(errors, ValidationError{
			Field:   "custom_links",
			Message: "at least one link is required for the custom provider",
		}.Error())
	}

	for i, link := range c.CustomLinks {
		if err := validateLink(link); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("custom_links[%d]", i),
				Message: err.Error(),
			}.Error())
		}
	}

	for field, base := range map[string]string{
		"api_base_url":      c.APIBaseURL,
		"codeload_base_url": c.CodeloadBaseURL,
	} {
		if err := validateLink(base); err != nil {
			errors = append(errors, ValidationError{Field: field, Message: err.Error()}.Error())
		}
	}

	if c.Proxy.Enabled() {
		if _, _, err := net.SplitHostPort(c.Proxy.SOCKS5); err != nil {
			errors = append(errors, ValidationError{
				Field:   "proxy.socks5",
				Message: fmt.Sprintf("invalid address '%s' (must be host:port)", c.Proxy.SOCKS5),
			}.Error())
		}
	} else if c.Proxy.Username != "" || c.Proxy.Password != "" {
		errors = append(errors, ValidationError{
			Field:   "proxy",
			Message: "credentials set without a socks5 address",
		}.Error())
	}

	if err := c.Log.Level.Validate(); err != nil {
		errors = append(errors, ValidationError{Field: "log.level", Message: err.Error()}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// validateLink accepts absolute http and https URLs.
func validateLink(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid url '%s': %w", link, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url '%s' (must be http or https)", link)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url '%s' (missing host)", link)
	}
	return nil
}
