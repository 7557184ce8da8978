// Package types provides type-safe constants for the geoasset configuration system.
//
// This package centralizes the enumerated types used throughout the codebase,
// replacing magic strings with typed constants that provide compile-time safety
// and validation methods.
package types

import (
	"fmt"
	"strings"
)

// Provider selects where rule-set assets are fetched from.
type Provider string

const (
	// ProviderOfficial fetches the SagerNet sing-geoip and sing-geosite releases.
	ProviderOfficial Provider = "official"
	// ProviderLoyalsoldier fetches the Loyalsoldier-flavoured rule sets.
	ProviderLoyalsoldier Provider = "loyalsoldier"
	// ProviderChocolate4U fetches the single Iran rule-set repository.
	ProviderChocolate4U Provider = "chocolate4u"
	// ProviderCustom downloads user-supplied direct links.
	ProviderCustom Provider = "custom"
)

// AllProviders returns all valid providers.
func AllProviders() []Provider {
	return []Provider{ProviderOfficial, ProviderLoyalsoldier, ProviderChocolate4U, ProviderCustom}
}

// Validate checks if the Provider is a valid value.
func (p Provider) Validate() error {
	switch p {
	case ProviderOfficial, ProviderLoyalsoldier, ProviderChocolate4U, ProviderCustom:
		return nil
	case "":
		return fmt.Errorf("provider is required")
	default:
		return fmt.Errorf("invalid provider '%s' (must be official, loyalsoldier, chocolate4u, or custom)", p)
	}
}

// String returns the string representation of the Provider.
func (p Provider) String() string {
	return string(p)
}

// IsCustom returns true if the provider downloads direct links.
func (p Provider) IsCustom() bool {
	return p == ProviderCustom
}

// HasUnstableBranch reports whether the provider publishes a rule-set-unstable branch.
func (p Provider) HasUnstableBranch() bool {
	return p == ProviderOfficial || p == ProviderLoyalsoldier
}

// Repositories returns the release repositories backing a registry provider,
// in category order. Custom returns nil.
func (p Provider) Repositories() []string {
	switch p {
	case ProviderOfficial:
		return []string{"SagerNet/sing-geoip", "SagerNet/sing-geosite"}
	case ProviderLoyalsoldier:
		return []string{"xchacha20-poly1305/sing-geoip", "xchacha20-poly1305/sing-geosite"}
	case ProviderChocolate4U:
		return []string{"Chocolate4U/Iran-sing-box-rules"}
	default:
		return nil
	}
}

// ParseProvider parses a string into a Provider.
// Returns an error if the string is not a valid provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(s))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Category names a built-in asset category.
type Category string

const (
	// CategoryGeoIP is the IP geolocation database.
	CategoryGeoIP Category = "geoip"
	// CategoryGeoSite is the site geolocation database.
	CategoryGeoSite Category = "geosite"
)

// BuiltinCategories returns the tracked categories in the order registry
// repositories map onto them.
func BuiltinCategories() []Category {
	return []Category{CategoryGeoIP, CategoryGeoSite}
}

// String returns the string representation of the Category.
func (c Category) String() string {
	return string(c)
}

// IsBuiltin reports whether name is one of the built-in categories.
func IsBuiltin(name string) bool {
	for _, c := range BuiltinCategories() {
		if string(c) == name {
			return true
		}
	}
	return false
}

// Version values written when the real release tag is unknowable.
const (
	// VersionCustomLinks is written after a custom-link update.
	VersionCustomLinks = "custom"
	// VersionImported is written after a manual import.
	VersionImported = "Custom"
	// VersionUnknown is reported for categories without a version file.
	VersionUnknown = "Unknown"
)

// LogLevel is a configured logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Validate checks if the LogLevel is a valid value. Empty means the default.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return nil
	default:
		return fmt.Errorf("invalid log level '%s' (must be debug, info, warn, or error)", l)
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	return string(l)
}
