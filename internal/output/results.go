package output

import (
	"fmt"
	"strings"
)

// AssetRow is one asset in a listing.
type AssetRow struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Builtin bool   `json:"builtin" yaml:"builtin"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
}

// AssetList is the result of `geoasset list`.
type AssetList struct {
	Provider string     `json:"provider" yaml:"provider"`
	Assets   []AssetRow `json:"assets" yaml:"assets"`
}

func (l AssetList) Header() []string {
	return []string{"name", "version", "source"}
}

func (l AssetList) Rows() [][]string {
	rows := make([][]string, 0, len(l.Assets))
	for _, a := range l.Assets {
		source := a.URL
		if a.Builtin {
			source = "provider: " + l.Provider
		}
		rows = append(rows, []string{a.Name, a.Version, source})
	}
	return rows
}

// UpdateResult is the outcome of `geoasset update` and `geoasset import`.
type UpdateResult struct {
	Status   string            `json:"status" yaml:"status"` // updated, up-to-date, imported
	Provider string            `json:"provider,omitempty" yaml:"provider,omitempty"`
	Versions map[string]string `json:"versions" yaml:"versions"`
}

// Update statuses.
const (
	StatusUpdated  = "updated"
	StatusUpToDate = "up-to-date"
	StatusImported = "imported"
)

func (r UpdateResult) String() string {
	var sb strings.Builder
	switch r.Status {
	case StatusUpToDate:
		sb.WriteString("Assets are up to date")
	case StatusImported:
		sb.WriteString("Import complete")
	default:
		sb.WriteString("Update complete")
	}
	for _, name := range []string{"geoip", "geosite"} {
		if v, ok := r.Versions[name]; ok {
			fmt.Fprintf(&sb, "\n  %-8s %s", name, v)
		}
	}
	return sb.String()
}

// AssetResult reports a single-asset operation.
type AssetResult struct {
	Action  string `json:"action" yaml:"action"` // added, updated, removed
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

func (r AssetResult) String() string {
	if r.Version == "" {
		return fmt.Sprintf("%s %s", titleCase(r.Action), r.Name)
	}
	return fmt.Sprintf("%s %s (version %s)", titleCase(r.Action), r.Name, r.Version)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
