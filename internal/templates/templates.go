// Package templates holds the starter configurations written by geoasset init,
// one per provider.
package templates

import (
	"embed"
	"fmt"
	"strings"

	"github.com/adamancini/geoasset/internal/types"
)

//go:embed *.yaml
var files embed.FS

// Template is the starter configuration of one provider. Environment
// references such as ${GITHUB_TOKEN:-} are kept as written and expanded
// when the config is loaded.
type Template struct {
	Provider types.Provider
	Content  []byte
}

// Description says where the provider's assets come from.
func (t Template) Description() string {
	return Describe(t.Provider)
}

// For returns the template of a provider name, case-insensitively.
func For(name string) (Template, error) {
	p, err := types.ParseProvider(name)
	if err != nil {
		return Template{}, err
	}
	content, err := files.ReadFile(p.String() + ".yaml")
	if err != nil {
		return Template{}, fmt.Errorf("no template for provider %s: %w", p, err)
	}
	return Template{Provider: p, Content: content}, nil
}

// All returns the templates of every provider in provider order.
func All() []Template {
	var out []Template
	for _, p := range types.AllProviders() {
		if t, err := For(p.String()); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// Describe summarises a provider for menus and shell completion.
func Describe(p types.Provider) string {
	if p.IsCustom() {
		return "archives from direct links"
	}
	repos := p.Repositories()
	if len(repos) == 1 {
		return "releases of " + repos[0] + " (both categories)"
	}
	return "releases of " + strings.Join(repos, ", ")
}
