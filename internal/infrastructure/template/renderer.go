// Package template renders group policy templates with pongo2, which reads
// the same Jinja-style syntax the configs were originally written in.
//
// Templates see these variables:
//
//	addresses         map of user name to address, iterated in username file order
//	assignments       list of {name, address} in username file order
//	address_order     list of user names in username file order
//	group_policy      group policy name
//	auth_server_name  authentication server name
//	gateway_base_url  base URL of the group-url
//
// A per-user block is usually written as
//
//	{% for user, address in addresses %}username {{ user }} ... {{ address }}{% endfor %}
package template

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/flosch/pongo2/v6"

	"github.com/zinrai/grouppolicy-gen/internal/domain"
)

func init() {
	// Outputs are device configs, not HTML.
	pongo2.SetAutoescape(false)
	if err := pongo2.ReplaceTag("for", forParser); err != nil {
		panic(err)
	}
}

// Renderer loads and compiles the template on every call, so edits on disk
// are always picked up.
type Renderer struct{}

var _ domain.TemplateRenderer = (*Renderer)(nil)

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render renders templateName from templateDir. A missing template is
// reported as *domain.TemplateNotFoundError with the resolved path; any
// other failure as *domain.TemplateRenderError.
func (r *Renderer) Render(templateDir, templateName string, vars domain.RenderVariables) (string, error) {
	path := filepath.Join(templateDir, templateName)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", &domain.TemplateNotFoundError{Path: path}
	}
	if err != nil {
		return "", &domain.TemplateRenderError{Name: templateName, Err: err}
	}

	loader, err := pongo2.NewLocalFileSystemLoader(templateDir)
	if err != nil {
		return "", &domain.TemplateRenderError{Name: templateName, Err: fmt.Errorf("failed to create loader: %w", err)}
	}
	set := pongo2.NewSet("grouppolicy", loader)

	tpl, err := set.FromFile(templateName)
	if err != nil {
		return "", &domain.TemplateRenderError{Name: templateName, Err: err}
	}

	out, err := tpl.Execute(contextFor(vars))
	if err != nil {
		return "", &domain.TemplateRenderError{Name: templateName, Err: err}
	}
	return out, nil
}

func contextFor(vars domain.RenderVariables) pongo2.Context {
	entries := vars.Addresses.Entries()
	addresses := make(addressMap, len(entries))
	order := make([]string, 0, len(entries))
	assignments := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		addresses[e.Name] = e.Address.String()
		order = append(order, e.Name)
		assignments = append(assignments, map[string]string{
			"name":    e.Name,
			"address": e.Address.String(),
		})
	}

	return pongo2.Context{
		"addresses":        addresses,
		addressOrderKey:    order,
		"assignments":      assignments,
		"group_policy":     vars.GroupPolicy,
		"auth_server_name": vars.AuthServerName,
		"gateway_base_url": vars.GatewayBaseURL,
	}
}
