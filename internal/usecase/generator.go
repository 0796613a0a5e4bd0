package usecase

import (
	"fmt"
	"log/slog"

	"github.com/zinrai/grouppolicy-gen/internal/domain"
)

const (
	DefaultSetTemplate   = "POLICY_GROUP_CONFIG"
	DefaultClearTemplate = "POLICY_GROUP_CLEAR_CONFIG"
)

type GeneratorConfig struct {
	TemplatesPath   string
	DestinationPath string
	SetTemplate     string
	ClearTemplate   string
}

type Generator struct {
	cfg      GeneratorConfig
	renderer domain.TemplateRenderer
	writer   domain.ConfigWriter
	logger   *slog.Logger
}

func NewGenerator(cfg GeneratorConfig, renderer domain.TemplateRenderer, writer domain.ConfigWriter, logger *slog.Logger) *Generator {
	if cfg.SetTemplate == "" {
		cfg.SetTemplate = DefaultSetTemplate
	}
	if cfg.ClearTemplate == "" {
		cfg.ClearTemplate = DefaultClearTemplate
	}
	return &Generator{cfg: cfg, renderer: renderer, writer: writer, logger: logger}
}

func SetConfigName(siteCode string) string { return "set-config-" + siteCode }

func ClearConfigName(siteCode string) string { return "clear-config-" + siteCode }

// Generate allocates addresses for req.Names, renders both templates with the
// same variables and writes them to the destination directory. Both templates
// are rendered before anything is written. A failure writing the clear config
// leaves the set config in place.
func (g *Generator) Generate(req domain.GenerateRequest) (*domain.GenerateResult, error) {
	assignment, err := Allocate(req.Names, req.Subnet, req.LastUsed)
	if err != nil {
		return nil, err
	}
	g.logger.Info("allocated addresses",
		"subnet", req.Subnet.String(),
		"users", assignment.Len(),
		"last_used", lastUsedAttr(req))

	vars := domain.RenderVariables{
		Addresses:      assignment,
		GroupPolicy:    req.GroupPolicy,
		AuthServerName: req.AuthServerName,
		GatewayBaseURL: req.GatewayBaseURL,
	}

	setConfig, err := g.renderer.Render(g.cfg.TemplatesPath, g.cfg.SetTemplate, vars)
	if err != nil {
		return nil, err
	}
	clearConfig, err := g.renderer.Render(g.cfg.TemplatesPath, g.cfg.ClearTemplate, vars)
	if err != nil {
		return nil, err
	}

	result := &domain.GenerateResult{Assignment: assignment}

	result.SetPath, err = g.writer.WriteConfig(g.cfg.DestinationPath, SetConfigName(req.SiteCode), setConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to write set config: %w", err)
	}
	g.logger.Debug("wrote config", "path", result.SetPath)

	result.ClearPath, err = g.writer.WriteConfig(g.cfg.DestinationPath, ClearConfigName(req.SiteCode), clearConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to write clear config: %w", err)
	}
	g.logger.Debug("wrote config", "path", result.ClearPath)

	return result, nil
}

func lastUsedAttr(req domain.GenerateRequest) string {
	if !req.LastUsed.IsValid() {
		return "none"
	}
	return req.LastUsed.String()
}
