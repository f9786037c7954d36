// Package setup builds the provider fallback chain from configuration. It
// exists so the ai package does not import its own provider subpackages.
//
// Typical usage:
//
//	svc, err := setup.NewService(cfg, logger, ai.WithRecorder(collector))
//	...
//	// on config reload
//	err = setup.Reload(svc, newCfg, logger)
package setup

import (
	"fmt"
	"log/slog"

	"github.com/GoCodeAlone/workflowgen/ai"
	copilotai "github.com/GoCodeAlone/workflowgen/ai/copilot"
	aillm "github.com/GoCodeAlone/workflowgen/ai/llm"
	"github.com/GoCodeAlone/workflowgen/ai/openai"
	"github.com/GoCodeAlone/workflowgen/config"
)

// Providers builds a registration for every provider in cfg.Providers.Order
// that has credentials. Providers without credentials are skipped and logged;
// the service still answers through the heuristic fallback.
func Providers(cfg *config.Config, logger *slog.Logger) ([]ai.Registration, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc := cfg.Providers

	regs := make([]ai.Registration, 0, len(pc.Order))
	for _, name := range pc.Order {
		var (
			p    ai.Provider
			opts ai.ProviderOptions
			err  error
		)
		switch name {
		case ai.ProviderAnthropic:
			opts = pc.Anthropic.Options()
			p, err = aillm.NewClient(aillm.ClientConfig{
				APIKey:       pc.Anthropic.APIKey,
				Model:        pc.Anthropic.Model,
				BaseURL:      pc.Anthropic.BaseURL,
				DisableTools: pc.Anthropic.DisableTools,
			})
		case ai.ProviderOpenAI:
			opts = pc.OpenAI.Options()
			p, err = openai.New(openai.Config{
				APIKey:   pc.OpenAI.APIKey,
				Model:    pc.OpenAI.Model,
				BaseURL:  pc.OpenAI.BaseURL,
				JSONMode: pc.OpenAI.JSONMode,
			})
		case ai.ProviderCopilot:
			if pc.Copilot.CLIPath == "" {
				logger.Info("provider not configured", "provider", name, "reason", "no CLI path")
				continue
			}
			opts = pc.Copilot.Options()
			p, err = copilotai.NewClient(copilotai.ClientConfig{
				CLIPath: pc.Copilot.CLIPath,
				Model:   pc.Copilot.Model,
			})
		default:
			return nil, fmt.Errorf("setup: unknown provider %q", name)
		}
		if err != nil {
			logger.Info("provider not configured", "provider", name, "reason", err.Error())
			continue
		}
		regs = append(regs, ai.Registration{Provider: p, Options: opts})
	}
	return regs, nil
}

// NewService creates an ai.Service whose fallback chain is built from cfg.
func NewService(cfg *config.Config, logger *slog.Logger, opts ...ai.Option) (*ai.Service, error) {
	regs, err := Providers(cfg, logger)
	if err != nil {
		return nil, err
	}
	svc := ai.NewService(append([]ai.Option{ai.WithLogger(logger)}, opts...)...)
	svc.Replace(regs...)
	if logger != nil {
		logger.Info("generation service ready", "providers", svc.Providers())
	}
	return svc, nil
}

// Reload rebuilds the fallback chain of svc from cfg.
func Reload(svc *ai.Service, cfg *config.Config, logger *slog.Logger) error {
	regs, err := Providers(cfg, logger)
	if err != nil {
		return err
	}
	svc.Replace(regs...)
	if logger != nil {
		logger.Info("provider chain reloaded", "providers", svc.Providers())
	}
	return nil
}
