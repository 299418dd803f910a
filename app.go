package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	assistantx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/agents/assistant"
	orchestratorx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/customer"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/diagnostics"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/incentive"
	llmx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/llm"
	nodex "github.com/tanpawarit/Chative-Telecom-Assistant/agent/nodes"
	promptx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/prompt"
	statex "github.com/tanpawarit/Chative-Telecom-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/tool"
	configx "github.com/tanpawarit/Chative-Telecom-Assistant/pkg/config"
	"github.com/tanpawarit/Chative-Telecom-Assistant/pkg/datasource"
	openrouterx "github.com/tanpawarit/Chative-Telecom-Assistant/pkg/openrouter"
)

type AppConfig struct {
	HTTPAddr           string        `envconfig:"HTTP_ADDR" default:":8000"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"1h"`
	SweepInterval      time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	MaxToolRounds      int           `envconfig:"MAX_TOOL_ROUNDS" default:"4"`
	IncentiveRule      string        `envconfig:"INCENTIVE_RULE"`
	DiagnosticsCatalog string        `envconfig:"DIAGNOSTICS_CATALOG"`
}

type app struct {
	cfg          AppConfig
	metrics      *prometheus.Registry
	sessions     *statex.Manager
	orchestrator *orchestratorx.Orchestrator
	schemas      []tool.Schema
}

// buildApp wires configuration into the session manager and, when withModel
// is set and an API key is configured, the LLM assistant.
func buildApp(ctx context.Context, withModel bool) (*app, error) {
	appCfg, err := configx.New[AppConfig]("")
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	dsCfg, err := configx.New[datasource.Config]("DATA_SOURCE")
	if err != nil {
		return nil, fmt.Errorf("load data source config: %w", err)
	}
	source, err := datasource.New(*dsCfg)
	if err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(appCfg.DiagnosticsCatalog)
	if err != nil {
		return nil, err
	}

	var evalOpts []incentive.Option
	if rule := strings.TrimSpace(appCfg.IncentiveRule); rule != "" {
		evalOpts = append(evalOpts, incentive.WithRule(rule))
	}
	evaluator, err := incentive.NewEvaluator(evalOpts...)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	toolMetrics, err := tool.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register tool metrics: %w", err)
	}

	sessions, err := statex.NewManager(source,
		statex.WithTTL(appCfg.SessionTTL),
		statex.WithMetrics(toolMetrics),
		statex.WithDiagnostics(catalog),
		statex.WithIncentives(evaluator),
	)
	if err != nil {
		return nil, err
	}

	// The schema listing needs a registry but never calls a handler.
	listing, err := tool.NewTelecomRegistry(tool.Backends{
		Customers:   customer.NewStore(source),
		Diagnostics: catalog,
		Incentives:  evaluator,
	})
	if err != nil {
		return nil, err
	}

	var runner nodex.AssistantRunner
	if withModel {
		a, err := buildAssistant(ctx, listing, appCfg.MaxToolRounds)
		if err != nil {
			return nil, err
		}
		if a != nil {
			runner = a
		}
	}

	orch, err := orchestratorx.New(sessions, runner)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:          *appCfg,
		metrics:      reg,
		sessions:     sessions,
		orchestrator: orch,
		schemas:      listing.Schemas(),
	}, nil
}

func buildAssistant(ctx context.Context, registry *tool.Registry, maxRounds int) (*assistantx.Assistant, error) {
	llmCfg, err := configx.New[llmx.Config]("OPENROUTER")
	if err != nil {
		return nil, fmt.Errorf("load llm config: %w", err)
	}
	if !llmCfg.Enabled() {
		log.Warn().Msg("OPENROUTER_API_KEY is not set; chat is disabled, direct tool invocation still works")
		return nil, nil
	}
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}

	orCfg := llmCfg.OpenRouter()
	if llmCfg.CheckModel {
		if err := openrouterx.CheckModel(ctx, openrouterx.NewClient(orCfg), orCfg.Model); err != nil {
			return nil, err
		}
	}

	chatModel, err := orCfg.New(ctx)
	if err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	a, err := assistantx.New(ctx, chatModel, registry.ToolInfos(), prompts.Assistant,
		assistantx.WithMaxToolRounds(maxRounds),
	)
	if err != nil {
		return nil, err
	}
	log.Info().Str("model", orCfg.Model).Msg("assistant ready")
	return a, nil
}

func loadCatalog(path string) (*diagnostics.Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return diagnostics.Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read diagnostics catalog: %w", err)
	}
	return diagnostics.Parse(raw)
}
