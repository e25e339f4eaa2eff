package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meeting-agent/internal/agent"
	"github.com/sells-group/meeting-agent/internal/calendar"
	"github.com/sells-group/meeting-agent/internal/crm"
	"github.com/sells-group/meeting-agent/internal/extract"
	"github.com/sells-group/meeting-agent/internal/model"
	"github.com/sells-group/meeting-agent/internal/resolver"
	anthropicpkg "github.com/sells-group/meeting-agent/pkg/anthropic"
	sfpkg "github.com/sells-group/meeting-agent/pkg/salesforce"
)

// agentEnv bundles a wired agent with its cleanup.
type agentEnv struct {
	Agent *agent.Agent
	close []func()
}

func (e *agentEnv) Close() {
	for i := len(e.close) - 1; i >= 0; i-- {
		e.close[i]()
	}
}

// initAgent wires the CRM store, calendar provider, and extraction service
// from config.
func initAgent(ctx context.Context) (*agentEnv, error) {
	env := &agentEnv{}

	store, cal, err := initStore(ctx, env)
	if err != nil {
		return nil, err
	}

	if cfg.CRM.Breaker.Enabled {
		store = crm.NewBreaker(store, crm.BreakerConfig{
			MaxFailures: uint32(cfg.CRM.Breaker.MaxFailures),
			OpenTimeout: time.Duration(cfg.CRM.Breaker.OpenTimeoutSecs) * time.Second,
		})
	}

	if !cfg.Calendar.Enabled {
		cal = nil
	}

	if cfg.Anthropic.Key == "" {
		env.Close()
		return nil, eris.New("anthropic API key is required (MEETING_AGENT_ANTHROPIC_KEY)")
	}
	extractor := extract.NewAnthropic(anthropicpkg.NewClient(cfg.Anthropic.Key), extract.Options{
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		CallTimeout: time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
		RPS:         cfg.Anthropic.RPS,
	})

	env.Agent = agent.New(store, extractor, cal, cfg.Gate.Policy(), agent.Opts{
		CalendarWindowDays: cfg.Calendar.WindowDays,
		Resolver: resolver.Opts{
			CompanyBonus:    cfg.Resolver.CompanyBonus,
			CompanyMatchMin: cfg.Resolver.CompanyMatchMin,
		},
	})
	return env, nil
}

// initStore builds the CRM read store and, where the backend carries events,
// a calendar provider over the same data.
func initStore(ctx context.Context, env *agentEnv) (crm.Store, calendar.Provider, error) {
	switch cfg.CRM.Driver {
	case "fixture", "":
		f, err := loadFixture(cfg.CRM.FixturePath)
		if err != nil {
			return nil, nil, err
		}
		mem := crm.NewMemory(f)
		zap.L().Info("crm store ready",
			zap.String("driver", "fixture"),
			zap.Int("records", len(f.Records())))
		return mem, calendar.NewFixture(mem.Events()), nil

	case "sqlite":
		st, err := crm.NewSQLite(cfg.CRM.SQLitePath)
		if err != nil {
			return nil, nil, eris.Wrap(err, "init sqlite store")
		}
		env.close = append(env.close, func() { _ = st.Close() })
		zap.L().Info("crm store ready", zap.String("driver", "sqlite"), zap.String("path", cfg.CRM.SQLitePath))
		return st, sqliteCalendar{st}, nil

	case "postgres":
		st, err := crm.NewPostgres(ctx, cfg.CRM.DatabaseURL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "init postgres store")
		}
		env.close = append(env.close, st.Close)
		zap.L().Info("crm store ready", zap.String("driver", "postgres"))
		return st, nil, nil

	case "salesforce":
		client, err := sfpkg.Connect(sfpkg.Config{
			ClientID: cfg.Salesforce.ClientID,
			Username: cfg.Salesforce.Username,
			KeyPath:  cfg.Salesforce.KeyPath,
			LoginURL: cfg.Salesforce.LoginURL,
			RPS:      cfg.Salesforce.RPS,
		})
		if err != nil {
			return nil, nil, eris.Wrap(err, "init salesforce client")
		}
		zap.L().Info("crm store ready", zap.String("driver", "salesforce"))
		return crm.NewSalesforce(client), nil, nil
	}

	return nil, nil, eris.Errorf("unknown crm driver %q", cfg.CRM.Driver)
}

func loadFixture(path string) (*crm.Fixture, error) {
	if path == "" {
		return crm.DefaultFixture(), nil
	}
	f, err := crm.LoadFixture(path)
	if err != nil {
		return nil, eris.Wrapf(err, "load fixture %s", path)
	}
	return f, nil
}

// sqliteCalendar serves calendar context from the sqlite store's event table.
type sqliteCalendar struct {
	st *crm.SQLite
}

func (s sqliteCalendar) RecentEvents(ctx context.Context, windowDays int) ([]model.CalendarEvent, error) {
	return s.st.RecentEvents(ctx, time.Now(), windowDays)
}
