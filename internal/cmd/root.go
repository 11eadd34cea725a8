package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atkw312/website-blocker/internal/agent"
	"github.com/atkw312/website-blocker/internal/clock"
	"github.com/atkw312/website-blocker/internal/config"
	"github.com/atkw312/website-blocker/internal/orchestrator"
	"github.com/atkw312/website-blocker/internal/state"
)

var (
	cfgFile string
	debug   bool
)

// Debug prints a message if debug mode is enabled
func Debug(format string, args ...interface{}) {
	if debug {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

var rootCmd = &cobra.Command{
	Use:   "focusblock",
	Short: "Focusblock - focus session enforcement",
	Long: `Focusblock manages distraction-blocking focus sessions and keeps the
system-level enforcement agent in sync.

Run the background daemon:
  focusblock daemon

Start and end sessions:
  focusblock start --mode strict --minutes 45
  focusblock end

Inspect state:
  focusblock status
  focusblock history`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.focusblock/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	// Config is loaded on-demand in subcommands
}

// env bundles the pieces every subcommand needs: loaded config, the shared
// state store, and a channel to the enforcement agent.
type env struct {
	cfg    *config.Config
	store  *state.Store
	agent  *agent.Channel
	logger *zap.Logger
}

// setup loads config and opens the state store. One-shot commands log nothing
// unless --debug is set; the daemon builds its own logger instead.
func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.EnsureDir(); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	store, err := state.NewStore(cfg.StatePath, cfg.HistoryCap)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	logger := newLogger()
	ch := agent.NewChannel(agent.Config{
		Path:           cfg.Agent.Path,
		Args:           cfg.Agent.Args,
		CallTimeout:    cfg.Agent.CallTimeoutDuration(),
		ReconnectDelay: cfg.Agent.ReconnectDelayDuration(),
	}, logger)

	return &env{cfg: cfg, store: store, agent: ch, logger: logger}, nil
}

// dispatcher builds the transition state machine for one-shot commands. The
// daemon's own dispatcher is wired inside the orchestrator instead.
func (e *env) dispatcher() *orchestrator.Dispatcher {
	return orchestrator.NewDispatcher(e.store, e.agent, clock.SystemClock{}, e.logger)
}

func newLogger() *zap.Logger {
	if debug {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	return zap.NewNop()
}
