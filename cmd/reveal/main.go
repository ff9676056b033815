package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reveal-terminal/internal/config"
	"reveal-terminal/internal/logging"
	"reveal-terminal/internal/server"
	"reveal-terminal/internal/theme"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:           "reveal",
		Short:         "Serve a two-stage gift reveal over SSH",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newPlayCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "reveal:", err)
		return 1
	}
	return 0
}

type overrides struct {
	statusAddr string
	themeFile  string
	optionA    string
	optionB    string
	audioMode  string
	logLevel   string
}

func (o *overrides) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.themeFile, "theme-file", "", "TOML theme registry replacing the built-in catalog")
	f.StringVar(&o.optionA, "option-a", "", "theme id of the first gift")
	f.StringVar(&o.optionB, "option-b", "", "theme id of the second gift")
	f.StringVar(&o.audioMode, "audio-mode", "", "virtual|muted")
	f.StringVar(&o.logLevel, "log-level", "", "debug|info|warn|error")
}

// loadConfig reads the environment, then applies any flag set on cmd.
func loadConfig(cmd *cobra.Command, o *overrides) (config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	f := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	set("status-addr", &cfg.StatusAddr, o.statusAddr)
	set("theme-file", &cfg.ThemeFile, o.themeFile)
	set("option-a", &cfg.OptionA, o.optionA)
	set("option-b", &cfg.OptionB, o.optionB)
	set("log-level", &cfg.LogLevel, o.logLevel)
	if f.Changed("audio-mode") {
		cfg.AudioMode = config.AudioMode(o.audioMode)
	}
	if err := cfg.Normalize(); err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func loadThemes(cfg config.Config) (*theme.Registry, error) {
	if cfg.ThemeFile == "" {
		return theme.DefaultRegistry(), nil
	}
	reg, err := theme.LoadRegistryFile(cfg.ThemeFile)
	if err != nil {
		return nil, fmt.Errorf("load themes: %w", err)
	}
	return reg, nil
}

func newServeCmd() *cobra.Command {
	o := &overrides{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SSH server and the optional status endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			logger := logging.New(os.Stderr, cfg.Level())
			themes, err := loadThemes(cfg)
			if err != nil {
				return err
			}

			runtime, err := server.New(cfg, themes, logger)
			if err != nil {
				return fmt.Errorf("build ssh server: %w", err)
			}
			if err := runtime.Run(cmd.Context()); err != nil {
				return fmt.Errorf("run ssh server: %w", err)
			}
			return nil
		},
	}
	o.register(cmd)
	cmd.Flags().StringVar(&o.statusAddr, "status-addr", "", "host:port for the JSON status endpoint")
	return cmd
}
