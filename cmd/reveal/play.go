package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"reveal-terminal/internal/audio"
	"reveal-terminal/internal/config"
	"reveal-terminal/internal/logging"
	"reveal-terminal/internal/router"
	"reveal-terminal/internal/theme"
	"reveal-terminal/internal/tui"
)

func newPlayCmd() *cobra.Command {
	o := &overrides{}
	var (
		recipient string
		logFile   string
		mono      bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run one reveal session in this terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("play needs an interactive terminal")
			}
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			themes, err := loadThemes(cfg)
			if err != nil {
				return err
			}

			// The alternate screen owns stdout, so logs go to a file or nowhere.
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := tea.LogToFile(logFile, "reveal")
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				w = f
			}

			width, height, _ := term.GetSize(int(os.Stdout.Fd()))
			model, err := tui.NewModel(tui.Options{
				Width:         width,
				Height:        height,
				Recipient:     router.SanitizeRecipient(recipient),
				Registry:      themes,
				OptionA:       theme.ID(cfg.OptionA),
				OptionB:       theme.ID(cfg.OptionB),
				Backend:       audio.NewMemoryBackend(cfg.AudioMode == config.AudioMuted),
				Term:          os.Getenv("TERM"),
				ForceMono:     mono,
				FrameInterval: cfg.FrameInterval,
				Logger:        logging.New(w, cfg.Level()),
			})
			if err != nil {
				return err
			}
			defer model.Close()

			if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("run reveal: %w", err)
			}
			return nil
		},
	}
	o.register(cmd)
	cmd.Flags().StringVar(&recipient, "recipient", "", "name shown in the greeting")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file")
	cmd.Flags().BoolVar(&mono, "mono", false, "render without theme colors")
	return cmd
}
