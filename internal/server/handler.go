package server

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"

	"reveal-terminal/internal/audio"
	"reveal-terminal/internal/config"
	"reveal-terminal/internal/router"
	"reveal-terminal/internal/sessions"
	"reveal-terminal/internal/theme"
	"reveal-terminal/internal/tui"
)

const (
	nameLifecycle = "session-lifecycle"
	nameBubbleTea = "bubbletea"
)

type liveKey struct{}

// liveSession links one SSH session to its model and registry entry.
type liveSession struct {
	id    string
	model *tui.Model
}

// lifecycle tears the model down and drops the registry entry once the
// program has stopped, whether the user quit or the connection dropped.
func (r *Runtime) lifecycle() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			live := &liveSession{}
			s.Context().SetValue(liveKey{}, live)
			next(s)

			if live.model == nil {
				return
			}
			live.model.Close()
			if err := r.registry.Close(live.id); err != nil {
				r.logger.Warn("session registry close failed", "event", "session_close_failed", "session_id", live.id, "err", err)
				return
			}
			r.logger.Info("session closed", "event", "session_closed", "session_id", live.id)
		}
	}
}

func (r *Runtime) teaMiddleware() wish.Middleware {
	return bm.Middleware(r.teaHandler)
}

// teaHandler builds the reveal model for s and registers it.
func (r *Runtime) teaHandler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	info, ok := router.Info(s.Context())
	if !ok {
		r.logger.Error("session metadata missing", "event", "session_rejected", "remote_ip", router.RemoteIP(s))
		return nil, nil
	}
	pty, _, _ := s.Pty()
	logger := r.logger.With("session_id", info.ID)

	entry := sessions.Entry{
		ID:        info.ID,
		Recipient: info.Recipient,
		RemoteIP:  info.RemoteIP,
		Term:      info.Term,
		Width:     pty.Window.Width,
		Height:    pty.Window.Height,
		Started:   info.Started,
	}

	model, err := tui.NewModel(tui.Options{
		Width:         pty.Window.Width,
		Height:        pty.Window.Height,
		Recipient:     info.Recipient,
		Registry:      r.themes,
		OptionA:       theme.ID(r.cfg.OptionA),
		OptionB:       theme.ID(r.cfg.OptionB),
		Backend:       audio.NewMemoryBackend(r.cfg.AudioMode == config.AudioMuted),
		Renderer:      bm.MakeRenderer(s),
		Term:          info.Term,
		FrameInterval: r.cfg.FrameInterval,
		Logger:        logger,
		OnReport:      func(rep tui.Report) { r.record(info.ID, rep) },
	})
	if err != nil {
		logger.Error("model setup failed", "event", "session_rejected", "err", err)
		return nil, nil
	}
	if err := r.registry.Open(entry); err != nil {
		logger.Error("session registry open failed", "event", "session_rejected", "err", err)
		model.Close()
		return nil, nil
	}
	if live, ok := s.Context().Value(liveKey{}).(*liveSession); ok {
		live.id = info.ID
		live.model = model
	}
	logger.Info("session opened", "event", "session_opened", "recipient", info.Recipient, "remote_ip", info.RemoteIP, "term", info.Term)
	return model, []tea.ProgramOption{tea.WithAltScreen()}
}

// record mirrors a UI report into the registry. Reports that arrive before
// Open or after Close are dropped.
func (r *Runtime) record(id string, rep tui.Report) {
	_ = r.registry.Update(id, func(e *sessions.Entry) {
		applyReport(e, rep)
	})
}

func applyReport(e *sessions.Entry, rep tui.Report) {
	e.Screen = rep.Screen.String()
	e.State = rep.Snapshot.State.String()
	e.Selection = rep.Snapshot.Session.Selection.String()
	e.ExplosionConsumed = rep.Snapshot.Session.ExplosionConsumed
	e.InFlight = rep.Snapshot.Session.InFlight
	e.Theme = string(rep.Theme)
	e.Track = ""
	e.Volume = 0
	if v := rep.Audio.Current; v != nil {
		e.Track = string(v.Track)
		e.Volume = v.Volume
	}
}
