// Package router builds the ordered SSH middleware chain that sits in front
// of the reveal UI.
package router

import (
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Middleware names, in chain order.
const (
	NameLogging         = "logging"
	NameRateLimit       = "rate-limit"
	NameMaxSessions     = "max-sessions"
	NameRecipient       = "recipient"
	NameSessionMetadata = "session-metadata"
	NameActiveTerm      = "active-term"
)

const (
	msgRateLimited    = "rate limit exceeded\n"
	msgMaxSessions    = "max sessions exceeded\n"
	maxRecipientRunes = 32
	// Limiters idle for this long are dropped on the next sweep.
	limiterIdleTTL = 10 * time.Minute
)

type contextKey string

const (
	recipientKey       contextKey = "recipient"
	sessionMetadataKey contextKey = "session-metadata"
)

// Descriptor names one middleware of the chain.
type Descriptor struct {
	Name       string
	Middleware wish.Middleware
}

// Settings tunes the default chain.
type Settings struct {
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxSessions        int
	Logger             *log.Logger
}

// DefaultChain returns the chain in execution order: the first descriptor
// sees the session first.
func DefaultChain(s Settings) []Descriptor {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	return []Descriptor{
		{Name: NameLogging, Middleware: logging.MiddlewareWithLogger(logger)},
		{Name: NameRateLimit, Middleware: RateLimitMiddleware(s.RateLimitPerMinute, s.RateLimitBurst, logger)},
		{Name: NameMaxSessions, Middleware: MaxSessionsMiddleware(s.MaxSessions, logger)},
		{Name: NameRecipient, Middleware: recipient()},
		{Name: NameSessionMetadata, Middleware: sessionMetadata()},
		{Name: NameActiveTerm, Middleware: activeterm.Middleware()},
	}
}

// MiddlewareFromDescriptors returns the middleware in execution order.
func MiddlewareFromDescriptors(chain []Descriptor) []wish.Middleware {
	out := make([]wish.Middleware, 0, len(chain))
	for _, d := range chain {
		if d.Middleware != nil {
			out = append(out, d.Middleware)
		}
	}
	return out
}

// ForWish reorders middleware for wish.WithMiddleware, which runs the last
// middleware first.
func ForWish(mws []wish.Middleware) []wish.Middleware {
	out := make([]wish.Middleware, len(mws))
	for i, mw := range mws {
		out[len(mws)-1-i] = mw
	}
	return out
}

// Names lists the descriptor names.
func Names(chain []Descriptor) []string {
	out := make([]string, 0, len(chain))
	for _, d := range chain {
		out = append(out, d.Name)
	}
	return out
}

// RateLimitMiddleware enforces per-IP connection limits with a token bucket
// per remote address.
func RateLimitMiddleware(limitPerMinute, burst int, logger *log.Logger) wish.Middleware {
	if limitPerMinute <= 0 {
		limitPerMinute = 30
	}
	if burst <= 0 {
		burst = 10
	}
	if logger == nil {
		logger = log.Default()
	}
	limits := newLimiterSet(rate.Limit(float64(limitPerMinute)/60.0), burst)

	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			now := time.Now()
			ip := RemoteIP(s)
			if !limits.allow(ip, now) {
				logger.Warn("connection throttled", "event", "rate_limit_throttled", "remote_ip", ip)
				_, _ = s.Write([]byte(msgRateLimited))
				return
			}
			next(s)
		}
	}
}

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{limit: limit, burst: burst, entries: map[string]*limiterEntry{}}
}

func (l *limiterSet) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for key, e := range l.entries {
			if now.Sub(e.seen) > limiterIdleTTL {
				delete(l.entries, key)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.seen = now
	return e.limiter.AllowN(now, 1)
}

// MaxSessionsMiddleware caps concurrent sessions. A slot is released exactly
// once, when the handler returns, panics or the session context ends.
func MaxSessionsMiddleware(maxSessions int, logger *log.Logger) wish.Middleware {
	if maxSessions <= 0 {
		maxSessions = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	sem := semaphore.NewWeighted(int64(maxSessions))

	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			if !sem.TryAcquire(1) {
				logger.Warn("session rejected", "event", "max_sessions_exceeded", "remote_ip", RemoteIP(s), "max_sessions", maxSessions)
				_, _ = s.Write([]byte(msgMaxSessions))
				return
			}

			var once sync.Once
			release := func() { once.Do(func() { sem.Release(1) }) }
			stop := make(chan struct{})
			defer close(stop)
			go func() {
				select {
				case <-s.Context().Done():
					release()
				case <-stop:
				}
			}()

			defer func() {
				if r := recover(); r != nil {
					logger.Error("session handler panicked", "event", "handler_panic", "remote_ip", RemoteIP(s), "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
				}
				release()
			}()
			next(s)
		}
	}
}

// Recipient returns the greeting name stored by the recipient middleware.
func Recipient(ctx ssh.Context) string {
	name, _ := ctx.Value(recipientKey).(string)
	return name
}

// recipient turns the SSH username into the name the gift is addressed to.
func recipient() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			s.Context().SetValue(recipientKey, SanitizeRecipient(s.User()))
			next(s)
		}
	}
}

// SanitizeRecipient keeps printable letters, digits, spaces and common name
// punctuation, capped at 32 runes. Generic login names yield "".
func SanitizeRecipient(user string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(user) {
		if n == maxRecipientRunes {
			break
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '-', r == '.', r == '\'', r == '_':
			if r == '_' {
				r = ' '
			}
			b.WriteRune(r)
			n++
		}
	}
	name := strings.TrimSpace(b.String())
	switch strings.ToLower(name) {
	case "root", "guest", "anonymous", "ssh", "user":
		return ""
	}
	return name
}

// SessionInfo describes one accepted SSH session.
type SessionInfo struct {
	ID        string
	Recipient string
	RemoteIP  string
	Term      string
	Width     int
	Height    int
	Started   time.Time
}

// Info returns the metadata stored by the session-metadata middleware.
func Info(ctx ssh.Context) (SessionInfo, bool) {
	info, ok := ctx.Value(sessionMetadataKey).(SessionInfo)
	return info, ok
}

func sessionMetadata() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			info := SessionInfo{
				ID:        uuid.NewString(),
				Recipient: Recipient(s.Context()),
				RemoteIP:  RemoteIP(s),
				Started:   time.Now().UTC(),
			}
			if pty, _, ok := s.Pty(); ok {
				info.Term = pty.Term
				info.Width = pty.Window.Width
				info.Height = pty.Window.Height
			}
			s.Context().SetValue(sessionMetadataKey, info)
			next(s)
		}
	}
}

// RemoteIP returns the session's remote host without the port.
func RemoteIP(s ssh.Session) string {
	remote := s.RemoteAddr()
	if remote == nil {
		return "unknown"
	}

	host, _, err := net.SplitHostPort(remote.String())
	if err != nil {
		return remote.String()
	}
	if host == "" {
		return "unknown"
	}
	return host
}
