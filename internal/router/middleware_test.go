package router

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/google/uuid"
	"go.uber.org/goleak"

	"reveal-terminal/internal/logging"
)

func discard() *log.Logger { return logging.Discard() }

func compose(h ssh.Handler, mws []wish.Middleware) ssh.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestDefaultChainOrder(t *testing.T) {
	chain := DefaultChain(Settings{RateLimitPerMinute: 30, RateLimitBurst: 10, MaxSessions: 4, Logger: discard()})
	want := []string{"logging", "rate-limit", "max-sessions", "recipient", "session-metadata", "active-term"}
	got := Names(chain)
	if len(got) != len(want) {
		t.Fatalf("chain length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chain[%d] = %q, want %q", i, got[i], want[i])
		}
		if chain[i].Middleware == nil {
			t.Fatalf("chain[%d] has no middleware", i)
		}
	}
}

func TestDefaultChainStoresMetadataBeforeHandler(t *testing.T) {
	chain := DefaultChain(Settings{RateLimitPerMinute: 30, RateLimitBurst: 10, MaxSessions: 4, Logger: discard()})
	s := newFakeSession(context.Background(), "ana_maria", "198.51.100.7").withPty("xterm-256color", 100, 30)

	called := false
	compose(func(sess ssh.Session) {
		called = true
		info, ok := Info(sess.Context())
		if !ok {
			t.Fatal("expected session metadata before handler execution")
		}
		if _, err := uuid.Parse(info.ID); err != nil {
			t.Fatalf("session id %q is not a uuid: %v", info.ID, err)
		}
		if info.Recipient != "ana maria" || Recipient(sess.Context()) != "ana maria" {
			t.Fatalf("recipient = %q", info.Recipient)
		}
		if info.RemoteIP != "198.51.100.7" || info.Term != "xterm-256color" || info.Width != 100 || info.Height != 30 {
			t.Fatalf("unexpected metadata %+v", info)
		}
	}, MiddlewareFromDescriptors(chain))(s)

	if !called {
		t.Fatal("expected handler to be called")
	}
}

func TestDefaultChainRequiresActiveTerminal(t *testing.T) {
	chain := DefaultChain(Settings{RateLimitPerMinute: 30, RateLimitBurst: 10, MaxSessions: 4, Logger: discard()})
	s := newFakeSession(context.Background(), "ana", "198.51.100.8")

	called := false
	compose(func(ssh.Session) { called = true }, MiddlewareFromDescriptors(chain))(s)
	if called {
		t.Fatal("sessions without a pty must not reach the handler")
	}
}

func TestForWishReverses(t *testing.T) {
	var order []string
	mark := func(name string) wish.Middleware {
		return func(next ssh.Handler) ssh.Handler {
			return func(s ssh.Session) {
				order = append(order, name)
				next(s)
			}
		}
	}
	mws := []wish.Middleware{mark("a"), mark("b"), mark("c")}

	// wish applies middleware first to last, so the last one wraps outermost.
	h := ssh.Handler(func(ssh.Session) {})
	for _, mw := range ForWish(mws) {
		h = mw(h)
	}
	h(newFakeSession(context.Background(), "x", "192.0.2.1"))

	if strings.Join(order, ",") != "a,b,c" {
		t.Fatalf("order = %v", order)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	mw := RateLimitMiddleware(1, 2, discard())
	calls := 0
	h := mw(func(ssh.Session) { calls++ })

	for i := 0; i < 2; i++ {
		h(newFakeSession(context.Background(), "ana", "203.0.113.1"))
	}
	throttled := newFakeSession(context.Background(), "ana", "203.0.113.1")
	h(throttled)
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if w := throttled.Writes(); len(w) != 1 || w[0] != msgRateLimited {
		t.Fatalf("unexpected throttle writes: %#v", w)
	}

	h(newFakeSession(context.Background(), "ana", "203.0.113.2"))
	if calls != 3 {
		t.Fatalf("other IPs keep their own bucket, calls = %d", calls)
	}
}

func TestLimiterSetSweepsIdleEntries(t *testing.T) {
	l := newLimiterSet(1, 1)
	start := time.Date(2024, time.December, 24, 0, 0, 0, 0, time.UTC)
	l.allow("203.0.113.1", start)
	l.allow("203.0.113.2", start.Add(limiterIdleTTL+time.Second))
	l.allow("203.0.113.3", start.Add(2*limiterIdleTTL+2*time.Second))

	if _, ok := l.entries["203.0.113.1"]; ok {
		t.Fatal("expected idle limiter to be swept")
	}
	if len(l.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(l.entries))
	}
}

func TestMaxSessionsReleasesSlotOnContextDone(t *testing.T) {
	defer goleak.VerifyNone(t)
	mw := MaxSessionsMiddleware(1, discard())

	blockCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := newFakeSession(blockCtx, "a", "203.0.113.10")
	second := newFakeSession(context.Background(), "b", "203.0.113.11")

	releaseHandler := make(chan struct{})
	entered := make(chan struct{})
	handler := mw(func(ssh.Session) {
		close(entered)
		<-releaseHandler
	})

	done := make(chan struct{})
	go func() {
		handler(first)
		close(done)
	}()
	<-entered

	handler(second)
	if w := second.Writes(); len(w) != 1 || w[0] != msgMaxSessions {
		t.Fatalf("unexpected overflow writes: %#v", w)
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	third := newFakeSession(context.Background(), "c", "203.0.113.12")
	called := false
	mw(func(ssh.Session) { called = true })(third)
	if !called {
		t.Fatal("expected slot to be available after context cancellation")
	}

	close(releaseHandler)
	<-done
}

func TestMaxSessionsRecoversFromPanic(t *testing.T) {
	mw := MaxSessionsMiddleware(1, discard())
	mw(func(ssh.Session) { panic("boom") })(newFakeSession(context.Background(), "a", "203.0.113.20"))

	called := false
	mw(func(ssh.Session) { called = true })(newFakeSession(context.Background(), "b", "203.0.113.21"))
	if !called {
		t.Fatal("expected slot to be released after panic")
	}
}

func TestMaxSessionsDoesNotDoubleRelease(t *testing.T) {
	defer goleak.VerifyNone(t)
	mw := MaxSessionsMiddleware(1, discard())
	ctx, cancel := context.WithCancel(context.Background())

	releaseFirst := make(chan struct{})
	entered := make(chan struct{}, 2)
	h := mw(func(ssh.Session) {
		entered <- struct{}{}
		<-releaseFirst
	})
	doneFirst := make(chan struct{})
	go func() {
		h(newFakeSession(ctx, "a", "203.0.113.30"))
		close(doneFirst)
	}()
	<-entered
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(releaseFirst)
	<-doneFirst

	releaseSecond := make(chan struct{})
	gate := mw(func(ssh.Session) {
		entered <- struct{}{}
		<-releaseSecond
	})
	doneSecond := make(chan struct{})
	go func() {
		gate(newFakeSession(context.Background(), "b", "203.0.113.31"))
		close(doneSecond)
	}()
	<-entered

	third := newFakeSession(context.Background(), "c", "203.0.113.32")
	gate(third)
	if w := third.Writes(); len(w) != 1 || w[0] != msgMaxSessions {
		t.Fatalf("unexpected overflow writes: %#v", w)
	}

	close(releaseSecond)
	<-doneSecond
}

func TestSanitizeRecipient(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "ana", want: "ana"},
		{name: "underscore becomes space", in: "mary_jane", want: "mary jane"},
		{name: "trimmed", in: "  léa  ", want: "léa"},
		{name: "control characters dropped", in: "bo\x1b[31mb", want: "bo31mb"},
		{name: "generic login", in: "root", want: ""},
		{name: "generic login any case", in: "Guest", want: ""},
		{name: "empty", in: "", want: ""},
		{name: "capped", in: strings.Repeat("x", 64), want: strings.Repeat("x", 32)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeRecipient(tc.in); got != tc.want {
				t.Fatalf("SanitizeRecipient(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRemoteIP(t *testing.T) {
	s := newFakeSession(context.Background(), "a", "2001:db8::1")
	if got := RemoteIP(s); got != "2001:db8::1" {
		t.Fatalf("RemoteIP() = %q", got)
	}
	s.remote = nil
	if got := RemoteIP(s); got != "unknown" {
		t.Fatalf("RemoteIP(nil) = %q", got)
	}
}
