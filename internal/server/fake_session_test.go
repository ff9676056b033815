package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"

	"github.com/charmbracelet/ssh"
)

type fakeContext struct {
	context.Context
	mu     sync.Mutex
	user   string
	values map[any]any
	remote net.Addr
	local  net.Addr
}

func (f *fakeContext) Lock()                         { f.mu.Lock() }
func (f *fakeContext) Unlock()                       { f.mu.Unlock() }
func (f *fakeContext) User() string                  { return f.user }
func (f *fakeContext) SessionID() string             { return "session-server-test" }
func (f *fakeContext) ClientVersion() string         { return "ssh-test-client" }
func (f *fakeContext) ServerVersion() string         { return "ssh-test-server" }
func (f *fakeContext) RemoteAddr() net.Addr          { return f.remote }
func (f *fakeContext) LocalAddr() net.Addr           { return f.local }
func (f *fakeContext) Permissions() *ssh.Permissions { return &ssh.Permissions{} }
func (f *fakeContext) SetValue(key, value interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
}
func (f *fakeContext) Value(key interface{}) interface{} {
	f.mu.Lock()
	v, ok := f.values[key]
	f.mu.Unlock()
	if ok {
		return v
	}
	return f.Context.Value(key)
}

// fakeSession is an interactive session with an 80x24 pty.
type fakeSession struct {
	ctx    *fakeContext
	remote net.Addr
	pty    ssh.Pty

	mu     sync.Mutex
	writes bytes.Buffer
}

func newFakeSession(ctx context.Context, user string) *fakeSession {
	remote := &net.TCPAddr{IP: net.ParseIP("203.0.113.60"), Port: 2022}
	return &fakeSession{
		ctx: &fakeContext{
			Context: ctx,
			user:    user,
			values:  map[any]any{},
			remote:  remote,
			local:   &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 2222},
		},
		remote: remote,
		pty:    ssh.Pty{Term: "xterm-256color", Window: ssh.Window{Width: 80, Height: 24}},
	}
}

func (f *fakeSession) Read(_ []byte) (int, error) { return 0, io.EOF }
func (f *fakeSession) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes.Write(p)
}
func (f *fakeSession) Close() error                                   { return nil }
func (f *fakeSession) CloseWrite() error                              { return nil }
func (f *fakeSession) SendRequest(string, bool, []byte) (bool, error) { return false, nil }
func (f *fakeSession) Stderr() io.ReadWriter                          { return &bytes.Buffer{} }
func (f *fakeSession) User() string                                   { return f.ctx.user }
func (f *fakeSession) RemoteAddr() net.Addr                           { return f.remote }
func (f *fakeSession) LocalAddr() net.Addr                            { return f.ctx.local }
func (f *fakeSession) Environ() []string                              { return []string{"TERM=" + f.pty.Term} }
func (f *fakeSession) Exit(int) error                                 { return nil }
func (f *fakeSession) Command() []string                              { return nil }
func (f *fakeSession) RawCommand() string                             { return "" }
func (f *fakeSession) Subsystem() string                              { return "" }
func (f *fakeSession) PublicKey() ssh.PublicKey                       { return nil }
func (f *fakeSession) Context() ssh.Context                           { return f.ctx }
func (f *fakeSession) Permissions() ssh.Permissions                   { return ssh.Permissions{} }
func (f *fakeSession) EmulatedPty() bool                              { return false }
func (f *fakeSession) Pty() (ssh.Pty, <-chan ssh.Window, bool) {
	return f.pty, make(chan ssh.Window), true
}
func (f *fakeSession) Signals(chan<- ssh.Signal) {}
func (f *fakeSession) Break(chan<- bool)         {}
