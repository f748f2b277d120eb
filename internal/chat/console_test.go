package chat

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestConsole_BareTextAndMsgBroadcastAsServer(t *testing.T) {
	srv := startTestServer(t)
	alice := join(t, srv, "alice")

	var out bytes.Buffer
	console := NewConsole(srv, strings.NewReader(""), &out)

	if console.Exec("hello everyone") {
		t.Fatalf("bare text should not exit")
	}
	if got := waitFor(t, alice.lines, "SERVER"); got != "[12:34:56] 🔧 SERVER: hello everyone" {
		t.Fatalf("unexpected server line: %q", got)
	}

	console.Exec("/msg  second  ")
	waitFor(t, alice.lines, "🔧 SERVER: second")

	if !strings.Contains(out.String(), "[12:34:56] 🔧 SERVER: hello everyone") {
		t.Fatalf("announcement not echoed locally: %q", out.String())
	}
}

func TestConsole_UsersListsOnline(t *testing.T) {
	srv := startTestServer(t)
	join(t, srv, "alice")
	join(t, srv, "bob")

	var out bytes.Buffer
	NewConsole(srv, strings.NewReader(""), &out).Exec("/users")

	if !strings.Contains(out.String(), "👥 Connected users (2): alice, bob") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestConsole_KickUnknownIsLocalOnly(t *testing.T) {
	srv := startTestServer(t)
	bob := join(t, srv, "bob")

	var out bytes.Buffer
	NewConsole(srv, strings.NewReader(""), &out).Exec("/kick ghost")

	if !strings.Contains(out.String(), "❌ User 'ghost' not found") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if got := srv.Users(); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("registry changed: %v", got)
	}
	expectNone(t, bob.lines, "", 100*time.Millisecond)
}

func TestConsole_KickRemovesUser(t *testing.T) {
	srv := startTestServer(t)
	alice := join(t, srv, "alice")
	bob := join(t, srv, "bob")

	var out bytes.Buffer
	NewConsole(srv, strings.NewReader(""), &out).Exec("/kick Alice")

	waitFor(t, alice.lines, "🚫 You have been kicked")
	waitFor(t, bob.lines, "👋 alice left the chat (1 users online)")
	if !strings.Contains(out.String(), "🚫 Kicked user: alice") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestConsole_RejectsUnknownAndIncompleteCommands(t *testing.T) {
	srv := startTestServer(t)
	bob := join(t, srv, "bob")

	var out bytes.Buffer
	console := NewConsole(srv, strings.NewReader(""), &out)
	console.Exec("/shout hi")
	console.Exec("/kick")
	console.Exec("/msg")

	got := out.String()
	if !strings.Contains(got, "❌ Unknown command") {
		t.Fatalf("unknown command not rejected: %q", got)
	}
	if !strings.Contains(got, "❌ Usage: /kick <username>") {
		t.Fatalf("missing kick usage: %q", got)
	}
	expectNone(t, bob.lines, "SERVER", 100*time.Millisecond)
}

func TestConsole_RunQuitStopsServer(t *testing.T) {
	srv := startTestServer(t)
	alice := join(t, srv, "alice")

	var out bytes.Buffer
	console := NewConsole(srv, strings.NewReader("/users\n/quit\n/users\n"), &out)
	if err := console.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if srv.Running() {
		t.Fatalf("server still running after /quit")
	}
	waitFor(t, alice.lines, "🛑 Server shutting down")
	waitClosed(t, alice.lines)

	if n := strings.Count(out.String(), "Connected users"); n != 1 {
		t.Fatalf("expected commands after /quit to be ignored, saw %d user listings", n)
	}
}

func TestConsole_RunEndOfInputKeepsServer(t *testing.T) {
	srv := startTestServer(t)

	var out bytes.Buffer
	if err := NewConsole(srv, strings.NewReader("/users\n"), &out).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !srv.Running() {
		t.Fatalf("server stopped on end of input")
	}
}
