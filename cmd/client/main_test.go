package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestTarget_ArgsWithDefaultPort(t *testing.T) {
	host, port, err := target([]string{"10.0.0.5"}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	if err != nil || host != "10.0.0.5" || port != 5555 {
		t.Fatalf("unexpected (%q, %d, %v)", host, port, err)
	}
}

func TestTarget_ExplicitPort(t *testing.T) {
	_, port, err := target([]string{"localhost", "6000"}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	if err != nil || port != 6000 {
		t.Fatalf("unexpected (%d, %v)", port, err)
	}

	if _, _, err := target([]string{"localhost", "port"}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected invalid port error")
	}
}

func TestTarget_PromptsForMissingAddress(t *testing.T) {
	var out bytes.Buffer
	host, port, err := target(nil, bufio.NewReader(strings.NewReader(" 192.168.1.100 \n")), &out)
	if err != nil || host != "192.168.1.100" || port != 5555 {
		t.Fatalf("unexpected (%q, %d, %v)", host, port, err)
	}
	if !strings.Contains(out.String(), "Enter server IP address: ") {
		t.Fatalf("prompt not shown: %q", out.String())
	}

	if _, _, err := target(nil, bufio.NewReader(strings.NewReader("\n")), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

func TestRootCmd_InvalidPortReportedOnce(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"localhost", "abc"})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected invalid port error")
	}
	if n := strings.Count(out.String(), "invalid port"); n != 1 {
		t.Fatalf("expected one report, got %d:\n%s", n, out.String())
	}
	if strings.Contains(out.String(), "Error:") {
		t.Fatalf("cobra error output not silenced:\n%s", out.String())
	}
}

func TestRootCmd_TooManyArgsReported(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"a", "1", "extra"})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected argument error")
	}
	if !strings.HasPrefix(out.String(), "❌ ") {
		t.Fatalf("argument error not reported:\n%s", out.String())
	}
}
