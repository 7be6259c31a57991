package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeDoer struct {
	sent        []string
	fail        map[string]error
	hadDeadline bool
}

func (f *fakeDoer) Do(ctx context.Context, line string) (string, error) {
	f.sent = append(f.sent, line)
	if _, ok := ctx.Deadline(); ok {
		f.hadDeadline = true
	}
	if err := f.fail[line]; err != nil {
		return "", err
	}
	return "reply to " + line, nil
}

func TestREPL_SendsEachLine(t *testing.T) {
	d := &fakeDoer{}
	var out strings.Builder
	in := strings.NewReader("SET a 1\n\n  GET a  \n")

	if err := repl(context.Background(), d, in, &out, "> "); err != nil {
		t.Fatalf("repl: %v", err)
	}
	if len(d.sent) != 2 || d.sent[0] != "SET a 1" || d.sent[1] != "GET a" {
		t.Errorf("sent: got %q", d.sent)
	}
	for _, want := range []string{"reply to SET a 1\n", "reply to GET a\n"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q: %q", want, out.String())
		}
	}
}

func TestREPL_QuitStops(t *testing.T) {
	d := &fakeDoer{}
	var out strings.Builder
	in := strings.NewReader("PING\nquit\nPING\n")

	if err := repl(context.Background(), d, in, &out, "> "); err != nil {
		t.Fatalf("repl: %v", err)
	}
	if len(d.sent) != 1 {
		t.Errorf("sent after quit: got %q", d.sent)
	}
}

func TestREPL_ErrorsDoNotEndSession(t *testing.T) {
	d := &fakeDoer{fail: map[string]error{"BAD": errors.New("connection reset")}}
	var out strings.Builder
	in := strings.NewReader("BAD\nPING\n")

	if err := repl(context.Background(), d, in, &out, "> "); err != nil {
		t.Fatalf("repl: %v", err)
	}
	if !strings.Contains(out.String(), "(error) connection reset") {
		t.Errorf("error not printed: %q", out.String())
	}
	if !strings.Contains(out.String(), "reply to PING") {
		t.Errorf("session did not continue: %q", out.String())
	}
}

func TestREPL_LeavesDeadlineToClient(t *testing.T) {
	d := &fakeDoer{}
	var out strings.Builder

	if err := repl(context.Background(), d, strings.NewReader("PING\n"), &out, "> "); err != nil {
		t.Fatalf("repl: %v", err)
	}
	if d.hadDeadline {
		t.Error("repl imposed its own deadline; the -timeout flag must govern requests")
	}
}

func TestClientTimeoutFlagReachesRequests(t *testing.T) {
	c := newClient("127.0.0.1:1", 30*time.Second, 1)
	if got := c.Timeout(); got != 30*time.Second {
		t.Errorf("client timeout: got %v, want 30s", got)
	}
}
