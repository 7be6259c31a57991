package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/minikv/minikv/cli/internal/client"
)

// doer is the part of client.Client the REPL needs.
type doer interface {
	Do(ctx context.Context, line string) (string, error)
}

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "minikv-server line protocol address")
	timeout := flag.Duration("timeout", client.DefaultTimeout, "per-request timeout")
	attempts := flag.Int("dial-attempts", client.DefaultDialAttempts, "connection attempts before giving up")
	verbose := flag.Bool("v", false, "debug logging on stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := newClient(*addr, *timeout, *attempts)
	defer c.Close()

	if flag.NArg() > 0 {
		resp, err := c.Do(ctx, strings.Join(flag.Args(), " "))
		if err != nil {
			slog.Error("request failed", "addr", *addr, "err", err)
			os.Exit(1)
		}
		fmt.Println(resp)
		return
	}

	if err := repl(ctx, c, os.Stdin, os.Stdout, *addr+"> "); err != nil {
		slog.Error("session ended", "addr", *addr, "err", err)
		os.Exit(1)
	}
}

// newClient builds the line client from the command-line flags.
func newClient(addr string, timeout time.Duration, attempts int) *client.Client {
	return client.New(addr, client.Options{DialAttempts: attempts, Timeout: timeout})
}

// repl reads commands from in until EOF, "quit" or "exit", printing each
// response to out. Request errors are printed and the session continues.
func repl(ctx context.Context, c doer, in io.Reader, out io.Writer, prompt string) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		// Per-request deadlines come from client.Options.Timeout (-timeout).
		resp, err := c.Do(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "(error) %v\n", err)
			continue
		}
		fmt.Fprintln(out, resp)
	}
}
