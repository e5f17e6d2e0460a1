package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ib-77/chatflow/pkg/flow"
)

var separator = strings.Repeat("─", 50)

// Runner drives an engine for one of the command line modes.
type Runner struct {
	Engine  *flow.Engine
	Encoder Encoder
	Out     io.Writer
	// Color enables ANSI escapes in banners.
	Color  bool
	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) style(s, code string) string {
	if !r.Color {
		return s
	}
	return code + s + reset
}

// Demo processes messages as one batch and prints every result.
func (r *Runner) Demo(ctx context.Context, messages []string) error {
	fmt.Fprintln(r.Out, r.style("Chat Flow Engine - Demo Mode", bold))
	fmt.Fprintf(r.Out, "%s\n\n", separator)

	items, err := r.Engine.ProcessBatch(ctx, messages)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := r.Encoder.Encode(ResultOf(it)); err != nil {
			return err
		}
	}

	fmt.Fprintln(r.Out, separator)
	fmt.Fprintln(r.Out, r.style(fmt.Sprintf("Processed %d messages", len(items)), bold))
	return nil
}

// Interactive reads one message per line from in and answers it before
// prompting again. Blank lines are ignored. It returns when in is exhausted
// or ctx is done.
func (r *Runner) Interactive(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.Out, r.style("Chat Flow Engine - Interactive Mode", bold))
	fmt.Fprintln(r.Out, "Type a message and press Enter. Use Ctrl+D or Ctrl+C to exit.")
	fmt.Fprintf(r.Out, "\n%s\n\n", separator)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := r.Engine.OpenChannel(ctx)
	lines := scanLines(ctx, in)

	prompt := func() { fmt.Fprint(r.Out, r.style(">", bold)+" ") }
	prompt()

	for {
		select {
		case <-ctx.Done():
			_ = c.Close()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				_ = c.Close()
				fmt.Fprintf(r.Out, "\n%s\n", r.style("Goodbye!", dim))
				return nil
			}
			if err := c.Write(ctx, line); err != nil {
				return err
			}
			item, err := c.Read(ctx)
			if err != nil {
				return err
			}
			if err := r.Encoder.Encode(ResultOf(item)); err != nil {
				return err
			}
			prompt()
		}
	}
}

// Pipe streams every non-blank line of in through one channel and encodes
// the results as they come out.
func (r *Runner) Pipe(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := r.Engine.OpenChannel(ctx)
	lines := scanLines(ctx, in)

	go func() {
		defer c.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				if err := c.Write(ctx, line); err != nil {
					r.logger().Debug("cli: pipe input stopped", "error", err)
					return
				}
			}
		}
	}()

	n := 0
	for item, err := range c.All() {
		if err != nil {
			return err
		}
		if err := r.Encoder.Encode(ResultOf(item)); err != nil {
			return err
		}
		n++
	}
	r.logger().Debug("cli: pipe finished", "items", n, "run", c.RunID())
	return nil
}

// scanLines emits the non-blank lines of in. The channel is closed at the
// end of in or when ctx is done.
func scanLines(ctx context.Context, in io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			line := sc.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
