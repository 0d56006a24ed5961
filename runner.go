package callflow

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/internal/presentation/tui"
	"github.com/aretw0/callflow/pkg/adapters/openai"
	"github.com/aretw0/callflow/pkg/domain"
)

// Turner produces the assistant's reply to one caller utterance.
// An empty utterance asks the assistant to open the call.
type Turner interface {
	Turn(ctx context.Context, utterance string) (*openai.Reply, error)
}

// Runner handles the terminal loop of a text conversation with the assistant.
type Runner struct {
	Input  io.Reader
	Output io.Writer
	Logger *slog.Logger

	// Renderer formats assistant text before printing. Nil prints it raw.
	Renderer func(string) (string, error)

	// ShowTrace prints the actions invoked on each turn.
	ShowTrace bool
}

// NewRunner creates a runner on stdin and stdout.
func NewRunner() *Runner {
	return &Runner{
		Input:  os.Stdin,
		Output: os.Stdout,
		Logger: logging.NewNop(),
	}
}

// Run lets the assistant speak first, then alternates caller lines and replies
// until the conversation ends, the input is exhausted, or the caller types exit.
func (r *Runner) Run(ctx context.Context, t Turner) error {
	if r.Input == nil {
		r.Input = os.Stdin
	}
	if r.Output == nil {
		r.Output = os.Stdout
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}

	reply, err := t.Turn(ctx, "")
	if err != nil {
		return err
	}
	scanner := bufio.NewScanner(r.Input)
	for {
		r.print(reply)
		if reply.Terminated {
			r.Logger.Info("conversation ended", "node", reply.Node)
			return nil
		}

		fmt.Fprint(r.Output, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if reply, err = t.Turn(ctx, line); err != nil {
			return err
		}
	}
}

func (r *Runner) print(reply *openai.Reply) {
	if r.ShowTrace && len(reply.Invocations) > 0 {
		fmt.Fprintln(r.Output, tui.Faint(fmt.Sprintf("[%s] -> %s", strings.Join(reply.Invocations, ", "), reply.Node)))
	}
	if reply.Text == "" {
		return
	}
	text := reply.Text
	if r.Renderer != nil {
		if out, err := r.Renderer(text); err == nil {
			text = strings.TrimSpace(out)
		}
	}
	fmt.Fprintln(r.Output, tui.Speaker(domain.RoleAssistant, text))
}
