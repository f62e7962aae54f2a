package sink

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"ghwatch/internal/pipeline"
	logx "ghwatch/pkg/logx"
)

// Command spawns a desktop notifier per alert (notify-send, osascript,
// terminal-notifier, ...). The command owns rendering; this sink only
// substitutes {title}, {body} and {url} into the configured args.
type Command struct {
	command string
	args    []string
	timeout time.Duration
	log     logx.Logger
}

type CommandConfig struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func NewCommand(cfg CommandConfig, log logx.Logger) *Command {
	if log.IsZero() {
		log = logx.Nop()
	}
	cmd := strings.TrimSpace(cfg.Command)
	args := cfg.Args
	if cmd == "" {
		cmd = "notify-send"
		args = []string{"-a", "ghwatch", "{title}", "{body}"}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Command{command: cmd, args: args, timeout: timeout, log: log}
}

func (s *Command) Deliver(ctx context.Context, a pipeline.Alert) error {
	args := make([]string, 0, len(s.args))
	for _, arg := range s.args {
		args = append(args, substitute(arg, a))
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, s.command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", s.command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func substitute(arg string, a pipeline.Alert) string {
	r := strings.NewReplacer(
		"{title}", a.Title,
		"{body}", a.Body,
		"{url}", a.URL,
	)
	return r.Replace(arg)
}
