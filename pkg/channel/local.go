package channel

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/christophe-duc/podfs/pkg/commands"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// LocalChannel runs commands as local processes, ignoring the target
// entirely. It lets you point podfs at your own machine.
type LocalChannel struct {
	Log       *logrus.Entry
	OSCommand *commands.OSCommand
}

func NewLocalChannel(log *logrus.Entry, osCommand *commands.OSCommand) *LocalChannel {
	return &LocalChannel{Log: log, OSCommand: osCommand}
}

func (l *LocalChannel) Stream(ctx context.Context, req Request) error {
	if len(req.Command) == 0 {
		return errors.New("no command given")
	}

	l.Log.Debugf("running locally: %s", l.commandLine(req.Command))

	cmd := l.OSCommand.NewCmdContext(ctx, req.Command[0], req.Command[1:]...)
	// dd and friends can fork; kill the whole group when we're cancelled
	l.OSCommand.PrepareForChildren(cmd)
	cmd.Cancel = func() error {
		return l.OSCommand.Kill(cmd)
	}

	cmd.Stdin = req.Stdin
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return err
}

// commandLine renders argv the way you'd type it into a shell on this platform
func (l *LocalChannel) commandLine(argv []string) string {
	return strings.Join(lo.Map(argv, func(arg string, _ int) string {
		if arg != "" && !strings.ContainsAny(arg, " \t\n\"'\\$`") {
			return arg
		}
		return l.OSCommand.Quote(arg)
	}), " ")
}
