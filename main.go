package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/christophe-duc/podfs/pkg/app"
	"github.com/christophe-duc/podfs/pkg/config"
	"github.com/christophe-duc/podfs/pkg/presentation"
	"github.com/go-errors/errors"
	"github.com/integrii/flaggy"
	"github.com/jesseduffield/yaml"
)

var (
	commit      string
	version     = "unversioned"
	date        string
	buildSource = "unknown"

	configFlag    = false
	debuggingFlag = false
	getFlag       string

	opts = app.Options{Output: presentation.TableFormat}

	runtimeFlag string
	timeoutFlag time.Duration
)

type subcommand struct {
	*flaggy.Subcommand
	run func(ctx context.Context, a *app.App) error
}

func newSubcommand(name string, description string, run func(ctx context.Context, a *app.App) error, positionals ...*positional) *subcommand {
	sc := flaggy.NewSubcommand(name)
	sc.Description = description
	for i, p := range positionals {
		sc.AddPositionalValue(p.value, p.name, i+1, true, p.description)
	}
	flaggy.AttachSubcommand(sc, 1)
	return &subcommand{Subcommand: sc, run: run}
}

type positional struct {
	value       *string
	name        string
	description string
}

func arg(value *string, name string, description string) *positional {
	return &positional{value: value, name: name, description: description}
}

func main() {
	info := fmt.Sprintf(
		"%s\nDate: %s\nBuildSource: %s\nCommit: %s\nOS: %s\nArch: %s",
		version,
		date,
		buildSource,
		commit,
		runtime.GOOS,
		runtime.GOARCH,
	)

	flaggy.SetName("podfs")
	flaggy.SetDescription("Browse and move files in running containers with nothing but ls, dd and friends")
	flaggy.DefaultParser.AdditionalHelpPrepend = "https://github.com/christophe-duc/podfs"

	flaggy.Bool(&configFlag, "", "config", "Print the current default config")
	flaggy.String(&getFlag, "", "get", "Print one value of the loaded config by dotted path, e.g. exec.timeout")
	flaggy.Bool(&debuggingFlag, "d", "debug", "Log to development.log in the config directory")
	flaggy.String(&opts.Namespace, "n", "namespace", "Kubernetes namespace of the pod")
	flaggy.String(&opts.Pod, "p", "pod", "Pod, container or host to run in, depending on the runtime")
	flaggy.StringSlice(&opts.Containers, "c", "container", "Container to run in. ls tries each one given in turn")
	flaggy.String(&runtimeFlag, "r", "runtime", "One of kube, docker, podman, ssh or local. Overrides runtime.kind")
	flaggy.Duration(&timeoutFlag, "t", "timeout", "Bound on each remote command. Overrides exec.timeout")
	flaggy.Bool(&opts.ShowHidden, "a", "all", "Include dotfiles in listings")
	flaggy.String(&opts.Output, "o", "output", "Output format: table, yaml or json")
	flaggy.SetVersion(info)

	var path, from, to, remote, local, commandLine, address string

	subcommands := []*subcommand{
		newSubcommand("ls", "List a directory", func(ctx context.Context, a *app.App) error {
			return a.List(ctx, opts, path, os.Stdout)
		}, arg(&path, "path", "Directory to list")),
		newSubcommand("mv", "Move or rename a file", func(ctx context.Context, a *app.App) error {
			return a.Move(ctx, opts, from, to)
		}, arg(&from, "from", "Path to move"), arg(&to, "to", "Destination")),
		newSubcommand("rm", "Remove a file or a whole directory", func(ctx context.Context, a *app.App) error {
			return a.Remove(ctx, opts, path)
		}, arg(&path, "path", "Path to remove")),
		newSubcommand("mkdir", "Make a directory", func(ctx context.Context, a *app.App) error {
			return a.MakeDirectory(ctx, opts, path)
		}, arg(&path, "path", "Directory to create")),
		newSubcommand("touch", "Create a file or update its time", func(ctx context.Context, a *app.App) error {
			return a.Touch(ctx, opts, path)
		}, arg(&path, "path", "File to touch")),
		newSubcommand("md5sum", "Checksum files. Further paths go after --", func(ctx context.Context, a *app.App) error {
			return a.Checksums(ctx, opts, append([]string{path}, flaggy.TrailingArguments...), os.Stdout)
		}, arg(&path, "path", "File to checksum")),
		newSubcommand("download", "Copy a file out of the container. Use - for stdout", func(ctx context.Context, a *app.App) error {
			return a.Download(ctx, opts, remote, local, os.Stderr)
		}, arg(&remote, "remote", "Path in the container"), arg(&local, "local", "Local path")),
		newSubcommand("upload", "Copy a file into the container. Use - for stdin", func(ctx context.Context, a *app.App) error {
			return a.Upload(ctx, opts, local, remote, os.Stderr)
		}, arg(&local, "local", "Local path"), arg(&remote, "remote", "Path in the container")),
		newSubcommand("run", "Run a command and print its output", func(ctx context.Context, a *app.App) error {
			return a.Run(ctx, opts, commandLine, os.Stdout)
		}, arg(&commandLine, "command", `Command line, quoted as a whole, e.g. "cat /etc/os-release"`)),
	}

	serve := newSubcommand("serve", "Serve the HTTP API", func(ctx context.Context, a *app.App) error {
		return a.Serve(ctx, address)
	})
	serve.String(&address, "l", "listen", "Address to listen on. Overrides server.address")
	subcommands = append(subcommands, serve)

	flaggy.Parse()

	if configFlag {
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		err := encoder.Encode(config.GetDefaultConfig())
		if err != nil {
			log.Fatal(err.Error())
		}
		fmt.Printf("%v\n", buf.String())
		os.Exit(0)
	}

	if err := presentation.ValidateFormat(opts.Output); err != nil {
		log.Fatal(err.Error())
	}

	appConfig, err := config.NewAppConfig("podfs", version, commit, date, buildSource, debuggingFlag)
	if err != nil {
		log.Fatal(err.Error())
	}

	if getFlag != "" {
		value, err := appConfig.Get(getFlag)
		if err != nil {
			log.Fatal(err.Error())
		}
		fmt.Printf("%v\n", value)
		os.Exit(0)
	}

	if runtimeFlag != "" {
		appConfig.UserConfig.Runtime.Kind = runtimeFlag
	}
	if timeoutFlag > 0 {
		appConfig.UserConfig.Exec.Timeout = timeoutFlag
	}

	var chosen *subcommand
	for _, sc := range subcommands {
		if sc.Used {
			chosen = sc
		}
	}
	if chosen == nil {
		flaggy.ShowHelpAndExit("no command given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := app.NewApp(appConfig)
	if err == nil {
		err = chosen.run(ctx, app)
		if closeErr := app.Close(); err == nil {
			err = closeErr
		}
	}

	if err != nil {
		if errMessage, known := app.KnownError(err); known {
			log.Fatal(errMessage)
		}

		newErr := errors.Wrap(err, 0)
		if appConfig.Debug {
			stackTrace := newErr.ErrorStack()
			if app != nil {
				app.Log.Error(stackTrace)
			}
			log.Fatal(stackTrace)
		}
		log.Fatal(err.Error())
	}
}
