package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/christophe-duc/podfs/pkg/channel"
	"github.com/christophe-duc/podfs/pkg/commands"
	"github.com/christophe-duc/podfs/pkg/config"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

const lsData = "ls -lQ --color=never --full-time /data"

var testOptions = Options{Namespace: "default", Pod: "web-0", Containers: []string{"app"}, Output: "table"}

func newTestApp(t *testing.T, fake *channel.Fake) *App {
	app, err := NewAppWithChannel(commands.NewDummyAppConfig(), commands.NewDummyLog(), fake)
	require.NoError(t, err)
	return app
}

func TestNewChannel(t *testing.T) {
	type scenario struct {
		testName string
		runtime  config.RuntimeConfig
		test     func(ch channel.Channel, closers []io.Closer, err error)
	}

	scenarios := []scenario{
		{
			"local",
			config.RuntimeConfig{Kind: "local"},
			func(ch channel.Channel, closers []io.Closer, err error) {
				assert.NoError(t, err)
				assert.IsType(t, &channel.LocalChannel{}, ch)
			},
		},
		{
			"ssh",
			config.RuntimeConfig{Kind: "ssh", SSHUser: "deploy"},
			func(ch channel.Channel, closers []io.Closer, err error) {
				assert.NoError(t, err)
				assert.IsType(t, &channel.SSHChannel{}, ch)
			},
		},
		{
			"docker with an explicit host",
			config.RuntimeConfig{Kind: "docker", DockerHost: "tcp://127.0.0.1:2375"},
			func(ch channel.Channel, closers []io.Closer, err error) {
				assert.NoError(t, err)
				assert.IsType(t, &channel.DockerChannel{}, ch)
				assert.Len(t, closers, 1)
			},
		},
		{
			"unknown",
			config.RuntimeConfig{Kind: "lxc"},
			func(ch channel.Channel, closers []io.Closer, err error) {
				assert.EqualError(t, err, "unsupported runtime 'lxc'")
			},
		},
	}

	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			s.test(newChannel(commands.NewDummyLog(), commands.NewDummyOSCommand(), &s.runtime))
		})
	}
}

func TestNewAppValidatesConfig(t *testing.T) {
	appConfig := commands.NewDummyAppConfig()
	appConfig.UserConfig.Runtime.Kind = "lxc"

	_, err := NewApp(appConfig)
	assert.EqualError(t, err, "Unrecognized runtime kind 'lxc'. Expected one of: kube, docker, podman, ssh, local")
}

type closingChannel struct {
	*channel.Fake
	closed bool
}

func (c *closingChannel) Close() error {
	c.closed = true
	return nil
}

func TestCloseClosesChannel(t *testing.T) {
	ch := &closingChannel{Fake: channel.NewFake()}
	app, err := NewAppWithChannel(commands.NewDummyAppConfig(), commands.NewDummyLog(), ch)
	require.NoError(t, err)

	require.NoError(t, app.Close())
	assert.True(t, ch.closed)
}

func TestList(t *testing.T) {
	fake := channel.NewFake().
		Reply(lsData, `drwxr-xr-x 2 root root 4096 2024-03-01 10:20:30.000000000 +0000 "sub"`+"\n"+
			`-rw-r--r-- 1 root root 10 2024-03-01 10:20:30.000000000 +0000 "a.txt"`+"\n")
	app := newTestApp(t, fake)

	out := &bytes.Buffer{}
	require.NoError(t, app.List(context.Background(), testOptions, "/data", out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "MODE"))
	assert.True(t, strings.HasSuffix(lines[1], " sub"))
	assert.True(t, strings.HasSuffix(lines[2], " a.txt"))
}

func TestListShowHiddenFromConfig(t *testing.T) {
	fake := channel.NewFake().Reply("ls -laQ --color=never --full-time /data", "total 0\n")
	app := newTestApp(t, fake)
	app.Config.UserConfig.Listing.ShowHidden = true

	out := &bytes.Buffer{}
	require.NoError(t, app.List(context.Background(), testOptions, "/data", out))
	assert.Equal(t, "", out.String())
}

func TestListAcrossContainers(t *testing.T) {
	fake := channel.NewFake()
	fake.StreamFunc = func(_ context.Context, req channel.Request) error {
		if req.Target.Container != "app" {
			_, _ = io.WriteString(req.Stderr, "exec failed")
			return &channel.ExitError{Code: 126}
		}
		_, err := io.WriteString(req.Stdout, `-rw-r--r-- 1 root root 10 2024-03-01 10:20:30.000000000 +0000 "a.txt"`+"\n")
		return err
	}
	app := newTestApp(t, fake)

	opts := testOptions
	opts.Containers = []string{"istio-proxy", "app"}
	opts.Output = "json"

	out := &bytes.Buffer{}
	require.NoError(t, app.List(context.Background(), opts, "/data", out))
	assert.Contains(t, out.String(), `"name": "a.txt"`)
	assert.Len(t, fake.Calls(), 2)
}

func TestFileOperations(t *testing.T) {
	fake := channel.NewFake()
	fake.StreamFunc = func(_ context.Context, _ channel.Request) error { return nil }
	app := newTestApp(t, fake)
	ctx := context.Background()

	require.NoError(t, app.Move(ctx, testOptions, "/a", "/b"))
	require.NoError(t, app.Remove(ctx, testOptions, "/b"))
	require.NoError(t, app.MakeDirectory(ctx, testOptions, "/c"))
	require.NoError(t, app.Touch(ctx, testOptions, "/c/d"))

	assert.Equal(t, []string{"mv /a /b", "rm -rf /b", "mkdir /c", "touch /c/d"}, fake.CommandLines())
	for _, call := range fake.Calls() {
		assert.Equal(t, testOptions.Target(), call.Target)
	}
}

func TestChecksums(t *testing.T) {
	fake := channel.NewFake().
		Reply("md5sum /a", "0cc175b9c0f1b6a831c399e269772661  /a\n").
		Reply("md5sum /b", "92eb5ffee6ae2fec3ad71c777531578f  /b\n").
		ReplyError("md5sum /c", "md5sum: /c: No such file or directory\n")
	app := newTestApp(t, fake)

	out := &bytes.Buffer{}
	err := app.Checksums(context.Background(), testOptions, []string{"/a", "/b", "/c"}, out)
	assert.EqualError(t, err, "1 of 3 checksums failed")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661 /a", lines[0])
	assert.Equal(t, "92eb5ffee6ae2fec3ad71c777531578f /b", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "FAILED"))
	assert.Contains(t, lines[2], "/c: md5sum: /c: No such file or directory")
}

func TestUploadAndDownload(t *testing.T) {
	fake := channel.NewFake()
	app := newTestApp(t, fake)
	ctx := context.Background()
	dir := t.TempDir()

	content := bytes.Repeat([]byte("podfs"), 1000)
	local := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(local, content, 0o644))

	progress := &bytes.Buffer{}
	require.NoError(t, app.Upload(ctx, testOptions, local, "/data/f", progress))
	assert.Equal(t, content, fake.Files["/data/f"])
	assert.Contains(t, progress.String(), "upload /data/f: 4.9 KiB in")

	progress.Reset()
	downloaded := filepath.Join(dir, "out.bin")
	require.NoError(t, app.Download(ctx, testOptions, "/data/f", downloaded, progress))
	got, err := os.ReadFile(downloaded)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Contains(t, progress.String(), "download /data/f: 4.9 KiB in")
}

func TestUploadMissingLocalFile(t *testing.T) {
	fake := channel.NewFake()
	app := newTestApp(t, fake)

	err := app.Upload(context.Background(), testOptions, filepath.Join(t.TempDir(), "nope"), "/data/f", io.Discard)
	assert.Error(t, err)
	assert.Empty(t, fake.Calls())
}

func TestRun(t *testing.T) {
	fake := channel.NewFake().Reply("cat /etc/os-release /etc/my file", "ID=alpine\n")
	app := newTestApp(t, fake)

	out := &bytes.Buffer{}
	require.NoError(t, app.Run(context.Background(), testOptions, `cat /etc/os-release "/etc/my file"`, out))
	assert.Equal(t, "ID=alpine\n", out.String())
	assert.Equal(t, []string{"cat", "/etc/os-release", "/etc/my file"}, fake.Calls()[0].Command)

	assert.EqualError(t, app.Run(context.Background(), testOptions, "   ", out), "no command given")
}

func TestKnownError(t *testing.T) {
	type scenario struct {
		testName string
		err      error
		known    bool
		contains string
	}

	scenarios := []scenario{
		{"docker permission", errors.New("Got permission denied while trying to connect to the Docker daemon socket at unix:///var/run/docker.sock"), true, "docker group"},
		{"missing kubeconfig", errors.New("invalid configuration: no configuration has been provided, try setting KUBERNETES_MASTER environment variable"), true, "kubeconfig"},
		{"no podman socket", commands.NewComplexError(commands.NoSocketFound, "no podman socket found: is the podman service running?"), true, "podman service"},
		{"something else", errors.New("boom"), false, ""},
	}

	app := newTestApp(t, channel.NewFake())
	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			message, known := app.KnownError(s.err)
			assert.Equal(t, s.known, known)
			assert.Contains(t, message, s.contains)
		})
	}
}
