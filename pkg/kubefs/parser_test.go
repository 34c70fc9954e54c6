package kubefs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineDialects(t *testing.T) {
	type scenario struct {
		testName string
		dialect  *Dialect
		line     string
		expected FileEntry
	}

	stamp := time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)

	scenarios := []scenario{
		{
			"gnu regular file",
			GNUDialect,
			`-rw-r--r-- 1 root root 10 2024-03-01 10:20:30.000000000 +0000 "a.txt"`,
			FileEntry{Name: "a.txt", Path: "/data/a.txt", Dir: "/data", Kind: "-", Attr: "-rw-r--r--", HardLinks: 1, Owner: "root", Group: "root", Size: 10, UpdateTime: stamp},
		},
		{
			"gnu directory",
			GNUDialect,
			`drwxr-xr-x 2 www-data www-data 4096 2024-03-01 10:20:30.000000000 +0000 "sub"`,
			FileEntry{Name: "sub", Path: "/data/sub", Dir: "/data", Kind: "d", Attr: "drwxr-xr-x", HardLinks: 2, Owner: "www-data", Group: "www-data", Size: 4096, UpdateTime: stamp},
		},
		{
			"gnu character device",
			GNUDialect,
			`crw-rw-rw- 1 root root 1, 3 2024-03-01 10:20:30.000000000 +0000 "null"`,
			FileEntry{Name: "null", Path: "/data/null", Dir: "/data", Kind: "c", Attr: "crw-rw-rw-", HardLinks: 1, Owner: "root", Group: "root", Size: 3, UpdateTime: stamp},
		},
		{
			"busybox regular file",
			BusyBoxDialect,
			`-rw-r--r--    1 root     root            10 Fri Mar  1 10:20:30 2024 "a.txt"`,
			FileEntry{Name: "a.txt", Path: "/data/a.txt", Dir: "/data", Kind: "-", Attr: "-rw-r--r--", HardLinks: 1, Owner: "root", Group: "root", Size: 10, UpdateTime: stamp},
		},
		{
			"busybox character device",
			BusyBoxDialect,
			`crw-rw-rw-    1 root     root        1,   3 Fri Mar  1 10:20:30 2024 "null"`,
			FileEntry{Name: "null", Path: "/data/null", Dir: "/data", Kind: "c", Attr: "crw-rw-rw-", HardLinks: 1, Owner: "root", Group: "root", Size: 3, UpdateTime: stamp},
		},
		{
			"gnu symlink",
			GNUDialect,
			`lrwxrwxrwx 1 root root 3 2024-03-01 10:20:30.000000000 +0000 "link" -> "sub"`,
			FileEntry{Name: "link", Path: "/data/link", Dir: "/data", Kind: "l", Attr: "lrwxrwxrwx", HardLinks: 1, Owner: "root", Group: "root", Size: 3, UpdateTime: stamp, LinkTo: "/data/sub"},
		},
		{
			"busybox symlink with absolute target",
			BusyBoxDialect,
			`lrwxrwxrwx    1 root     root            12 Fri Mar  1 10:20:30 2024 "sh" -> "/bin/busybox"`,
			FileEntry{Name: "sh", Path: "/data/sh", Dir: "/data", Kind: "l", Attr: "lrwxrwxrwx", HardLinks: 1, Owner: "root", Group: "root", Size: 12, UpdateTime: stamp, LinkTo: "/bin/busybox"},
		},
	}

	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			parser := &LineParser{Dialect: s.dialect, Location: time.UTC}
			entry, ok := parser.ParseLine("/data", s.line)
			require.True(t, ok)

			assert.True(t, s.expected.UpdateTime.Equal(entry.UpdateTime), "got %s", entry.UpdateTime)
			entry.UpdateTime = s.expected.UpdateTime
			assert.Equal(t, s.expected, *entry)
		})
	}
}

func TestParseLineSkips(t *testing.T) {
	type scenario struct {
		testName string
		line     string
	}

	scenarios := []scenario{
		{"total line", "total 12"},
		{"empty line", ""},
		{"short line", `"a"`},
		{"dot", `drwxr-xr-x 2 root root 4096 2024-03-01 10:20:30.000000000 +0000 "."`},
		{"dot dot", `drwxr-xr-x 2 root root 4096 2024-03-01 10:20:30.000000000 +0000 ".."`},
		{"unterminated name", `-rw-r--r-- 1 root root 10 2024-03-01 10:20:30.000000000 +0000 "a.txt`},
		{"no quoted name", `-rw-r--r-- 1 root root 10 2024-03-01 10:20:30.000000000 +0000 a.txt`},
	}

	parser := &LineParser{Dialect: GNUDialect, Location: time.UTC}
	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			_, ok := parser.ParseLine("/data", s.line)
			assert.False(t, ok)
		})
	}
}

func TestParseQuotedNames(t *testing.T) {
	type scenario struct {
		testName string
		quoted   string
		expected string
	}

	scenarios := []scenario{
		{"plain", `"a.txt"`, "a.txt"},
		{"spaces", `"my file.txt"`, "my file.txt"},
		{"escaped quote", `"say \"hi\""`, `say "hi"`},
		{"escaped backslash", `"back\\slash"`, `back\slash`},
		{"tab and newline", `"a\tb\nc"`, "a\tb\nc"},
		{"octal utf-8", `"caf\303\251"`, "café"},
		{"arrow in name", `"a -> b"`, "a -> b"},
	}

	parser := &LineParser{Dialect: GNUDialect, Location: time.UTC}
	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			entry, ok := parser.ParseLine("/", `-rw-r--r-- 1 root root 10 2024-03-01 10:20:30.000000000 +0000 `+s.quoted)
			require.True(t, ok)
			assert.Equal(t, s.expected, entry.Name)
			assert.Equal(t, "/"+s.expected, entry.Path)
		})
	}
}

func TestParseTime(t *testing.T) {
	type scenario struct {
		testName string
		dialect  *Dialect
		line     string
		location *time.Location
		expected time.Time
	}

	berlin := time.FixedZone("CET", 3600)

	scenarios := []scenario{
		{
			"gnu offset is honoured",
			GNUDialect,
			`-rw-r--r-- 1 root root 10 2024-03-01 10:20:30.500000000 +0100 "a"`,
			time.UTC,
			time.Date(2024, 3, 1, 9, 20, 30, 500000000, time.UTC),
		},
		{
			"gnu offset beats location",
			GNUDialect,
			`-rw-r--r-- 1 root root 10 2024-03-01 10:20:30.000000000 +0000 "a"`,
			berlin,
			time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC),
		},
		{
			"busybox uses location",
			BusyBoxDialect,
			`-rw-r--r--    1 root     root            10 Fri Mar  1 10:20:30 2024 "a"`,
			berlin,
			time.Date(2024, 3, 1, 9, 20, 30, 0, time.UTC),
		},
		{
			"garbage time is zero",
			BusyBoxDialect,
			`-rw-r--r--    1 root     root            10 Mar  1 10:20 "a"`,
			time.UTC,
			time.Time{},
		},
	}

	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			parser := &LineParser{Dialect: s.dialect, Location: s.location}
			entry, ok := parser.ParseLine("/", s.line)
			require.True(t, ok)
			assert.True(t, s.expected.Equal(entry.UpdateTime), "got %s", entry.UpdateTime)
		})
	}
}

func TestParse(t *testing.T) {
	output := "total 8\n" +
		"drwxr-xr-x 2 root root 4096 2024-03-01 10:20:30.000000000 +0000 \".\"\r\n" +
		"drwxr-xr-x 2 root root 4096 2024-03-01 10:20:30.000000000 +0000 \"..\"\n" +
		"-rw-r--r-- 1 root root 10 2024-03-01 10:20:30.000000000 +0000 \".hidden\"\n" +
		"-rw-r--r-- 1 root root 10 2024-03-01 10:20:30.000000000 +0000 \"b\"\n"

	parser := &LineParser{Dialect: GNUDialect, Location: time.UTC}
	entries := parser.Parse("/", output)

	require.Len(t, entries, 2)
	assert.Equal(t, "/.hidden", entries[0].Path)
	assert.Equal(t, "/b", entries[1].Path)
}

func TestJoinPath(t *testing.T) {
	type scenario struct {
		dir      string
		name     string
		expected string
	}

	scenarios := []scenario{
		{"/data", "a", "/data/a"},
		{"/data/", "a", "/data/a"},
		{"/", "a", "/a"},
		{"/data", "/etc/passwd", "/etc/passwd"},
		{"/data", "../up", "/data/../up"},
	}

	for _, s := range scenarios {
		assert.Equal(t, s.expected, joinPath(s.dir, s.name))
	}
}
