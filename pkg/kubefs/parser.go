package kubefs

import (
	"strconv"
	"strings"
	"time"

	"github.com/christophe-duc/podfs/pkg/utils"
)

// LineParser turns `ls -lQ` output into entries. Names are always quoted by
// -Q, which is what lets us find the end of the attribute columns no matter
// what the name contains.
type LineParser struct {
	Dialect *Dialect

	// Location is used for timestamps that carry no zone offset
	Location *time.Location
}

// Parse parses every line of output. Lines that don't look like entries are
// skipped, as are `.` and `..`.
func (p *LineParser) Parse(dir string, output string) []*FileEntry {
	entries := []*FileEntry{}
	for _, line := range utils.SplitLines(output) {
		if entry, ok := p.ParseLine(dir, line); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// ParseLine parses one line of a listing of dir
func (p *LineParser) ParseLine(dir string, line string) (*FileEntry, bool) {
	if len(line) < 4 {
		return nil, false
	}

	nameStart := strings.IndexByte(line, '"')
	if nameStart < 0 {
		return nil, false
	}
	name, nameEnd, ok := readQuoted(line, nameStart)
	if !ok || name == "." || name == ".." {
		return nil, false
	}

	kind := line[:1]
	if kind == "t" || strings.TrimSpace(kind) == "" {
		return nil, false
	}

	tokens := strings.Fields(line[:nameStart])
	columns := p.Dialect.columns(kind)

	entry := &FileEntry{
		Name:       name,
		Path:       joinPath(dir, name),
		Dir:        dir,
		Kind:       kind,
		Attr:       token(tokens, 0),
		HardLinks:  atoi(token(tokens, 1)),
		Owner:      token(tokens, 2),
		Group:      token(tokens, 3),
		Size:       parseSize(token(tokens, columns.Size)),
		UpdateTime: columns.parseTime(tokens, p.Location),
	}

	if kind == "l" {
		entry.LinkTo = parseLinkTarget(dir, line[nameEnd:])
	}

	return entry, true
}

// parseLinkTarget reads the quoted target following "->" and makes it absolute
func parseLinkTarget(dir string, rest string) string {
	arrow := strings.Index(rest, "->")
	if arrow < 0 {
		return ""
	}
	rest = rest[arrow+2:]

	start := strings.IndexByte(rest, '"')
	if start < 0 {
		return ""
	}
	target, _, ok := readQuoted(rest, start)
	if !ok || target == "" {
		return ""
	}
	return joinPath(dir, target)
}

// joinPath joins a directory and a name without doubling up slashes. An
// absolute name is returned as is.
func joinPath(dir string, name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

// readQuoted reads the double quoted string starting at s[start], undoing the
// C-style escapes ls -Q uses. It returns the index just past the closing quote.
func readQuoted(s string, start int) (string, int, bool) {
	if start >= len(s) || s[start] != '"' {
		return "", 0, false
	}

	var b strings.Builder
	for i := start + 1; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			return b.String(), i + 1, true
		case '\\':
			if i+1 >= len(s) {
				return "", 0, false
			}
			i++
			switch next := s[i]; next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'a':
				b.WriteByte('\a')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'v':
				b.WriteByte('\v')
			case '0', '1', '2', '3', '4', '5', '6', '7':
				value := 0
				digits := 0
				for digits < 3 && i < len(s) && s[i] >= '0' && s[i] <= '7' {
					value = value*8 + int(s[i]-'0')
					i++
					digits++
				}
				i--
				b.WriteByte(byte(value))
			default:
				// \" \\ and anything we don't know stand for themselves
				b.WriteByte(next)
			}
		default:
			b.WriteByte(c)
		}
	}

	return "", 0, false
}

func token(tokens []string, index int) string {
	if index < 0 || index >= len(tokens) {
		return ""
	}
	return tokens[index]
}

func atoi(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func parseSize(value string) int64 {
	n, err := strconv.ParseInt(strings.TrimSuffix(value, ","), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
