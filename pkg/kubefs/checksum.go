package kubefs

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseChecksum splits one line of md5sum output into the hex digest and the
// path it was computed for. Both GNU and busybox print "<digest>  <path>";
// GNU marks a path containing a backslash or newline by starting the line
// with a backslash and escaping those characters.
func ParseChecksum(output string) (string, string, error) {
	line := strings.TrimRight(output, "\n")
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	escaped := strings.HasPrefix(line, `\`)
	if escaped {
		line = line[1:]
	}

	separator := strings.IndexAny(line, " \t")
	if separator < 0 {
		return "", "", fmt.Errorf("unexpected md5sum output: %q", output)
	}

	digest := line[:separator]
	if _, err := hex.DecodeString(digest); err != nil || len(digest) != 32 {
		return "", "", fmt.Errorf("unexpected md5sum digest: %q", digest)
	}

	// two spaces for text mode, a space and a star for binary mode
	path := line[separator+1:]
	path = strings.TrimPrefix(path, " ")
	path = strings.TrimPrefix(path, "*")
	if escaped {
		path = strings.NewReplacer(`\\`, `\`, `\n`, "\n").Replace(path)
	}

	return digest, path, nil
}
