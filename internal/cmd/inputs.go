package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// maxTextInput caps text read from --*-file flags.
const maxTextInput = 64 << 10

// readTextInput returns inline when set, otherwise the contents of path
// ("-" reads stdin). Both empty yields "".
func readTextInput(inline, path string) (string, error) {
	if strings.TrimSpace(inline) != "" {
		if strings.TrimSpace(path) != "" {
			return "", fmt.Errorf("cannot combine inline value with %s", path)
		}
		return inline, nil
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}

	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close() // nolint:errcheck // read-only
		reader = f
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxTextInput+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > maxTextInput {
		return "", fmt.Errorf("%s exceeds %d bytes", path, maxTextInput)
	}
	return string(data), nil
}
