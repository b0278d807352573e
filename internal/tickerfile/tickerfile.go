// Package tickerfile loads the external ticker-list file named in
// spec.md §6, recovered from original_source/quote_app/src/parsecli.rs
// which read the same newline-delimited format for both the generator's
// ticker list and the client's comma-joined STREAM argument.
package tickerfile

import (
	"bufio"
	"os"
	"strings"
)

// Universe is an ordered, non-empty-trimmed ticker list.
type Universe []string

// Load reads path: UTF-8 text, one ticker per line, trailing empty line
// permitted.
func Load(path string) (Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out Universe
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CSV returns the comma-joined form consumed by the client's STREAM
// command.
func (u Universe) CSV() string {
	return strings.Join(u, ",")
}
