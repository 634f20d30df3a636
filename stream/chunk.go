package stream

import (
	"fmt"
	"net/url"
	"strings"
)

// MaxSymbolsPerConnection is the upstream limit on streams per socket.
const MaxSymbolsPerConnection = 512

// ChunkSymbols partitions symbols into groups of at most max, preserving
// order. len(symbols)==512 yields one group; 513 yields two (512 + 1).
func ChunkSymbols(symbols []string, max int) [][]string {
	if max <= 0 || len(symbols) == 0 {
		if len(symbols) == 0 {
			return nil
		}
		max = len(symbols)
	}
	groups := make([][]string, 0, (len(symbols)+max-1)/max)
	for len(symbols) > 0 {
		n := max
		if n > len(symbols) {
			n = len(symbols)
		}
		groups = append(groups, symbols[:n:n])
		symbols = symbols[n:]
	}
	return groups
}

// buildStreamURL renders the combined-stream URL for one connection's
// group: lowercase symbol names joined with '/', each suffixed
// "@bookTicker". The streams path uses
// literal slashes, not percent-encoded ones, so it is assembled by hand
// rather than through url.Values.Encode.
func buildStreamURL(base string, group []string) (string, error) {
	if len(group) == 0 {
		return "", fmt.Errorf("stream: empty symbol group")
	}
	if _, err := url.Parse(base); err != nil {
		return "", fmt.Errorf("stream: invalid base url %q: %w", base, err)
	}

	streams := make([]string, len(group))
	for i, s := range group {
		streams[i] = strings.ToLower(s) + "@bookTicker"
	}

	sep := "?streams="
	if strings.Contains(base, "?") {
		sep = "&streams="
	}
	return base + sep + strings.Join(streams, "/"), nil
}
