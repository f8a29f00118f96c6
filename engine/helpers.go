package engine

import "strings"

// splitLines splits on newlines, trimming trailing carriage returns.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		out = append(out, strings.TrimRight(line, "\r"))
	}
	return out
}

// trimListMarker strips common bullet/numbering prefixes and
// surrounding whitespace from one line of the Manager's subsystem
// list, e.g. "- scheduler", "1. scheduler", "* scheduler".
func trimListMarker(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "-")
	line = strings.TrimPrefix(line, "*")
	line = strings.TrimSpace(line)
	for i, r := range line {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' || r == ')' {
			line = line[i+1:]
		}
		break
	}
	return strings.ToLower(strings.TrimSpace(line))
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
