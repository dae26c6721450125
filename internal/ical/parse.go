package ical

import "strings"

// UnfoldLines unfolds folded lines without pulling in a full parser.
func UnfoldLines(doc string) []string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	doc = strings.ReplaceAll(doc, "\r", "\n")
	rawLines := strings.Split(doc, "\n")
	var lines []string
	for _, line := range rawLines {
		if len(lines) > 0 && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			lines[len(lines)-1] += strings.TrimLeft(line, " \t")
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Property returns the raw (still escaped) value of the first property named
// prop, ignoring any parameters. The second result reports whether it exists.
func Property(doc, prop string) (string, bool) {
	for _, line := range UnfoldLines(doc) {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if i := strings.IndexByte(name, ';'); i >= 0 {
			name = name[:i]
		}
		if strings.EqualFold(name, prop) {
			return value, true
		}
	}
	return "", false
}

// Text returns the unescaped value of a TEXT property such as SUMMARY.
func Text(doc, prop string) string {
	v, _ := Property(doc, prop)
	return UnescapeValue(v)
}
