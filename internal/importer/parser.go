package importer

// parser.go turns raw CSV file text into couple import rows.
//
// The parser is deliberately tolerant: the header line is discarded, blank
// lines are skipped, and malformed lines are best-effort split rather than
// rejected. Field content is never validated here; bad emails or dates
// travel on to the backend, which is the source of truth for acceptance.

import (
	"strings"

	"github.com/nuptia/admin/internal/couple"
)

// ParseRows parses full CSV file contents into ordered import rows.
// The first line is treated as the header and discarded. Lines that are
// empty or whitespace-only after trimming are skipped.
func ParseRows(text string) []couple.ImportRow {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 {
		lines = lines[1:] // header
	}

	rows := make([]couple.ImportRow, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, couple.FromFields(splitLine(line)))
	}

	return rows
}

// splitLine splits one CSV line on commas that are not inside a matched pair
// of double quotes. Each field then has a single surrounding quote pair
// stripped and whitespace trimmed.
//
// A line with stray commas in unquoted text will mis-split. That matches the
// documented file format: only quoted fields may contain commas.
func splitLine(line string) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case r == ',' && !inQuotes:
			fields = append(fields, cleanField(b.String()))
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	fields = append(fields, cleanField(b.String()))

	return fields
}

// cleanField trims a raw field and strips one leading and trailing double
// quote if both are present.
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
