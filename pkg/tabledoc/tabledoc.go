// Package tabledoc locates, parses and rewrites one canonical pipe-delimited
// table embedded inside an otherwise arbitrary text document. Replace is the
// only sanctioned way to mutate a table: it collapses every structurally
// matching table (including accidental or legacy duplicates) into a single
// canonical one while preserving all surrounding content.
package tabledoc

import (
	"strings"
)

// Table is the signature of one embedded table: the ordered, lower-cased
// header cell names that identify it, the indexes of key columns whose
// emptiness marks a row as a template placeholder, and the section heading
// used when the table has to be appended to a document that lacks one.
type Table struct {
	Columns      []string
	KeyColumns   []int
	SectionTitle string
}

// Range is a located table within a document, in line indexes.
// End is exclusive. Ranges are transient; they are never persisted.
type Range struct {
	Start int
	End   int
}

const placeholder = "---"

// Locate finds every structurally matching table. A line matches the header
// when its first len(Columns) trimmed and lower-cased cells equal Columns in
// order. The range extends through the directly-following separator line and
// every subsequent line starting with the delimiter, stopping at the first
// blank line, heading, comment line, or line that is itself another header
// match.
func (t Table) Locate(doc string) []Range {
	lines := strings.Split(doc, "\n")
	var ranges []Range

	i := 0
	for i < len(lines) {
		if !t.headerMatch(lines[i]) {
			i++
			continue
		}
		j := i + 1
		if j < len(lines) && isSeparatorRow(lines[j]) {
			j++
		}
		for j < len(lines) {
			trimmed := strings.TrimSpace(lines[j])
			if trimmed == "" || isHeadingLine(trimmed) || isCommentLine(trimmed) {
				break
			}
			if !strings.HasPrefix(trimmed, "|") {
				break
			}
			if t.headerMatch(lines[j]) {
				break
			}
			j++
		}
		ranges = append(ranges, Range{Start: i, End: j})
		i = j
	}
	return ranges
}

// Rows parses the data rows of the first matching table into positional cell
// lists of exactly len(Columns) cells. Rows with fewer cells, and rows whose
// key cells are empty or "---", are skipped: they are template placeholders,
// not data.
func (t Table) Rows(doc string) [][]string {
	ranges := t.Locate(doc)
	if len(ranges) == 0 {
		return nil
	}

	lines := strings.Split(doc, "\n")
	var rows [][]string
	for i := ranges[0].Start + 1; i < ranges[0].End; i++ {
		if isSeparatorRow(lines[i]) {
			continue
		}
		cells := splitCells(lines[i])
		if len(cells) < len(t.Columns) {
			continue
		}
		for k := range cells {
			cells[k] = strings.TrimSpace(cells[k])
		}
		if t.isPlaceholderRow(cells) {
			continue
		}
		rows = append(rows, cells[:len(t.Columns)])
	}
	return rows
}

// Replace removes every located table and reinserts one canonical table at
// the position where the first removed table began. If no table existed, the
// canonical table is appended at document end under the section heading
// (the heading itself is only added when not already present, so repeated
// appends never duplicate the wrapper).
func (t Table) Replace(doc string, rows [][]string) string {
	ranges := t.Locate(doc)
	rendered := t.render(rows)

	if len(ranges) == 0 {
		return t.appendTable(doc, rendered)
	}

	lines := strings.Split(doc, "\n")
	insertAt := ranges[0].Start
	// Remove highest range first so earlier indices stay valid.
	for k := len(ranges) - 1; k >= 0; k-- {
		r := ranges[k]
		lines = append(lines[:r.Start:r.Start], lines[r.End:]...)
	}

	out := make([]string, 0, len(lines)+len(rendered))
	out = append(out, lines[:insertAt]...)
	out = append(out, rendered...)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}

func (t Table) headerMatch(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") {
		return false
	}
	cells := splitCells(line)
	if len(cells) < len(t.Columns) {
		return false
	}
	for i, want := range t.Columns {
		if strings.ToLower(strings.TrimSpace(cells[i])) != want {
			return false
		}
	}
	return true
}

func (t Table) isPlaceholderRow(cells []string) bool {
	for _, k := range t.KeyColumns {
		if k >= len(cells) {
			return true
		}
		if cells[k] == "" || cells[k] == placeholder {
			return true
		}
	}
	return false
}

func (t Table) render(rows [][]string) []string {
	header := make([]string, len(t.Columns))
	separator := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
		separator[i] = placeholder
	}

	out := make([]string, 0, len(rows)+2)
	out = append(out, renderRow(header), renderRow(separator))
	for _, row := range rows {
		cells := make([]string, len(t.Columns))
		for i := range t.Columns {
			if i < len(row) {
				cells[i] = escapeCell(row[i])
			}
		}
		out = append(out, renderRow(cells))
	}
	return out
}

func (t Table) appendTable(doc string, rendered []string) string {
	lines := []string{}
	if strings.TrimSpace(doc) != "" {
		lines = strings.Split(strings.TrimRight(doc, "\n"), "\n")
	}

	if t.SectionTitle != "" && !containsHeading(lines, "## "+t.SectionTitle) {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "## "+t.SectionTitle, "")
	} else if len(lines) > 0 {
		lines = append(lines, "")
	}
	lines = append(lines, rendered...)
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func containsHeading(lines []string, heading string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) == heading {
			return true
		}
	}
	return false
}

func isHeadingLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#")
}

func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "%%") || strings.HasPrefix(trimmed, "<!--")
}

// isSeparatorRow reports whether the line is a delimiter/dash-only row.
func isSeparatorRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") {
		return false
	}
	hasDash := false
	for _, r := range trimmed {
		switch r {
		case '|', ' ', '\t', ':':
		case '-':
			hasDash = true
		default:
			return false
		}
	}
	return hasDash
}

// splitCells splits a table line on unescaped pipes, dropping the outer
// delimiters. An escaped pipe (`\|`) stays part of the cell text.
func splitCells(line string) []string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")

	var cells []string
	var b strings.Builder
	escaped := false
	for _, r := range trimmed {
		switch {
		case escaped:
			if r != '|' {
				b.WriteRune('\\')
			}
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteRune('\\')
	}
	cells = append(cells, b.String())
	return cells
}

func escapeCell(cell string) string {
	cell = strings.ReplaceAll(cell, "\n", " ")
	return strings.ReplaceAll(cell, "|", "\\|")
}

func renderRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}
