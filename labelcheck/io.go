package labelcheck

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// InputParseOptions allows callers to choose which CSV columns map to
// example fields and how ids are generated.
type InputParseOptions struct {
	IDColumn    string
	TitleColumn string
	BodyColumn  string
	TextColumn  string
	LabelColumn string

	// IDPrefix is prepended to generated ids. ParseExampleFile defaults it
	// to the file's base name followed by "-".
	IDPrefix string
	IDScheme IDScheme
	// LabelSeparator splits a label cell into several assigned labels.
	LabelSeparator string
}

// InputFileMetadata provides header information and automatic column suggestions.
type InputFileMetadata struct {
	Columns   []string
	Suggested InputParseOptions
}

// SplitLines creates one example per non-blank line of text. The id is the
// prefix followed by the zero-based line number, so ids survive edits to
// other lines' content.
func SplitLines(text, idPrefix string) []Example {
	return splitLines(text, InputParseOptions{IDPrefix: idPrefix, IDScheme: IDSchemeIndex})
}

func splitLines(text string, opts InputParseOptions) []Example {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []Example
	for i, line := range strings.Split(text, "\n") {
		line = cleanCell(line)
		if line == "" {
			continue
		}
		out = append(out, Example{ID: makeID(opts, i, line), Text: line})
	}
	return out
}

// ParseExampleFile reads examples from a CSV, TSV or plain text file.
func ParseExampleFile(path string, opts InputParseOptions) ([]Example, error) {
	if opts.IDPrefix == "" {
		base := filepath.Base(path)
		opts.IDPrefix = strings.TrimSuffix(base, filepath.Ext(base)) + "-"
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	examples, err := ParseExamples(f, formatForPath(path), opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return examples, nil
}

// ParseExamples reads examples from r. format is "csv", "tsv" or "text".
func ParseExamples(r io.Reader, format string, opts InputParseOptions) ([]Example, error) {
	if opts.IDScheme == "" {
		opts.IDScheme = IDSchemeIndex
	}
	if opts.LabelSeparator == "" {
		opts.LabelSeparator = "|"
	}
	switch format {
	case "csv":
		return parseDelimitedExamples(r, ',', opts)
	case "tsv":
		return parseDelimitedExamples(r, '\t', opts)
	default:
		data, err := io.ReadAll(bufio.NewReader(r))
		if err != nil {
			return nil, err
		}
		return splitLines(string(data), opts), nil
	}
}

func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	case ".tsv":
		return "tsv"
	default:
		return "text"
	}
}

func parseDelimitedExamples(r io.Reader, comma rune, opts InputParseOptions) ([]Example, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}
	resolved, skipHeader, err := resolveInputColumns(header, opts)
	if err != nil {
		return nil, err
	}
	start := 0
	if skipHeader {
		start = 1
	}
	examples := make([]Example, 0, len(rows)-start)
	for n, row := range rows[start:] {
		title := cellAt(row, resolved.Title.Index)
		body := cellAt(row, resolved.Body.Index)
		text := cellAt(row, resolved.Text.Index)
		if body == "" {
			body = text
		}
		combined := combineParts(title, body)
		if combined == "" {
			continue
		}
		id := cellAt(row, resolved.ID.Index)
		if id == "" {
			id = makeID(opts, n, combined)
		}
		examples = append(examples, Example{
			ID:             id,
			Text:           combined,
			AssignedLabels: splitLabels(cellAt(row, resolved.Label.Index), opts.LabelSeparator),
		})
	}
	return examples, nil
}

func splitLabels(cell, sep string) []Label {
	if cell == "" {
		return nil
	}
	var out []Label
	seen := make(map[string]struct{})
	for _, part := range strings.Split(cell, sep) {
		id := NormalizeLabel(part)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Label{ID: id, Score: 1})
	}
	return out
}

func makeID(opts InputParseOptions, n int, text string) string {
	if opts.IDScheme == IDSchemeUUID {
		name := opts.IDPrefix + "\x00" + strconv.Itoa(n) + "\x00" + text
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
	}
	return opts.IDPrefix + strconv.Itoa(n)
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return cleanCell(row[idx])
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		for _, cand := range candidates {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}

func combineParts(title, body string) string {
	var parts []string
	if title != "" {
		parts = append(parts, title)
	}
	if body != "" && body != title {
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n")
}

type columnResult struct {
	Index      int
	FromHeader bool
	HeaderName string
}

type resolvedColumns struct {
	ID    columnResult
	Title columnResult
	Body  columnResult
	Text  columnResult
	Label columnResult
}

func resolveInputColumns(header []string, opts InputParseOptions) (resolvedColumns, bool, error) {
	res := resolvedColumns{
		ID:    columnResult{Index: -1},
		Title: columnResult{Index: -1},
		Body:  columnResult{Index: -1},
		Text:  columnResult{Index: -1},
		Label: columnResult{Index: -1},
	}
	var err error
	candidates := getColumnCandidates()
	if res.ID, err = pickColumn(header, opts.IDColumn, candidates.ID); err != nil {
		return res, false, err
	}
	if res.Title, err = pickColumn(header, opts.TitleColumn, candidates.Title); err != nil {
		return res, false, err
	}
	if res.Body, err = pickColumn(header, opts.BodyColumn, candidates.Body); err != nil {
		return res, false, err
	}
	if res.Text, err = pickColumn(header, opts.TextColumn, candidates.Text); err != nil {
		return res, false, err
	}
	if res.Label, err = pickColumn(header, opts.LabelColumn, candidates.Label); err != nil {
		return res, false, err
	}
	skipHeader := res.ID.FromHeader || res.Title.FromHeader || res.Body.FromHeader ||
		res.Text.FromHeader || res.Label.FromHeader
	if !skipHeader && res.Text.Index < 0 && len(header) > 0 {
		// Headerless file: first column is text, second (if any) the label.
		res.Text.Index = 0
		if res.Label.Index < 0 && len(header) > 1 {
			res.Label.Index = 1
		}
	}
	for _, c := range []*columnResult{&res.ID, &res.Title, &res.Body, &res.Text, &res.Label} {
		c.HeaderName = headerNameForIndex(header, c.Index, c.FromHeader)
	}
	return res, skipHeader, nil
}

func pickColumn(header []string, explicit string, candidates []string) (columnResult, error) {
	res := columnResult{Index: -1}
	if strings.TrimSpace(explicit) != "" {
		idx, fromHeader, err := matchExplicitColumn(header, explicit)
		if err != nil {
			return res, err
		}
		res.Index = idx
		res.FromHeader = fromHeader
		return res, nil
	}
	idx := findColumn(header, candidates)
	if idx >= 0 {
		res.Index = idx
		res.FromHeader = true
	}
	return res, nil
}

func matchExplicitColumn(header []string, explicit string) (int, bool, error) {
	trimmed := strings.TrimSpace(explicit)
	if trimmed == "" {
		return -1, false, nil
	}
	for i, col := range header {
		if strings.EqualFold(col, trimmed) {
			return i, true, nil
		}
	}
	if strings.HasPrefix(trimmed, "#") {
		idx, err := parseColumnIndex(trimmed)
		if err != nil {
			return -1, false, err
		}
		if idx >= len(header) {
			return -1, false, fmt.Errorf("column index %s is out of range", trimmed)
		}
		return idx, false, nil
	}
	return -1, false, fmt.Errorf("column %q not found", explicit)
}

func parseColumnIndex(token string) (int, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(token, "#"))
	if trimmed == "" {
		return -1, fmt.Errorf("invalid column index %q", token)
	}
	idx, err := strconv.Atoi(trimmed)
	if err != nil {
		return -1, fmt.Errorf("invalid column index %q", token)
	}
	if idx <= 0 {
		return -1, fmt.Errorf("column indices are 1-based: %q", token)
	}
	return idx - 1, nil
}

func headerNameForIndex(header []string, idx int, fromHeader bool) string {
	if idx < 0 {
		return ""
	}
	if fromHeader && idx < len(header) {
		if name := header[idx]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("#%d", idx+1)
}

// ReadInputFileMetadata returns header information and automatic suggestions for structured files.
func ReadInputFileMetadata(path string) (InputFileMetadata, error) {
	meta := InputFileMetadata{}
	format := formatForPath(path)
	if format == "text" {
		return meta, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return meta, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	if format == "tsv" {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	row, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return meta, nil
		}
		return meta, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	header := make([]string, len(row))
	for i, cell := range row {
		header[i] = cleanCell(cell)
	}
	meta.Columns = header
	resolved, _, err := resolveInputColumns(header, InputParseOptions{})
	if err == nil {
		meta.Suggested = InputParseOptions{
			IDColumn:    resolved.ID.HeaderName,
			TitleColumn: resolved.Title.HeaderName,
			BodyColumn:  resolved.Body.HeaderName,
			TextColumn:  resolved.Text.HeaderName,
			LabelColumn: resolved.Label.HeaderName,
		}
	}
	return meta, nil
}
