package covergen

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Reserved batch columns, matched case-insensitively after header cleaning.
const (
	colTemplateKey = "template_key"
	colOutputName  = "output_name"
	colBackground  = "background_path"

	textColumnPrefix  = "text."
	slotColumnPrefix  = "slot."
	colorColumnSuffix = ".color"
)

// legacyColumns are pre-keyed schema columns that are no longer supported.
var legacyColumns = map[string]bool{
	"title":       true,
	"subtitle":    true,
	"background":  true,
	"screenshots": true,
	"screenshot":  true,
	"template":    true,
	"layout":      true,
	"layout_key":  true,
	"output":      true,
}

// cleanHeaderCell strips surrounding whitespace plus the BOM and zero-width
// characters that spreadsheet exports inject into header cells.
func cleanHeaderCell(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimLeft(s, "\ufeff\u200b\u200c\u200d\u2060")
}

// validateBatchHeader checks the header row for the required reserved
// columns and rejects legacy or unknown column names. The text./slot. prefix
// match is case-insensitive; key validity against a template is checked per
// row, since the template key itself is a row value.
func validateBatchHeader(header []string) error {
	cols := map[string]bool{}
	for _, cell := range header {
		c := strings.ToLower(cleanHeaderCell(cell))
		if c != "" {
			cols[c] = true
		}
	}

	var problems []string
	var missing []string
	for _, required := range []string{colTemplateKey, colOutputName} {
		if !cols[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		problems = append(problems, "missing required columns: "+strings.Join(missing, ", "))
	}

	var legacy, unknown []string
	for c := range cols {
		switch {
		case legacyColumns[c]:
			legacy = append(legacy, c)
		case c == colTemplateKey || c == colOutputName || c == colBackground:
		case strings.HasPrefix(c, textColumnPrefix) || strings.HasPrefix(c, slotColumnPrefix):
		default:
			unknown = append(unknown, c)
		}
	}
	if len(legacy) > 0 {
		sort.Strings(legacy)
		problems = append(problems, "legacy columns are no longer supported: "+strings.Join(legacy, ", "))
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		problems = append(problems, "unknown columns: "+strings.Join(unknown, ", "))
	}

	if len(problems) > 0 {
		return fmt.Errorf("csv header: %s", strings.Join(problems, "; "))
	}
	return nil
}

// parseRenderInputRow maps one CSV record onto a RenderInput. Reserved
// columns match case-insensitively; text./slot. column keys keep their exact
// case — validation against the template's keys happens in checkInputKeys.
func parseRenderInputRow(header, record []string) (*RenderInput, error) {
	in := &RenderInput{
		Texts:      map[string]string{},
		TextColors: map[string]string{},
		SlotPaths:  map[string]string{},
	}

	for i, cell := range header {
		if i >= len(record) {
			break
		}
		col := cleanHeaderCell(cell)
		if col == "" {
			continue
		}
		value := strings.TrimSpace(record[i])
		low := strings.ToLower(col)

		switch {
		case low == colTemplateKey:
			in.TemplateKey = value
		case low == colOutputName:
			in.OutputName = value
		case low == colBackground:
			in.BackgroundPath = value
		case strings.HasPrefix(low, textColumnPrefix):
			// The prefix and .color suffix match any case, but the key
			// segment stays exact: "Text.title.Color" maps to key "title",
			// while a title-cased "Text.Title" yields key "Title" and is
			// rejected against the template in checkInputKeys.
			key := strings.TrimSpace(col[len(textColumnPrefix):])
			if key == "" {
				continue
			}
			if strings.HasSuffix(strings.ToLower(key), colorColumnSuffix) {
				in.TextColors[key[:len(key)-len(colorColumnSuffix)]] = value
			} else {
				in.Texts[key] = value
			}
		case strings.HasPrefix(low, slotColumnPrefix):
			if key := strings.TrimSpace(col[len(slotColumnPrefix):]); key != "" {
				in.SlotPaths[key] = value
			}
		}
	}

	if in.TemplateKey == "" {
		return nil, fmt.Errorf("missing or empty %s", colTemplateKey)
	}
	if in.OutputName == "" {
		return nil, fmt.Errorf("missing or empty %s", colOutputName)
	}
	return in, nil
}

// checkInputKeys drops text/slot entries whose keys the template does not
// declare (key match is case-sensitive) and reports them.
func checkInputKeys(in *RenderInput, t *TemplateDefinition) error {
	textKeys := map[string]bool{}
	for _, b := range t.Texts {
		textKeys[b.Key] = true
	}
	slotKeys := map[string]bool{}
	for _, s := range t.Slots {
		slotKeys[s.Key] = true
	}

	var unknown []string
	for key := range in.Texts {
		if !textKeys[key] {
			unknown = append(unknown, textColumnPrefix+key)
			delete(in.Texts, key)
		}
	}
	for key := range in.TextColors {
		if !textKeys[key] {
			unknown = append(unknown, textColumnPrefix+key+colorColumnSuffix)
			delete(in.TextColors, key)
		}
	}
	for key := range in.SlotPaths {
		if !slotKeys[key] {
			unknown = append(unknown, slotColumnPrefix+key)
			delete(in.SlotPaths, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("template %q: unknown columns: %s", t.Key, strings.Join(unknown, ", "))
}

// RowError records a per-row batch failure.
type RowError struct {
	Row int // 1-based data row number, excluding the header
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// BatchReport accumulates the outcome of a batch run. Row failures never
// abort the batch; only a template-load or header failure does, before any
// row runs.
type BatchReport struct {
	Total    int
	Rendered int
	Outputs  []string
	Errors   []RowError
}

// BatchRunner renders one CSV batch: each row maps to a RenderInput and one
// PNG in OutputDir. Rows are independent of each other except for output
// filename collisions, which skip the later row.
type BatchRunner struct {
	Registry  *TemplateRegistry
	Engine    *Engine
	OutputDir string
}

// Run reads a CSV batch (UTF-8, with or without a BOM) and renders every row.
// The returned error is non-nil only for fatal problems: unreadable CSV or an
// invalid header. Per-row failures land in the report.
func (b *BatchRunner) Run(r io.Reader) (*BatchReport, error) {
	engine := b.Engine
	if engine == nil {
		engine = NewEngine()
	}

	cr := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if err := validateBatchHeader(header); err != nil {
		return nil, err
	}

	report := &BatchReport{}
	seen := map[string]int{}
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Total++
			report.Errors = append(report.Errors, RowError{Row: row, Err: err})
			continue
		}
		report.Total++

		in, err := parseRenderInputRow(header, record)
		if err != nil {
			report.Errors = append(report.Errors, RowError{Row: row, Err: err})
			continue
		}

		template, ok := b.Registry.Get(in.TemplateKey)
		if !ok {
			report.Errors = append(report.Errors, RowError{Row: row, Err: fmt.Errorf("unknown template %q", in.TemplateKey)})
			continue
		}

		if err := checkInputKeys(in, template); err != nil {
			// Unknown columns are reported; the row still renders without them.
			report.Errors = append(report.Errors, RowError{Row: row, Err: err})
		}

		if prev, dup := seen[in.OutputName]; dup {
			report.Errors = append(report.Errors, RowError{
				Row: row,
				Err: fmt.Errorf("%w: %q already produced by row %d", ErrOutputCollision, in.OutputName, prev),
			})
			continue
		}

		path, err := engine.RenderToFile(in, template, filepath.Join(b.OutputDir, in.OutputName))
		if err != nil {
			report.Errors = append(report.Errors, RowError{Row: row, Err: err})
		}
		if path != "" {
			// The name is owned only once a file exists; a row that failed
			// before writing must not block a later row from the name.
			seen[in.OutputName] = row
			report.Rendered++
			report.Outputs = append(report.Outputs, path)
		}
	}
	return report, nil
}

// CSVHeader returns the batch column list for a template, in deterministic
// template order: reserved columns, then text.<key> and text.<key>.color
// pairs, then slot.<key> columns.
func CSVHeader(t *TemplateDefinition) []string {
	header := []string{colTemplateKey, colOutputName, colBackground}
	for _, block := range t.Texts {
		header = append(header, textColumnPrefix+block.Key, textColumnPrefix+block.Key+colorColumnSuffix)
	}
	for _, slot := range t.Slots {
		header = append(header, slotColumnPrefix+slot.Key)
	}
	return header
}
