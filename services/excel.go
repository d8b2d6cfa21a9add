package services

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WriteSheet renders one worksheet with a bold header row and returns the
// XLSX bytes.
func WriteSheet(sheet string, header []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return nil, err
		}
	}
	if len(header) > 0 {
		lastCol, _ := excelize.ColumnNumberToName(len(header))
		_ = f.SetColWidth(sheet, "A", lastCol, 18)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadSheet returns the rows of the first worksheet.
func ReadSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sht := f.GetSheetName(0)
	if sht == "" {
		sht = "Sheet1"
	}
	return f.GetRows(sht)
}

func buildColumnIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if _, dup := m[key]; !dup {
			m[key] = i
		}
	}
	return m
}

func cellAt(row []string, idx map[string]int, key string) string {
	i, ok := idx[key]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// QuestionInput is a question as written by staff, before it is stored.
type QuestionInput struct {
	QuestionType  string   `json:"question_type" validate:"question_type"`
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
	Subject       string   `json:"subject"`
	Points        int      `json:"points" validate:"min=0,max=100"`
	Order         int      `json:"order"`
}

// RowError points at a spreadsheet row that could not be imported.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

var optionColumns = []string{"option_a", "option_b", "option_c", "option_d"}

// ParseQuestionRows reads question, option A-D, correct, subject and points
// columns. Header names are case-insensitive. A correct answer given as a
// letter A-D is resolved to that option's text.
func ParseQuestionRows(rows [][]string) ([]QuestionInput, []RowError) {
	if len(rows) == 0 {
		return nil, []RowError{{Row: 1, Error: "empty sheet"}}
	}
	idx := buildColumnIndex(rows[0])
	if _, ok := idx["question"]; !ok {
		return nil, []RowError{{Row: 1, Error: "missing question column"}}
	}
	correctKey := "correct"
	if _, ok := idx[correctKey]; !ok {
		correctKey = "correct_answer"
	}

	var out []QuestionInput
	var errs []RowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		text := cellAt(row, idx, "question")
		if text == "" {
			continue
		}
		q := QuestionInput{
			QuestionType: "multiple_choice",
			Question:     text,
			Subject:      cellAt(row, idx, "subject"),
			Points:       1,
			Order:        len(out) + 1,
		}
		for _, col := range optionColumns {
			if v := cellAt(row, idx, col); v != "" {
				q.Options = append(q.Options, v)
			}
		}
		correct := cellAt(row, idx, correctKey)
		if len(correct) == 1 {
			if n := strings.IndexByte("ABCD", strings.ToUpper(correct)[0]); n >= 0 {
				v := cellAt(row, idx, optionColumns[n])
				if v == "" {
					errs = append(errs, RowError{Row: rowNum, Error: fmt.Sprintf("option %s is empty", correct)})
					continue
				}
				correct = v
			}
		}
		if correct == "" {
			errs = append(errs, RowError{Row: rowNum, Error: "missing correct answer"})
			continue
		}
		q.CorrectAnswer = correct
		if p := cellAt(row, idx, "points"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				errs = append(errs, RowError{Row: rowNum, Error: "points must be a non-negative number"})
				continue
			}
			q.Points = n
		}
		out = append(out, q)
	}
	return out, errs
}
