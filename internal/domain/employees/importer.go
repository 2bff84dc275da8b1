package employees

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"hradmin/internal/domain/ctc"
	"hradmin/internal/domain/validation"
)

// Row is one import line keyed by normalized header name.
type Row struct {
	Number int
	Values map[string]string
}

type ImportRowError struct {
	Row          int    `json:"row"`
	EmployeeCode string `json:"employeeCode,omitempty"`
	Message      string `json:"message"`
}

type ImportResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors"`
}

var importDateLayouts = []string{"2006-01-02", "02 Jan 06", "02 Jan 2006", "02/01/2006"}

var firstNumber = regexp.MustCompile(`\d+`)

// ReadRows decodes an uploaded CSV or XLSX file. The first row is the header;
// headers are matched case-insensitively with spaces read as underscores.
func ReadRows(r io.Reader, filename string) ([]Row, error) {
	var records [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		records, err = reader.ReadAll()
	case ".xlsx":
		records, err = readSheet(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyImport
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = normalizeHeader(h)
	}
	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		values := make(map[string]string, len(headers))
		for col, header := range headers {
			if header == "" || col >= len(record) {
				continue
			}
			values[header] = strings.TrimSpace(record[col])
		}
		rows = append(rows, Row{Number: i + 2, Values: values})
	}
	return rows, nil
}

func readSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_", "'", "", "(", "", ")", "").Replace(h)
}

// Import upserts each row by employee code. Rows that fail validation are
// reported and skipped; a storage failure stops the import.
func (s *Service) Import(ctx context.Context, rows []Row) (ImportResult, error) {
	result := ImportResult{Errors: []ImportRowError{}}
	for _, row := range rows {
		if blank(row.Values) {
			result.Skipped++
			continue
		}
		code := row.Values["employee_code"]
		input, err := inputFromRow(row.Values)
		if err == nil && code == "" {
			err = ErrCodeRequired
		}
		var employee Employee
		if err == nil {
			employee, err = s.prepare(input)
		}
		if err == nil {
			var created bool
			_, created, err = s.store.UpsertByCode(ctx, employee)
			if err == nil {
				if created {
					result.Created++
				} else {
					result.Updated++
				}
				continue
			}
		}

		if !isRowError(err) {
			return result, fmt.Errorf("import row %d: %w", row.Number, err)
		}
		result.Errors = append(result.Errors, ImportRowError{Row: row.Number, EmployeeCode: code, Message: err.Error()})
	}
	return result, nil
}

type dateError struct {
	field string
	value string
}

func (e *dateError) Error() string {
	return fmt.Sprintf("%s: unrecognized date %q", e.field, e.value)
}

func isRowError(err error) bool {
	if _, ok := validation.Fields(err); ok {
		return true
	}
	var de *dateError
	return errors.As(err, &de) || errors.Is(err, ErrCodeRequired)
}

func blank(values map[string]string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}

// inputFromRow maps an import row. Amounts may carry thousands separators;
// anything else unparsable is zero. The contract period takes the first
// number in the cell, so "12 months" reads as 12.
func inputFromRow(values map[string]string) (Input, error) {
	in := Input{Profile: Profile{
		EmployeeCode:     values["employee_code"],
		FullName:         values["full_name"],
		OfficialEmail:    values["official_email"],
		PersonalEmail:    values["personal_email"],
		Mobile:           values["mobile"],
		Gender:           values["gender"],
		Department:       values["department"],
		Designation:      values["designation"],
		Location:         values["location"],
		EmployeeCategory: values["employee_category"],
		ExitStatus:       values["exit_status"],
	}}

	dates := []struct {
		key string
		dst **time.Time
	}{
		{"joining_date", &in.JoiningDate},
		{"sal_applicable_from", &in.SalApplicableFrom},
		{"revision_due_date", &in.RevisionDueDate},
	}
	for _, d := range dates {
		parsed, err := parseImportDate(d.key, values[d.key])
		if err != nil {
			return Input{}, err
		}
		*d.dst = parsed
	}

	record := make(map[string]string, len(ctc.PayrollFields))
	for _, field := range ctc.PayrollFields {
		record[field.Key] = strings.ReplaceAll(values[field.Key], ",", "")
	}
	in.Salary = ctc.PayrollInputsFromRecord(record)
	if match := firstNumber.FindString(values[ctc.FieldContractPeriodMonths]); match != "" {
		if months, err := strconv.Atoi(match); err == nil {
			in.Salary.ContractPeriodMonths = months
		}
	}
	return in, nil
}

func parseImportDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, &dateError{field: field, value: raw}
}
