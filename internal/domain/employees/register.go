package employees

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"hradmin/internal/domain/ctc"
)

const registerSheet = "Salary Register"

type registerColumn struct {
	header string
	width  float64
	amount bool
	value  func(e Employee) any
}

func amountColumn(header string, get func(e Employee) decimal.Decimal) registerColumn {
	return registerColumn{header: header, width: 16, amount: true, value: func(e Employee) any {
		return get(e).InexactFloat64()
	}}
}

func registerColumns() []registerColumn {
	cols := []registerColumn{
		{header: "Employee Code", width: 14, value: func(e Employee) any { return e.EmployeeCode }},
		{header: "Full Name", width: 28, value: func(e Employee) any { return e.FullName }},
		{header: "Department", width: 18, value: func(e Employee) any { return e.Department }},
		{header: "Designation", width: 22, value: func(e Employee) any { return e.Designation }},
		{header: "Category", width: 14, value: func(e Employee) any { return e.EmployeeCategory }},
		{header: "Joining Date", width: 12, value: func(e Employee) any {
			if e.JoiningDate == nil {
				return ""
			}
			return e.JoiningDate.Format("2006-01-02")
		}},
		{header: "Exit Status", width: 12, value: func(e Employee) any { return e.ExitStatus }},
	}
	for _, field := range ctc.PayrollFields {
		cols = append(cols, amountColumn(field.Label, func(e Employee) decimal.Decimal { return field.Get(e.Salary) }))
	}
	return append(cols,
		registerColumn{header: "Contract Period (Months)", width: 12, value: func(e Employee) any { return e.Salary.ContractPeriodMonths }},
		amountColumn("Gross Monthly", func(e Employee) decimal.Decimal { return e.Derived.GrossMonthly }),
		amountColumn("Monthly CTC", func(e Employee) decimal.Decimal { return e.Derived.MonthlyCTC }),
		amountColumn("Gratuity", func(e Employee) decimal.Decimal { return e.Derived.Gratuity }),
		amountColumn("Annual CTC", func(e Employee) decimal.Decimal { return e.Derived.AnnualCTC }),
		amountColumn("Equivalent Monthly CTC", func(e Employee) decimal.Decimal { return e.Derived.EquivalentMonthlyCTC }),
	)
}

// WriteRegister writes the salary register workbook: one row per employee
// with every input and derived amount.
func WriteRegister(w io.Writer, employees []Employee) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", registerSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}

	cols := registerColumns()
	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(registerSheet, cell, col.header); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(registerSheet, name, name, col.width); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := f.SetCellStyle(registerSheet, "A1", last, bold); err != nil {
		return err
	}

	for r, e := range employees {
		for c, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(registerSheet, cell, col.value(e)); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}
	if len(employees) > 0 {
		for c, col := range cols {
			if !col.amount {
				continue
			}
			top, _ := excelize.CoordinatesToCellName(c+1, 2)
			bottom, _ := excelize.CoordinatesToCellName(c+1, len(employees)+1)
			if err := f.SetCellStyle(registerSheet, top, bottom, amount); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
