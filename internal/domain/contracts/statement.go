package contracts

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"hradmin/internal/domain/ctc"
)

type StatementLine struct {
	Code     string
	Name     string
	Category string
	Monthly  decimal.Decimal
	Annual   decimal.Decimal
}

// Statement is the employee-facing CTC letter for one contract.
type Statement struct {
	CompanyName string
	Employee    EmployeeSummary
	Contract    Contract
	Lines       []StatementLine
	GeneratedAt time.Time
}

func (st Statement) Totals() (monthly, annual decimal.Decimal) {
	for _, line := range st.Lines {
		monthly = monthly.Add(line.Monthly)
		annual = annual.Add(line.Annual)
	}
	return monthly, annual
}

var twelve = decimal.NewFromInt(12)

// Statement assembles the printable lines of a contract: breakdown entries
// whose component is marked show-in-documents, in breakdown order. Annual
// components are spread over twelve months, monthly ones multiplied up.
func (s *Service) Statement(ctx context.Context, id, companyName string) (Statement, error) {
	contract, err := s.store.GetContract(ctx, id)
	if err != nil {
		return Statement{}, err
	}
	employee, err := s.store.EmployeeSummary(ctx, contract.EmployeeID)
	if err != nil {
		return Statement{}, err
	}
	components, err := s.components.List(ctx, true)
	if err != nil {
		return Statement{}, err
	}
	byCode := make(map[string]ctc.Component, len(components))
	for _, c := range components {
		byCode[c.Code] = c
	}

	st := Statement{
		CompanyName: companyName,
		Employee:    employee,
		Contract:    contract,
		GeneratedAt: time.Now().UTC(),
	}
	for _, line := range contract.Breakdown {
		component, ok := byCode[line.Code]
		if !ok || !component.ShowInDocuments {
			continue
		}
		entry := StatementLine{Code: line.Code, Name: component.Name, Category: component.Category}
		if component.IsAnnual {
			entry.Annual = line.Amount
			entry.Monthly = ctc.RoundAmount(line.Amount.Div(twelve))
		} else {
			entry.Monthly = line.Amount
			entry.Annual = ctc.RoundAmount(line.Amount.Mul(twelve))
		}
		st.Lines = append(st.Lines, entry)
	}
	return st, nil
}

// RenderStatementPDF writes st as a one-page A4 PDF.
func RenderStatementPDF(w io.Writer, st Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("CTC Statement", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, st.CompanyName)
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Cost to Company Statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	name := st.Employee.FullName
	if st.Employee.EmployeeCode != "" {
		name = fmt.Sprintf("%s (%s)", name, st.Employee.EmployeeCode)
	}
	details := [][2]string{
		{"Employee", name},
		{"Designation", st.Employee.Designation},
		{"Contract type", st.Contract.ContractType},
		{"Effective from", st.Contract.EffectiveFrom.Format("2006-01-02")},
		{"Total annual CTC", st.Contract.TotalAnnualCTC.StringFixed(ctc.AmountScale)},
	}
	if st.Contract.EndDate != nil {
		details = append(details, [2]string{"End date", st.Contract.EndDate.Format("2006-01-02")})
	}
	if !st.Contract.EquivalentMonthlyCTC.IsZero() {
		details = append(details, [2]string{"Equivalent monthly CTC", st.Contract.EquivalentMonthlyCTC.StringFixed(ctc.AmountScale)})
	}
	for _, d := range details {
		pdf.CellFormat(50, 7, d[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, d[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	widths := []float64{80, 40, 35, 35}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range []string{"Component", "Category", "Monthly", "Annual"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, header, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range st.Lines {
		pdf.CellFormat(widths[0], 7, line.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, line.Category, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, line.Monthly.StringFixed(ctc.AmountScale), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, line.Annual.StringFixed(ctc.AmountScale), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	monthly, annual := st.Totals()
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(widths[0]+widths[1], 8, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(widths[2], 8, monthly.StringFixed(ctc.AmountScale), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, annual.StringFixed(ctc.AmountScale), "1", 0, "R", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Generated "+st.GeneratedAt.Format(time.RFC1123))

	return pdf.Output(w)
}
