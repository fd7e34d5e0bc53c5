package statement

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const dateLayout = "2006-01-02 15:04"

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 30, "L"},
	{"Reference", 50, "L"},
	{"Type", 22, "L"},
	{"Debit", 28, "R"},
	{"Credit", 28, "R"},
	{"Balance", 32, "R"},
}

func WritePDF(w io.Writer, st *Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Account statement "+st.Account.AccountNumber, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Account Statement")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("%s  |  %s  |  IBAN %s", st.Account.Title, st.Account.AccountNumber, st.Account.IBAN))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Period %s to %s  |  Currency %s",
		st.From.Format("2006-01-02"), st.To.Format("2006-01-02"), st.Account.Currency))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, false, 0, "")
	}
	pdf.Ln(7)

	pdf.SetFont("Arial", "", 9)
	for _, l := range st.Lines {
		values := []string{
			l.Date.Format(dateLayout),
			l.Reference,
			string(l.Type),
			amountOrBlank(l.Debit.StringFixed(2), l.Debit.IsZero()),
			amountOrBlank(l.Credit.StringFixed(2), l.Credit.IsZero()),
			l.Balance.StringFixed(2),
		}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, values[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(6)
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(102, 7, "Totals", "1", 0, "L", false, 0, "")
	pdf.CellFormat(28, 7, st.TotalDebit.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(28, 7, st.TotalCredit.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(32, 7, "", "1", 0, "R", false, 0, "")
	pdf.Ln(7)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write statement pdf: %w", err)
	}
	return nil
}

func amountOrBlank(s string, blank bool) string {
	if blank {
		return ""
	}
	return s
}
