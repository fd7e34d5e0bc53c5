package statement

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"
)

func WriteXLSX(w io.Writer, st *Statement) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Statement")
	if err != nil {
		return fmt.Errorf("add statement sheet: %w", err)
	}

	row := sheet.AddRow()
	for _, title := range []string{"Date", "Reference", "Type", "Description", "Debit", "Credit", "Balance"} {
		row.AddCell().SetValue(title)
	}

	for _, l := range st.Lines {
		row = sheet.AddRow()
		row.AddCell().SetValue(l.Date.Format(dateLayout))
		row.AddCell().SetValue(l.Reference)
		row.AddCell().SetValue(string(l.Type))
		row.AddCell().SetValue(l.Description)
		row.AddCell().SetValue(l.Debit.StringFixed(2))
		row.AddCell().SetValue(l.Credit.StringFixed(2))
		row.AddCell().SetValue(l.Balance.StringFixed(2))
	}

	row = sheet.AddRow()
	row.AddCell().SetValue("Totals")
	for i := 0; i < 3; i++ {
		row.AddCell()
	}
	row.AddCell().SetValue(st.TotalDebit.StringFixed(2))
	row.AddCell().SetValue(st.TotalCredit.StringFixed(2))

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write statement xlsx: %w", err)
	}
	return nil
}
