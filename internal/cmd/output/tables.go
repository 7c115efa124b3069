package output

import (
	"io"
	"strconv"

	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/reconciler"
	"github.com/agentstation/bomsync/pkg/upload"
)

// IsTable reports whether format renders as a table.
func IsTable(format Format) bool {
	return format == FormatTable || format == FormatWide || format == ""
}

// Render writes table for table formats and data otherwise.
func Render(w io.Writer, format Format, data any, table func(wide bool) Data) error {
	if IsTable(format) {
		return Write(w, format, table(format == FormatWide))
	}
	return Write(w, format, data)
}

// SummaryData renders the per-part results of a run.
func SummaryData(s *upload.Summary, wide bool) Data {
	headers := []string{"Part", "Ordering Code", "Qty", "Status", "Attempts"}
	align := []Align{AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignRight}
	if wide {
		headers = append(headers, "Error", "Message")
		align = append(align, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		row := []string{
			r.PartLineID,
			r.OrderingCode,
			strconv.Itoa(r.Quantity),
			string(r.Status),
			strconv.Itoa(r.Attempts),
		}
		if wide {
			row = append(row, r.LastError.String(), r.Message)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// PartLinesData renders priced part lines.
func PartLinesData(lines []*parts.PartLine, wide bool) Data {
	headers := []string{"Part", "Ordering Code", "Requested", "Supplier", "Order Qty", "Unit Price", "Total"}
	align := []Align{AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignRight, AlignRight, AlignRight}
	if wide {
		headers = append(headers, "Quotes", "Description")
		align = append(align, AlignRight, AlignLeft)
	}

	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		supplier := l.ChosenSupplier.String()
		if l.Unsourced() {
			supplier = "-"
		}
		row := []string{
			l.ID,
			l.OrderingCode,
			strconv.Itoa(l.RequestedQuantity),
			supplier,
			strconv.Itoa(l.ChosenQuantity),
			l.ChosenUnitPrice.StringFixed(4),
			l.ChosenTotalPrice.StringFixed(2),
		}
		if wide {
			row = append(row, strconv.Itoa(len(l.Quotes)), l.Description)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// RecordsData renders reconciliation records.
func RecordsData(records []reconciler.Record, wide bool) Data {
	headers := []string{"Part", "Part Number", "Class", "Requested", "Existing", "Upload Qty"}
	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight}
	if wide {
		headers = append(headers, "State", "Decision")
		align = append(align, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			r.PartLineID,
			r.PartNumber,
			string(r.Class),
			strconv.Itoa(r.RequestedQuantity),
			strconv.Itoa(r.ExistingQuantity),
			strconv.Itoa(r.Quantity),
		}
		if wide {
			decision := "-"
			if r.State == reconciler.MatchedDifferentQuantity {
				decision = r.Decision.String()
			}
			row = append(row, string(r.State), decision)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}
