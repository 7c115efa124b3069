// Package report writes a Markdown audit report of a run.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	md "github.com/nao1215/markdown"

	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/pricing"
	"github.com/agentstation/bomsync/pkg/reconciler"
	"github.com/agentstation/bomsync/pkg/upload"
)

// Write renders the audit report of a run. lines are the priced source
// lines and may be nil.
func Write(w io.Writer, s *upload.Summary, lines []*parts.PartLine) error {
	doc := md.NewMarkdown(w)

	title := "BOM upload report"
	if s.Target.Name != "" {
		title = fmt.Sprintf("BOM upload report: %s", s.Target.Name)
	}
	doc.H1(title).LF()

	doc.BulletList(
		fmt.Sprintf("%s %s", md.Bold("Run:"), md.Code(s.RunID)),
		fmt.Sprintf("%s %s", md.Bold("State:"), s.State),
		fmt.Sprintf("%s %s", md.Bold("Target BOM:"), md.Code(s.Target.ID)),
		fmt.Sprintf("%s %s", md.Bold("Started:"), s.StartedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("%s %s", md.Bold("Duration:"), s.Duration()),
	).LF()

	if s.Error != "" {
		doc.Blockquote(s.Error).LF()
	}

	doc.H2("Totals").LF()
	doc.Table(md.TableSet{
		Header: []string{"Total", "Succeeded", "Failed", "Pending", "Skipped", "Batches"},
		Rows: [][]string{{
			strconv.Itoa(s.Total),
			strconv.Itoa(s.SuccessCount),
			strconv.Itoa(s.FailureCount),
			strconv.Itoa(s.PendingCount),
			strconv.Itoa(s.SkippedCount),
			strconv.Itoa(s.Batches),
		}},
	}).LF()

	if s.ReconciliationSummary != "" {
		doc.H2("Reconciliation").LF()
		doc.PlainText(s.ReconciliationSummary).LF()
		if s.Reconciliation != nil {
			writeRecords(doc, s.Reconciliation.Records)
		}
	}

	c := s.Catalogs
	if c != (upload.CatalogReport{}) {
		doc.H2("Catalogs").LF()
		doc.Table(md.TableSet{
			Header: []string{"Matched", "Assigned", "Unassigned", "Added", "Updated", "Failures"},
			Rows: [][]string{{
				strconv.Itoa(c.Matched),
				strconv.Itoa(c.Assigned),
				strconv.Itoa(c.Unassigned),
				strconv.Itoa(c.Added),
				strconv.Itoa(c.Updated),
				strconv.Itoa(c.Failures),
			}},
		}).LF()
	}

	if len(lines) > 0 {
		writePricing(doc, lines)
	}

	if failures := s.Failures(); len(failures) > 0 {
		doc.H2("Failures").LF()
		rows := make([][]string, 0, len(failures))
		for _, r := range failures {
			rows = append(rows, []string{r.PartLineID, r.OrderingCode, strconv.Itoa(r.Attempts), r.LastError.String(), r.Message})
		}
		doc.Table(md.TableSet{
			Header: []string{"Part", "Ordering Code", "Attempts", "Kind", "Message"},
			Rows:   rows,
		}).LF()
	}

	if len(s.Unsourced) > 0 || len(s.ExcludedSuppliers) > 0 {
		doc.H2("Sourcing").LF()
		var items []string
		if len(s.Unsourced) > 0 {
			items = append(items, fmt.Sprintf("Unsourced parts: %s", joinCode(s.Unsourced)))
		}
		if len(s.ExcludedSuppliers) > 0 {
			ids := make([]string, len(s.ExcludedSuppliers))
			for i, id := range s.ExcludedSuppliers {
				ids[i] = id.String()
			}
			items = append(items, fmt.Sprintf("Suppliers excluded after rate limiting: %s", joinCode(ids)))
		}
		doc.BulletList(items...).LF()
	}

	if err := doc.Build(); err != nil {
		return errors.WrapIO("write", "report", err)
	}
	return nil
}

// WriteFile writes the report to path.
func WriteFile(path string, s *upload.Summary, lines []*parts.PartLine) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	if err := Write(f, s, lines); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", path, err)
	}
	return nil
}

func writeRecords(doc *md.Markdown, records []reconciler.Record) {
	var rows [][]string
	for _, r := range records {
		if r.Class == reconciler.ClassNew {
			continue
		}
		note := ""
		if r.Degraded {
			note = "delta not positive, skipped"
		}
		rows = append(rows, []string{
			r.PartLineID,
			r.PartNumber,
			string(r.Class),
			strconv.Itoa(r.RequestedQuantity),
			strconv.Itoa(r.ExistingQuantity),
			strconv.Itoa(r.Quantity),
			note,
		})
	}
	if len(rows) == 0 {
		return
	}
	doc.Table(md.TableSet{
		Header: []string{"Part", "Part Number", "Class", "Requested", "Existing", "Upload Qty", "Note"},
		Rows:   rows,
	}).LF()
}

func writePricing(doc *md.Markdown, lines []*parts.PartLine) {
	doc.H2("Pricing").LF()
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		if l.Unsourced() {
			continue
		}
		rows = append(rows, []string{
			l.ID,
			l.OrderingCode,
			l.ChosenSupplier.String(),
			strconv.Itoa(l.ChosenQuantity),
			l.ChosenUnitPrice.StringFixed(4),
			l.ChosenTotalPrice.StringFixed(2),
		})
	}
	doc.Table(md.TableSet{
		Header: []string{"Part", "Ordering Code", "Supplier", "Order Qty", "Unit Price", "Total"},
		Rows:   rows,
	}).LF()

	doc.PlainText(fmt.Sprintf("%s %s", md.Bold("Total spend:"), pricing.Total(lines).StringFixed(2))).LF()
}

func joinCode(items []string) string {
	codes := make([]string, len(items))
	for i, it := range items {
		codes[i] = md.Code(it)
	}
	return strings.Join(codes, ", ")
}
