// Package report renders batch classification output as plain text tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/mikey/knn-spam-filter/internal/adapters/knnmodel"
	"github.com/mikey/knn-spam-filter/internal/knn"
)

// Classified pairs a test message with the model's verdict
type Classified struct {
	Subject string
	Result  *knnmodel.Classification
}

// Summary counts verdicts across a batch
type Summary struct {
	Total int
	Spam  int
	Ham   int
}

// Summarize counts spam and ham verdicts
func Summarize(rows []Classified) Summary {
	spam := lo.CountBy(rows, func(r Classified) bool {
		return r.Result.IsSpam
	})
	return Summary{
		Total: len(rows),
		Spam:  spam,
		Ham:   len(rows) - spam,
	}
}

// Label names a verdict
func Label(spam bool) string {
	if spam {
		return "Spam"
	}
	return "Ham"
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// WriteClassifications prints each verdict with its neighbours and the
// vocabulary words present in the message
func WriteClassifications(w io.Writer, rows []Classified) {
	for _, row := range rows {
		fmt.Fprintf(w, "Subject: %s\n", row.Subject)
		fmt.Fprintf(w, "Classification: %s (score %.2f)\n", Label(row.Result.IsSpam), row.Result.Score)
		fmt.Fprintln(w, "Neighbors:")
		WriteNeighbors(w, row.Result.Neighbors)

		matched := "(none)"
		if len(row.Result.MatchedFeatures) > 0 {
			matched = strings.Join(row.Result.MatchedFeatures, ", ")
		}
		fmt.Fprintf(w, "Words that lead to its classification: %s\n\n", matched)
	}
}

// WriteNeighbors prints a neighbour table, nearest first
func WriteNeighbors(w io.Writer, neighbors []knn.NeighborTrace) {
	table := newTable(w, "Index", "Distance", "Label")
	for _, n := range neighbors {
		table.Append([]string{
			strconv.Itoa(n.TrainingIndex),
			strconv.FormatFloat(n.Distance, 'f', 4, 64),
			Label(n.Spam),
		})
	}
	table.Render()
}

// WriteSummary prints verdict totals
func WriteSummary(w io.Writer, s Summary) {
	table := newTable(w, "Metric", "Count")
	table.Append([]string{"Total emails classified", strconv.Itoa(s.Total)})
	table.Append([]string{"Spam", strconv.Itoa(s.Spam)})
	table.Append([]string{"Ham", strconv.Itoa(s.Ham)})
	table.Render()
}

// WriteFeatures prints the vocabulary in order
func WriteFeatures(w io.Writer, vocabulary []string) {
	fmt.Fprintf(w, "Top %d Features:\n", len(vocabulary))
	table := newTable(w, "#", "Feature")
	for i, token := range vocabulary {
		table.Append([]string{strconv.Itoa(i + 1), token})
	}
	table.Render()
}
