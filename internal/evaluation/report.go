package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// WriteJSON writes the report as indented JSON.
func (r *MetricReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteTable renders the aggregate comparison, one row per variant, with
// deltas against the baseline.
func (r *MetricReport) WriteTable(w io.Writer) error {
	headers := []string{"variant"}
	for _, name := range MetricNames {
		headers = append(headers, aggregateLabel(name, r.K))
	}
	headers = append(headers, "Δ nDCG", "+/-/=", "queries", "fallbacks", "failures")

	rows := make([][]string, 0, len(r.Variants))
	for i, v := range r.Variants {
		row := []string{v.Variant}
		for _, name := range MetricNames {
			row = append(row, formatScore(v.Aggregate[name]))
		}
		if i == 0 {
			row = append(row, "-", "-")
		} else {
			c := r.Comparisons[i-1]
			row = append(row,
				formatDelta(r.Deltas[v.Variant][MetricNDCG]),
				fmt.Sprintf("%d/%d/%d", c.Improved, c.Hurt, c.Unchanged),
			)
		}
		row = append(row,
			strconv.Itoa(v.Evaluated),
			strconv.Itoa(len(v.Fallbacks)),
			strconv.Itoa(len(v.Failures)),
		)
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s: %s\n", aggregateLabel(MetricRecall, r.K), RecallNote); err != nil {
		return err
	}
	if len(r.Rejected) > 0 {
		if _, err := fmt.Fprintf(w, "%d judgments rejected\n", len(r.Rejected)); err != nil {
			return err
		}
	}
	return nil
}

// WriteQueryTable renders one variant's per-query metrics.
func (v *VariantReport) WriteQueryTable(w io.Writer) error {
	rows := make([][]string, 0, len(v.Queries))
	for _, q := range v.Queries {
		ap := "-"
		if q.InMAP {
			ap = formatScore(q.AP)
		}
		rows = append(rows, []string{
			q.QID,
			formatScore(q.Precision),
			formatScore(q.Recall),
			formatScore(q.NDCG),
			ap,
			strconv.Itoa(q.Relevant),
			strconv.Itoa(q.Retrieved),
			queryFlags(q),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("qid", metricLabel(MetricPrecision, v.K), metricLabel(MetricRecall, v.K),
			metricLabel(MetricNDCG, v.K), "AP", "relevant", "retrieved", "flags").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintf(w, "%s\n%s\n", v.Variant, t.Render())
	return err
}

func metricLabel(name string, k int) string {
	switch name {
	case MetricPrecision:
		return fmt.Sprintf("P@%d", k)
	case MetricRecall:
		return fmt.Sprintf("R@%d", k)
	case MetricNDCG:
		return fmt.Sprintf("nDCG@%d", k)
	case MetricMAP:
		return "MAP"
	}
	return name
}

// aggregateLabel marks aggregates that average over a narrower query set
// than the evaluated queries.
func aggregateLabel(name string, k int) string {
	if name == MetricRecall {
		return metricLabel(name, k) + " (rel>0)"
	}
	return metricLabel(name, k)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatDelta(v float64) string {
	return fmt.Sprintf("%+.4f", v)
}

func queryFlags(q QueryMetrics) string {
	switch {
	case q.Failed:
		return "failed"
	case q.Missing:
		return "missing"
	case q.Fallback:
		return "fallback"
	}
	return ""
}
