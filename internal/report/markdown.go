package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/services"
)

// Options controls what goes into the report.
type Options struct {
	Title   string
	Filters models.PredicateSet
	Order   models.Order
	Now     func() time.Time
}

// Write renders a markdown churn report of the service's dataset: headline
// metrics, one table per dimension, the risk segments and the findings.
func Write(ctx context.Context, w io.Writer, svc *services.InsightService, opts Options) error {
	if opts.Title == "" {
		opts.Title = "Customer Churn Report"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	out := bufio.NewWriter(w)

	summary, err := svc.Summary(ctx, opts.Filters)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# %s\n\n", opts.Title)
	fmt.Fprintf(out, "Generated %s from snapshot `%s`.\n\n", opts.Now().UTC().Format(time.RFC3339), svc.SnapshotID())
	writeSummary(out, summary)
	if summary.Warning != nil {
		fmt.Fprintf(out, "_No customers match the selected filters._\n")
		return out.Flush()
	}

	fmt.Fprintf(out, "## Churn by dimension\n\n")
	for _, dim := range svc.Engine().Dimensions() {
		resp, err := svc.Breakdown(ctx, models.BreakdownRequest{Filters: opts.Filters, Dimensions: []string{dim}, Order: opts.Order})
		if err != nil {
			return err
		}
		d, _ := svc.Engine().Dimension(dim)
		writeBreakdown(out, d.Title, resp)
	}

	segments, err := svc.Segments(ctx, models.SegmentsRequest{Filters: opts.Filters})
	if err != nil {
		return err
	}
	writeSegments(out, segments)

	findings, err := svc.Insights(ctx, opts.Filters)
	if err != nil {
		return err
	}
	writeFindings(out, findings)
	return out.Flush()
}

func writeSummary(out io.Writer, s models.Summary) {
	fmt.Fprintf(out, "## Key metrics\n\n")
	fmt.Fprintf(out, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(out, "| Customers | %d |\n", s.Count)
	fmt.Fprintf(out, "| Churned | %d |\n", s.Churned)
	fmt.Fprintf(out, "| Churn rate | %s |\n", percentOrDash(s.ChurnRate))
	fmt.Fprintf(out, "| Baseline churn rate | %s |\n", percentOrDash(s.BaselineChurnRate))
	if s.DeltaFromBaseline != nil {
		fmt.Fprintf(out, "| Delta from baseline | %+.1f pts |\n", *s.DeltaFromBaseline*100)
	}
	fmt.Fprintf(out, "| Average balance | %s |\n", numberOrDash(s.AvgBalance, "%.2f"))
	fmt.Fprintf(out, "| Complaint rate | %s |\n", percentOrDash(s.ComplaintRate))
	fmt.Fprintf(out, "| Average satisfaction | %s |\n", numberOrDash(s.AvgSatisfaction, "%.2f"))
	fmt.Fprintf(out, "| Average credit score | %s |\n", numberOrDash(s.AvgCreditScore, "%.0f"))
	fmt.Fprintf(out, "| Average products per customer | %s |\n\n", numberOrDash(s.AvgProducts, "%.2f"))
}

func writeBreakdown(out io.Writer, title string, resp models.BreakdownResponse) {
	fmt.Fprintf(out, "### %s\n\n", title)
	fmt.Fprintf(out, "| %s | Customers | Churned | Churn rate | vs baseline |\n|---|---:|---:|---:|---:|\n", title)
	for _, g := range resp.Groups {
		fmt.Fprintf(out, "| %s | %d | %d | %s | %+.1f pts |\n",
			escape(g.Label), g.Count, g.Churned, percent(g.ChurnRate), (g.ChurnRate-resp.BaselineChurnRate)*100)
	}
	fmt.Fprintln(out)
}

func writeSegments(out io.Writer, r models.SegmentReport) {
	fmt.Fprintf(out, "## Risk segments\n\n")
	fmt.Fprintf(out, "| Segment | Customers | Share | Churn rate |\n|---|---:|---:|---:|\n")
	for _, t := range r.Tiers {
		fmt.Fprintf(out, "| %s | %d | %s | %s |\n", t.Segment, t.Count, percent(t.Proportion), percentOrDash(t.ChurnRate))
	}
	fmt.Fprintln(out)
}

func writeFindings(out io.Writer, f models.Findings) {
	fmt.Fprintf(out, "## Findings\n\n")
	for _, c := range f.Comparisons {
		fmt.Fprintf(out, "- %s churn at %s against %s for %s", c.Cohort, percent(c.Rate), percent(c.RefRate), c.Reference)
		if c.Lift > 0 {
			fmt.Fprintf(out, " (%.1fx)", c.Lift)
		}
		fmt.Fprintln(out, ".")
	}
	if len(f.Predictors) == 0 {
		fmt.Fprintln(out)
		return
	}
	fmt.Fprintf(out, "\n### Strongest predictors\n\n| Dimension | Spread | Highest | Lowest |\n|---|---:|---|---|\n")
	for _, p := range f.Predictors {
		fmt.Fprintf(out, "| %s | %.1f pts | %s (%s) | %s (%s) |\n",
			p.Dimension, p.Spread*100, escape(p.Highest), percent(p.HighRate), escape(p.Lowest), percent(p.LowRate))
	}
	fmt.Fprintln(out)
}

func percent(v float64) string { return fmt.Sprintf("%.1f%%", v*100) }

func percentOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return percent(*v)
}

func numberOrDash(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func escape(s string) string { return strings.ReplaceAll(s, "|", `\|`) }
