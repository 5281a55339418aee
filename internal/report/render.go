package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spigell/evalia/internal/domain"
	"github.com/spigell/evalia/internal/storage"
)

const barWidth = 20

// ScoreBar draws score/10 as a fixed-width progress bar.
func ScoreBar(score float64) string {
	filled := int(domain.ClampScore(score)/10*barWidth + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

// FormatScore prints a score as "N/10", dropping a zero fraction.
func FormatScore(score float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", domain.ClampScore(score)), ".0") + "/10"
}

// RenderEvaluation writes one evaluation. Tips and gaps appear only when present.
func RenderEvaluation(w io.Writer, eval *domain.Evaluation) {
	if eval == nil {
		fmt.Fprintln(w, "  Not evaluated.")
		return
	}

	fmt.Fprintf(w, "  Score: %s %s\n", FormatScore(eval.Score), ScoreBar(eval.Score))
	fmt.Fprintf(w, "  Feedback: %s\n", eval.Feedback)
	writeList(w, "Improvement tips", eval.ImprovementTips)
	writeList(w, "Knowledge gaps", eval.KnowledgeGaps)
}

// RenderDashboard writes the results dashboard.
func RenderDashboard(w io.Writer, results *domain.Results) {
	if results == nil {
		results = domain.NewResults()
	}
	summary := Summarize(results)

	fmt.Fprintln(w, "Interview Results")
	if summary.Domain != "" {
		fmt.Fprintf(w, "Domain: %s\n", summary.Domain)
	}
	fmt.Fprintln(w)

	if !summary.Evaluated() {
		fmt.Fprintln(w, "No evaluated answers yet.")
		return
	}

	fmt.Fprintf(w, "Overall score: %s %s\n", FormatScore(summary.Overall), ScoreBar(summary.Overall))
	for _, rs := range summary.Rounds {
		fmt.Fprintf(w, "%s round: %s %s (%d of %d answered)\n",
			rs.Round.Title(), FormatScore(rs.Average), ScoreBar(rs.Average), rs.Answered, rs.Questions)
	}
	fmt.Fprintf(w, "Strongest answer: %q (%s)\n", summary.Best.Question, FormatScore(summary.Best.Score))
	fmt.Fprintf(w, "Weakest answer: %q (%s)\n", summary.Weakest.Question, FormatScore(summary.Weakest.Score))

	for _, round := range []domain.RoundType{domain.RoundHR, domain.RoundTechnical} {
		answers := results.Answers(round)
		if len(answers) == 0 {
			continue
		}

		fmt.Fprintf(w, "\n%s Round\n", round.Title())
		for i, record := range answers {
			fmt.Fprintf(w, "\nQ%d: %s\n", i+1, record.Question)
			fmt.Fprintf(w, "  Answer: %s\n", record.Answer)
			RenderEvaluation(w, record.Evaluation)
		}
	}
}

// RenderHistory writes archived interviews as a table.
func RenderHistory(w io.Writer, interviews []storage.Interview) error {
	if len(interviews) == 0 {
		_, err := fmt.Fprintln(w, "No archived interviews.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tDOMAIN\tHR\tTECHNICAL\tOVERALL\tID")
	for _, it := range interviews {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.FinishedAt.Format(time.DateTime),
			it.Domain,
			FormatScore(it.HRScore),
			FormatScore(it.TechScore),
			FormatScore(it.Overall),
			it.ID,
		)
	}
	return tw.Flush()
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "    - %s\n", item)
	}
}
