package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yourorg/apicheck/pkg/types"
)

// Markdown renders the report as a markdown document with one table row per
// check.
func Markdown(w io.Writer, rep *types.RunReport) error {
	b := &strings.Builder{}
	fmt.Fprintf(b, "# %s checks\n\n", rep.Suite)
	if rep.ID != "" {
		fmt.Fprintf(b, "- **Run:** %s\n", rep.ID)
	}
	fmt.Fprintf(b, "- **Target:** %s\n", rep.BaseURL)
	fmt.Fprintf(b, "- **Started:** %s\n", rep.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(b, "- **Result:** %d/%d passed (%s)\n\n", rep.Passed(), rep.Total(), Percent(rep))

	fmt.Fprintln(b, "| # | Check | Result | Outcome | Status | Detail |")
	fmt.Fprintln(b, "|---|---|---|---|---|---|")
	for i, res := range rep.Results {
		result := "PASS"
		if !res.Success {
			result = "FAIL"
		}
		status := "-"
		if res.Status != 0 {
			status = fmt.Sprintf("%d", res.Status)
		}
		fmt.Fprintf(b, "| %d | %s | %s | %s | %s | %s |\n", i+1, cell(res.Name), result, res.Outcome, status, cell(res.Detail))
	}

	if gaps := rep.EnvironmentGaps(); gaps > 0 {
		fmt.Fprintf(b, "\n> %d failure(s) are environment gaps: the backing store has missing tables.\n", gaps)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, rep *types.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
