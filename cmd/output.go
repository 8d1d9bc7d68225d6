package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spigell/care-matcher/internal/input"
	"github.com/spigell/care-matcher/internal/matching"
	"github.com/spigell/care-matcher/internal/scoring"
	"github.com/spigell/care-matcher/internal/similarity"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type resultView struct {
	Rank            int               `json:"rank"`
	CandidateID     string            `json:"candidate_id"`
	Name            string            `json:"name"`
	MatchScore      float64           `json:"match_score"`
	MatchPercentage string            `json:"match_percentage"`
	DistanceKm      float64           `json:"distance_km"`
	Distance        string            `json:"distance"`
	Origin          string            `json:"origin"`
	Breakdown       scoring.Breakdown `json:"score_breakdown"`
}

type matchView struct {
	RequestID  string            `json:"request_id"`
	Total      int               `json:"total"`
	Results    []resultView      `json:"recommendations"`
	Similarity *similarity.Stats `json:"similarity_stats,omitempty"`
}

func newMatchView(requestID string, results []matching.Result, stats *similarity.Stats) matchView {
	view := matchView{
		RequestID:  requestID,
		Total:      len(results),
		Results:    make([]resultView, 0, len(results)),
		Similarity: stats,
	}
	for i, r := range results {
		name := ""
		if r.Candidate != nil {
			name = r.Candidate.Name
		}
		view.Results = append(view.Results, resultView{
			Rank:            i + 1,
			CandidateID:     r.CandidateID,
			Name:            name,
			MatchScore:      r.Total,
			MatchPercentage: matchPercentage(r.Total),
			DistanceKm:      r.DistanceKm,
			Distance:        formatDistance(r.DistanceKm),
			Origin:          string(r.Origin),
			Breakdown:       r.Breakdown,
		})
	}
	return view
}

// matchPercentage truncates the score to a whole percent.
func matchPercentage(score float64) string {
	return fmt.Sprintf("%d%%", int(score*100))
}

// formatDistance renders distances under one kilometer in meters.
func formatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm", int(km*1000))
	}
	return fmt.Sprintf("%.1f km", km)
}

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (use %s or %s)", format, outputTable, outputJSON)
	}
}

func writeMatch(w io.Writer, format string, view matchView) error {
	if format == outputJSON {
		return writeJSON(w, view)
	}

	if len(view.Results) == 0 {
		_, err := fmt.Fprintf(w, "no caregivers matched request %s\n", view.RequestID)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tNAME\tSCORE\tMATCH\tDISTANCE\tORIGIN\tCRED\tSKILL\tDIST\tRATE\tEXP\tPRICE\tTRUST")
	for _, r := range view.Results {
		b := r.Breakdown
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			r.Rank, r.CandidateID, r.Name, r.MatchScore, r.MatchPercentage, r.Distance, r.Origin,
			b.Credential, b.Skills, b.Distance, b.Rating, b.Experience, b.Price, b.Trust,
		)
	}
	return tw.Flush()
}

func writeRequests(w io.Writer, format string, summaries []input.Summary) error {
	if format == outputJSON {
		if summaries == nil {
			summaries = []input.Summary{}
		}
		return writeJSON(w, map[string]any{"total": len(summaries), "requests": summaries})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEEKER\tCARE LEVEL")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", s.ID, s.SeekerName, s.CareLevel)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(pretty))
	return err
}

// requestLabel is the picker entry for a request; its id is the first word.
func requestLabel(s input.Summary) string {
	label := s.ID
	if s.SeekerName != "" {
		label += " " + s.SeekerName
	}
	return fmt.Sprintf("%s (level %d)", label, s.CareLevel)
}

func labelID(label string) string {
	id, _, _ := strings.Cut(label, " ")
	return id
}
