package labelcheck

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Review is the presentation view of one evaluated example.
type Review struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Assigned []Label `json:"assigned"`
	Clusters []Label `json:"clusters"`
	// Candidates holds the positive candidate labels, highest score first.
	Candidates []Label `json:"candidates"`
	// AssignedScore is the best candidate score of any assigned label.
	AssignedScore float64 `json:"assignedScore"`
	// Suspect marks examples whose assigned label scored below the
	// review threshold.
	Suspect bool `json:"suspect"`
}

// BuildReviews turns evaluated examples into reviews. Zero-score candidates
// are dropped and repeated candidates keep their best score.
func BuildReviews(examples []Example, minScore float64) []Review {
	out := make([]Review, len(examples))
	for i, ex := range examples {
		best := make(map[string]float64)
		for _, c := range ex.CandidateLabels {
			if c.Score <= 0 {
				continue
			}
			if c.Score > best[c.ID] {
				best[c.ID] = c.Score
			}
		}
		candidates := make([]Label, 0, len(best))
		for id, score := range best {
			candidates = append(candidates, Label{ID: id, Score: score})
		}
		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].Score == candidates[b].Score {
				return lessID(candidates[a].ID, candidates[b].ID)
			}
			return candidates[a].Score > candidates[b].Score
		})
		var assignedScore float64
		for _, a := range ex.AssignedLabels {
			if s := best[a.ID]; s > assignedScore {
				assignedScore = s
			}
		}
		out[i] = Review{
			ID:            ex.ID,
			Text:          ex.Text,
			Assigned:      cloneLabels(ex.AssignedLabels),
			Clusters:      cloneLabels(ex.ClusterLabels),
			Candidates:    candidates,
			AssignedScore: assignedScore,
			Suspect:       assignedScore < minScore,
		}
	}
	return out
}

// LabelSummary aggregates reviews sharing one assigned label.
type LabelSummary struct {
	Label     string  `json:"label"`
	Count     int     `json:"count"`
	Suspects  int     `json:"suspects"`
	MeanScore float64 `json:"meanScore"`
	StdDev    float64 `json:"stdDev"`
}

// Summary aggregates a whole review run.
type Summary struct {
	Examples     int            `json:"examples"`
	Suspects     int            `json:"suspects"`
	SuspectRatio float64        `json:"suspectRatio"`
	Labels       []LabelSummary `json:"labels"`
}

// Summarize computes per-label statistics over reviews. A review with
// several assigned labels counts towards each of them.
func Summarize(reviews []Review) Summary {
	scores := make(map[string][]float64)
	suspects := make(map[string]int)
	var sum Summary
	sum.Examples = len(reviews)
	for _, r := range reviews {
		if r.Suspect {
			sum.Suspects++
		}
		for _, a := range r.Assigned {
			scores[a.ID] = append(scores[a.ID], r.AssignedScore)
			if r.Suspect {
				suspects[a.ID]++
			}
		}
	}
	if sum.Examples > 0 {
		sum.SuspectRatio = float64(sum.Suspects) / float64(sum.Examples)
	}
	labels := make(map[string]struct{}, len(scores))
	for id := range scores {
		labels[id] = struct{}{}
	}
	for _, id := range sortedIDs(labels) {
		xs := scores[id]
		ls := LabelSummary{Label: id, Count: len(xs), Suspects: suspects[id]}
		if len(xs) > 1 {
			ls.MeanScore, ls.StdDev = stat.MeanStdDev(xs, nil)
		} else {
			ls.MeanScore = stat.Mean(xs, nil)
		}
		sum.Labels = append(sum.Labels, ls)
	}
	return sum
}

// WriteReviewsCSV writes one row per review.
func WriteReviewsCSV(w io.Writer, reviews []Review) error {
	writer := csv.NewWriter(w)
	header := []string{"id", "text", "assigned", "cluster", "assigned_score", "suspect", "candidates"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range reviews {
		row := []string{
			r.ID,
			r.Text,
			joinLabelIDs(r.Assigned),
			joinLabelIDs(r.Clusters),
			strconv.FormatFloat(r.AssignedScore, 'f', 3, 64),
			strconv.FormatBool(r.Suspect),
			formatCandidates(r.Candidates),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return nil
}

// WriteReviewsJSON writes reviews and their summary as one JSON document.
func WriteReviewsJSON(w io.Writer, reviews []Review, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Summary Summary  `json:"summary"`
		Reviews []Review `json:"reviews"`
	}{summary, reviews})
}

func joinLabelIDs(labels []Label) string {
	ids := make([]string, len(labels))
	for i, l := range labels {
		ids[i] = l.ID
	}
	return strings.Join(ids, "|")
}

func formatCandidates(labels []Label) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s=%.3f", l.ID, l.Score)
	}
	return strings.Join(parts, "|")
}
