package labelcheck

import "sync"

// ColumnCandidates defines possible header names for auto-detecting CSV/TSV columns.
type ColumnCandidates struct {
	Text  []string `json:"text"`
	Title []string `json:"title"`
	Body  []string `json:"body"`
	ID    []string `json:"id"`
	Label []string `json:"label"`
}

var (
	columnCandidatesMu  sync.RWMutex
	activeColumnOptions = defaultColumnCandidates()
)

func defaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Text:  []string{"text", "content", "sentence", "message", "本文"},
		Title: []string{"title", "headline", "subject", "タイトル"},
		Body:  []string{"body", "summary", "description", "abstract", "概要"},
		ID:    []string{"id", "index", "no", "key", "番号"},
		Label: []string{"label", "labels", "topic", "category", "class", "カテゴリ"},
	}
}

// SetColumnCandidates updates the column detection candidates used during auto-detection.
// Empty fields fall back to the built-in defaults.
func SetColumnCandidates(candidates ColumnCandidates) {
	columnCandidatesMu.Lock()
	defer columnCandidatesMu.Unlock()
	activeColumnOptions = candidates.withDefaults()
}

func getColumnCandidates() ColumnCandidates {
	columnCandidatesMu.RLock()
	defer columnCandidatesMu.RUnlock()
	return activeColumnOptions.clone()
}

func (c ColumnCandidates) withDefaults() ColumnCandidates {
	defaults := defaultColumnCandidates()
	return ColumnCandidates{
		Text:  pickStrings(c.Text, defaults.Text),
		Title: pickStrings(c.Title, defaults.Title),
		Body:  pickStrings(c.Body, defaults.Body),
		ID:    pickStrings(c.ID, defaults.ID),
		Label: pickStrings(c.Label, defaults.Label),
	}
}

func (c ColumnCandidates) clone() ColumnCandidates {
	return ColumnCandidates{
		Text:  cloneStrings(c.Text),
		Title: cloneStrings(c.Title),
		Body:  cloneStrings(c.Body),
		ID:    cloneStrings(c.ID),
		Label: cloneStrings(c.Label),
	}
}

func pickStrings(custom, fallback []string) []string {
	if len(custom) == 0 {
		return cloneStrings(fallback)
	}
	return cloneStrings(custom)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
