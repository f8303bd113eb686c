package labelcheck

// Evaluate scores every assigned label against the clusters its example
// belongs to and returns new examples carrying the candidate labels.
//
// For each cluster label of an example the cluster's row of the
// cluster × assigned-label table is scored with ScoreByFrequency and one
// candidate per assigned label in the table is appended. Examples in several
// clusters get one group of candidates per cluster, concatenated without
// deduplication. The full distribution is returned, zero scores included.
//
// Every example must carry assigned and cluster labels with non-empty ids,
// and example ids must be unique; otherwise an *InputError is returned and
// nothing is scored. The result has the input's order and length.
func Evaluate(examples []Example) ([]Example, error) {
	return EvaluateWith(examples, ClusterAxes)
}

// EvaluateWith is Evaluate with an explicit table orientation. Candidates
// are drawn from the member axis for each label on the group axis.
func EvaluateWith(examples []Example, axes Axes) ([]Example, error) {
	if err := validateBatch(examples, axes); err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return []Example{}, nil
	}

	// The table must be complete before any row is scored.
	table := BuildTable(examples, axes)
	members := table.Members()

	rowScores := make(map[string]Scores, len(table.groups))
	out := make([]Example, len(examples))
	for i, ex := range examples {
		var candidates []Label
		for _, g := range axes.Group(ex) {
			scores, ok := rowScores[g.ID]
			if !ok {
				scores = ScoreByFrequency(table.Row(g.ID))
				rowScores[g.ID] = scores
			}
			for _, m := range members {
				candidates = append(candidates, Label{ID: m, Score: scores.Get(m)})
			}
		}
		out[i] = ex.WithCandidateLabels(candidates)
	}
	return out, nil
}

func validateBatch(examples []Example, axes Axes) error {
	seen := make(map[string]struct{}, len(examples))
	for i, ex := range examples {
		if ex.ID == "" {
			return &InputError{Index: i, Reason: "empty id"}
		}
		if _, dup := seen[ex.ID]; dup {
			return &InputError{Index: i, ID: ex.ID, Reason: "duplicate id"}
		}
		seen[ex.ID] = struct{}{}
		if err := validateLabels(i, ex.ID, axes.GroupName, axes.Group(ex)); err != nil {
			return err
		}
		if err := validateLabels(i, ex.ID, axes.MemberName, axes.Member(ex)); err != nil {
			return err
		}
	}
	return nil
}

func validateLabels(index int, id, axis string, labels []Label) error {
	if len(labels) == 0 {
		return &InputError{Index: index, ID: id, Reason: "no " + axis + " labels"}
	}
	for _, l := range labels {
		if l.ID == "" {
			return &InputError{Index: index, ID: id, Reason: "empty " + axis + " label id"}
		}
	}
	return nil
}
