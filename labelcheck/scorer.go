package labelcheck

// ScoreByFrequency converts one row of counts into scores. A label seen
// exactly once scores 0. Other labels share count/total, where total sums
// only the labels seen more than once, so their scores add up to 1. When
// every label is a singleton (or absent) all scores are 0.
func ScoreByFrequency(counts Counts) Scores {
	total := 0
	for _, n := range counts {
		if n > 1 {
			total += n
		}
	}
	scores := make(Scores, len(counts))
	for id, n := range counts {
		if n <= 1 || total == 0 {
			scores[id] = 0
			continue
		}
		scores[id] = float64(n) / float64(total)
	}
	return scores
}
