package stats

import "sort"

const (
	StrengthMin = 1.5 // average at or above marks a strength
	WeaknessMax = 1.0 // average below marks a weakness
	trendsTopN  = 3
)

// Trends splits questions into strengths and weaknesses. When no question
// crosses either bound, the top and bottom three by average are used instead
// and Fallback is set. A question never appears in both lists.
type Trends struct {
	Strengths  []QuestionStat `json:"strengths"`
	Weaknesses []QuestionStat `json:"weaknesses"`
	Fallback   bool           `json:"fallback"`
}

func ClassifyTrends(questions []QuestionStat) Trends {
	var t Trends
	for _, q := range questions {
		switch {
		case q.Average >= StrengthMin:
			t.Strengths = append(t.Strengths, q)
		case q.Average < WeaknessMax:
			t.Weaknesses = append(t.Weaknesses, q)
		}
	}
	sortByAverage(t.Strengths, true)
	sortByAverage(t.Weaknesses, false)

	if len(t.Strengths) > 0 || len(t.Weaknesses) > 0 || len(questions) == 0 {
		return t
	}

	// Short lists are split in half, the middle question going to strengths.
	ranked := append([]QuestionStat(nil), questions...)
	sortByAverage(ranked, true)
	top := min(trendsTopN, (len(ranked)+1)/2)
	bottom := min(trendsTopN, len(ranked)-top)
	t.Fallback = true
	t.Strengths = ranked[:top]
	t.Weaknesses = append([]QuestionStat(nil), ranked[len(ranked)-bottom:]...)
	sortByAverage(t.Weaknesses, false)
	return t
}

func sortByAverage(qs []QuestionStat, desc bool) {
	sort.SliceStable(qs, func(i, j int) bool {
		if desc {
			return qs[i].Average > qs[j].Average
		}
		return qs[i].Average < qs[j].Average
	})
}
