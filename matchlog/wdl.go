package matchlog

import "zerosum/engine"

// WDL tallies one model's results. Aborted matches count once per
// participant so that totals add up to the number of scheduled seats.
type WDL struct {
	Wins   int `json:"wins"`
	Draws  int `json:"draws"`
	Losses int `json:"losses"`
	Aborts int `json:"aborts"`
}

func (w WDL) Total() int {
	return w.Wins + w.Draws + w.Losses + w.Aborts
}

// Tally adds s to the per-model counts in into.
func Tally(into map[string]WDL, s Summary) {
	for role, model := range s.Participants {
		w := into[model]
		switch s.Status {
		case engine.Aborted:
			w.Aborts++
		case engine.Drawn:
			w.Draws++
		default:
			if score, _ := s.Score(role); score > 0 {
				w.Wins++
			} else {
				w.Losses++
			}
		}
		into[model] = w
	}
}
