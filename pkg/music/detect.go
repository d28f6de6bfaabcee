package music

// detectScore ranks a candidate key. Fields are compared in order.
type detectScore struct {
	matchesAll bool
	lastIsRoot bool
	minor      bool
	matches    int
}

func (a detectScore) better(b detectScore) bool {
	if a.matchesAll != b.matchesAll {
		return a.matchesAll
	}
	if a.lastIsRoot != b.lastIsRoot {
		return a.lastIsRoot
	}
	if a.minor != b.minor {
		return a.minor
	}
	return a.matches > b.matches
}

// DetectScale guesses the key of a melody among the major and natural minor
// scales. Keys containing every pitch class win, then keys rooted on the
// latest-starting note, then minor keys, then the largest overlap. It returns false
// for an empty melody.
func DetectScale(notes []Note) (Scale, bool) {
	if len(notes) == 0 {
		return Scale{}, false
	}
	var used [12]bool
	distinct := 0
	for _, n := range notes {
		if pc := n.Pitch.Class(); !used[pc] {
			used[pc] = true
			distinct++
		}
	}
	sorted := SortedNotes(notes)
	last := sorted[len(sorted)-1].Pitch.Class()

	var (
		best      Scale
		bestScore detectScore
		found     bool
	)
	for _, root := range AllPitchClasses() {
		for _, t := range []ScaleType{NaturalMinor, Major} {
			s := NewScale(root, t)
			matches := 0
			for _, pc := range s.PitchClasses() {
				if used[pc] {
					matches++
				}
			}
			score := detectScore{
				matchesAll: matches == distinct,
				lastIsRoot: root == last,
				minor:      t == NaturalMinor,
				matches:    matches,
			}
			if !found || score.better(bestScore) {
				best, bestScore, found = s, score, true
			}
		}
	}
	return best, true
}
