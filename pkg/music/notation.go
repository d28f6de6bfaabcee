package music

import "strings"

// Duration values of the notation letters, in ticks.
const (
	WholeTicks     = 4 * TicksPerQuarter
	HalfTicks      = 2 * TicksPerQuarter
	QuarterTicks   = TicksPerQuarter
	EighthTicks    = TicksPerQuarter / 2
	SixteenthTicks = TicksPerQuarter / 4
)

var durationLetters = []struct {
	letter byte
	ticks  int
}{
	{'w', WholeTicks},
	{'h', HalfTicks},
	{'q', QuarterTicks},
	{'e', EighthTicks},
	{'s', SixteenthTicks},
}

// durationPieces lists every single-token duration, largest first.
var durationPieces = func() []string {
	var out []string
	for _, d := range durationLetters {
		out = append(out, string(d.letter)+".", string(d.letter))
	}
	return out
}()

// Token is one parsed notation token.
type Token struct {
	Rest     bool
	Pitch    Pitch
	Duration int
}

// DurationTicks returns the ticks of a duration suffix such as "q", "h." or
// "" (quarter).
func DurationTicks(suffix string) (int, bool) {
	if suffix == "" {
		return QuarterTicks, true
	}
	dotted := strings.HasSuffix(suffix, ".")
	letter := strings.TrimSuffix(suffix, ".")
	if len(letter) != 1 {
		return 0, false
	}
	for _, d := range durationLetters {
		if d.letter == letter[0] {
			if dotted {
				return d.ticks * 3 / 2, true
			}
			return d.ticks, true
		}
	}
	return 0, false
}

// DurationSuffix returns the single letter (optionally dotted) matching ticks.
func DurationSuffix(ticks int) (string, bool) {
	for _, suffix := range durationPieces {
		if t, _ := DurationTicks(suffix); t == ticks {
			return suffix, true
		}
	}
	return "", false
}

// decomposeTicks splits ticks into single-token durations, largest first,
// and returns the ticks they cover. A remainder shorter than a sixteenth is
// left out.
func decomposeTicks(ticks int) ([]string, int) {
	var (
		out     []string
		covered int
	)
	for _, suffix := range durationPieces {
		t, _ := DurationTicks(suffix)
		for ticks >= t {
			out = append(out, suffix)
			ticks -= t
			covered += t
		}
	}
	return out, covered
}

// ParseToken validates a single notation token such as "F#4h." or "Re".
func ParseToken(tok string) (Token, error) {
	t, reason := parseToken(tok)
	if reason != "" {
		return Token{}, &ParseError{Token: tok, Reason: reason}
	}
	return t, nil
}

func parseToken(tok string) (Token, string) {
	if tok == "" {
		return Token{}, "empty token"
	}
	if tok[0] == 'R' || tok[0] == 'r' {
		ticks, ok := DurationTicks(tok[1:])
		if !ok {
			return Token{}, "invalid rest duration " + quote(tok[1:])
		}
		return Token{Rest: true, Duration: ticks}, ""
	}

	letter := tok[0]
	if letter >= 'a' && letter <= 'g' {
		letter -= 'a' - 'A'
	}
	base, ok := letterSemitones[letter]
	if !ok {
		return Token{}, "unknown note letter " + quote(tok[:1])
	}
	i := 1
	shift := 0
	for ; i < len(tok); i++ {
		switch tok[i] {
		case '#':
			shift++
			continue
		case 'b':
			shift--
			continue
		}
		break
	}
	if i >= len(tok) || tok[i] < '0' || tok[i] > '9' {
		return Token{}, "missing octave digit"
	}
	octave := int(tok[i] - '0')
	i++
	ticks, ok := DurationTicks(tok[i:])
	if !ok {
		return Token{}, "invalid duration " + quote(tok[i:])
	}
	p, err := PitchFromMIDI(12*(octave+1) + base + shift)
	if err != nil {
		return Token{}, err.Error()
	}
	return Token{Pitch: p, Duration: ticks}, ""
}

func quote(s string) string {
	return "\"" + s + "\""
}

// ParseMelody parses whitespace-separated tokens into notes placed on a
// running tick cursor. Rests advance the cursor only. Any malformed token
// fails the whole parse and no notes are returned.
func ParseMelody(text string) ([]Note, error) {
	return ParseMelodyWithVelocity(text, DefaultVelocity)
}

// ParseMelodyWithVelocity is ParseMelody with an explicit note velocity.
func ParseMelodyWithVelocity(text string, velocity int) ([]Note, error) {
	if velocity < 0 || velocity > 127 {
		return nil, rangeErrorf("velocity %d outside [0,127]", velocity)
	}
	var notes []Note
	cursor := 0
	index := 0
	for offset := 0; offset < len(text); {
		if isSpace(text[offset]) {
			offset++
			continue
		}
		end := offset
		for end < len(text) && !isSpace(text[end]) {
			end++
		}
		tok := text[offset:end]
		t, reason := parseToken(tok)
		if reason != "" {
			return nil, &ParseError{Offset: offset, Index: index, Token: tok, Reason: reason}
		}
		if !t.Rest {
			notes = append(notes, Note{Pitch: t.Pitch, Start: cursor, Duration: t.Duration, Velocity: velocity})
		}
		cursor += t.Duration
		index++
		offset = end
	}
	return notes, nil
}

func isSpace(b byte) bool {
	return strings.IndexByte(" \t\n\r\v\f", b) >= 0
}

// FormatMelody renders notes as notation in ascending start order. Gaps
// become rests. A duration with no single-token form is split into repeated
// tokens of the same pitch. Ticks finer than a sixteenth cannot be written;
// the cursor follows what was emitted, so such a remainder never shifts the
// notes after it.
// Overlapping notes are written sequentially, so chords do not survive a
// round trip.
func FormatMelody(notes []Note, spelling Spelling) string {
	var tokens []string
	cursor := 0
	for _, n := range SortedNotes(notes) {
		if gap := n.Start - cursor; gap > 0 {
			pieces, covered := decomposeTicks(gap)
			for _, suffix := range pieces {
				tokens = append(tokens, "R"+suffix)
			}
			cursor += covered
		}
		name := n.Pitch.Name(spelling)
		if suffix, ok := DurationSuffix(n.Duration); ok {
			tokens = append(tokens, name+suffix)
			cursor += n.Duration
			continue
		}
		pieces, covered := decomposeTicks(n.Duration)
		if len(pieces) == 0 {
			pieces, covered = []string{"s"}, TicksPerQuarter/4
		}
		for _, suffix := range pieces {
			tokens = append(tokens, name+suffix)
		}
		cursor += covered
	}
	return strings.Join(tokens, " ")
}
