package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/james-see/mozart/pkg/music"
)

type scaleInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Intervals []int  `json:"intervals"`
	Minor     bool   `json:"minor"`
}

// listScales godoc
// @Summary List scale types
// @Description Returns every scale type with its semitone intervals
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]scaleInfo
// @Router /api/v1/scales [get]
func listScales(c *gin.Context) {
	var out []scaleInfo
	for _, t := range music.AllScaleTypes() {
		iv := t.Intervals()
		out = append(out, scaleInfo{ID: t.ID(), Name: t.String(), Intervals: iv[:], Minor: t.IsMinor()})
	}
	c.JSON(http.StatusOK, gin.H{"scales": out})
}

// defaultAccents godoc
// @Summary Default accent pattern
// @Description Returns the default accents and grouping for a numerator
// @Tags info
// @Produce json
// @Param numerator path int true "Beats per measure (2-15)"
// @Param denominator query int false "Beat unit, 4 or 8 (default: 4)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/accents/{numerator} [get]
func defaultAccents(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("numerator"))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid numerator %q", c.Param("numerator")))
		return
	}
	d, err := strconv.Atoi(c.DefaultQuery("denominator", "4"))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid denominator %q", c.Query("denominator")))
		return
	}
	ts, err := music.NewTimeSignature(n, d)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"timeSignature": ts.String(),
		"grouping":      music.DefaultGrouping(n),
		"accents":       accentValues(ts.Accents()),
		"visual":        ts.Visual(),
	})
}

func accentValues(levels []music.AccentLevel) []int {
	out := make([]int, len(levels))
	for i, a := range levels {
		out[i] = int(a)
	}
	return out
}

type parseRequest struct {
	Text     string `json:"text"`
	Velocity *int   `json:"velocity,omitempty"`
}

// parseMelody godoc
// @Summary Parse notation
// @Description Parses a notation string into timed notes
// @Tags melody
// @Accept json
// @Produce json
// @Param request body parseRequest true "Notation text"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/melody/parse [post]
func parseMelody(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	velocity := music.DefaultVelocity
	if req.Velocity != nil {
		velocity = *req.Velocity
	}
	notes, err := music.ParseMelodyWithVelocity(req.Text, velocity)
	if err != nil {
		badRequest(c, err)
		return
	}
	if notes == nil {
		notes = []music.Note{}
	}
	c.JSON(http.StatusOK, gin.H{
		"notes":         notes,
		"durationTicks": music.EndTick(notes),
	})
}

type formatRequest struct {
	Notes []music.Note `json:"notes"`
	Key   string       `json:"key,omitempty"`
}

// formatMelody godoc
// @Summary Format notes as notation
// @Description Renders notes as notation spelled for an optional key
// @Tags melody
// @Accept json
// @Produce json
// @Param request body formatRequest true "Notes and key"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/melody/format [post]
func formatMelody(c *gin.Context) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	key, err := scaleOrDefault(req.Key, music.CMajor())
	if err != nil {
		badRequest(c, err)
		return
	}
	for i, n := range req.Notes {
		if err := n.Validate(); err != nil {
			badRequest(c, fmt.Errorf("note %d: %w", i, err))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"text": music.FormatMelody(req.Notes, key.Spelling())})
}

// transposeRequest selects one transposition. Mode is chromatic, diatonic,
// inversion or key.
type transposeRequest struct {
	Mode      string `json:"mode" binding:"required"`
	Semitones int    `json:"semitones,omitempty"`
	Degrees   int    `json:"degrees,omitempty"`
	Pivot     string `json:"pivot,omitempty"`
	// Key is the source scale. Songs use their own key when it is empty.
	Key string `json:"key,omitempty"`
	// Target is the destination scale of a key change.
	Target string `json:"target,omitempty"`
}

func (r transposeRequest) transposition(key music.Scale) (music.Transposition, error) {
	switch strings.ToLower(r.Mode) {
	case "chromatic":
		return music.Chromatic{Semitones: r.Semitones}, nil
	case "diatonic":
		return music.DiatonicIn(key, r.Degrees), nil
	case "key":
		target, err := music.ParseScale(r.Target)
		if err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
		return music.KeyChange(key, target, r.Degrees), nil
	case "inversion", "invert":
		pivot, err := music.ParsePitch(r.Pivot)
		if err != nil {
			return nil, fmt.Errorf("pivot: %w", err)
		}
		return music.Inversion{Pivot: pivot}, nil
	}
	return nil, fmt.Errorf("%w: unknown transposition mode %q", music.ErrValidation, r.Mode)
}

type transposeNotesRequest struct {
	transposeRequest
	Notes []music.Note `json:"notes"`
}

// transposeMelody godoc
// @Summary Transpose notes
// @Description Transposes a list of notes without storing them; fails atomically
// @Tags melody
// @Accept json
// @Produce json
// @Param request body transposeNotesRequest true "Notes and transposition"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/melody/transpose [post]
func transposeMelody(c *gin.Context) {
	var req transposeNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	key, err := scaleOrDefault(req.Key, music.CMajor())
	if err != nil {
		badRequest(c, err)
		return
	}
	t, err := req.transposition(key)
	if err != nil {
		badRequest(c, err)
		return
	}
	notes, err := music.TransposeNotes(req.Notes, t)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notes":       notes,
		"transposed":  len(notes),
		"description": t.Describe(),
	})
}

func scaleOrDefault(s string, fallback music.Scale) (music.Scale, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return music.ParseScale(s)
}
