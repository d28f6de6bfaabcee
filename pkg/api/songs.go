package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/james-see/mozart/pkg/codec"
	"github.com/james-see/mozart/pkg/music"
	"github.com/james-see/mozart/pkg/store"
)

// maxUploadSize bounds imported files.
const maxUploadSize = 8 << 20

type songStats struct {
	DurationTicks   int     `json:"durationTicks"`
	DurationSeconds float64 `json:"durationSeconds"`
	Measures        int     `json:"measures"`
	TicksPerBeat    int     `json:"ticksPerBeat"`
	TicksPerMeasure int     `json:"ticksPerMeasure"`
}

type songResponse struct {
	ID     string         `json:"id"`
	Song   codec.Document `json:"song"`
	Melody string         `json:"melody"`
	Stats  songStats      `json:"stats"`
}

func newSongResponse(id string, song *music.Song) songResponse {
	return songResponse{
		ID:     id,
		Song:   codec.NewDocument(song),
		Melody: song.FormatMelody(),
		Stats: songStats{
			DurationTicks:   song.DurationTicks(),
			DurationSeconds: song.DurationSeconds(),
			Measures:        song.MeasureCount(),
			TicksPerBeat:    song.TicksPerBeat(),
			TicksPerMeasure: song.TicksPerMeasure(),
		},
	}
}

// listSongs godoc
// @Summary List songs
// @Description Returns stored songs, most recently modified first
// @Tags songs
// @Produce json
// @Success 200 {object} map[string][]store.Summary
// @Router /api/v1/songs [get]
func (s *Server) listSongs(c *gin.Context) {
	list, err := s.store.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"songs": list})
}

type createRequest struct {
	Title         string `json:"title"`
	Composer      string `json:"composer,omitempty"`
	Tempo         int    `json:"tempo,omitempty"`
	TimeSignature string `json:"timeSignature,omitempty"`
	Key           string `json:"key,omitempty"`
	Melody        string `json:"melody,omitempty"`
}

// createSong godoc
// @Summary Create a song
// @Description Creates a song from the configured defaults, optionally with a melody
// @Tags songs
// @Accept json
// @Produce json
// @Param request body createRequest false "Initial settings"
// @Success 201 {object} songResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/songs [post]
func (s *Server) createSong(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	song, err := s.cfg.NewSong(req.Title)
	if err != nil {
		s.fail(c, err)
		return
	}
	if req.Composer != "" {
		song.SetComposer(req.Composer)
	}
	if err := applySettings(song, settingsRequest{
		Tempo:         optional(req.Tempo),
		TimeSignature: optional(req.TimeSignature),
		Key:           optional(req.Key),
	}); err != nil {
		s.fail(c, err)
		return
	}
	if req.Melody != "" {
		if err := song.ParseMelody(req.Melody); err != nil {
			s.fail(c, err)
			return
		}
	}
	id, err := s.store.Create(c.Request.Context(), song)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSongResponse(id, song))
}

func optional[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

// getSong godoc
// @Summary Get a song
// @Tags songs
// @Produce json
// @Param id path string true "Song ID"
// @Success 200 {object} songResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/songs/{id} [get]
func (s *Server) getSong(c *gin.Context) {
	id := c.Param("id")
	song, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSongResponse(id, song))
}

// replaceSong godoc
// @Summary Replace a song
// @Description Replaces a song with a JSON song document
// @Tags songs
// @Accept json
// @Produce json
// @Param id path string true "Song ID"
// @Param document body codec.Document true "Song document"
// @Success 200 {object} songResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/songs/{id} [put]
func (s *Server) replaceSong(c *gin.Context) {
	id := c.Param("id")
	song, err := codec.ReadJSON(c.Request.Body)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.Put(c.Request.Context(), id, song); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSongResponse(id, song))
}

// deleteSong godoc
// @Summary Delete a song
// @Tags songs
// @Param id path string true "Song ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/songs/{id} [delete]
func (s *Server) deleteSong(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// update runs fn against the stored song and writes the song response.
func (s *Server) update(c *gin.Context, fn func(*music.Song) error) {
	id := c.Param("id")
	song, err := s.store.Update(c.Request.Context(), id, fn)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSongResponse(id, song))
}

type settingsRequest struct {
	Title         *string `json:"title,omitempty"`
	Composer      *string `json:"composer,omitempty"`
	Tempo         *int    `json:"tempo,omitempty"`
	TimeSignature *string `json:"timeSignature,omitempty"`
	Key           *string `json:"key,omitempty"`
	Accents       []int   `json:"accents,omitempty"`
}

// applySettings validates every field before touching the song.
func applySettings(song *music.Song, req settingsRequest) error {
	var (
		ts      music.TimeSignature
		key     music.Scale
		accents []music.AccentLevel
		err     error
	)
	if req.TimeSignature != nil {
		if ts, err = music.ParseTimeSignature(*req.TimeSignature); err != nil {
			return err
		}
	}
	if req.Key != nil {
		if key, err = music.ParseScale(*req.Key); err != nil {
			return err
		}
	}
	if req.Accents != nil {
		accents = make([]music.AccentLevel, len(req.Accents))
		for i, v := range req.Accents {
			if accents[i], err = music.AccentLevelFromValue(v); err != nil {
				return fmt.Errorf("accent %d: %w", i, err)
			}
		}
		n := song.TimeSignature().Numerator()
		if req.TimeSignature != nil {
			n = ts.Numerator()
		}
		if len(accents) != n {
			return fmt.Errorf("%w: %d accents for %d beats", music.ErrValidation, len(accents), n)
		}
	}

	if req.Title != nil {
		song.SetTitle(*req.Title)
	}
	if req.Composer != nil {
		song.SetComposer(*req.Composer)
	}
	if req.Tempo != nil {
		song.SetTempo(*req.Tempo)
	}
	if req.TimeSignature != nil {
		if err := song.SetTimeSignature(ts); err != nil {
			return err
		}
	}
	if req.Key != nil {
		if err := song.SetKey(key); err != nil {
			return err
		}
	}
	if accents != nil {
		if err := song.SetAccents(accents); err != nil {
			return err
		}
	}
	return nil
}

// updateSettings godoc
// @Summary Update song settings
// @Description Sets title, composer, tempo (clamped to 20-300), time signature, key or accents
// @Tags songs
// @Accept json
// @Produce json
// @Param id path string true "Song ID"
// @Param request body settingsRequest true "Settings to change"
// @Success 200 {object} songResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/songs/{id}/settings [patch]
func (s *Server) updateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.update(c, func(song *music.Song) error {
		return applySettings(song, req)
	})
}

type melodyRequest struct {
	Text string `json:"text"`
}

// replaceMelody godoc
// @Summary Replace the melody
// @Description Parses notation and replaces every note; a parse error keeps the old notes
// @Tags songs
// @Accept json
// @Produce json
// @Param id path string true "Song ID"
// @Param request body melodyRequest true "Notation text"
// @Success 200 {object} songResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/songs/{id}/melody [put]
func (s *Server) replaceMelody(c *gin.Context) {
	var req melodyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.update(c, func(song *music.Song) error {
		return song.ParseMelody(req.Text)
	})
}

// addNote godoc
// @Summary Add a note
// @Tags songs
// @Accept json
// @Produce json
// @Param id path string true "Song ID"
// @Param note body music.Note true "Note"
// @Success 200 {object} songResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/songs/{id}/notes [post]
func (s *Server) addNote(c *gin.Context) {
	n := music.Note{Velocity: music.DefaultVelocity}
	if err := c.ShouldBindJSON(&n); err != nil {
		badRequest(c, err)
		return
	}
	s.update(c, func(song *music.Song) error {
		_, err := song.AddNote(n)
		return err
	})
}

// removeNote godoc
// @Summary Remove a note
// @Tags songs
// @Produce json
// @Param id path string true "Song ID"
// @Param index path int true "Note index"
// @Success 200 {object} songResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/songs/{id}/notes/{index} [delete]
func (s *Server) removeNote(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid note index %q", c.Param("index")))
		return
	}
	s.update(c, func(song *music.Song) error {
		_, err := song.RemoveNote(index)
		return err
	})
}

// transposeSong godoc
// @Summary Transpose a song
// @Description Chromatic, diatonic, inversion or key-change transposition; fails atomically
// @Tags songs
// @Accept json
// @Produce json
// @Param id path string true "Song ID"
// @Param request body transposeRequest true "Transposition"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/songs/{id}/transpose [post]
func (s *Server) transposeSong(c *gin.Context) {
	var req transposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	var (
		count       int
		description string
	)
	song, err := s.store.Update(c.Request.Context(), id, func(song *music.Song) error {
		key, err := scaleOrDefault(req.Key, song.Key())
		if err != nil {
			return err
		}
		t, err := req.transposition(key)
		if err != nil {
			return err
		}
		description = t.Describe()
		d, ok := t.(music.Diatonic)
		if !ok || d.Target == nil {
			count, err = song.Transpose(t)
			return err
		}
		if d.Source == song.Key() {
			count, err = song.ChangeKey(*d.Target, d.Degrees)
			return err
		}
		if count, err = song.Transpose(t); err != nil {
			return err
		}
		return song.SetKey(*d.Target)
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transposed":  count,
		"description": description,
		"result":      newSongResponse(id, song),
	})
}

// cycleAccent godoc
// @Summary Cycle a beat accent
// @Description Advances the accent of a beat: weak, medium, strong, weak
// @Tags songs
// @Produce json
// @Param id path string true "Song ID"
// @Param beat path int true "Beat index, 0-based"
// @Success 200 {object} songResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/songs/{id}/accents/{beat}/cycle [post]
func (s *Server) cycleAccent(c *gin.Context) {
	beat, err := strconv.Atoi(c.Param("beat"))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid beat %q", c.Param("beat")))
		return
	}
	s.update(c, func(song *music.Song) error {
		_, err := song.CycleAccent(beat)
		return err
	})
}

// detectKey godoc
// @Summary Detect the key
// @Description Guesses a major or natural minor key from the notes
// @Tags songs
// @Produce json
// @Param id path string true "Song ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/songs/{id}/detect [get]
func (s *Server) detectKey(c *gin.Context) {
	song, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	key, ok := song.DetectKey()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"detected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detected": true, "key": key.String()})
}

var exportTypes = map[codec.Format]struct {
	ext         string
	contentType string
}{
	codec.FormatMIDI:     {".mid", "audio/midi"},
	codec.FormatJSON:     {".mozart.json", "application/json"},
	codec.FormatYAML:     {".yaml", "application/yaml"},
	codec.FormatNotation: {".txt", "text/plain; charset=utf-8"},
}

// exportSong godoc
// @Summary Export a song
// @Description Downloads the song as midi, json, yaml or notation
// @Tags songs
// @Produce application/octet-stream
// @Param id path string true "Song ID"
// @Param format path string true "midi, json, yaml or notation"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/songs/{id}/export/{format} [get]
func (s *Server) exportSong(c *gin.Context) {
	format := codec.Format(strings.ToLower(c.Param("format")))
	typ, ok := exportTypes[format]
	if !ok {
		badRequest(c, fmt.Errorf("unsupported export format %q", c.Param("format")))
		return
	}
	song, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	data, err := s.conv.Encode(song, format)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exportName(song.Metadata.Title, typ.ext)))
	c.Data(http.StatusOK, typ.contentType, data)
}

func exportName(title, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, title)
	if name == "" {
		name = "song"
	}
	return name + ext
}

// importSong godoc
// @Summary Import a song
// @Description Upload a MIDI, JSON, YAML or notation file and store it as a new song
// @Tags songs
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Song file"
// @Success 201 {object} songResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/songs/import [post]
func (s *Server) importSong(c *gin.Context) {
	// Get uploaded file
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	if len(data) > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	format := codec.DetectFormat(header.Filename)
	song, err := s.conv.Decode(data, format)
	if err != nil {
		s.fail(c, err)
		return
	}
	if song.Metadata.Title == music.DefaultTitle && format != codec.FormatJSON && format != codec.FormatYAML {
		song.SetTitle(strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename)))
	}
	id, err := s.store.Create(c.Request.Context(), song)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSongResponse(id, song))
}
