package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/mozart/pkg/codec"
	"github.com/james-see/mozart/pkg/music"
	"github.com/james-see/mozart/pkg/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st := store.NewMemory()
	srv, err := NewServer(st, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return srv, st
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createSong(t *testing.T, h http.Handler, body createRequest) songResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/v1/songs", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[songResponse](t, w)
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := do(t, srv.Handler(), http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"service":"mozart"`)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/songs", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListScales(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/api/v1/scales", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Scales []scaleInfo `json:"scales"`
	}](t, w)
	require.Len(t, resp.Scales, 9)
	assert.Equal(t, "Major", resp.Scales[0].ID)
	assert.Equal(t, []int{0, 2, 4, 5, 7, 9, 11}, resp.Scales[0].Intervals)
	assert.True(t, resp.Scales[1].Minor)
}

func TestDefaultAccents(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		path    string
		status  int
		accents []int
	}{
		{"/api/v1/accents/7?denominator=8", http.StatusOK, []int{3, 1, 1, 2, 1, 2, 1}},
		{"/api/v1/accents/4", http.StatusOK, []int{3, 1, 2, 1}},
		{"/api/v1/accents/16", http.StatusBadRequest, nil},
		{"/api/v1/accents/x", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(t, srv.Handler(), http.MethodGet, tt.path, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.accents == nil {
				return
			}
			resp := decode[struct {
				Accents []int `json:"accents"`
			}](t, w)
			assert.Equal(t, tt.accents, resp.Accents)
		})
	}
}

func TestParseMelodyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodPost, "/api/v1/melody/parse", parseRequest{Text: "C4q D4e Rq E4h"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Notes         []music.Note `json:"notes"`
		DurationTicks int          `json:"durationTicks"`
	}](t, w)
	require.Len(t, resp.Notes, 3)
	assert.Equal(t, music.Note{Pitch: 64, Start: 1200, Duration: 960, Velocity: 100}, resp.Notes[2])
	assert.Equal(t, 2160, resp.DurationTicks)

	w = do(t, srv.Handler(), http.MethodPost, "/api/v1/melody/parse", parseRequest{Text: "C4 H4q"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errResp := decode[struct {
		Offset int    `json:"offset"`
		Index  int    `json:"index"`
		Token  string `json:"token"`
	}](t, w)
	assert.Equal(t, 3, errResp.Offset)
	assert.Equal(t, 1, errResp.Index)
	assert.Equal(t, "H4q", errResp.Token)
}

func TestFormatMelodyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	notes := []music.Note{
		{Pitch: 70, Start: 0, Duration: 480, Velocity: 100},
		{Pitch: 65, Start: 960, Duration: 240, Velocity: 100},
	}
	w := do(t, srv.Handler(), http.MethodPost, "/api/v1/melody/format", formatRequest{Notes: notes, Key: "F major"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bb4q Rq F4e", decode[map[string]string](t, w)["text"])
}

func TestTransposeMelodyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	notes := []music.Note{{Pitch: 60, Duration: 480, Velocity: 100}, {Pitch: 64, Start: 480, Duration: 480, Velocity: 100}}

	tests := []struct {
		name   string
		req    transposeRequest
		status int
		want   []music.Pitch
	}{
		{"chromatic", transposeRequest{Mode: "chromatic", Semitones: 7}, http.StatusOK, []music.Pitch{67, 71}},
		{"diatonic", transposeRequest{Mode: "diatonic", Degrees: 2}, http.StatusOK, []music.Pitch{64, 67}},
		{"inversion", transposeRequest{Mode: "inversion", Pivot: "C4"}, http.StatusOK, []music.Pitch{60, 56}},
		{"key change", transposeRequest{Mode: "key", Target: "D major"}, http.StatusOK, []music.Pitch{62, 66}},
		{"chromatic range", transposeRequest{Mode: "chromatic", Semitones: 25}, http.StatusBadRequest, nil},
		{"unknown mode", transposeRequest{Mode: "sideways"}, http.StatusBadRequest, nil},
		{"missing mode", transposeRequest{}, http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv.Handler(), http.MethodPost, "/api/v1/melody/transpose",
				transposeNotesRequest{transposeRequest: tt.req, Notes: notes})
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.want == nil {
				return
			}
			resp := decode[struct {
				Notes []music.Note `json:"notes"`
			}](t, w)
			var got []music.Pitch
			for _, n := range resp.Notes {
				got = append(got, n.Pitch)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSongLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	created := createSong(t, h, createRequest{Title: "Minuet", Tempo: 96, TimeSignature: "3/4", Melody: "C4q E4q G4q C5h."})
	assert.Equal(t, "Minuet", created.Song.Metadata.Title)
	assert.Equal(t, 96, created.Song.Settings.Tempo)
	assert.Equal(t, []int{3, 1, 1}, created.Song.Settings.AccentPattern)
	assert.Equal(t, "C4q E4q G4q C5h.", created.Melody)
	assert.Equal(t, 2, created.Stats.Measures)
	id := created.ID

	w := do(t, h, http.MethodGet, "/api/v1/songs/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[songResponse](t, w).Song.Notes, 4)

	w = do(t, h, http.MethodGet, "/api/v1/songs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Songs []store.Summary `json:"songs"`
	}](t, w)
	require.Len(t, list.Songs, 1)
	assert.Equal(t, id, list.Songs[0].ID)

	w = do(t, h, http.MethodDelete, "/api/v1/songs/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodGet, "/api/v1/songs/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReplaceMelodyKeepsNotesOnError(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSong(t, h, createRequest{Melody: "C4 D4"}).ID

	w := do(t, h, http.MethodPut, "/api/v1/songs/"+id+"/melody", melodyRequest{Text: "E4 H4q"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/songs/"+id, nil)
	assert.Equal(t, "C4q D4q", decode[songResponse](t, w).Melody)

	w = do(t, h, http.MethodPut, "/api/v1/songs/"+id+"/melody", melodyRequest{Text: "E4h"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "E4h", decode[songResponse](t, w).Melody)
}

func TestNotesEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSong(t, h, createRequest{Melody: "C4"}).ID

	w := do(t, h, http.MethodPost, "/api/v1/songs/"+id+"/notes", gin.H{"pitch": 67, "start": 480, "duration": 480})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	notes := decode[songResponse](t, w).Song.Notes
	require.Len(t, notes, 2)
	assert.Equal(t, music.DefaultVelocity, notes[1].Velocity)

	w = do(t, h, http.MethodPost, "/api/v1/songs/"+id+"/notes", music.Note{Pitch: 200, Duration: 480, Velocity: 90})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/api/v1/songs/"+id+"/notes/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodDelete, "/api/v1/songs/"+id+"/notes/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Rq G4q", decode[songResponse](t, w).Melody)
}

func TestTransposeSong(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSong(t, h, createRequest{Melody: "C4 E4 G4"}).ID

	w := do(t, h, http.MethodPost, "/api/v1/songs/"+id+"/transpose", transposeRequest{Mode: "key", Target: "D major"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Transposed  int          `json:"transposed"`
		Description string       `json:"description"`
		Result      songResponse `json:"result"`
	}](t, w)
	assert.Equal(t, 3, resp.Transposed)
	assert.Equal(t, "D4q F#4q A4q", resp.Result.Melody)
	assert.Equal(t, codec.DocumentKey{Root: "D", Scale: "Major"}, resp.Result.Song.Settings.Key)

	w = do(t, h, http.MethodPost, "/api/v1/songs/"+id+"/transpose", transposeRequest{Mode: "inversion", Pivot: "C0"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/songs/"+id, nil)
	assert.Equal(t, "D4q F#4q A4q", decode[songResponse](t, w).Melody, "failed transposition must not change the song")
}

func TestUpdateSettings(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSong(t, h, createRequest{Title: "Dance"}).ID

	tempo := 500
	ts := "7/8"
	w := do(t, h, http.MethodPatch, "/api/v1/songs/"+id+"/settings", settingsRequest{Tempo: &tempo, TimeSignature: &ts})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc := decode[songResponse](t, w).Song
	assert.Equal(t, music.MaxTempo, doc.Settings.Tempo)
	assert.Equal(t, codec.DocumentTimeSignature{Numerator: 7, Denominator: 8}, doc.Settings.TimeSignature)
	assert.Equal(t, []int{3, 1, 1, 2, 1, 2, 1}, doc.Settings.AccentPattern)

	key := "Bb dorian"
	w = do(t, h, http.MethodPatch, "/api/v1/songs/"+id+"/settings", settingsRequest{Key: &key, Accents: []int{3, 1}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, h, http.MethodGet, "/api/v1/songs/"+id, nil)
	assert.Equal(t, "Major", decode[songResponse](t, w).Song.Settings.Key.Scale, "rejected settings must not apply")

	w = do(t, h, http.MethodPost, "/api/v1/songs/"+id+"/accents/1/cycle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{3, 2, 1, 2, 1, 2, 1}, decode[songResponse](t, w).Song.Settings.AccentPattern)

	w = do(t, h, http.MethodPost, "/api/v1/songs/"+id+"/accents/7/cycle", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportSong(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := createSong(t, h, createRequest{Title: "Etude No. 1", Melody: "C4 D4"}).ID

	w := do(t, h, http.MethodGet, "/api/v1/songs/"+id+"/export/midi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=Etude_No_1.mid", w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("MThd")))

	w = do(t, h, http.MethodGet, "/api/v1/songs/"+id+"/export/notation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "C4q D4q\n", w.Body.String())

	w = do(t, h, http.MethodGet, "/api/v1/songs/"+id+"/export/wav", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportSong(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	song := music.NewSong("")
	require.NoError(t, song.ParseMelody("E4 G4h"))
	midi, err := codec.NewMIDIConverter().GenerateMIDI(song)
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "riff.mid")
	require.NoError(t, err)
	_, err = fw.Write(midi)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/songs/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[songResponse](t, w)
	assert.Equal(t, "riff", resp.Song.Metadata.Title)
	assert.Equal(t, "E4q G4h", resp.Melody)

	w = do(t, h, http.MethodPost, "/api/v1/songs/import", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownSongIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/api/v1/songs/not-a-uuid", "/api/v1/songs/" + store.NewID()} {
		w := do(t, srv.Handler(), http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}
