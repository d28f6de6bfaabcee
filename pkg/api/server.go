// Package api provides the REST API server for mozart
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/mozart/pkg/codec"
	"github.com/james-see/mozart/pkg/config"
	"github.com/james-see/mozart/pkg/music"
	"github.com/james-see/mozart/pkg/store"
)

// @title Mozart API
// @version 1.0
// @description Melody editing, transposition and MIDI export
// @host localhost:8080
// @BasePath /api/v1

// Server serves the engine and a song store over HTTP.
type Server struct {
	store  store.Store
	cfg    *config.Config
	conv   *codec.Converter
	logger *slog.Logger
	router *gin.Engine
}

// NewServer wires the routes. A nil cfg uses config.Default and a nil
// logger uses slog.Default.
func NewServer(st store.Store, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	midiConv, err := cfg.MIDIConverter()
	if err != nil {
		return nil, fmt.Errorf("failed to configure MIDI export: %w", err)
	}
	s := &Server{
		store:  st,
		cfg:    cfg,
		conv:   codec.New(midiConv),
		logger: logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.GET("/scales", listScales)
		v1.GET("/accents/:numerator", defaultAccents)
		v1.POST("/melody/parse", parseMelody)
		v1.POST("/melody/format", formatMelody)
		v1.POST("/melody/transpose", transposeMelody)

		songs := v1.Group("/songs")
		songs.GET("", s.listSongs)
		songs.POST("", s.createSong)
		songs.POST("/import", s.importSong)
		songs.GET("/:id", s.getSong)
		songs.PUT("/:id", s.replaceSong)
		songs.DELETE("/:id", s.deleteSong)
		songs.PATCH("/:id/settings", s.updateSettings)
		songs.PUT("/:id/melody", s.replaceMelody)
		songs.POST("/:id/notes", s.addNote)
		songs.DELETE("/:id/notes/:index", s.removeNote)
		songs.POST("/:id/transpose", s.transposeSong)
		songs.POST("/:id/accents/:beat/cycle", s.cycleAccent)
		songs.GET("/:id/detect", s.detectKey)
		songs.GET("/:id/export/:format", s.exportSong)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Handler returns the router wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("starting API server", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// errorStatus maps engine error kinds to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, music.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, music.ErrParse),
		errors.Is(err, music.ErrValidation),
		errors.Is(err, music.ErrRange),
		errors.Is(err, music.ErrFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	}
	abortWithError(c, status, err)
}

func abortWithError(c *gin.Context, status int, err error) {
	body := gin.H{"error": err.Error()}
	var pe *music.ParseError
	if errors.As(err, &pe) {
		body["offset"] = pe.Offset
		body["index"] = pe.Index
		body["token"] = pe.Token
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	abortWithError(c, http.StatusBadRequest, err)
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "mozart",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns the song formats accepted by import and export
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats": codec.GetSupportedFormats(),
	})
}
