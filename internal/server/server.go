// Package server exposes the debug log parser over HTTP.
package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jamestexas/apex-log-parsin/internal/apexlog"
	"github.com/jamestexas/apex-log-parsin/internal/splitter"
)

const defaultFilename = "request.log"

// Server holds the Gin engine and the parser it serves.
type Server struct {
	engine  *gin.Engine
	parser  *apexlog.Parser
	log     logrus.FieldLogger
	addr    string
	maxBody int64
}

// New creates a parse API listening on addr. Request bodies larger than
// maxBodyMb megabytes are rejected.
func New(parser *apexlog.Parser, addr string, maxBodyMb int, log logrus.FieldLogger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	s := &Server{
		engine:  engine,
		parser:  parser,
		log:     log,
		addr:    addr,
		maxBody: int64(maxBodyMb) * 1024 * 1024,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	api.POST("/parse", s.handleParse)
	api.POST("/split", s.handleSplit)
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.addr).Info("parse API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serving parse API")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down parse API")
	}
	return nil
}

func (s *Server) handleParse(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	filename := c.DefaultQuery("filename", defaultFilename)
	c.JSON(http.StatusOK, s.parser.Parse(body, filename))
}

func (s *Server) handleSplit(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	filename := c.DefaultQuery("filename", defaultFilename)

	logs := []*apexlog.ParsedLog{}
	sp := splitter.New(func(text string, seq int) {
		logs = append(logs, s.parser.Parse(text, splitter.Name(filename, seq)))
	})
	for _, line := range strings.Split(body, "\n") {
		sp.ProcessLine(line)
	}
	sp.Finalize()

	c.JSON(http.StatusOK, logs)
}

func (s *Server) readBody(c *gin.Context) (string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "log exceeds request size limit"})
			return "", false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return "", false
	}
	return string(data), true
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("request")
	}
}
