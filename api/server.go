package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/seoaudit/analyzer"
	"github.com/seo-optimizer/seoaudit/logging"
	"github.com/seo-optimizer/seoaudit/middleware"
	"github.com/seo-optimizer/seoaudit/report"
	"github.com/seo-optimizer/seoaudit/stats"
)

// Auditor runs a single page audit.
type Auditor interface {
	Analyze(ctx context.Context, rawURL string) (*analyzer.AnalysisResult, error)
}

// Server wires the audit engine to HTTP.
type Server struct {
	Auditor    Auditor
	Statistics *logging.Statistics
	Storage    *stats.Storage
	Limiter    *middleware.RateLimiter
	Logger     *logging.Logger
	DevMode    bool
}

type auditRequest struct {
	URL string `json:"url" binding:"required"`
}

// Router builds the gin engine with all middleware and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.Logger.Writer(logging.LevelDebug)))
	r.Use(middleware.ErrorHandler(s.Logger))
	r.Use(middleware.CORS())
	if s.Limiter != nil {
		r.Use(s.Limiter.RateLimit())
	}
	if s.Statistics != nil {
		r.Use(middleware.Stats(s.Statistics, s.Logger, "/api/analyze", "/api/report"))
	}

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/analyze", s.analyze)
		api.POST("/report", s.report)
		api.GET("/statistics", s.statistics)
	}
	return r
}

func (s *Server) health(c *gin.Context) {
	s.Logger.Debug("Health check request received from: %s", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// audit binds the request body and runs the audit, answering with an error
// itself when anything fails.
func (s *Server) audit(c *gin.Context) (*analyzer.AnalysisResult, bool) {
	var req auditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL provided"})
		return nil, false
	}
	c.Set(middleware.AuditTargetKey, req.URL)
	s.Logger.Info("Analyze request for %s received from: %s", req.URL, c.ClientIP())

	res, err := s.Auditor.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.Logger.Error("Analyzing %s: %v", req.URL, err)
		}
		c.JSON(status, gin.H{"error": "Failed to analyze URL: " + err.Error()})
		return nil, false
	}
	return res, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, analyzer.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, analyzer.ErrFetchFailed), errors.Is(err, analyzer.ErrBadStatus):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) analyze(c *gin.Context) {
	res, ok := s.audit(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) report(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, ok := s.audit(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, res, format); err != nil {
		s.Logger.Error("Rendering report for %s: %v", res.NormalizedURL, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.OutputFileName(res.NormalizedURL, format)+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) statistics(c *gin.Context) {
	out := gin.H{}
	if s.Statistics != nil {
		for k, v := range s.Statistics.Snapshot(s.DevMode) {
			out[k] = v
		}
	}
	if s.Storage != nil {
		month := s.Storage.GetCurrentStats()
		out["audits"] = gin.H{
			"completed":       month.Audits,
			"failed":          month.Failures,
			"degradedProbes":  month.DegradedProbes,
			"averageScore":    month.AverageScore(),
			"goodResults":     month.GoodResults,
			"recommendations": month.Recommendations,
			"issues":          month.Issues,
		}
	}
	c.JSON(http.StatusOK, out)
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("Server starting on http://localhost%s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving API: %w", err)
	case <-ctx.Done():
	}

	s.Logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API: %w", err)
	}
	return nil
}
