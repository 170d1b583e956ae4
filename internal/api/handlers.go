package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/history"
	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/reporter"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/fenilsonani/winsweep/internal/system"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

func (s *Server) healthCheck(c *gin.Context) {
	if s.store != nil {
		if err := s.store.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (s *Server) listTargets(c *gin.Context) {
	env := s.config.HostEnvironment()
	if err := env.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid host environment", Message: err.Error()})
		return
	}

	targets := s.config.EnabledTargets()
	resp := make([]TargetResponse, 0, len(targets))
	for _, t := range targets {
		roots, err := scanner.Resolve(t, env)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to resolve target", Message: err.Error()})
			return
		}
		if roots == nil {
			roots = []string{}
		}
		resp = append(resp, TargetResponse{Name: t.String(), Description: t.Description(), Roots: roots})
	}

	c.JSON(http.StatusOK, gin.H{"targets": resp})
}

func (s *Server) sweep(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	targets := s.config.EnabledTargets()
	if len(req.Targets) > 0 {
		parsed, err := scanner.ParseTargets(req.Targets)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid targets", Message: err.Error()})
			return
		}
		targets = parsed
	}

	if !s.sweeping.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "sweep in progress", Message: "wait for the running sweep to finish"})
		return
	}
	defer s.sweeping.Store(false)

	cfg := *s.config
	if req.DryRun != nil {
		cfg.DryRun = *req.DryRun
	}

	sweeper := cleaner.New(&cfg)
	sweeper.SetLogger(s.logger)
	sweeper.SetProgressReporter(s.progress)

	outcomes, err := sweeper.Sweep(c.Request.Context(), targets, cfg.HostEnvironment())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, platform.ErrInvalidEnvironment) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, ErrorResponse{Error: "sweep failed", Message: err.Error()})
		return
	}

	resp := SweepResponse{Report: reporter.NewDocument(outcomes)}
	if s.store != nil {
		run, err := s.store.Record(c.Request.Context(), history.SourceAPI, outcomes)
		if err != nil {
			s.logger.Error("failed to record sweep: %v", err)
		} else {
			resp.RunID = run.ID.String()
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) sweepProgress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": s.sweeping.Load(),
		"totals":  s.progress.Totals(),
	})
}

func (s *Server) listHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "history disabled", Message: "enable history in the configuration"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit", Message: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := s.store.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list history", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "limit": limit})
}

func (s *Server) getHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "history disabled", Message: "enable history in the configuration"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id", Message: err.Error()})
		return
	}

	run, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Message: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load run", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (s *Server) status(c *gin.Context) {
	info, err := platform.GetInfo(s.config.Overrides())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read platform", Message: err.Error()})
		return
	}

	dashboard, err := system.Snapshot(c.Request.Context(), system.SystemDrivePath(s.config.Launcher.Drive))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read system status", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Dashboard: dashboard, Platform: info})
}

func (s *Server) getAutostart(c *gin.Context) {
	enabled, err := system.AutostartEnabled()
	if err != nil {
		s.autostartError(c, err)
		return
	}
	c.JSON(http.StatusOK, AutostartResponse{Enabled: enabled})
}

func (s *Server) setAutostart(c *gin.Context) {
	var req AutostartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	if err := system.SetAutostart(*req.Enabled); err != nil {
		s.autostartError(c, err)
		return
	}
	s.logger.Info("autostart set to %v", *req.Enabled)
	c.JSON(http.StatusOK, AutostartResponse{Enabled: *req.Enabled})
}

func (s *Server) autostartError(c *gin.Context, err error) {
	if errors.Is(err, system.ErrUnsupported) {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "unsupported", Message: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "autostart failed", Message: err.Error()})
}
