package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-marketplace-notifications/internal/detector"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/scheduler"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
)

// DetectorRunner runs detectors on demand and describes their schedule
type DetectorRunner interface {
	Entries() []scheduler.Entry
	Detectors() []detector.Detector
	RunNow(ctx context.Context, name string) (*domain.DetectorRun, error)
}

// RunHistory reads detector run records
type RunHistory interface {
	LastRuns(ctx context.Context) (map[string]*domain.DetectorRun, error)
	FindRecent(ctx context.Context, detector string, limit int) ([]*domain.DetectorRun, error)
}

// DetectorHandler exposes detector configuration, history and manual runs
type DetectorHandler struct {
	runner  DetectorRunner
	history RunHistory
	log     *logger.Logger
}

// NewDetectorHandler creates a new detector handler. history may be nil
// when run history is not recorded.
func NewDetectorHandler(runner DetectorRunner, history RunHistory, log *logger.Logger) *DetectorHandler {
	return &DetectorHandler{
		runner:  runner,
		history: history,
		log:     log,
	}
}

// DetectorView is one row of the detector listing
type DetectorView struct {
	scheduler.Entry
	Config  detector.Config     `json:"config"`
	LastRun *domain.DetectorRun `json:"lastRun,omitempty"`
}

// ListDetectors lists every detector with its config, schedule and last run
func (h *DetectorHandler) ListDetectors(c *gin.Context) {
	var last map[string]*domain.DetectorRun
	if h.history != nil {
		runs, err := h.history.LastRuns(c.Request.Context())
		if err != nil {
			// the listing is still useful without history
			h.log.Warn("Failed to load last detector runs", "error", err)
		}
		last = runs
	}

	configs := make(map[string]detector.Config)
	for _, d := range h.runner.Detectors() {
		configs[d.Name()] = d.Config()
	}

	entries := h.runner.Entries()
	views := make([]DetectorView, 0, len(entries))
	for _, e := range entries {
		views = append(views, DetectorView{
			Entry:   e,
			Config:  configs[e.Detector],
			LastRun: last[e.Detector],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  views,
		"total": len(views),
	})
}

// GetRuns lists the recent runs of one detector
func (h *DetectorHandler) GetRuns(c *gin.Context) {
	name := c.Param("name")
	if detector.Find(h.runner.Detectors(), name) == nil {
		c.JSON(http.StatusNotFound, errors.NewNotFoundError("detector "+name+" not found", nil))
		return
	}
	if h.history == nil {
		c.JSON(http.StatusOK, gin.H{"data": []*domain.DetectorRun{}})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	runs, err := h.history.FindRecent(c.Request.Context(), name, limit)
	if err != nil {
		h.log.Error("Failed to get detector runs", "error", err, "detector", name)
		respondError(c, "Failed to get detector runs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": runs,
	})
}

// RunDetector runs one tick of a detector and returns its run record
func (h *DetectorHandler) RunDetector(c *gin.Context) {
	name := c.Param("name")

	run, err := h.runner.RunNow(c.Request.Context(), name)
	if err != nil {
		respondError(c, "Failed to run detector", err)
		return
	}

	h.log.Info("Detector run on demand", "detector", name, "run_id", run.RunID, "emitted", run.Emitted)
	c.JSON(http.StatusOK, run)
}
