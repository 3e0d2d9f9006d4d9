package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/eventlog"
	"github.com/platformbuilds/vigilante-core/internal/models"
	"github.com/platformbuilds/vigilante-core/internal/simulation"
	"github.com/platformbuilds/vigilante-core/pkg/cache"
	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

const (
	defaultEventLimit = 200
	maxEventLimit     = 10000
)

// EventView is the dashboard projection of a step record.
type EventView struct {
	Time           string       `json:"time"`
	DispMm         float64      `json:"disp_mm"`
	CumDispMmTotal float64      `json:"cum_disp_mm_total"`
	VelMmHr        float64      `json:"vel_mm_hr"`
	State          models.State `json:"state"`
	Rationale      string       `json:"rationale,omitempty"`
	LLMLevel       models.State `json:"llm_level,omitempty"`
	Disagreement   bool         `json:"disagreement"`
}

// NewEventView projects rec. Records written before disp_mm existed fall
// back to the cumulative total.
func NewEventView(rec models.StepRecord) EventView {
	disp := rec.DispMm
	if disp == 0 && rec.CumDispMmTotal != 0 {
		disp = rec.CumDispMmTotal
	}
	rationale := rec.LLMRationale
	if rec.LLMJSON != nil && rec.LLMJSON.Rationale != "" {
		rationale = rec.LLMJSON.Rationale
	}
	return EventView{
		Time:           rec.Time,
		DispMm:         disp,
		CumDispMmTotal: rec.CumDispMmTotal,
		VelMmHr:        rec.VelMmHr,
		State:          rec.CurrentState,
		Rationale:      rationale,
		LLMLevel:       rec.LLMLevel,
		Disagreement:   rec.Disagreement,
	}
}

// EventsHandler serves the artifacts a simulation leaves behind: the step
// log, the run summary and the latest step in the cache.
type EventsHandler struct {
	config func() *config.Config
	cache  cache.Cache
	logger logger.Logger
}

func NewEventsHandler(cfg func() *config.Config, c cache.Cache, logger logger.Logger) *EventsHandler {
	return &EventsHandler{config: cfg, cache: c, logger: logger}
}

// GET /api/events?limit=200&hours=
func (h *EventsHandler) GetEvents(c *gin.Context) {
	limit := defaultEventLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "code": "INVALID_REQUEST"})
			return
		}
		limit = n
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	var hours float64
	if v := c.Query("hours"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive number", "code": "INVALID_REQUEST"})
			return
		}
		hours = f
	}

	path := h.config().EventLog.Path
	recs, err := eventlog.ReadTail(path, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	recs = withinHours(recs, hours)

	events := make([]EventView, 0, len(recs))
	for _, rec := range recs {
		events = append(events, NewEventView(rec))
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
		"source": path,
	})
}

// withinHours keeps the records no older than hours before the newest one.
func withinHours(recs []models.StepRecord, hours float64) []models.StepRecord {
	if hours <= 0 || len(recs) == 0 {
		return recs
	}
	last, err := time.Parse(models.TimeLayout, recs[len(recs)-1].Time)
	if err != nil {
		return recs
	}
	cutoff := last.Add(-time.Duration(hours * float64(time.Hour)))
	out := recs[:0:0]
	for _, rec := range recs {
		t, err := time.Parse(models.TimeLayout, rec.Time)
		if err != nil || t.Before(cutoff) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// GET /api/summary
func (h *EventsHandler) GetSummary(c *gin.Context) {
	summary, err := simulation.LoadSummary(h.config().Summary.Path)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GET /api/snapshot/latest
func (h *EventsHandler) GetLatestSnapshot(c *gin.Context) {
	if h.cache == nil {
		_ = c.Error(cache.ErrCacheMiss)
		return
	}
	var latest models.LatestStep
	if err := cache.GetJSON(c.Request.Context(), h.cache, cache.LatestStepKey, &latest); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, latest)
}
