package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/vigilante-core/internal/advisor"
	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/models"
	"github.com/platformbuilds/vigilante-core/internal/series"
	"github.com/platformbuilds/vigilante-core/internal/simulation"
	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

var errInvalidPoint = errors.New("invalid point")

// AnalyzePoint is one posted displacement sample.
type AnalyzePoint struct {
	Time   string   `json:"time" binding:"required"`
	DispMm *float64 `json:"disp_mm"`
}

// AnalyzeRequest evaluates a posted series at index (default: the last
// point). FixedRules overrides the configured limits for this request.
type AnalyzeRequest struct {
	Points     []AnalyzePoint     `json:"points" binding:"required,min=2,dive"`
	Index      *int               `json:"index"`
	FixedRules *models.FixedRules `json:"fixed_rules"`
}

type AnalyzeResponse struct {
	Snapshot      models.Snapshot `json:"snapshot"`
	Prompt        string          `json:"prompt"`
	PolicyVersion string          `json:"policy_version"`
	Points        int             `json:"points"`
}

// AnalyzeHandler runs the deterministic pipeline on an ad-hoc series and
// returns the snapshot with the prompt an advisor would receive. No
// advisor is called.
type AnalyzeHandler struct {
	config func() *config.Config
	policy advisor.Policy
	logger logger.Logger
}

func NewAnalyzeHandler(cfg func() *config.Config, policy advisor.Policy, logger logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{config: cfg, policy: policy, logger: logger}
}

// POST /api/analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	s, err := seriesFromPoints(req.Points)
	if err != nil {
		e := c.Error(err)
		if errors.Is(err, errInvalidPoint) {
			e.SetType(gin.ErrorTypeBind)
		}
		return
	}

	cfg := *h.config()
	if req.FixedRules != nil {
		cfg.FixedRules = config.FixedRulesConfig{Enabled: true, FixedRules: *req.FixedRules}
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}

	snap, err := simulation.Analyze(&cfg, s, index)
	if err != nil {
		_ = c.Error(err)
		return
	}
	prompt, err := advisor.NewPromptBuilder(h.policy, cfg.LLM.JustLength).Build(snap)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Debug("Ad-hoc analysis",
		"points", s.Len(),
		"index", index,
		"state", snap.Decision.State,
		"rule", snap.Decision.Rule)

	c.JSON(http.StatusOK, AnalyzeResponse{
		Snapshot:      snap,
		Prompt:        prompt,
		PolicyVersion: h.policy.Version(),
		Points:        s.Len(),
	})
}

// seriesFromPoints cleans posted samples the way the CSV loader does:
// missing or non-finite values are dropped, samples are sorted and the
// first of duplicate timestamps wins.
func seriesFromPoints(points []AnalyzePoint) (*series.Series, error) {
	type sample struct {
		t time.Time
		v float64
	}
	samples := make([]sample, 0, len(points))
	for i, p := range points {
		t, err := config.ParseStartAt(p.Time)
		if err != nil {
			return nil, fmt.Errorf("%w %d: time %q", errInvalidPoint, i, p.Time)
		}
		if p.DispMm == nil || math.IsNaN(*p.DispMm) || math.IsInf(*p.DispMm, 0) {
			continue
		}
		samples = append(samples, sample{t: t, v: *p.DispMm})
	}
	sort.SliceStable(samples, func(a, b int) bool { return samples[a].t.Before(samples[b].t) })

	times := make([]time.Time, 0, len(samples))
	disp := make([]float64, 0, len(samples))
	for _, smp := range samples {
		if n := len(times); n > 0 && times[n-1].Equal(smp.t) {
			continue
		}
		times = append(times, smp.t)
		disp = append(disp, smp.v)
	}
	return series.New(times, disp)
}
