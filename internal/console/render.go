package console

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/platformbuilds/vigilante-core/internal/models"
	"github.com/platformbuilds/vigilante-core/internal/simulation"
)

var (
	colorNormal = lipgloss.Color("10")
	colorAlerta = lipgloss.Color("11")
	colorAlarma = lipgloss.Color("9")
	colorMuted  = lipgloss.Color("8")

	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

func stateColor(s models.State) lipgloss.TerminalColor {
	switch s {
	case models.StateAlarma:
		return colorAlarma
	case models.StateAlerta:
		return colorAlerta
	case models.StateNormal:
		return colorNormal
	}
	return lipgloss.NoColor{}
}

// velocityColor grades |v| against the active thresholds.
func velocityColor(v float64, thr models.ActiveThresholds) lipgloss.TerminalColor {
	a := math.Abs(v)
	switch {
	case a > thr.AlarmaMmHr:
		return colorAlarma
	case a > thr.AlertaMmHr:
		return colorAlerta
	}
	return colorNormal
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		})
}

func num(v float64) string { return fmt.Sprintf("%.3f", v) }

func renderRichStep(v stepView) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("SNAPSHOT @ "+v.Time) + "\n")
	badge := lipgloss.NewStyle().Bold(true).Foreground(stateColor(v.State)).Render("[ " + v.State.String() + " ]")
	b.WriteString(fmt.Sprintf("State %s  decision %s | rule %s\n", badge, v.Decision.Source, v.Decision.Rule))

	velStyle := lipgloss.NewStyle().Bold(true).Foreground(velocityColor(v.Metrics.VelMmHr, v.Thresholds))
	metrics := newTable("Metric", "Value").
		Row("Cumulative reading (mm)", num(v.Metrics.DispMm)).
		Row("Last step displacement (mm)", num(v.Metrics.DeltaMm)).
		Row("Window accumulation (mm)", num(v.Metrics.CumWindowMm)).
		Row("Velocity (mm/hr)", velStyle.Render(num(v.Metrics.VelMmHr))).
		Row("Accumulation rate (mm/hr)", num(v.Metrics.AccumRateMmHr)).
		Row(fmt.Sprintf("Projection %gh (mm)", v.Metrics.PeriodHours), num(v.Metrics.AccumMmPerPeriod)).
		Row("Bollinger vel position", num(v.Bollinger))

	thr := newTable("Threshold", "mm/hr").
		Row("Alerta", num(v.Thresholds.AlertaMmHr)).
		Row("Alarma", num(v.Thresholds.AlarmaMmHr)).
		Row("Source", v.Thresholds.Source)

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, metrics.String(), "  ", thr.String()) + "\n")

	window := fmt.Sprintf("Window %.2fh, %d points | cum min %s max %s | zero crossing %t",
		v.Window.DurationHours, v.Window.NPoints, num(v.Window.CumMinMm), num(v.Window.CumMaxMm), v.Window.SignChangeWindow)
	if math.Abs(v.Metrics.CumWindowMm) > v.Window.AccumWindowThresholdMm && v.Window.AccumWindowThresholdMm > 0 {
		window += lipgloss.NewStyle().Foreground(colorAlerta).Render(
			fmt.Sprintf(" | window accumulation above %.2f mm", v.Window.AccumWindowThresholdMm))
	}
	b.WriteString(mutedStyle.Render(window) + "\n")

	if advisory := richAdvisory(v.LLM); advisory != "" {
		b.WriteString(advisory + "\n")
	}
	return b.String()
}

func richAdvisory(l llmView) string {
	if l.JSON == nil && l.Raw == "" && l.Error == "" {
		return ""
	}
	title := "Advisor (agrees)"
	border := colorNormal
	if l.Disagreement {
		title = "Advisor (DISAGREES)"
		border = colorAlarma
	}

	var body strings.Builder
	body.WriteString(titleStyle.Render(title) + "\n")
	switch {
	case l.Error != "":
		body.WriteString(lipgloss.NewStyle().Foreground(colorAlarma).Render("Error: " + l.Error))
		border = colorAlarma
	case l.JSON != nil:
		j := l.JSON
		body.WriteString(fmt.Sprintf("Level: %s  confidence %.2f\n", j.Level, j.Confidence))
		body.WriteString("Rationale: " + j.Rationale + "\n")
		if j.Justificacion != "" {
			body.WriteString("Justification: " + j.Justificacion + "\n")
		}
		if len(j.Actions) > 0 {
			body.WriteString("Actions: " + strings.Join(j.Actions, "; ") + "\n")
		}
		body.WriteString("Evidence: " + strings.Join(j.Evidence, ", "))
	default:
		body.WriteString(l.Raw)
	}
	if len(l.Warnings) > 0 {
		body.WriteString("\n" + mutedStyle.Render("warnings: "+strings.Join(l.Warnings, ", ")))
	}
	return boxStyle.BorderForeground(border).Render(strings.TrimRight(body.String(), "\n"))
}

func renderPlainStep(v stepView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n=== %s ===\n", v.Time)
	fmt.Fprintf(&b, "State: %s\n", v.State)
	fmt.Fprintf(&b, "Decision: %s | rule: %s\n", v.Decision.Source, v.Decision.Rule)
	b.WriteString("Metrics:\n")
	fmt.Fprintf(&b, "  - Cumulative reading (mm): %s\n", num(v.Metrics.DispMm))
	fmt.Fprintf(&b, "  - Last step displacement (mm): %s\n", num(v.Metrics.DeltaMm))
	fmt.Fprintf(&b, "  - Window accumulation (mm): %s\n", num(v.Metrics.CumWindowMm))
	fmt.Fprintf(&b, "  - Velocity (mm/hr): %s\n", num(v.Metrics.VelMmHr))
	fmt.Fprintf(&b, "  - Accumulation rate (mm/hr): %s\n", num(v.Metrics.AccumRateMmHr))
	fmt.Fprintf(&b, "  - Projection %gh (mm): %s\n", v.Metrics.PeriodHours, num(v.Metrics.AccumMmPerPeriod))
	b.WriteString("Thresholds:\n")
	fmt.Fprintf(&b, "  - Alerta (mm/hr): %s\n", num(v.Thresholds.AlertaMmHr))
	fmt.Fprintf(&b, "  - Alarma (mm/hr): %s\n", num(v.Thresholds.AlarmaMmHr))
	fmt.Fprintf(&b, "  - Source: %s\n", v.Thresholds.Source)

	switch {
	case v.LLM.Error != "":
		fmt.Fprintf(&b, "Advisor error: %s\n", v.LLM.Error)
	case v.LLM.JSON != nil:
		j := v.LLM.JSON
		b.WriteString("Advisor:\n")
		fmt.Fprintf(&b, "  - Level: %s\n", j.Level)
		fmt.Fprintf(&b, "  - Rationale: %s\n", j.Rationale)
		fmt.Fprintf(&b, "  - Confidence: %.2f\n", j.Confidence)
		fmt.Fprintf(&b, "  - Evidence: %s\n", strings.Join(j.Evidence, ", "))
		fmt.Fprintf(&b, "  - Agrees with rules: %t\n", !v.LLM.Disagreement)
	case v.LLM.Raw != "":
		fmt.Fprintf(&b, "Advisor: %s\n", v.LLM.Raw)
	}
	return b.String()
}

func renderRichSummary(s *models.SimulationSummary, topK int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Simulation summary") + "\n")

	levels := newTable("Level", "Count")
	for _, st := range models.States {
		levels.Row(lipgloss.NewStyle().Foreground(stateColor(st)).Render(st.String()), fmt.Sprint(s.Counts.Levels[st]))
	}
	sources := newTable("Source", "Count").
		Row(string(models.SourceFixed), fmt.Sprint(s.Counts.Sources[string(models.SourceFixed)])).
		Row(string(models.SourceAdaptive), fmt.Sprint(s.Counts.Sources[string(models.SourceAdaptive)]))
	rules := newTable("Rule", "Count")
	for _, rc := range simulation.TopRules(s.Counts.Rules, 10) {
		rules.Row(rc.Rule, fmt.Sprint(rc.Count))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, levels.String(), "  ", sources.String()) + "\n")
	b.WriteString(rules.String() + "\n")

	b.WriteString(titleStyle.Render("Top alarms by |vel|") + "\n")
	b.WriteString(alarmTable(s.Events.TopAlarmsByVel, topK) + "\n")
	b.WriteString(titleStyle.Render("Top alarms by |window accumulation|") + "\n")
	b.WriteString(alarmTable(s.Events.TopAlarmsByAccum, topK) + "\n")

	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d steps, %d advisor calls (%d failed), %d disagreements, %d episodes",
		s.Meta.EvaluatedSteps, s.Meta.AdvisorCalls, s.Meta.AdvisorErrors, s.Meta.Disagreements, len(s.Events.Episodes))) + "\n")
	return b.String()
}

func alarmTable(events []models.StepEvent, topK int) string {
	t := newTable("time", "vel_mm_hr", "cum_total_mm", "cum_win_mm", "rule")
	for k, ev := range events {
		if k >= topK {
			break
		}
		t.Row(ev.Time, num(ev.VelMmHr), num(ev.CumDispMmTotal), num(ev.CumDispMmWindow), ev.Rule)
	}
	return t.String()
}

func renderPlainSummary(s *models.SimulationSummary, topK int) string {
	var b strings.Builder
	b.WriteString("\n=== Simulation summary ===\n")
	b.WriteString("Levels:\n")
	for _, st := range models.States {
		fmt.Fprintf(&b, "  - %s: %d\n", st, s.Counts.Levels[st])
	}
	b.WriteString("Decision sources:\n")
	for _, src := range []models.DecisionSource{models.SourceFixed, models.SourceAdaptive} {
		fmt.Fprintf(&b, "  - %s: %d\n", src, s.Counts.Sources[string(src)])
	}
	b.WriteString("Top rules:\n")
	for _, rc := range simulation.TopRules(s.Counts.Rules, 10) {
		fmt.Fprintf(&b, "  - %s: %d\n", rc.Rule, rc.Count)
	}
	b.WriteString("Top alarms by |vel|:\n")
	for k, ev := range s.Events.TopAlarmsByVel {
		if k >= topK {
			break
		}
		fmt.Fprintf(&b, "  - %s vel=%s cum_win=%s rule=%s\n", ev.Time, num(ev.VelMmHr), num(ev.CumDispMmWindow), ev.Rule)
	}
	b.WriteString("Top alarms by |window accumulation|:\n")
	for k, ev := range s.Events.TopAlarmsByAccum {
		if k >= topK {
			break
		}
		fmt.Fprintf(&b, "  - %s cum_win=%s vel=%s rule=%s\n", ev.Time, num(ev.CumDispMmWindow), num(ev.VelMmHr), ev.Rule)
	}
	return b.String()
}

func eventRationale(rec models.StepRecord) string {
	if rec.LLMJSON != nil && rec.LLMJSON.Rationale != "" {
		return rec.LLMJSON.Rationale
	}
	if rec.LLMError != "" {
		return "error: " + rec.LLMError
	}
	return rec.LLMRationale
}

func renderRichEvents(recs []models.StepRecord) string {
	t := newTable("time", "state", "vel_mm_hr", "disp_mm", "rule", "advisor", "rationale")
	for _, rec := range recs {
		advisor := string(rec.LLMLevel)
		if rec.Disagreement {
			advisor = lipgloss.NewStyle().Foreground(colorAlarma).Render(advisor + " !")
		}
		t.Row(
			rec.Time,
			lipgloss.NewStyle().Foreground(stateColor(rec.CurrentState)).Render(rec.CurrentState.String()),
			lipgloss.NewStyle().Foreground(velocityColor(rec.VelMmHr, rec.Thresholds)).Render(num(rec.VelMmHr)),
			num(rec.DispMm),
			rec.Decision.Rule,
			advisor,
			truncate(eventRationale(rec), 60),
		)
	}
	return t.String() + "\n" + mutedStyle.Render(fmt.Sprintf("%d records", len(recs)))
}

func renderPlainEvents(recs []models.StepRecord) string {
	var b strings.Builder
	for _, rec := range recs {
		fmt.Fprintf(&b, "%s  %-6s vel=%s disp=%s rule=%s", rec.Time, rec.CurrentState, num(rec.VelMmHr), num(rec.DispMm), rec.Decision.Rule)
		if rec.LLMLevel != "" {
			fmt.Fprintf(&b, " advisor=%s", rec.LLMLevel)
		}
		if rec.Disagreement {
			b.WriteString(" DISAGREES")
		}
		if r := eventRationale(rec); r != "" {
			fmt.Fprintf(&b, " | %s", r)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d records\n", len(recs))
	return b.String()
}
