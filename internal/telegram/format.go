package telegram

import (
	"fmt"
	"strings"

	"ai-fitness-coach/internal/app"
	"ai-fitness-coach/internal/metrics"
	"ai-fitness-coach/internal/planner"
)

func formatPlanMarkdown(plan *planner.WeeklyPlan) string {
	var sb strings.Builder
	sb.WriteString("📅 *Weekly Training Plan*\n")
	if plan.Goal != "" {
		sb.WriteString(fmt.Sprintf("🎯 Goal: %s\n", escape(plan.Goal)))
	}
	if plan.WeeklyFocus != "" {
		sb.WriteString(fmt.Sprintf("_%s_\n", escape(plan.WeeklyFocus)))
	}
	if plan.Status == planner.StatusFallback {
		sb.WriteString("⚠️ I couldn't build a full plan right now, so this week is all rest. Try /plan force later.\n")
	}
	sb.WriteString("\n")

	totalMins := 0
	for _, pd := range plan.Schedule {
		sb.WriteString(formatDayLine(pd))
		sb.WriteString("\n\n")
		if !pd.IsRest && pd.Details != nil && pd.Details.DurationMins != nil {
			totalMins += *pd.Details.DurationMins
		}
	}
	if totalMins > 0 {
		sb.WriteString(fmt.Sprintf("⏱ *Total Training:* %d mins\n", totalMins))
	}
	sb.WriteString("\nUse /day <n> to change a day.")
	return sb.String()
}

// formatDayLine renders one day with its duration, link and notes.
func formatDayLine(pd planner.PlanDay) string {
	var sb strings.Builder
	if pd.IsRest {
		activity := pd.Activity
		if activity == "" {
			activity = "Rest Day"
		}
		sb.WriteString(fmt.Sprintf("*%s*: 😴 %s", pd.DayName, escape(activity)))
	} else {
		sb.WriteString(fmt.Sprintf("*%s*: %s", pd.DayName, escape(pd.Activity)))
		if d := pd.Details; d != nil {
			if d.DurationMins != nil {
				sb.WriteString(fmt.Sprintf(" (%d mins)", *d.DurationMins))
			}
			if d.URL != "" {
				sb.WriteString(fmt.Sprintf("\n🔗 %s", d.URL))
			}
		}
	}
	if pd.Notes != "" {
		sb.WriteString(fmt.Sprintf("\n_%s_", escape(pd.Notes)))
	}
	return sb.String()
}

func formatChatReply(reply *app.ChatReply, day int) string {
	text := escape(reply.Result.ResponseText)
	if !reply.Updated {
		return text
	}
	pd, ok := reply.Plan.Day(day)
	if !ok {
		return text
	}
	return "✅ " + text + "\n\n" + formatDayLine(*pd)
}

func formatMetrics(report *app.UsageReport, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(report.Daily) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range report.Daily {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	if len(report.Agents) > 0 {
		sb.WriteString("\n🤖 *Agents*\n")
		for _, a := range report.Agents {
			sb.WriteString(fmt.Sprintf("• %s: %d calls, avg %d prompt tokens, avg %dms\n",
				escape(a.AgentName), a.Executions, a.AvgPrompt, a.AvgLatencyMS))
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	return sb.String()
}
