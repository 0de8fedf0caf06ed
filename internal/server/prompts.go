package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joshdurbin/strava-trends/internal/analytics"
	"github.com/joshdurbin/strava-trends/internal/logging"
)

// registerPrompts registers all MCP prompts for the server
func (s *Server) registerPrompts() {
	logging.Debug("Registering MCP prompts")

	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "streak_check",
		Description: "Review current streaks, recent gaps and the next milestone with encouragement",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "start_date",
				Description: "Only consider activities from this day on, YYYY-MM-DD. Leave empty for all history.",
				Required:    false,
			},
		},
	}, s.streakCheckPrompt)

	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "trend_review",
		Description: "Analyze how one metric has moved across weeks or months",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "metric",
				Description: "Metric to review: 'distance', 'duration', or 'pace'",
				Required:    false,
			},
			{
				Name:        "granularity",
				Description: "Period size: 'daily', 'weekly', or 'monthly'",
				Required:    false,
			},
		},
	}, s.trendReviewPrompt)

	logging.Debug("MCP prompts registered", "count", 2)
}

func promptArg(req *mcp.GetPromptRequest, name, fallback string) string {
	if req.Params.Arguments != nil {
		if v, ok := req.Params.Arguments[name]; ok && v != "" {
			return v
		}
	}
	return fallback
}

// streakCheckPrompt generates a prompt for a streak and consistency review
func (s *Server) streakCheckPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	startDate := promptArg(req, "start_date", "")

	logging.Info("MCP prompt requested", "prompt", "streak_check", "start_date", startDate)

	params := ""
	if startDate != "" {
		if _, err := analytics.ParseDate(startDate); err != nil {
			return nil, NewInvalidInputErrorWithDetails("start_date must be YYYY-MM-DD", err.Error())
		}
		params = fmt.Sprintf(` with start_date="%s"`, startDate)
	}

	promptText := fmt.Sprintf(`Please review my training consistency.

Use the following tools to gather data:
1. **get_streaks**%s for running and all-activity streaks, gaps and the next milestone
2. **get_trends** with metric="distance" and granularity="weekly"%s to relate consistency to volume

Then provide:
- **Current Streak**: How many consecutive days, and how it compares to my longest
- **Next Milestone**: How many days to go and the date I would reach it
- **Gaps**: When my longest breaks happened and how long they lasted
- **Consistency**: Share of days with activity, running versus any activity
- **Recommendations**: Practical ways to keep the streak going without overtraining

Use the actual numbers from the tools.`, params, wrapDate(startDate))

	return &mcp.GetPromptResult{
		Description: "Streak and consistency review prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}

// trendReviewPrompt generates a prompt for reviewing a metric over time
func (s *Server) trendReviewPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	metric, err := analytics.ParseMetric(promptArg(req, "metric", string(analytics.MetricDistance)))
	if err != nil {
		return nil, NewInvalidInputErrorWithDetails("metric must be distance, duration or pace", err.Error())
	}
	granularity, err := analytics.ParseGranularity(promptArg(req, "granularity", string(analytics.Weekly)))
	if err != nil {
		return nil, NewInvalidInputErrorWithDetails("granularity must be daily, weekly or monthly", err.Error())
	}

	logging.Info("MCP prompt requested", "prompt", "trend_review", "metric", metric, "granularity", granularity)

	direction := "Is it rising, flat or falling?"
	if metric == analytics.MetricPace {
		direction = "Is it getting faster (lower seconds per unit) or slower?"
	}

	promptText := fmt.Sprintf(`Please review my %s %s trend.

Use the following tools to gather data:
1. **get_trends** with metric="%s" and granularity="%s" for the series
2. **get_personal_records** to see whether the trend produced new bests
3. **analyze_activities** for overall context over the same period

Then provide:
- **Direction**: %s
- **Change**: Compare the most recent period with the one before and with the best period
- **Outliers**: Periods that stand out and what may explain them
- **Recommendations**: What to adjust over the next few %s periods

Use specific numbers from the data.`, granularity, metric, metric, granularity, direction, granularity)

	return &mcp.GetPromptResult{
		Description: "Trend review prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}

// wrapDate adds a start_date argument suffix if date is not empty
func wrapDate(date string) string {
	if date == "" {
		return ""
	}
	return fmt.Sprintf(` and start_date="%s"`, date)
}
