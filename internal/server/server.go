package server

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joshdurbin/strava-trends/internal/analytics"
	"github.com/joshdurbin/strava-trends/internal/config"
	"github.com/joshdurbin/strava-trends/internal/db"
	"github.com/joshdurbin/strava-trends/internal/logging"
)

const (
	serverName    = "strava-trends"
	serverVersion = "1.0.0"
)

// ptr returns a pointer to the given value - useful for optional fields in structs
func ptr[T any](v T) *T {
	return &v
}

// Querier defines the interface for database queries
type Querier interface {
	RecordQuerier
	GetActivity(ctx context.Context, id int64) (db.Activity, error)
	CountActivities(ctx context.Context) (int64, error)
	GetOldestActivityDate(ctx context.Context) (sql.NullTime, error)
	GetLatestActivityDate(ctx context.Context) (sql.NullTime, error)
}

// Server wraps the MCP server and database queries
type Server struct {
	mcp      *mcp.Server
	queries  Querier
	cfg      *config.Config
	insights *InsightGenerator
	now      func() time.Time
}

// MCPServer returns the underlying MCP server (for use with HTTP/SSE transport)
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// New creates a new MCP server with the analysis tools. A nil cfg uses defaults.
func New(queries Querier, cfg *config.Config) *Server {
	logging.Info("MCP server initializing", "name", serverName, "version", serverVersion)

	if cfg == nil {
		cfg = config.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s := &Server{
		mcp:      mcpServer,
		queries:  queries,
		cfg:      cfg,
		insights: NewInsightGenerator(),
		now:      time.Now,
	}

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	logging.Info("MCP server initialized", "tools_registered", 4, "resources_registered", 5, "prompts_registered", 2)
	return s
}

// Run starts the MCP server over stdio transport
func (s *Server) Run(ctx context.Context) error {
	logging.Info("MCP server starting")
	defer logging.Info("MCP server stopped")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func readOnly(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:           title,
		ReadOnlyHint:    true,
		IdempotentHint:  true,
		OpenWorldHint:   ptr(false),
		DestructiveHint: ptr(false),
	}
}

func (s *Server) registerTools() {
	logging.Debug("Registering tool", "name", "analyze_activities")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "analyze_activities",
		Description: `Full training analysis over a date range: activity mix, running totals, personal records, weekly and monthly distance and pace trends, and running/all-activity streaks.

Use when:
- User asks "How has my training gone this year?" or "Summarize my running since March"
- User wants one report covering volume, pace, records and consistency

Parameters:
- start_date (string): First day, YYYY-MM-DD. Omit with end_date for the whole history.
- end_date (string): Last day, YYYY-MM-DD. Defaults to today when only start_date is set.
- units (string): "mi" or "km". Defaults to the configured unit.

Returns: Summary with totals, histograms, records, trends, streaks and a list of metrics that could not be computed.

Example: {"start_date": "2024-01-01", "end_date": "2024-06-30", "units": "km"}`,
		Annotations: readOnly("Analyze Activities"),
	}, s.analyzeActivities)

	logging.Debug("Registering tool", "name", "get_streaks")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_streaks",
		Description: `Consecutive-day streaks, gaps and the next streak milestone for running and for any activity.

Use when:
- User asks "What's my current streak?" or "When was my last break?"
- User wants to know how many days until the next milestone (7, 14, 30, 60, 100, ...)

Parameters:
- start_date (string): First day, YYYY-MM-DD. Omit for the whole history.
- end_date (string): Last day, YYYY-MM-DD. Streaks are measured up to this day.

Returns: Running and all-activity streak states with gap spans, milestone projection and insights.

Example: {"start_date": "2024-01-01"}`,
		Annotations: readOnly("Get Streaks"),
	}, s.getStreaks)

	logging.Debug("Registering tool", "name", "get_trends")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_trends",
		Description: `One metric as a daily, weekly or monthly series.

Use when:
- User asks "How has my weekly mileage changed?" or "Is my pace improving month over month?"

Parameters:
- metric (string): "distance", "duration" or "pace". Default: distance.
- granularity (string): "daily", "weekly" or "monthly". Default: weekly.
- activity_type (string): "Run" (default) or "all" for every activity type. Pace is always run-only.
- start_date, end_date (string): YYYY-MM-DD bounds.
- units (string): "mi" or "km".

Returns: Series of periods with label, bounds, value and formatted value. Weekly and monthly pace omit periods without a run.

Example: {"metric": "pace", "granularity": "monthly", "start_date": "2024-01-01"}`,
		Annotations: readOnly("Get Trends"),
	}, s.getTrends)

	logging.Debug("Registering tool", "name", "get_personal_records")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_personal_records",
		Description: `Running personal records: best pace, fastest run at or beyond the reference distance, longest run and biggest climb.

Use when:
- User asks "What's my fastest 10K?" or "What's my longest run?"

Parameters:
- start_date, end_date (string): YYYY-MM-DD bounds. Omit for all time.
- units (string): "mi" or "km".

Returns: Records with formatted values and the activity that set each one.

Example: {"units": "km"}`,
		Annotations: readOnly("Get Personal Records"),
	}, s.getPersonalRecords)
}

// AnalyzeInput - input for the full analysis
type AnalyzeInput struct {
	StartDate string `json:"start_date,omitempty" jsonschema:"First day of the analysis, YYYY-MM-DD. Omit both dates for the whole history."`
	EndDate   string `json:"end_date,omitempty" jsonschema:"Last day of the analysis, YYYY-MM-DD. Defaults to today when only start_date is given."`
	Units     string `json:"units,omitempty" jsonschema:"Distance unit: mi or km. Defaults to the configured unit."`
}

// AnalyzeOutput - output for the full analysis
type AnalyzeOutput struct {
	Summary          SummaryView       `json:"summary"`
	Insights         []Insight         `json:"insights,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

// StreaksInput - input for streak analysis
type StreaksInput struct {
	StartDate string `json:"start_date,omitempty" jsonschema:"First day, YYYY-MM-DD. Omit for the whole history."`
	EndDate   string `json:"end_date,omitempty" jsonschema:"Last day, YYYY-MM-DD. The current streak is measured up to this day."`
}

// StreaksOutput - output for streak analysis
type StreaksOutput struct {
	Message          string            `json:"message,omitempty"`
	Range            *RangeView        `json:"range,omitempty"`
	Milestones       []int             `json:"milestones"`
	Running          *StreakView       `json:"running,omitempty"`
	AllActivities    *StreakView       `json:"all_activities,omitempty"`
	Insights         []Insight         `json:"insights,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

// TrendsInput - input for a single trend series
type TrendsInput struct {
	Metric       string `json:"metric,omitempty" jsonschema:"Metric to trend: distance, duration or pace. Default: distance."`
	Granularity  string `json:"granularity,omitempty" jsonschema:"Period size: daily, weekly or monthly. Default: weekly."`
	ActivityType string `json:"activity_type,omitempty" jsonschema:"Run (default) or all. Pace always uses runs."`
	StartDate    string `json:"start_date,omitempty" jsonschema:"First day, YYYY-MM-DD."`
	EndDate      string `json:"end_date,omitempty" jsonschema:"Last day, YYYY-MM-DD."`
	Units        string `json:"units,omitempty" jsonschema:"Distance unit: mi or km."`
}

// TrendsOutput - output for a single trend series
type TrendsOutput struct {
	Message          string            `json:"message,omitempty"`
	Metric           string            `json:"metric"`
	Granularity      string            `json:"granularity"`
	ActivityType     string            `json:"activity_type"`
	Unit             string            `json:"unit"`
	Range            *RangeView        `json:"range,omitempty"`
	Points           []TrendPointView  `json:"points"`
	Insights         []Insight         `json:"insights,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

// RecordsInput - input for personal records
type RecordsInput struct {
	StartDate string `json:"start_date,omitempty" jsonschema:"First day, YYYY-MM-DD. Omit for all time."`
	EndDate   string `json:"end_date,omitempty" jsonschema:"Last day, YYYY-MM-DD."`
	Units     string `json:"units,omitempty" jsonschema:"Distance unit: mi or km."`
}

// RecordsOutput - output for personal records
type RecordsOutput struct {
	Message          string            `json:"message,omitempty"`
	Unit             string            `json:"unit"`
	Range            *RangeView        `json:"range,omitempty"`
	Records          []RecordView      `json:"records"`
	Insights         []Insight         `json:"insights,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

// beginCall logs a tool call and returns a correlation id for its later log lines
func beginCall(tool string, input any) (string, time.Time) {
	id := uuid.NewString()
	logging.Info("MCP tool call", "tool", tool, "request_id", id)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", tool, "request_id", id, "input", logging.ToJSON(input))
	}
	return id, time.Now()
}

func endCall(tool, id string, started time.Time, output any) {
	logging.Debug("MCP tool completed", "tool", tool, "request_id", id, "duration_ms", time.Since(started).Milliseconds())
	if logging.IsVerbose() {
		logging.Debug("MCP response", "tool", tool, "request_id", id, "output", logging.ToJSON(output))
	}
}

func (s *Server) today() analytics.Date {
	return analytics.DateOf(s.now())
}

// options builds analysis options for rng, honouring a per-call unit override
func (s *Server) options(rng *analytics.DateRange, units string) (analytics.Options, error) {
	opts := s.cfg.Options(rng)
	if units != "" {
		u, err := analytics.ParseUnit(units)
		if err != nil {
			return opts, NewInvalidInputErrorWithDetails("units must be mi or km", err.Error())
		}
		opts.Unit = u
	}
	return opts, nil
}

// summarize loads the window and builds a summary over it
func (s *Server) summarize(ctx context.Context, startDate, endDate, units string, trends bool) (*analytics.Summary, error) {
	w, err := ParseWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}
	records, rng, err := LoadRecords(ctx, s.queries, w, s.today())
	if err != nil {
		return nil, err
	}
	opts, err := s.options(rng, units)
	if err != nil {
		return nil, err
	}
	opts.IncludeTrends = trends

	summary, err := analytics.NewBuilder(opts).Build(records)
	if err != nil {
		return nil, analysisError(err)
	}
	return summary, nil
}

func (s *Server) analyzeActivities(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
	id, started := beginCall("analyze_activities", input)

	summary, err := s.summarize(ctx, input.StartDate, input.EndDate, input.Units, true)
	if err != nil {
		logging.Warn("analyze_activities failed", "request_id", id, "error", err)
		return nil, AnalyzeOutput{}, err
	}

	output := AnalyzeOutput{Summary: summaryView(summary)}
	if !summary.NoData {
		output.Insights = append(output.Insights, s.insights.GenerateStreakInsights(summary.Streaks.Running, "running")...)
		if t := summary.Trends.Distance; t != nil {
			output.Insights = append(output.Insights, s.insights.GenerateTrendInsights(t.Weekly, analytics.MetricDistance, analytics.Weekly)...)
		}
		if t := summary.Trends.Pace; t != nil {
			output.Insights = append(output.Insights, s.insights.GenerateTrendInsights(t.Monthly, analytics.MetricPace, analytics.Monthly)...)
		}
		output.SuggestedActions = SuggestNextActions("summary")
	}

	endCall("analyze_activities", id, started, output)
	return nil, output, nil
}

func (s *Server) getStreaks(ctx context.Context, req *mcp.CallToolRequest, input StreaksInput) (*mcp.CallToolResult, StreaksOutput, error) {
	id, started := beginCall("get_streaks", input)

	summary, err := s.summarize(ctx, input.StartDate, input.EndDate, "", false)
	if err != nil {
		logging.Warn("get_streaks failed", "request_id", id, "error", err)
		return nil, StreaksOutput{}, err
	}

	output := StreaksOutput{
		Range:      rangeView(summary.Range),
		Milestones: analytics.NewStreakAnalyzer(s.cfg.Milestones...).Milestones(),
	}
	if summary.NoData {
		output.Message = summary.Message
		endCall("get_streaks", id, started, output)
		return nil, output, nil
	}

	output.Running = streakView(summary.Streaks.Running)
	output.AllActivities = streakView(summary.Streaks.AllActivities)
	output.Insights = append(output.Insights, s.insights.GenerateStreakInsights(summary.Streaks.Running, "running")...)
	output.Insights = append(output.Insights, s.insights.GenerateStreakInsights(summary.Streaks.AllActivities, "activity")...)
	output.SuggestedActions = SuggestNextActions("streaks")

	endCall("get_streaks", id, started, output)
	return nil, output, nil
}

func (s *Server) getTrends(ctx context.Context, req *mcp.CallToolRequest, input TrendsInput) (*mcp.CallToolResult, TrendsOutput, error) {
	id, started := beginCall("get_trends", input)

	output, err := s.trends(ctx, input)
	if err != nil {
		logging.Warn("get_trends failed", "request_id", id, "error", err)
		return nil, TrendsOutput{}, err
	}

	endCall("get_trends", id, started, output)
	return nil, output, nil
}

func (s *Server) trends(ctx context.Context, input TrendsInput) (TrendsOutput, error) {
	metric, err := analytics.ParseMetric(input.Metric)
	if err != nil {
		return TrendsOutput{}, NewInvalidInputErrorWithDetails("metric must be distance, duration or pace", err.Error())
	}
	granularity := analytics.Weekly
	if input.Granularity != "" {
		if granularity, err = analytics.ParseGranularity(input.Granularity); err != nil {
			return TrendsOutput{}, NewInvalidInputErrorWithDetails("granularity must be daily, weekly or monthly", err.Error())
		}
	}
	allTypes, err := parseActivityType(input.ActivityType)
	if err != nil {
		return TrendsOutput{}, err
	}
	if metric == analytics.MetricPace {
		allTypes = false
	}

	w, err := ParseWindow(input.StartDate, input.EndDate)
	if err != nil {
		return TrendsOutput{}, err
	}
	records, rng, err := LoadRecords(ctx, s.queries, w, s.today())
	if err != nil {
		return TrendsOutput{}, err
	}
	opts, err := s.options(rng, input.Units)
	if err != nil {
		return TrendsOutput{}, err
	}

	output := TrendsOutput{
		Metric:       string(metric),
		Granularity:  string(granularity),
		ActivityType: analytics.TypeRun,
		Unit:         string(opts.Unit),
		Points:       []TrendPointView{},
	}
	if allTypes {
		output.ActivityType = "all"
	}

	// The calendar spans every activity so run and all-activity trends line up
	index, err := analytics.BuildIndex(records, rng, opts.MaxIndexDays)
	if errors.Is(err, analytics.ErrEmptyInput) {
		output.Message = "No activities found in the specified date range."
		return output, nil
	}
	if err != nil {
		return TrendsOutput{}, analysisError(err)
	}
	indexRange := index.Range()
	output.Range = rangeView(&indexRange)

	selected := records
	if !allTypes {
		selected = analytics.FilterRecords(records, analytics.ActivityRecord.IsRun)
	}
	if len(selected) == 0 {
		output.Message = "No running activities found in the specified date range."
		return output, nil
	}

	series := analytics.Trend(selected, index, opts.Unit, metric, granularity)
	output.Points = trendView(series, metric, opts.Unit)
	output.Insights = s.insights.GenerateTrendInsights(series, metric, granularity)
	output.SuggestedActions = SuggestNextActions("trends")
	return output, nil
}

func parseActivityType(s string) (allTypes bool, err error) {
	switch s {
	case "", analytics.TypeRun, "run":
		return false, nil
	case "all", "All":
		return true, nil
	default:
		return false, NewInvalidInputErrorWithDetails("activity_type must be Run or all", s)
	}
}

func (s *Server) getPersonalRecords(ctx context.Context, req *mcp.CallToolRequest, input RecordsInput) (*mcp.CallToolResult, RecordsOutput, error) {
	id, started := beginCall("get_personal_records", input)

	summary, err := s.summarize(ctx, input.StartDate, input.EndDate, input.Units, false)
	if err != nil {
		logging.Warn("get_personal_records failed", "request_id", id, "error", err)
		return nil, RecordsOutput{}, err
	}

	output := RecordsOutput{
		Unit:    string(summary.Unit),
		Range:   rangeView(summary.Range),
		Records: recordViews(summary.Records, summary.Unit),
	}
	switch {
	case summary.NoData:
		output.Message = summary.Message
	case len(output.Records) == 0:
		output.Message = "No running activities found in the specified date range."
	default:
		if summary.Range != nil {
			output.Insights = s.insights.GenerateRecordInsights(summary.Records, summary.Range.End)
		}
		output.SuggestedActions = SuggestNextActions("records")
	}

	endCall("get_personal_records", id, started, output)
	return nil, output, nil
}
