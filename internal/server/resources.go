package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joshdurbin/strava-trends/internal/analytics"
	"github.com/joshdurbin/strava-trends/internal/logging"
)

const (
	uriStreaks      = "strava://streaks/current"
	uriAllTime      = "strava://summary/all-time"
	uriRecords      = "strava://records/personal"
	uriYearTemplate = "strava://summary/{year}"
	uriActivity     = "strava://activities/{id}"
)

// registerResources registers all MCP resources for the server
func (s *Server) registerResources() {
	logging.Debug("Registering MCP resources")

	s.mcp.AddResource(&mcp.Resource{
		URI:         uriStreaks,
		Name:        "current_streaks",
		Description: "Running and all-activity streaks over the whole history, measured up to today",
		MIMEType:    "application/json",
	}, s.readCurrentStreaks)

	s.mcp.AddResource(&mcp.Resource{
		URI:         uriAllTime,
		Name:        "all_time_summary",
		Description: "Full analysis over every stored activity",
		MIMEType:    "application/json",
	}, s.readAllTimeSummary)

	s.mcp.AddResource(&mcp.Resource{
		URI:         uriRecords,
		Name:        "personal_records",
		Description: "All-time running personal records",
		MIMEType:    "application/json",
	}, s.readPersonalRecords)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriYearTemplate,
		Name:        "yearly_summary",
		Description: "Full analysis for one calendar year, e.g. strava://summary/2024",
		MIMEType:    "application/json",
	}, s.readYearSummary)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriActivity,
		Name:        "activity_by_id",
		Description: "A stored activity as the analysis engine sees it",
		MIMEType:    "application/json",
	}, s.readActivityByID)

	logging.Debug("MCP resources registered", "count", 5)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, NewInternalErrorWithCause("failed to marshal resource", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(jsonData),
			},
		},
	}, nil
}

// readCurrentStreaks measures streaks from the first activity through today
func (s *Server) readCurrentStreaks(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "current_streaks")

	summary, err := s.summarize(ctx, "", s.today().String(), "", false)
	if err != nil {
		logging.Error("readCurrentStreaks failed", "error", err)
		return nil, err
	}

	output := StreaksOutput{
		Range:      rangeView(summary.Range),
		Milestones: analytics.NewStreakAnalyzer(s.cfg.Milestones...).Milestones(),
		Message:    summary.Message,
	}
	if !summary.NoData {
		output.Running = streakView(summary.Streaks.Running)
		output.AllActivities = streakView(summary.Streaks.AllActivities)
		output.Insights = s.insights.GenerateStreakInsights(summary.Streaks.Running, "running")
	}
	return jsonResource(uriStreaks, output)
}

// readAllTimeSummary returns the analysis over every stored activity
func (s *Server) readAllTimeSummary(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "all_time_summary")

	summary, err := s.summarize(ctx, "", "", "", true)
	if err != nil {
		logging.Error("readAllTimeSummary failed", "error", err)
		return nil, err
	}
	return jsonResource(uriAllTime, summaryView(summary))
}

// readPersonalRecords returns the all-time records
func (s *Server) readPersonalRecords(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "personal_records")

	summary, err := s.summarize(ctx, "", "", "", false)
	if err != nil {
		logging.Error("readPersonalRecords failed", "error", err)
		return nil, err
	}
	return jsonResource(uriRecords, RecordsOutput{
		Message: summary.Message,
		Unit:    string(summary.Unit),
		Range:   rangeView(summary.Range),
		Records: recordViews(summary.Records, summary.Unit),
	})
}

// readYearSummary returns the analysis for strava://summary/{year}
func (s *Server) readYearSummary(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	year, err := lastSegmentInt(uri)
	if err != nil || year < 1970 || year > 9999 {
		return nil, NewInvalidInputErrorWithDetails("invalid year", uri)
	}

	logging.Info("MCP resource read", "resource", "yearly_summary", "year", year)

	start := analytics.NewDate(year, time.January, 1)
	end := analytics.NewDate(year, time.December, 31)
	if today := s.today(); end.After(today) {
		end = today
	}
	if start.After(end) {
		return nil, NewInvalidInputErrorWithDetails("year is in the future", uri)
	}

	summary, err := s.summarize(ctx, start.String(), end.String(), "", true)
	if err != nil {
		logging.Error("readYearSummary failed", "error", err)
		return nil, err
	}
	return jsonResource(uri, summaryView(summary))
}

// readActivityByID returns a specific activity by its Strava ID
func (s *Server) readActivityByID(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	activityID, err := lastSegmentInt64(uri)
	if err != nil {
		return nil, NewInvalidInputErrorWithDetails("invalid activity ID", uri)
	}

	logging.Info("MCP resource read", "resource", "activity_by_id", "id", activityID)

	activity, err := s.queries.GetActivity(ctx, activityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError(fmt.Sprintf("activity %d", activityID))
	}
	if err != nil {
		logging.Error("readActivityByID failed", "error", err)
		return nil, NewDatabaseErrorWithContext("activity lookup", err)
	}

	return jsonResource(uri, activityView(activity, s.cfg.Unit()))
}

func lastSegment(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

func lastSegmentInt(uri string) (int, error) {
	return strconv.Atoi(lastSegment(uri))
}

func lastSegmentInt64(uri string) (int64, error) {
	return strconv.ParseInt(lastSegment(uri), 10, 64)
}
