package tools

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type TimeArgs struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"default=UTC" jsonschema_description:"IANA timezone name, e.g. \"Asia/Shanghai\", \"America/New_York\", \"UTC\""`
}

type TimeReport struct {
	Timezone  string `json:"timezone"`
	Datetime  string `json:"datetime"`
	Timestamp int64  `json:"timestamp"`
	ISO       string `json:"iso"`
}

const (
	datetimeLayout = "2006/01/02 15:04:05"
	isoLayout      = "2006-01-02T15:04:05.000Z"
)

// ClockTool reports the current time; now is injectable for tests.
func ClockTool(now func() time.Time) Tool {
	if now == nil {
		now = time.Now
	}
	return Tool{
		Name:        "get_current_time",
		Description: "Get the current date and time in a specific timezone",
		Parameters:  GenerateSchema[TimeArgs](),
		Execute: func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
			args, err := decodeArgs[TimeArgs](input)
			if err != nil {
				return nil, err
			}
			return CurrentTime(now(), args.Timezone)
		},
	}
}

// CurrentTime renders t in the named IANA zone (UTC when empty).
func CurrentTime(t time.Time, timezone string) (*TimeReport, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if timezone == "Local" {
		return nil, fmt.Errorf("Time lookup failed: invalid time zone %q", timezone)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("Time lookup failed: %w", err)
	}
	return &TimeReport{
		Timezone:  timezone,
		Datetime:  t.In(loc).Format(datetimeLayout),
		Timestamp: t.UnixMilli(),
		ISO:       t.UTC().Format(isoLayout),
	}, nil
}
