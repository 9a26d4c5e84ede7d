package tools_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/toolrelay/toolrelay/internal/tools"
)

// ─── Weather ─────────────────────────────────────────────────────────────────

const wttrFixture = `{
  "current_condition": [{
    "temp_C": "21", "temp_F": "70",
    "FeelsLikeC": "20", "FeelsLikeF": "68",
    "humidity": "55", "windspeedKmph": "11", "winddir16Point": "NW",
    "visibility": "10", "pressure": "1016", "uvIndex": "4",
    "weatherDesc": [{"value": "Partly cloudy"}]
  }],
  "nearest_area": [{
    "areaName": [{"value": "Paris"}],
    "country": [{"value": "France"}]
  }]
}`

func TestWeatherTool(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(wttrFixture))
	}))
	defer srv.Close()

	tool := tools.WeatherTool(srv.Client(), srv.URL)

	tests := []struct {
		unit      string
		wantTemp  string
		wantFeels string
	}{
		{"", "21°C", "20°C"},
		{"celsius", "21°C", "20°C"},
		{"fahrenheit", "70°F", "68°F"},
	}
	for _, tt := range tests {
		t.Run("unit="+tt.unit, func(t *testing.T) {
			args := map[string]interface{}{"location": "New York"}
			if tt.unit != "" {
				args["unit"] = tt.unit
			}
			out, err := tool.Execute(context.Background(), args)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			report := out.(*tools.WeatherReport)
			if report.Temperature != tt.wantTemp || report.FeelsLike != tt.wantFeels {
				t.Errorf("temperature = %s / %s, want %s / %s", report.Temperature, report.FeelsLike, tt.wantTemp, tt.wantFeels)
			}
			if report.Location != "Paris, France" {
				t.Errorf("location = %q", report.Location)
			}
			if report.Condition != "Partly cloudy" || report.Humidity != "55%" || report.WindSpeed != "11 km/h" {
				t.Errorf("unexpected report %+v", report)
			}
		})
	}

	if gotPath != "/New%20York" {
		t.Errorf("path = %q, want location to be escaped", gotPath)
	}
	if gotQuery != "format=j1" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestWeatherToolUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown location", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := tools.WeatherTool(srv.Client(), srv.URL).Execute(context.Background(), map[string]interface{}{"location": "Atlantis"})
	if err == nil || err.Error() != "Failed to fetch weather data" {
		t.Errorf("err = %v", err)
	}
}

func TestWeatherToolMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := tools.WeatherTool(srv.Client(), srv.URL).Execute(context.Background(), map[string]interface{}{"location": "Paris"})
	if err == nil || !strings.HasPrefix(err.Error(), "Weather lookup failed") {
		t.Errorf("err = %v", err)
	}
}

// ─── Search ──────────────────────────────────────────────────────────────────

const ddgFixture = `{
  "Heading": "Go (programming language)",
  "Abstract": "Go is a statically typed, compiled language.",
  "AbstractURL": "https://en.wikipedia.org/wiki/Go_(programming_language)",
  "AbstractSource": "Wikipedia",
  "RelatedTopics": [
    {"Text": "Gopher - The Go mascot", "FirstURL": "https://duckduckgo.com/Gopher"},
    {"Name": "See also", "Topics": []},
    {"Text": "Goroutine - Lightweight thread", "FirstURL": "https://duckduckgo.com/Goroutine"},
    {"Text": "Channel - Typed conduit", "FirstURL": "https://duckduckgo.com/Channel"}
  ]
}`

func newDDGServer(t *testing.T, gotQuery *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			*gotQuery = r.URL.Query().Get("q")
		}
		w.Write([]byte(ddgFixture))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchToolDuckDuckGo(t *testing.T) {
	var q string
	srv := newDDGServer(t, &q)
	tool := tools.SearchTool(tools.NewDuckDuckGo(srv.Client(), srv.URL))

	out, err := tool.Execute(context.Background(), map[string]interface{}{"query": " golang "})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if q != "golang" {
		t.Errorf("upstream query = %q", q)
	}
	res := out.(*tools.SearchResults)
	if res.Query != "golang" || res.TotalResults != len(res.Results) {
		t.Errorf("unexpected envelope %+v", res)
	}
	if len(res.Results) != 4 {
		t.Fatalf("expected abstract plus 3 topics, got %d", len(res.Results))
	}
	first := res.Results[0]
	if first.Title != "Go (programming language)" || first.Source != "Wikipedia" {
		t.Errorf("abstract should come first, got %+v", first)
	}
	if res.Results[1].Title != "Gopher" {
		t.Errorf("topic title should be text before the separator, got %q", res.Results[1].Title)
	}
}

func TestSearchToolLimit(t *testing.T) {
	srv := newDDGServer(t, nil)
	tool := tools.SearchTool(tools.NewDuckDuckGo(srv.Client(), srv.URL))

	tests := []struct {
		num  float64
		want int
	}{
		// abstract + topic window of 1
		{2, 2},
		// abstract + window of 2, one of which is a group without text
		{3, 2},
		{1, 1},
	}
	for _, tt := range tests {
		out, err := tool.Execute(context.Background(), map[string]interface{}{"query": "go", "num_results": tt.num})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if got := len(out.(*tools.SearchResults).Results); got != tt.want {
			t.Errorf("num_results=%v: got %d hits, want %d", tt.num, got, tt.want)
		}
	}
}

func TestSearchToolUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := tools.SearchTool(tools.NewDuckDuckGo(srv.Client(), srv.URL)).Execute(context.Background(), map[string]interface{}{"query": "go"})
	if err == nil || err.Error() != "Search request failed" {
		t.Errorf("err = %v", err)
	}
}

// ─── Calculate ───────────────────────────────────────────────────────────────

func TestCalculate(t *testing.T) {
	tests := []struct {
		expr      string
		result    float64
		formatted string
	}{
		{"2 + 2", 4, "4"},
		{"sqrt(16)", 4, "4"},
		{"(3.5 * 4) / 2", 7, "7"},
		{"1 / 3", 1.0 / 3, "0.333"},
		{"1000 * 1234.5", 1234500, "1,234,500"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := tools.Calculate(tt.expr)
			if err != nil {
				t.Fatalf("Calculate: %v", err)
			}
			if c.Result != tt.result || c.Formatted != tt.formatted {
				t.Errorf("got %v (%s), want %v (%s)", c.Result, c.Formatted, tt.result, tt.formatted)
			}
			if c.Expression != tt.expr {
				t.Errorf("expression should be echoed verbatim, got %q", c.Expression)
			}
		})
	}
}

func TestCalculateErrors(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"alert(1)", ""},
		{"1/0", "Invalid calculation result"},
		{"sqrt(-1)", "Invalid calculation result"},
		{"2 +", "Calculation failed"},
		{"hello", "Calculation failed"},
		{"Math.sqrt(16)", "Calculation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := tools.Calculate(tt.expr)
			if tt.want == "" {
				// "alert(1)" sanitises to "(1)" and is therefore valid.
				if err != nil || c.Result != 1 {
					t.Errorf("got %+v, %v", c, err)
				}
				return
			}
			if err == nil || !strings.HasPrefix(err.Error(), tt.want) {
				t.Errorf("err = %v, want prefix %q", err, tt.want)
			}
		})
	}
}

// ─── Clock ───────────────────────────────────────────────────────────────────

func TestClockToolDefaultsToUTC(t *testing.T) {
	before := time.Now()
	out, err := tools.ClockTool(nil).Execute(context.Background(), map[string]interface{}{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	report := out.(*tools.TimeReport)
	if report.Timezone != "UTC" {
		t.Errorf("timezone = %q", report.Timezone)
	}
	if d := report.Timestamp - before.UnixMilli(); d < 0 || d > 5000 {
		t.Errorf("timestamp %d too far from now", report.Timestamp)
	}
	if !strings.HasSuffix(report.ISO, "Z") {
		t.Errorf("iso = %q", report.ISO)
	}
}

func TestCurrentTime(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 18, 4, 5, 123e6, time.UTC)

	report, err := tools.CurrentTime(fixed, "Asia/Shanghai")
	if err != nil {
		t.Fatalf("CurrentTime: %v", err)
	}
	if report.Datetime != "2024/03/10 02:04:05" {
		t.Errorf("datetime = %q", report.Datetime)
	}
	if report.ISO != "2024-03-09T18:04:05.123Z" {
		t.Errorf("iso = %q", report.ISO)
	}
	if report.Timestamp != fixed.UnixMilli() {
		t.Errorf("timestamp = %d", report.Timestamp)
	}
}

func TestCurrentTimeInvalidZone(t *testing.T) {
	for _, tz := range []string{"Mars/Olympus", "Local"} {
		if _, err := tools.CurrentTime(time.Now(), tz); err == nil || !strings.HasPrefix(err.Error(), "Time lookup failed") {
			t.Errorf("%s: err = %v", tz, err)
		}
	}
}
