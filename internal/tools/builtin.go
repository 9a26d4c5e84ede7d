package tools

import "net/http"

// Builtin returns the default catalog in advertised order.
func Builtin(client *http.Client, weatherBaseURL string, searcher Searcher) []Tool {
	return []Tool{
		WeatherTool(client, weatherBaseURL),
		SearchTool(searcher),
		CalculateTool(),
		ClockTool(nil),
	}
}
