package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const maxResponseBytes = 1 << 20

type WeatherArgs struct {
	Location string `json:"location" jsonschema_description:"The city name or location, e.g. \"Beijing\", \"New York\""`
	Unit     string `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit,default=celsius" jsonschema_description:"Temperature unit"`
}

type WeatherReport struct {
	Location      string `json:"location"`
	Temperature   string `json:"temperature"`
	FeelsLike     string `json:"feels_like"`
	Condition     string `json:"condition"`
	Humidity      string `json:"humidity"`
	WindSpeed     string `json:"wind_speed"`
	WindDirection string `json:"wind_direction"`
	Visibility    string `json:"visibility"`
	Pressure      string `json:"pressure"`
	UVIndex       string `json:"uv_index"`
}

// WeatherTool looks up current conditions from a wttr.in compatible endpoint.
func WeatherTool(client *http.Client, baseURL string) Tool {
	return Tool{
		Name:        "get_weather",
		Description: "Get current weather information for a specific location",
		Parameters:  GenerateSchema[WeatherArgs](),
		Execute: func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
			args, err := decodeArgs[WeatherArgs](input)
			if err != nil {
				return nil, err
			}
			location := strings.TrimSpace(args.Location)
			if location == "" {
				return nil, errors.New("location is required")
			}
			unit := args.Unit
			if unit == "" {
				unit = "celsius"
			}
			return fetchWeather(ctx, client, baseURL, location, unit)
		},
	}
}

func fetchWeather(ctx context.Context, client *http.Client, baseURL, location, unit string) (*WeatherReport, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(location) + "?format=j1"
	body, status, err := httpGet(ctx, client, endpoint)
	if err != nil {
		return nil, fmt.Errorf("Weather lookup failed: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, errors.New("Failed to fetch weather data")
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("Weather lookup failed: invalid response")
	}

	current := gjson.GetBytes(body, "current_condition.0")
	if !current.Exists() {
		return nil, errors.New("Weather lookup failed: no current conditions")
	}
	area := gjson.GetBytes(body, "nearest_area.0")

	report := &WeatherReport{
		Location:      location,
		Condition:     current.Get("weatherDesc.0.value").String(),
		Humidity:      current.Get("humidity").String() + "%",
		WindSpeed:     current.Get("windspeedKmph").String() + " km/h",
		WindDirection: current.Get("winddir16Point").String(),
		Visibility:    current.Get("visibility").String() + " km",
		Pressure:      current.Get("pressure").String() + " mb",
		UVIndex:       current.Get("uvIndex").String(),
	}
	if name := area.Get("areaName.0.value").String(); name != "" {
		report.Location = name + ", " + area.Get("country.0.value").String()
	}
	if unit == "fahrenheit" {
		report.Temperature = fmt.Sprintf("%d°F", current.Get("temp_F").Int())
		report.FeelsLike = current.Get("FeelsLikeF").String() + "°F"
	} else {
		report.Temperature = fmt.Sprintf("%d°C", current.Get("temp_C").Int())
		report.FeelsLike = current.Get("FeelsLikeC").String() + "°C"
	}
	return report, nil
}

// httpGet performs a GET bound to ctx and returns the (size-capped) body.
func httpGet(ctx context.Context, client *http.Client, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "toolrelay/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
