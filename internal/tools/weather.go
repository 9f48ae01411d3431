package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/firebase/genkit/go/ai"
)

// maxWeatherResponseBytes bounds the forecast payload we will read.
const maxWeatherResponseBytes = 1 << 20

// WeatherInput locates the forecast.
type WeatherInput struct {
	Latitude  float64 `json:"latitude" jsonschema_description:"Latitude of the location"`
	Longitude float64 `json:"longitude" jsonschema_description:"Longitude of the location"`
}

// GetWeather fetches the current forecast from open-meteo.
func (k *Kit) GetWeather(ctx *ai.ToolContext, input WeatherInput) (Result, error) {
	k.logger.Debug("GetWeather called", "latitude", input.Latitude, "longitude", input.Longitude)

	if input.Latitude < -90 || input.Latitude > 90 {
		return errorResult(ErrCodeValidation,
			fmt.Sprintf("latitude %g out of range [-90, 90]", input.Latitude)), nil
	}
	if input.Longitude < -180 || input.Longitude > 180 {
		return errorResult(ErrCodeValidation,
			fmt.Sprintf("longitude %g out of range [-180, 180]", input.Longitude)), nil
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%g", input.Latitude))
	q.Set("longitude", fmt.Sprintf("%g", input.Longitude))
	q.Set("current", "temperature_2m")
	q.Set("hourly", "temperature_2m")
	q.Set("daily", "sunrise,sunset")
	q.Set("timezone", "auto")

	reqURL := k.weatherBaseURL + "/v1/forecast?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx.Context, http.MethodGet, reqURL, nil)
	if err != nil {
		return errorResult(ErrCodeExecution, fmt.Sprintf("building request: %v", err)), nil
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		k.logger.Warn("GetWeather failed", "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("fetching forecast: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorResult(ErrCodeExecution,
			fmt.Sprintf("forecast service returned status %d", resp.StatusCode)), nil
	}

	var forecast map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxWeatherResponseBytes)).Decode(&forecast); err != nil {
		return errorResult(ErrCodeExecution, fmt.Sprintf("decoding forecast: %v", err)), nil
	}

	k.logger.Debug("GetWeather succeeded")
	return Result{Status: StatusSuccess, Data: forecast}, nil
}
