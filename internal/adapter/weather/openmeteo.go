package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
)

// OpenMeteoClient resolves the current weather condition at a point
// through the Open-Meteo current weather API. Lookups carry a short
// timeout, a slow provider must not hold up a fare quote.
type OpenMeteoClient struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com"
	}
	return &OpenMeteoClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type currentWeatherPayload struct {
	CurrentWeather struct {
		WeatherCode int `json:"weathercode"`
	} `json:"current_weather"`
}

func (c *OpenMeteoClient) GetConditionAt(ctx context.Context, lat, lon float64) (types.WeatherCondition, error) {
	const op = "OpenMeteoClient.GetConditionAt"

	url := fmt.Sprintf("%s/v1/forecast?latitude=%f&longitude=%f&current_weather=true", c.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("%s: failed to build request: %w", op, err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: failed to make request to Open-Meteo: %w", op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: unexpected response status %d", op, resp.StatusCode))
	}

	var payload currentWeatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("%s: failed to decode Open-Meteo response: %w", op, err))
	}

	return conditionFromCode(payload.CurrentWeather.WeatherCode), nil
}

// conditionFromCode maps WMO weather interpretation codes onto the
// coarse buckets the fare engine prices on.
func conditionFromCode(code int) types.WeatherCondition {
	switch {
	case code == 0:
		return types.WeatherClear
	case code <= 48:
		return types.WeatherCloudy
	case code <= 67 || (code >= 80 && code <= 82):
		return types.WeatherRain
	case code <= 77 || code == 85 || code == 86:
		return types.WeatherSnow
	default: // грозовые коды 95-99
		return types.WeatherStorm
	}
}
