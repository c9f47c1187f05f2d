package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylarkwx/skylark/internal/weather"
)

func mildWeather() *weather.WeatherData {
	return &weather.WeatherData{
		Location: weather.Location{Name: "Lisbon", Country: "Portugal", Lat: 38.72, Lon: -9.14},
		Current: weather.CurrentConditions{
			TempC:     21,
			Condition: "Partly cloudy",
			Humidity:  55,
			WindKph:   12,
			UV:        4,
		},
		Forecast: []weather.DailyForecast{
			{Date: "2025-06-10", MaxTempC: 24, MinTempC: 16, ChanceOfRain: 10},
		},
	}
}

func TestEvaluate(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	t.Run("mild conditions produce no insights", func(t *testing.T) {
		got := engine.Evaluate(mildWeather())
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("nil data produces no insights", func(t *testing.T) {
		got := engine.Evaluate(nil)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("heat alone produces exactly one insight", func(t *testing.T) {
		data := mildWeather()
		data.Current.TempC = 35

		got := engine.Evaluate(data)

		require.Len(t, got, 1)
		assert.Equal(t, CategoryHeat, got[0].Category)
		assert.Equal(t, SeverityWarning, got[0].Severity)
		assert.Equal(t, "High heat: 35°C. Stay hydrated and limit sun exposure during peak hours.", got[0].Message)
	})

	t.Run("evaluation is idempotent", func(t *testing.T) {
		data := mildWeather()
		data.Current.TempC = 36
		data.Current.WindKph = 52
		data.Current.UV = 9

		first := engine.Evaluate(data)
		second := engine.Evaluate(data)

		assert.Equal(t, first, second)
	})

	t.Run("matching rules emit in table order", func(t *testing.T) {
		data := mildWeather()
		data.Alerts = []weather.Alert{{Event: "Flood Warning", Severity: "Severe"}}
		data.Current.TempC = 34
		data.Current.Humidity = 85
		data.Current.WindKph = 45
		data.Current.UV = 9
		data.Forecast[0].ChanceOfRain = 90

		got := engine.Evaluate(data)

		categories := make([]string, 0, len(got))
		for _, in := range got {
			categories = append(categories, in.Category)
		}
		assert.Equal(t, []string{
			CategoryAlert,
			CategoryHeat,
			CategoryWind,
			CategoryHumidity,
			CategoryUV,
			CategoryPrecipitation,
		}, categories)
	})

	t.Run("humidity rule requires both humidity and temperature", func(t *testing.T) {
		humidButCool := mildWeather()
		humidButCool.Current.Humidity = 90
		humidButCool.Current.TempC = 18
		assert.Empty(t, engine.Evaluate(humidButCool))

		humidAndWarm := mildWeather()
		humidAndWarm.Current.Humidity = 90
		humidAndWarm.Current.TempC = 29

		got := engine.Evaluate(humidAndWarm)
		require.Len(t, got, 1)
		assert.Equal(t, CategoryHumidity, got[0].Category)
		assert.Equal(t, "Muggy: 90% humidity at 29°C. Expect reduced comfort outdoors.", got[0].Message)
	})

	t.Run("thresholds are inclusive", func(t *testing.T) {
		data := mildWeather()
		data.Current.TempC = 32

		got := engine.Evaluate(data)

		require.Len(t, got, 1)
		assert.Equal(t, CategoryHeat, got[0].Category)
	})

	t.Run("cold and heat rules are mutually exclusive in practice", func(t *testing.T) {
		data := mildWeather()
		data.Current.TempC = -14

		got := engine.Evaluate(data)

		require.Len(t, got, 1)
		assert.Equal(t, CategoryCold, got[0].Category)
		assert.Equal(t, "Severe cold: -14°C. Dress in layers and limit time outside.", got[0].Message)
	})

	t.Run("multiple alerts are counted", func(t *testing.T) {
		data := mildWeather()
		data.Alerts = []weather.Alert{
			{Event: "Flood Warning"},
			{Event: "High Wind Watch"},
		}

		got := engine.Evaluate(data)

		require.Len(t, got, 1)
		assert.Equal(t, "2 active weather alerts, including Flood Warning. Check local guidance before heading out.", got[0].Message)
	})

	t.Run("rain chance below threshold stays quiet", func(t *testing.T) {
		data := mildWeather()
		data.Forecast[0].ChanceOfRain = 69
		assert.Empty(t, engine.Evaluate(data))

		data.Forecast[0].ChanceOfRain = 70
		got := engine.Evaluate(data)
		require.Len(t, got, 1)
		assert.Equal(t, CategoryPrecipitation, got[0].Category)
		assert.Equal(t, SeverityInfo, got[0].Severity)
	})

	t.Run("empty forecast skips the precipitation rule", func(t *testing.T) {
		data := mildWeather()
		data.Forecast = nil
		assert.Empty(t, engine.Evaluate(data))
	})
}

func TestCustomThresholds(t *testing.T) {
	engine := NewEngine(Thresholds{
		HeatC:              28,
		ColdC:              0,
		WindKph:            30,
		HumidityPct:        70,
		HumidityTempFloorC: 24,
		UV:                 6,
		RainChancePct:      50,
	})

	data := mildWeather()
	data.Current.TempC = 29
	data.Current.WindKph = 31

	got := engine.Evaluate(data)

	require.Len(t, got, 2)
	assert.Equal(t, CategoryHeat, got[0].Category)
	assert.Equal(t, CategoryWind, got[1].Category)
}
