package model

// Weather is the current condition at the airport.
type Weather string

const (
	WeatherClear  Weather = "CLEAR"
	WeatherCloudy Weather = "CLOUDY"
	WeatherRain   Weather = "RAIN"
	WeatherStorm  Weather = "STORM"
	WeatherFog    Weather = "FOG"
)

// WeatherCondition pairs a weather value with its processing delay factor.
type WeatherCondition struct {
	Weather     Weather `yaml:"weather" json:"weather"`
	Name        string  `yaml:"name" json:"name"`
	DelayFactor float64 `yaml:"delayFactor" json:"delayFactor"`
}
