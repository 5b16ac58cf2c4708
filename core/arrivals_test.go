package core

import (
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/signalsfoundry/airport-simulator/model"
)

func TestNextIntervalBounds(t *testing.T) {
	gen := NewGenerator(model.DefaultBalance(), rand.New(rand.NewSource(1)))

	for i := 0; i < 1000; i++ {
		d := gen.NextInterval(1)
		if d < 8*time.Second || d > 20*time.Second {
			t.Fatalf("day 1 interval %v outside [8s,20s]", d)
		}
		if d > 19*time.Second {
			t.Fatalf("day 1 interval %v above shrunk bound 19s", d)
		}
	}
	for _, day := range []int{12, 20, 100} {
		if d := gen.NextInterval(day); d != 8*time.Second {
			t.Fatalf("day %d interval = %v, want floor 8s", day, d)
		}
	}
}

func TestPickTypeBands(t *testing.T) {
	cases := []struct {
		r         float64
		want      model.FlightType
		emergency bool
	}{
		{r: 0, want: model.FlightInternational, emergency: true},
		{r: 0.049, want: model.FlightInternational, emergency: true},
		{r: 0.05, want: model.FlightVIP},
		{r: 0.149, want: model.FlightVIP},
		{r: 0.15, want: model.FlightDomestic},
		{r: 0.699, want: model.FlightDomestic},
		{r: 0.70, want: model.FlightInternational},
		{r: 0.899, want: model.FlightInternational},
		{r: 0.90, want: model.FlightCargo},
		{r: 0.999, want: model.FlightCargo},
	}
	for _, tc := range cases {
		got, emergency := pickType(tc.r)
		if got != tc.want || emergency != tc.emergency {
			t.Fatalf("pickType(%v) = (%s, %v), want (%s, %v)", tc.r, got, emergency, tc.want, tc.emergency)
		}
	}
}

func TestNewFlightFollowsTypeConfig(t *testing.T) {
	b := model.DefaultBalance()
	gen := NewGenerator(b, rand.New(rand.NewSource(7)))
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	number := regexp.MustCompile(`^[A-Z]{2}[1-9][0-9]{2}$`)

	seen := map[model.FlightType]bool{}
	ids := map[string]bool{}
	for i := 0; i < 500; i++ {
		f := gen.NewFlight(now)
		cfg := b.FlightTypes[f.Type]
		seen[f.Type] = true
		if ids[f.ID] {
			t.Fatalf("duplicate flight id %s", f.ID)
		}
		ids[f.ID] = true
		if f.Passengers < cfg.MinPassengers || f.Passengers > cfg.MaxPassengers {
			t.Fatalf("%s passengers %d outside [%d,%d]", f.Type, f.Passengers, cfg.MinPassengers, cfg.MaxPassengers)
		}
		if f.BaseRevenue != cfg.BaseRevenue || f.ProcessingTime != cfg.ProcessingTime {
			t.Fatalf("%s config not copied: %+v", f.Type, f)
		}
		if f.IsVIP != (f.Type == model.FlightVIP) {
			t.Fatalf("IsVIP = %v for type %s", f.IsVIP, f.Type)
		}
		if f.IsEmergency && f.Type != model.FlightInternational {
			t.Fatalf("emergency flight of type %s", f.Type)
		}
		if !number.MatchString(f.FlightNumber) {
			t.Fatalf("flight number %q has wrong shape", f.FlightNumber)
		}
		if f.Airline == "" || f.Assigned() || !f.CreatedAt.Equal(now) {
			t.Fatalf("unexpected flight fields: %+v", f)
		}
	}
	for _, ft := range []model.FlightType{model.FlightDomestic, model.FlightInternational, model.FlightCargo, model.FlightVIP} {
		if !seen[ft] {
			t.Fatalf("500 draws never produced %s", ft)
		}
	}
}

func TestNextWeatherFromTable(t *testing.T) {
	b := model.DefaultBalance()
	gen := NewGenerator(b, rand.New(rand.NewSource(3)))
	for i := 0; i < 50; i++ {
		w := gen.NextWeather()
		if _, ok := b.WeatherByValue(w.Weather); !ok {
			t.Fatalf("NextWeather returned unknown %q", w.Weather)
		}
	}
}
