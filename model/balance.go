package model

import (
	"errors"
	"fmt"
	"time"
)

// FlightTypeConfig holds the per-type arrival parameters.
type FlightTypeConfig struct {
	Name            string        `yaml:"name" json:"name"`
	MinPassengers   int           `yaml:"minPassengers" json:"minPassengers"`
	MaxPassengers   int           `yaml:"maxPassengers" json:"maxPassengers"`
	BaseRevenue     int           `yaml:"baseRevenue" json:"baseRevenue"`
	ProcessingTime  time.Duration `yaml:"processingTime" json:"processingTime"`
	ReputationBonus int           `yaml:"reputationBonus" json:"reputationBonus"`
}

// Balance is every tunable number of the game. DefaultBalance returns the
// shipped values; config files may override any of them.
type Balance struct {
	StartingCash         int      `yaml:"startingCash"`
	StartingSatisfaction float64  `yaml:"startingSatisfaction"`
	StartingReputation   int      `yaml:"startingReputation"`
	StartingGates        int      `yaml:"startingGates"`
	StartingGateType     GateType `yaml:"startingGateType"`
	UpgradeGateType      GateType `yaml:"upgradeGateType"`

	MinArrivalInterval  time.Duration `yaml:"minArrivalInterval"`
	MaxArrivalInterval  time.Duration `yaml:"maxArrivalInterval"`
	ArrivalStepPerDay   time.Duration `yaml:"arrivalStepPerDay"`
	OpeningArrivalDelay time.Duration `yaml:"openingArrivalDelay"`
	DayLength           time.Duration `yaml:"dayLength"`
	WeatherPeriod       time.Duration `yaml:"weatherPeriod"`
	AlertTTL            time.Duration `yaml:"alertTTL"`

	DailyBaseCost int `yaml:"dailyBaseCost"`

	GameOverCash             int `yaml:"gameOverCash"`
	GameOverReputation       int `yaml:"gameOverReputation"`
	WarningCash              int `yaml:"warningCash"`
	WarningCashRelease       int `yaml:"warningCashRelease"`
	WarningReputation        int `yaml:"warningReputation"`
	WarningReputationRelease int `yaml:"warningReputationRelease"`

	WaitThreshold          time.Duration `yaml:"waitThreshold"`
	WaitingDecayRate       float64       `yaml:"waitingDecayRate"`
	CongestionThreshold    int           `yaml:"congestionThreshold"`
	CongestionDecayRate    float64       `yaml:"congestionDecayRate"`
	CompletionSatisfaction float64       `yaml:"completionSatisfaction"`
	PoorMatchPenalty       float64       `yaml:"poorMatchPenalty"`
	CompletionReputation   int           `yaml:"completionReputation"`
	PerfectMatchReputation int           `yaml:"perfectMatchReputation"`

	FlightTypes     map[FlightType]FlightTypeConfig `yaml:"flightTypes"`
	GateCapacities  map[GateType]int                `yaml:"gateCapacities"`
	Weather         []WeatherCondition              `yaml:"weather"`
	Upgrades        []Upgrade                       `yaml:"upgrades"`
	CarrierPrefixes []string                        `yaml:"carrierPrefixes"`
	Airlines        []string                        `yaml:"airlines"`
}

// DefaultBalance returns the shipped game constants.
func DefaultBalance() Balance {
	return Balance{
		StartingCash:         80000,
		StartingSatisfaction: 100,
		StartingReputation:   50,
		StartingGates:        3,
		StartingGateType:     GateSmall,
		UpgradeGateType:      GateMedium,

		MinArrivalInterval:  8 * time.Second,
		MaxArrivalInterval:  20 * time.Second,
		ArrivalStepPerDay:   time.Second,
		OpeningArrivalDelay: 3 * time.Second,
		DayLength:           180 * time.Second,
		WeatherPeriod:       60 * time.Second,
		AlertTTL:            5 * time.Second,

		DailyBaseCost: 3000,

		GameOverCash:             -50000,
		GameOverReputation:       0,
		WarningCash:              -30000,
		WarningCashRelease:       -20000,
		WarningReputation:        10,
		WarningReputationRelease: 15,

		WaitThreshold:          5 * time.Second,
		WaitingDecayRate:       0.3,
		CongestionThreshold:    5,
		CongestionDecayRate:    0.5,
		CompletionSatisfaction: 5,
		PoorMatchPenalty:       10,
		CompletionReputation:   2,
		PerfectMatchReputation: 2,

		FlightTypes: map[FlightType]FlightTypeConfig{
			FlightDomestic:      {Name: "Domestic", MinPassengers: 50, MaxPassengers: 120, BaseRevenue: 8000, ProcessingTime: 15 * time.Second},
			FlightInternational: {Name: "International", MinPassengers: 120, MaxPassengers: 250, BaseRevenue: 18000, ProcessingTime: 25 * time.Second},
			FlightCargo:         {Name: "Cargo", MinPassengers: 0, MaxPassengers: 0, BaseRevenue: 12000, ProcessingTime: 10 * time.Second},
			FlightVIP:           {Name: "VIP", MinPassengers: 10, MaxPassengers: 50, BaseRevenue: 30000, ProcessingTime: 20 * time.Second, ReputationBonus: 10},
		},
		GateCapacities: map[GateType]int{
			GateSmall:  150,
			GateMedium: 250,
			GateLarge:  350,
		},
		Weather: []WeatherCondition{
			{Weather: WeatherClear, Name: "Clear", DelayFactor: 1.0},
			{Weather: WeatherCloudy, Name: "Cloudy", DelayFactor: 1.1},
			{Weather: WeatherRain, Name: "Rain", DelayFactor: 1.3},
			{Weather: WeatherStorm, Name: "Storm", DelayFactor: 1.5},
			{Weather: WeatherFog, Name: "Fog", DelayFactor: 1.4},
		},
		Upgrades: []Upgrade{
			{ID: "terminal2", Name: "Terminal 2", Description: "Add 2 more gates to handle more flights", Cost: 50000, Effect: EffectAddGates, Value: 2},
			{ID: "lounge", Name: "VIP Lounge", Description: "Increase passenger satisfaction by 10%", Cost: 35000, Effect: EffectSatisfaction, Value: 1.1},
			{ID: "fuelStation", Name: "Fuel Station", Description: "Reduce operating costs by 15%", Cost: 40000, Effect: EffectOperatingCost, Value: 0.85},
			{ID: "runway2", Name: "Second Runway", Description: "Process flights 20% faster", Cost: 70000, Effect: EffectProcessingSpeed, Value: 0.8},
			{ID: "controlTower", Name: "Advanced Control Tower", Description: "Increase revenue by 25%", Cost: 85000, Effect: EffectRevenue, Value: 1.25},
			{ID: "terminal3", Name: "Terminal 3", Description: "Add 3 more gates for maximum capacity", Cost: 120000, Effect: EffectAddGates, Value: 3},
		},
		CarrierPrefixes: []string{
			"AA", "UA", "DL", "BA", "LH", "AF", "KL", "EK", "QR", "SQ",
			"JL", "NH", "CX", "TG", "QF", "VS", "IB", "AZ", "LX", "OS",
		},
		Airlines: []string{
			"SkyWings", "CloudJet", "AeroLine", "GlobalAir", "PremiumFly",
			"SwiftAir", "OceanicAir", "MountainAir", "CoastalAir", "StarLine",
		},
	}
}

// ErrInvalidBalance is returned by Validate for out-of-range values.
var ErrInvalidBalance = errors.New("invalid balance")

// Validate rejects values the engine cannot run with.
func (b Balance) Validate() error {
	switch {
	case b.MinArrivalInterval <= 0:
		return fmt.Errorf("%w: minArrivalInterval must be positive", ErrInvalidBalance)
	case b.MaxArrivalInterval < b.MinArrivalInterval:
		return fmt.Errorf("%w: maxArrivalInterval below minArrivalInterval", ErrInvalidBalance)
	case b.DayLength <= 0 || b.WeatherPeriod <= 0 || b.AlertTTL <= 0:
		return fmt.Errorf("%w: dayLength, weatherPeriod and alertTTL must be positive", ErrInvalidBalance)
	case b.StartingSatisfaction < 0 || b.StartingSatisfaction > 100:
		return fmt.Errorf("%w: startingSatisfaction must be within [0,100]", ErrInvalidBalance)
	case b.WarningCashRelease < b.WarningCash:
		return fmt.Errorf("%w: warningCashRelease below warningCash", ErrInvalidBalance)
	case b.WarningReputationRelease < b.WarningReputation:
		return fmt.Errorf("%w: warningReputationRelease below warningReputation", ErrInvalidBalance)
	case len(b.Weather) == 0:
		return fmt.Errorf("%w: weather table is empty", ErrInvalidBalance)
	case len(b.CarrierPrefixes) == 0 || len(b.Airlines) == 0:
		return fmt.Errorf("%w: carrier prefixes and airlines are required", ErrInvalidBalance)
	}
	for _, ft := range []FlightType{FlightDomestic, FlightInternational, FlightCargo, FlightVIP} {
		cfg, ok := b.FlightTypes[ft]
		if !ok {
			return fmt.Errorf("%w: missing flight type %s", ErrInvalidBalance, ft)
		}
		if cfg.MinPassengers < 0 || cfg.MaxPassengers < cfg.MinPassengers {
			return fmt.Errorf("%w: passenger range for %s", ErrInvalidBalance, ft)
		}
		if cfg.ProcessingTime <= 0 {
			return fmt.Errorf("%w: processingTime for %s must be positive", ErrInvalidBalance, ft)
		}
	}
	for _, gt := range []GateType{b.StartingGateType, b.UpgradeGateType} {
		if b.GateCapacities[gt] <= 0 {
			return fmt.Errorf("%w: no capacity for gate type %s", ErrInvalidBalance, gt)
		}
	}
	seen := make(map[string]bool, len(b.Upgrades))
	for _, u := range b.Upgrades {
		if u.ID == "" || seen[u.ID] {
			return fmt.Errorf("%w: duplicate or empty upgrade id %q", ErrInvalidBalance, u.ID)
		}
		seen[u.ID] = true
		if u.Cost < 0 || u.Value <= 0 {
			return fmt.Errorf("%w: upgrade %s cost/value", ErrInvalidBalance, u.ID)
		}
	}
	return nil
}

// WeatherByValue looks up the condition for w.
func (b Balance) WeatherByValue(w Weather) (WeatherCondition, bool) {
	for _, c := range b.Weather {
		if c.Weather == w {
			return c, true
		}
	}
	return WeatherCondition{}, false
}

// UpgradeByID looks up a catalog entry.
func (b Balance) UpgradeByID(id string) (Upgrade, bool) {
	for _, u := range b.Upgrades {
		if u.ID == id {
			return u, true
		}
	}
	return Upgrade{}, false
}
