package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"energy_dashboard/internal/energy"
	"energy_dashboard/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. DASHBOARD_SERVER_ADDR.
const EnvPrefix = "DASHBOARD"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Nominal    NominalConfig    `mapstructure:"nominal"`
	Defaults   DefaultsConfig   `mapstructure:"defaults"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	FrontendDir string `mapstructure:"frontend_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type SimulationConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Seed      uint64        `mapstructure:"seed"` // 0 picks a random seed
	AutoStart bool          `mapstructure:"auto_start"`
}

type NominalConfig struct {
	HeatPumpKW    float64 `mapstructure:"heat_pump_kw"`
	HeatingKW     float64 `mapstructure:"heating_kw"`
	BatteryPowerW float64 `mapstructure:"battery_power_w"`
	CarStepKW     float64 `mapstructure:"car_step_kw"`
}

// DefaultsConfig is the state a new session starts from.
type DefaultsConfig struct {
	Solar             float64 `mapstructure:"solar"`
	Car               float64 `mapstructure:"car"`
	HeatPump          float64 `mapstructure:"heat_pump"`
	Heating           float64 `mapstructure:"heating"`
	Fridge            float64 `mapstructure:"fridge"`
	Appliance         float64 `mapstructure:"appliance"`
	BatteryPowerW     float64 `mapstructure:"battery_power_w"`
	BatteryPercentage int     `mapstructure:"battery_percentage"`
	Weather           string  `mapstructure:"weather"`
	AutoMode          bool    `mapstructure:"auto_mode"`
	TargetGridKW      float64 `mapstructure:"target_grid_kw"`
}

func setDefaults(v *viper.Viper) {
	flows := model.DefaultFlows()
	controls := model.DefaultControls()
	nom := energy.DefaultNominal()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.frontend_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("simulation.interval", "3s")
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.auto_start", true)

	v.SetDefault("nominal.heat_pump_kw", nom.HeatPumpKW)
	v.SetDefault("nominal.heating_kw", nom.HeatingKW)
	v.SetDefault("nominal.battery_power_w", nom.BatteryPowerW)
	v.SetDefault("nominal.car_step_kw", nom.CarStepKW)

	v.SetDefault("defaults.solar", flows.Solar)
	v.SetDefault("defaults.car", flows.Car)
	v.SetDefault("defaults.heat_pump", flows.HeatPump)
	v.SetDefault("defaults.heating", flows.Heating)
	v.SetDefault("defaults.fridge", flows.Fridge)
	v.SetDefault("defaults.appliance", flows.Appliance)
	v.SetDefault("defaults.battery_power_w", flows.Battery.PowerW)
	v.SetDefault("defaults.battery_percentage", flows.Battery.Percentage)
	v.SetDefault("defaults.weather", string(controls.Weather))
	v.SetDefault("defaults.auto_mode", controls.AutoMode)
	v.SetDefault("defaults.target_grid_kw", controls.TargetGridKW)
}

// Load reads configuration from path, or from config.yaml in the working
// directory or ~/.energy-dashboard when path is empty. A missing default
// file is not an error. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".energy-dashboard"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and sign conventions of the configured values.
func (c *Config) Validate() error {
	if c.Simulation.Interval <= 0 {
		return fmt.Errorf("simulation.interval must be positive, got %s", c.Simulation.Interval)
	}
	if _, err := model.ParseWeatherMode(c.Defaults.Weather); err != nil {
		return fmt.Errorf("defaults.weather: %w", err)
	}
	d := c.Defaults
	if d.BatteryPercentage < 0 || d.BatteryPercentage > 100 {
		return fmt.Errorf("defaults.battery_percentage must be in [0,100], got %d", d.BatteryPercentage)
	}
	if d.TargetGridKW < model.MinTargetGridKW || d.TargetGridKW > model.MaxTargetGridKW {
		return fmt.Errorf("defaults.target_grid_kw must be in [%g,%g], got %g",
			model.MinTargetGridKW, model.MaxTargetGridKW, d.TargetGridKW)
	}
	if d.Solar < 0 {
		return fmt.Errorf("defaults.solar must not be negative, got %g", d.Solar)
	}
	for name, v := range map[string]float64{
		"car":       d.Car,
		"heat_pump": d.HeatPump,
		"heating":   d.Heating,
		"fridge":    d.Fridge,
		"appliance": d.Appliance,
	} {
		if v > 0 || math.IsNaN(v) {
			return fmt.Errorf("defaults.%s is a consumption and must be <= 0, got %g", name, v)
		}
	}
	if c.Nominal.HeatPumpKW > 0 || c.Nominal.HeatingKW > 0 {
		return errors.New("nominal heat pump and heating power must be <= 0")
	}
	if c.Nominal.CarStepKW <= 0 {
		return fmt.Errorf("nominal.car_step_kw must be positive, got %g", c.Nominal.CarStepKW)
	}
	return nil
}

// Flows returns the initial component values.
func (c *Config) Flows() model.Flows {
	d := c.Defaults
	return model.Flows{
		Solar:     d.Solar,
		Car:       d.Car,
		HeatPump:  d.HeatPump,
		Heating:   d.Heating,
		Fridge:    d.Fridge,
		Appliance: d.Appliance,
		Battery:   model.Battery{PowerW: d.BatteryPowerW, Percentage: d.BatteryPercentage},
	}
}

// Controls returns the initial control inputs. Validate must have passed.
func (c *Config) Controls() model.Controls {
	return model.Controls{
		Weather:      model.WeatherMode(c.Defaults.Weather),
		AutoMode:     c.Defaults.AutoMode,
		TargetGridKW: c.Defaults.TargetGridKW,
	}
}

func (c *Config) NominalValues() energy.Nominal {
	return energy.Nominal{
		HeatPumpKW:    c.Nominal.HeatPumpKW,
		HeatingKW:     c.Nominal.HeatingKW,
		BatteryPowerW: c.Nominal.BatteryPowerW,
		CarStepKW:     c.Nominal.CarStepKW,
	}
}
