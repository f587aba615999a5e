package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"energy_dashboard/internal/config"
	"energy_dashboard/internal/model"
	"energy_dashboard/internal/simulator"
)

func simulateCmd() *cobra.Command {
	var (
		ticks   int
		weather string
		seed    uint64
		manual  bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the simulation headless and print per-tick flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticks <= 0 {
				return fmt.Errorf("--ticks must be positive, got %d", ticks)
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if weather != "" {
				if _, err := model.ParseWeatherMode(weather); err != nil {
					return err
				}
				cfg.Defaults.Weather = weather
			}
			if manual {
				cfg.Defaults.AutoMode = false
			}
			return runSimulation(cmd.OutOrStdout(), cfg, ticks, seed)
		},
	}

	cmd.Flags().IntVarP(&ticks, "ticks", "n", 20, "number of ticks to run")
	cmd.Flags().StringVarP(&weather, "weather", "w", "", "weather mode (sunny, cloudy, rainy)")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed, 0 for a random one")
	cmd.Flags().BoolVar(&manual, "manual", false, "use manual instead of automatic car charging")

	return cmd
}

func runSimulation(w io.Writer, cfg *config.Config, ticks int, seed uint64) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := newEngine(cfg, simulator.Callbacks{}, logger, seed)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Tick", "Solar", "Car", "Heat pump", "Heating", "Fridge", "Appliance", "Battery kW", "Battery %", "Grid", "Home", "Temp °C"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for i := 0; i < ticks; i++ {
		u, err := engine.Step()
		if err != nil {
			return err
		}
		f := u.Flows
		sum := engine.Summary()
		table.Append([]string{
			strconv.FormatUint(u.Tick, 10),
			kw(f.Solar),
			kw(f.Car),
			kw(f.HeatPump),
			kw(f.Heating),
			kw(f.Fridge),
			kw(f.Appliance),
			kw(f.Battery.PowerW / 1000),
			strconv.Itoa(f.Battery.Percentage),
			kw(f.Grid),
			kw(f.Home),
			kw(sum.TemperatureC),
		})
	}
	table.Render()

	sum := engine.Summary()
	_, err := fmt.Fprintf(w, "15 min home average: %s kW\n", kw(sum.HomeAvg15MinKW))
	return err
}

func kw(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
