package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"energy_dashboard/internal/thermal"
)

func temperatureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "temperature KW...",
		Short: "Print the estimated home temperature for heating powers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTemperatures(cmd.OutOrStdout(), args)
		},
	}
}

func printTemperatures(w io.Writer, args []string) error {
	rows := make([][]string, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid power %q: %w", a, err)
		}
		temp, err := thermal.Estimate(v)
		if err != nil {
			return fmt.Errorf("power %q: %w", a, err)
		}
		rows = append(rows, []string{kw(v), kw(temp)})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Heating kW", "Temp °C"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.AppendBulk(rows)
	table.Render()
	return nil
}
