package energy

import "energy_dashboard/internal/model"

// Tick computes the next flows from prev. Components pinned in ctl.Edited
// keep their value, except the car in auto mode, which the controller always
// drives. Home and grid are derived from the result.
func Tick(prev model.Flows, ctl model.Controls, r Rand, nom Nominal) model.Flows {
	next := prev
	edited := ctl.Edited

	if !edited.Solar {
		next.Solar = SolarSample(ctl.Weather, r)
	}

	switch {
	case ctl.AutoMode:
		next.Car = CarAuto(prev.Car, prev.Grid, ctl.TargetGridKW, nom.CarStepKW)
	case !edited.Car:
		next.Car = CarManual(prev.Car, r)
	}

	if !edited.HeatPump {
		next.HeatPump = nom.HeatPumpKW
	}
	if !edited.Heating {
		next.Heating = nom.HeatingKW
	}
	if !edited.Fridge {
		next.Fridge = FridgeWalk(prev.Fridge, r)
	}
	if !edited.Appliance {
		next.Appliance = ApplianceSample(r)
	}

	if !edited.Battery {
		next.Battery.PowerW = nom.BatteryPowerW
	}
	next.Battery.Percentage = PercentageWalk(prev.Battery.Percentage, r)

	return Aggregate(next)
}
