package model

import (
	"errors"
	"fmt"
)

// Component identifies one node of the energy flow diagram.
type Component string

const (
	ComponentSolar     Component = "solar"
	ComponentCar       Component = "car"
	ComponentHeatPump  Component = "heatPump"
	ComponentHeating   Component = "heating"
	ComponentFridge    Component = "fridge"
	ComponentAppliance Component = "appliance"
	ComponentBattery   Component = "battery"
	ComponentGrid      Component = "grid"
	ComponentHome      Component = "home"
)

// Role tells how a component's value is signed and whether users may edit it.
type Role int

const (
	RoleGeneration Role = iota
	RoleConsumption
	RoleStorage
	RoleAggregate
)

// ComponentInfo holds display name, unit and role for a component.
type ComponentInfo struct {
	Name string
	Unit string
	Role Role
}

// ComponentCatalog maps every known Component to its display metadata.
var ComponentCatalog = map[Component]ComponentInfo{
	ComponentSolar:     {Name: "Solar", Unit: "kW", Role: RoleGeneration},
	ComponentCar:       {Name: "Car Charging", Unit: "kW", Role: RoleConsumption},
	ComponentHeatPump:  {Name: "Heat Pump", Unit: "kW", Role: RoleConsumption},
	ComponentHeating:   {Name: "Heating", Unit: "kW", Role: RoleConsumption},
	ComponentFridge:    {Name: "Fridge", Unit: "kW", Role: RoleConsumption},
	ComponentAppliance: {Name: "Appliance", Unit: "kW", Role: RoleConsumption},
	ComponentBattery:   {Name: "Battery", Unit: "W", Role: RoleStorage},
	ComponentGrid:      {Name: "Grid", Unit: "kW", Role: RoleAggregate},
	ComponentHome:      {Name: "Home", Unit: "kW", Role: RoleAggregate},
}

// ConsumptionComponents lists the components summed into home, in display order.
var ConsumptionComponents = []Component{
	ComponentCar,
	ComponentHeatPump,
	ComponentHeating,
	ComponentFridge,
	ComponentAppliance,
}

var (
	ErrUnknownComponent = errors.New("unknown component")
	ErrNotEditable      = errors.New("component is derived and cannot be edited")
)

// ParseComponent validates a component name.
func ParseComponent(s string) (Component, error) {
	c := Component(s)
	if _, ok := ComponentCatalog[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownComponent, s)
	}
	return c, nil
}

// Editable reports whether users may pin the component's value.
func (c Component) Editable() bool {
	info, ok := ComponentCatalog[c]
	return ok && info.Role != RoleAggregate
}

// Consumer reports whether the component is stored as negative consumption.
func (c Component) Consumer() bool {
	return ComponentCatalog[c].Role == RoleConsumption
}
