package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent(t *testing.T) {
	assert.Equal(t, Component("heatPump"), ComponentHeatPump)
}

func TestParseComponent(t *testing.T) {
	c, err := ParseComponent("fridge")
	require.NoError(t, err)
	assert.Equal(t, ComponentFridge, c)

	_, err = ParseComponent("toaster")
	assert.ErrorIs(t, err, ErrUnknownComponent)
}

func TestComponent_Roles(t *testing.T) {
	tests := []struct {
		name     string
		c        Component
		editable bool
		consumer bool
	}{
		{"solar", ComponentSolar, true, false},
		{"car", ComponentCar, true, true},
		{"heat pump", ComponentHeatPump, true, true},
		{"heating", ComponentHeating, true, true},
		{"fridge", ComponentFridge, true, true},
		{"appliance", ComponentAppliance, true, true},
		{"battery", ComponentBattery, true, false},
		{"grid", ComponentGrid, false, false},
		{"home", ComponentHome, false, false},
		{"unknown", Component("kettle"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.editable, tt.c.Editable())
			assert.Equal(t, tt.consumer, tt.c.Consumer())
		})
	}
}

func TestConsumptionComponents(t *testing.T) {
	assert.Len(t, ConsumptionComponents, 5)
	for _, c := range ConsumptionComponents {
		assert.True(t, c.Consumer(), string(c))
	}
}
