package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDomainConfig(t *testing.T) {
	tests := []struct {
		environment string
		maxNodes    int
	}{
		{environment: "production", maxNodes: 2000},
		{environment: "development", maxNodes: 100000},
		{environment: "staging", maxNodes: 5000},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := LoadDomainConfig(tt.environment)
			assert.Equal(t, tt.maxNodes, cfg.MaxNodesPerMap)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*DomainConfig)
	}{
		{name: "zero capacity", modify: func(c *DomainConfig) { c.HistoryCapacity = 0 }},
		{name: "zero nodes", modify: func(c *DomainConfig) { c.MaxNodesPerMap = 0 }},
		{name: "no default color", modify: func(c *DomainConfig) { c.DefaultColor = "" }},
		{name: "default color outside palette", modify: func(c *DomainConfig) { c.DefaultColor = "teal" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDomainConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInPalette(t *testing.T) {
	cfg := DefaultDomainConfig()
	assert.True(t, cfg.InPalette("blue"))
	assert.False(t, cfg.InPalette("teal"))
	assert.False(t, cfg.InPalette(""))
}
