package config

import "fmt"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// History constraints
	HistoryCapacity                  int
	CursorTracksAppendedEntryOnEvict bool

	// Map constraints
	MaxNodesPerMap   int
	MaxLinksPerMap   int
	MaxNameLength    int
	MaxNodeTextBytes int
	DefaultMapName   string

	// Node presentation
	DefaultColor string
	Palette      []string
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		HistoryCapacity:                  50,
		CursorTracksAppendedEntryOnEvict: true,

		MaxNodesPerMap:   5000,
		MaxLinksPerMap:   5000,
		MaxNameLength:    200,
		MaxNodeTextBytes: 10000,
		DefaultMapName:   "Untitled map",

		DefaultColor: "white",
		Palette: []string{
			"white", "red", "orange", "yellow", "green",
			"blue", "purple", "pink", "gray",
		},
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxNodesPerMap = 2000
	config.MaxLinksPerMap = 2000

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxNodesPerMap = 100000
	config.MaxLinksPerMap = 100000

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("history capacity must be positive, got %d", c.HistoryCapacity)
	}
	if c.MaxNodesPerMap <= 0 {
		return fmt.Errorf("max nodes per map must be positive, got %d", c.MaxNodesPerMap)
	}
	if c.DefaultColor == "" {
		return fmt.Errorf("default color cannot be empty")
	}
	for _, color := range c.Palette {
		if color == c.DefaultColor {
			return nil
		}
	}
	return fmt.Errorf("default color %q is not part of the palette", c.DefaultColor)
}

// InPalette reports whether color is one of the configured palette tags.
func (c *DomainConfig) InPalette(color string) bool {
	for _, p := range c.Palette {
		if p == color {
			return true
		}
	}
	return false
}
