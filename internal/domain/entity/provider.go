package entity

import (
	"strings"
	"time"

	"github.com/garyjia/dorm-print/internal/domain/pricing"
)

// Capability is a printer-capability tag advertised by a provider
type Capability string

const (
	CapabilityLaserMono      Capability = "laser_bw"
	CapabilityLaserColor     Capability = "laser_color"
	CapabilityInkMono        Capability = "ink_bw"
	CapabilityInkColor       Capability = "ink_color"
	CapabilityLaserMonoScan  Capability = "laser_bw_scan"
	CapabilityLaserColorScan Capability = "laser_color_scan"
	CapabilityInkMonoScan    Capability = "ink_bw_scan"
	CapabilityInkColorScan   Capability = "ink_color_scan"
)

// Capabilities lists every tag in the order the discovery menu shows them
var Capabilities = []Capability{
	CapabilityLaserMono,
	CapabilityLaserColor,
	CapabilityInkMono,
	CapabilityInkColor,
	CapabilityLaserMonoScan,
	CapabilityLaserColorScan,
	CapabilityInkMonoScan,
	CapabilityInkColorScan,
}

var capabilityLabels = map[Capability]string{
	CapabilityLaserMono:      "Laser, black & white",
	CapabilityLaserColor:     "Laser, color",
	CapabilityInkMono:        "Inkjet, black & white",
	CapabilityInkColor:       "Inkjet, color",
	CapabilityLaserMonoScan:  "Laser, black & white + scanner",
	CapabilityLaserColorScan: "Laser, color + scanner",
	CapabilityInkMonoScan:    "Inkjet, black & white + scanner",
	CapabilityInkColorScan:   "Inkjet, color + scanner",
}

// IsValid returns true for a known capability tag
func (c Capability) IsValid() bool {
	_, ok := capabilityLabels[c]
	return ok
}

// Label returns a human-readable description of the tag
func (c Capability) Label() string {
	if label, ok := capabilityLabels[c]; ok {
		return label
	}
	return string(c)
}

// Provider is a registered print-service provider.
// ID is the provider's chat identity.
type Provider struct {
	ID           string           `json:"id"`
	DisplayName  string           `json:"display_name"`
	Room         string           `json:"room"`
	Rates        pricing.RateCard `json:"rates"`
	Active       bool             `json:"active"`
	CardRef      string           `json:"card_ref,omitempty"`
	Description  string           `json:"description,omitempty"`
	Capability   Capability       `json:"capability"`
	RegisteredAt time.Time        `json:"registered_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// HasCapability reports whether the provider's tag contains the requested tag.
// "laser_bw_scan" satisfies a request for "laser_bw".
func (p *Provider) HasCapability(c Capability) bool {
	if c == "" {
		return true
	}
	return strings.Contains(string(p.Capability), string(c))
}

// Summary returns the listing view of the provider
func (p *Provider) Summary() ProviderSummary {
	return ProviderSummary{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Room:        p.Room,
		Rates:       p.Rates,
		Capability:  p.Capability,
	}
}

// ProviderSummary is the listing view of an active provider
type ProviderSummary struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"display_name"`
	Room        string           `json:"room"`
	Rates       pricing.RateCard `json:"rates"`
	Capability  Capability       `json:"capability"`
}
