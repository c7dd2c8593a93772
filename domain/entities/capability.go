package entities

import "strings"

// Capability is the set of call surfaces a plugin advertises through its
// plugin_type export. Flags are independent; a plugin may hold any subset.
type Capability uint32

const (
	// CapabilityScript plugins expose methods callable from scripts.
	CapabilityScript Capability = 1 << iota
	// CapabilityAction plugins post-process every Action.
	CapabilityAction
	// CapabilityText plugins own text commands.
	CapabilityText
	// CapabilityGame plugins process the game configuration on open.
	CapabilityGame
)

var capabilityNames = []struct {
	flag Capability
	name string
}{
	{CapabilityScript, "script"},
	{CapabilityAction, "action"},
	{CapabilityText, "text"},
	{CapabilityGame, "game"},
}

// Has reports whether every flag in f is set in c.
func (c Capability) Has(f Capability) bool {
	return f != 0 && c&f == f
}

// String returns the set flags joined by "|", or "none".
func (c Capability) String() string {
	var parts []string
	for _, n := range capabilityNames {
		if c.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
