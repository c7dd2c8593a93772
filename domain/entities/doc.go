// Package entities defines the core domain types shared by the host, the
// plugin registry and the script evaluator: the dynamic Value, plugin
// capabilities, variable maps and resource chains, the Action types passed
// to plugins, and persisted session records.
//
// The types double as wire format DTOs: their cbor tags define the encoding
// exchanged with guests.
package entities
