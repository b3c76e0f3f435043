// Package plan builds deferred scan plan nodes and the lazy frame handle
// that carries optimizer state for them.
//
// The package is the scan-facing slice of a logical plan builder: it
// validates a fully resolved scan request, derives the output schema
// (file columns, hive partition columns, synthetic row index) and wraps the
// node into a LazyFrame. Nothing is read until the plan is executed
// elsewhere.
package plan

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/lazyscan/cloud"
)

// Toggle is a three-way switch: unset (infer), explicitly off, explicitly on.
type Toggle uint8

const (
	// ToggleUnset leaves the decision to inference.
	ToggleUnset Toggle = iota
	// ToggleDisabled is an explicit "off".
	ToggleDisabled
	// ToggleEnabled is an explicit "on".
	ToggleEnabled
)

// ToggleOf converts a decided boolean into a Toggle.
func ToggleOf(on bool) Toggle {
	if on {
		return ToggleEnabled
	}
	return ToggleDisabled
}

// IsSet reports whether the toggle carries an explicit decision.
func (t Toggle) IsSet() bool {
	return t == ToggleDisabled || t == ToggleEnabled
}

func (t Toggle) String() string {
	switch t {
	case ToggleUnset:
		return "unset"
	case ToggleDisabled:
		return "disabled"
	case ToggleEnabled:
		return "enabled"
	default:
		return "invalid"
	}
}

// PartitionOptions controls hive partition discovery.
type PartitionOptions struct {
	// Enabled is the user's decision; ToggleUnset means "infer".
	Enabled Toggle

	// StartIndex is the path component index where partition directories
	// begin. Filled in during scan construction, never user supplied.
	// Set if and only if Enabled resolves to ToggleEnabled.
	StartIndex *int

	// Schema optionally fixes partition column types by name.
	// Columns not listed are inferred from directory values.
	Schema *arrow.Schema

	// TryParseDates types YYYY-MM-DD partition values as date32.
	TryParseDates bool
}

// RowIndex requests a synthetic row-number column.
type RowIndex struct {
	// Name of the injected column. MUST be non-empty.
	Name string
	// Offset is the value of the first row.
	Offset uint32
}

// IPCOptions are the format specific options of an IPC scan.
type IPCOptions struct {
	// MemoryMap maps files into memory instead of copying them.
	MemoryMap bool
}

// ScanArgs is a fully resolved scan request handed to a Builder.
type ScanArgs struct {
	Paths        []string
	Format       IPCOptions
	RowLimit     *uint64
	Cache        bool
	RowIndex     *RowIndex
	Rechunk      bool
	Remote       *cloud.Options
	Partitioning PartitionOptions
}
