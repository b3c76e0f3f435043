package flight

import (
	"fmt"

	"github.com/hugr-lab/lazyscan/internal/msgpack"
	"github.com/hugr-lab/lazyscan/plan"
)

// Partitioning modes of a ScanCommand.
const (
	PartitioningAuto = "auto"
	PartitioningOn   = "on"
	PartitioningOff  = "off"
)

// ScanCommand is the MessagePack payload of a CMD descriptor.
type ScanCommand struct {
	// Paths to scan: files, directories, glob patterns or URLs.
	Paths []string `msgpack:"paths"`

	RowLimit       *uint64 `msgpack:"row_limit,omitempty"`
	RowIndexName   string  `msgpack:"row_index_name,omitempty"`
	RowIndexOffset uint32  `msgpack:"row_index_offset,omitempty"`

	// Partitioning is "auto" (or empty), "on" or "off".
	Partitioning string `msgpack:"partitioning,omitempty"`

	// MemoryMap overrides the default of mapping files.
	MemoryMap *bool `msgpack:"memory_map,omitempty"`
}

// DecodeCommand parses and validates a CMD descriptor payload.
func DecodeCommand(data []byte) (*ScanCommand, error) {
	var cmd ScanCommand
	if err := msgpack.Decode(data, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if _, err := cmd.PartitionToggle(); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// EncodeCommand serializes cmd for a CMD descriptor.
func EncodeCommand(cmd *ScanCommand) ([]byte, error) {
	return msgpack.Encode(cmd)
}

// PartitionToggle converts the partitioning mode into a plan toggle.
func (c *ScanCommand) PartitionToggle() (plan.Toggle, error) {
	switch c.Partitioning {
	case "", PartitioningAuto:
		return plan.ToggleUnset, nil
	case PartitioningOn:
		return plan.ToggleEnabled, nil
	case PartitioningOff:
		return plan.ToggleDisabled, nil
	}
	return plan.ToggleUnset, fmt.Errorf("%w: partitioning must be auto, on or off, got %q", ErrInvalidCommand, c.Partitioning)
}
