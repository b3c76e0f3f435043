package flight

import (
	"errors"
	"fmt"

	"github.com/hugr-lab/lazyscan/internal/msgpack"
	"github.com/hugr-lab/lazyscan/internal/serialize"
	"github.com/hugr-lab/lazyscan/plan"
)

// FileTicket is the decoded content of an endpoint ticket: one file read
// of a planned scan.
type FileTicket struct {
	// Dataset is the registered dataset name, empty for ad-hoc scans.
	Dataset string `msgpack:"dataset,omitempty"`

	// Path is the resolved file.
	Path string `msgpack:"path"`

	// PartitionStart is the path component index where hive partition
	// directories begin. nil when partitioning is disabled.
	PartitionStart *int `msgpack:"partition_start,omitempty"`

	RowLimit       *uint64 `msgpack:"row_limit,omitempty"`
	RowIndexName   string  `msgpack:"row_index_name,omitempty"`
	RowIndexOffset uint32  `msgpack:"row_index_offset,omitempty"`
	MemoryMap      bool    `msgpack:"memory_map"`

	// Fingerprint identifies the scan the file belongs to. Tickets with
	// equal fingerprints and paths may share one read.
	Fingerprint uint64 `msgpack:"fingerprint"`
}

// fileTickets builds one ticket per resolved file of node.
// Row limits and row index offsets apply to the scan as a whole; they are
// carried as is and the reader side splits them.
func fileTickets(dataset string, node *plan.ScanNode) []FileTicket {
	fp := node.Fingerprint()
	out := make([]FileTicket, len(node.Paths))
	for i, p := range node.Paths {
		t := FileTicket{
			Dataset:        dataset,
			Path:           p,
			PartitionStart: node.Partitioning.StartIndex,
			RowLimit:       node.RowLimit,
			MemoryMap:      node.Format.MemoryMap,
			Fingerprint:    fp,
		}
		if node.RowIndex != nil {
			t.RowIndexName = node.RowIndex.Name
			t.RowIndexOffset = node.RowIndex.Offset
		}
		out[i] = t
	}
	return out
}

// TicketCodec encodes tickets as ZStandard-compressed MessagePack.
// Safe for concurrent use.
type TicketCodec struct {
	compressor   *serialize.Compressor
	decompressor *serialize.Decompressor
}

// NewTicketCodec creates a codec. Call Close when done.
func NewTicketCodec() (*TicketCodec, error) {
	c, err := serialize.NewCompressor()
	if err != nil {
		return nil, err
	}
	d, err := serialize.NewDecompressor()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return &TicketCodec{compressor: c, decompressor: d}, nil
}

// Encode serializes a ticket.
func (tc *TicketCodec) Encode(t FileTicket) ([]byte, error) {
	if t.Path == "" {
		return nil, errors.New("ticket path cannot be empty")
	}
	data, err := msgpack.Encode(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return tc.compressor.Compress(data), nil
}

// Decode parses a ticket produced by Encode.
func (tc *TicketCodec) Decode(data []byte) (*FileTicket, error) {
	if len(data) == 0 {
		return nil, errors.New("ticket cannot be empty")
	}
	raw, err := tc.decompressor.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}

	var t FileTicket
	if err := msgpack.Decode(raw, &t); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}
	if t.Path == "" {
		return nil, errors.New("decoded ticket has empty path")
	}
	if t.PartitionStart != nil && *t.PartitionStart < 0 {
		return nil, fmt.Errorf("partition start must be non-negative, got %d", *t.PartitionStart)
	}
	return &t, nil
}

// Close releases codec resources.
func (tc *TicketCodec) Close() error {
	tc.decompressor.Close()
	return tc.compressor.Close()
}
