package plan

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/zeebo/xxh3"

	"github.com/hugr-lab/lazyscan/cloud"
)

// ScanNode is a deferred IPC scan over a resolved file list.
type ScanNode struct {
	Paths        []string
	Format       IPCOptions
	RowLimit     *uint64
	Cache        bool
	RowIndex     *RowIndex
	Rechunk      bool
	Remote       *cloud.Options
	Partitioning PartitionOptions

	// FileSchema is the schema stored in the first file, nil when not probed.
	FileSchema *arrow.Schema
	// PartitionFields are the hive columns appended to every row.
	PartitionFields []arrow.Field
	// Schema is the output schema of the scan.
	Schema *arrow.Schema
}

// Fingerprint identifies the scan structurally: two nodes with the same
// resolved paths and read options produce the same fingerprint.
// The remote endpoint and region are part of the identity, credentials are not.
func (n *ScanNode) Fingerprint() uint64 {
	h := xxh3.New()
	var buf []byte

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(n.Paths)))
	for _, p := range n.Paths {
		buf = appendString(buf, p)
	}
	buf = appendBool(buf, n.Format.MemoryMap)
	buf = appendBool(buf, n.RowLimit != nil)
	if n.RowLimit != nil {
		buf = binary.LittleEndian.AppendUint64(buf, *n.RowLimit)
	}
	buf = appendBool(buf, n.RowIndex != nil)
	if n.RowIndex != nil {
		buf = appendString(buf, n.RowIndex.Name)
		buf = binary.LittleEndian.AppendUint32(buf, n.RowIndex.Offset)
	}
	buf = appendBool(buf, n.Rechunk)
	buf = append(buf, byte(n.Partitioning.Enabled))
	if n.Partitioning.StartIndex != nil {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(*n.Partitioning.StartIndex))
	}
	buf = appendBool(buf, n.Partitioning.TryParseDates)
	buf = appendBool(buf, n.Remote != nil)
	if n.Remote != nil {
		buf = appendString(buf, n.Remote.Endpoint)
		buf = appendString(buf, n.Remote.Region)
		buf = appendBool(buf, n.Remote.ForcePathStyle)
	}
	for _, f := range n.PartitionFields {
		buf = append(buf, f.Name...)
		buf = append(buf, 0)
		buf = append(buf, f.Type.Fingerprint()...)
	}

	_, _ = h.Write(buf)
	return h.Sum64()
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

// Explain renders the node the way a plan printer would.
func (n *ScanNode) Explain() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "IPC SCAN [%d file(s)]\n", len(n.Paths))
	const shown = 3
	for i, p := range n.Paths {
		if i == shown {
			fmt.Fprintf(&sb, "  ... %d more\n", len(n.Paths)-shown)
			break
		}
		fmt.Fprintf(&sb, "  %s\n", p)
	}

	limit := "none"
	if n.RowLimit != nil {
		limit = fmt.Sprintf("%d", *n.RowLimit)
	}
	fmt.Fprintf(&sb, "  row_limit: %s\n", limit)
	if n.RowIndex != nil {
		fmt.Fprintf(&sb, "  row_index: %s (offset %d)\n", n.RowIndex.Name, n.RowIndex.Offset)
	}
	fmt.Fprintf(&sb, "  memory_map: %t, cache: %t, rechunk: %t\n", n.Format.MemoryMap, n.Cache, n.Rechunk)

	if n.Partitioning.Enabled == ToggleEnabled && n.Partitioning.StartIndex != nil {
		names := make([]string, len(n.PartitionFields))
		for i, f := range n.PartitionFields {
			names[i] = f.Name
		}
		fmt.Fprintf(&sb, "  hive: enabled from component %d [%s]\n", *n.Partitioning.StartIndex, strings.Join(names, ", "))
	} else {
		sb.WriteString("  hive: disabled\n")
	}

	if n.Schema != nil {
		fmt.Fprintf(&sb, "  schema: %d field(s)\n", n.Schema.NumFields())
	}
	return sb.String()
}
