package plan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/lazyscan/cloud"
	"github.com/hugr-lab/lazyscan/resolve"
)

// Builder turns a resolved scan request into a plan node.
type Builder interface {
	// BuildScan validates args and returns a scan node.
	// Rejected option combinations are *Error values matching ErrPlan.
	BuildScan(ctx context.Context, args ScanArgs) (*ScanNode, error)
}

// SchemaProbe reads the Arrow schema stored in a file footer.
type SchemaProbe interface {
	FileSchema(ctx context.Context, path string, format IPCOptions, remote *cloud.Options) (*arrow.Schema, error)
}

// DSLBuilder is the default Builder.
// Without a SchemaProbe the node schema only holds partition and row index columns.
type DSLBuilder struct {
	probe  SchemaProbe
	logger *slog.Logger
}

// NewBuilder creates a DSLBuilder. probe may be nil.
func NewBuilder(probe SchemaProbe, logger *slog.Logger) *DSLBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &DSLBuilder{probe: probe, logger: logger}
}

// BuildScan implements Builder.
func (b *DSLBuilder) BuildScan(ctx context.Context, args ScanArgs) (*ScanNode, error) {
	if err := validate(args); err != nil {
		return nil, err
	}

	var fileSchema *arrow.Schema
	if b.probe != nil {
		s, err := b.probe.FileSchema(ctx, args.Paths[0], args.Format, args.Remote)
		if err != nil {
			return nil, fmt.Errorf("plan: read schema of %q: %w", args.Paths[0], err)
		}
		fileSchema = s
	}

	var partFields []arrow.Field
	if args.Partitioning.Enabled == ToggleEnabled {
		f, err := PartitionFields(args.Paths, *args.Partitioning.StartIndex, args.Partitioning)
		if err != nil {
			return nil, err
		}
		partFields = f
	}

	schema, err := outputSchema(fileSchema, partFields, args.RowIndex)
	if err != nil {
		return nil, err
	}

	node := &ScanNode{
		Paths:           append([]string(nil), args.Paths...),
		Format:          args.Format,
		RowLimit:        args.RowLimit,
		Cache:           args.Cache,
		RowIndex:        args.RowIndex,
		Rechunk:         args.Rechunk,
		Remote:          args.Remote,
		Partitioning:    args.Partitioning,
		FileSchema:      fileSchema,
		PartitionFields: partFields,
		Schema:          schema,
	}

	b.logger.Debug("Scan planned",
		"files", len(node.Paths),
		"partitioning", node.Partitioning.Enabled,
		"partition_columns", len(partFields),
		"fields", schema.NumFields(),
	)

	return node, nil
}

func validate(args ScanArgs) error {
	if len(args.Paths) == 0 {
		return planErrorf("no files to scan")
	}
	if args.RowIndex != nil && args.RowIndex.Name == "" {
		return planErrorf("row index name must not be empty")
	}

	part := args.Partitioning
	switch part.Enabled {
	case ToggleUnset:
		return planErrorf("partitioning must be resolved before planning")
	case ToggleDisabled:
		if part.StartIndex != nil {
			return planErrorf("partition start index set while partitioning is disabled")
		}
	case ToggleEnabled:
		if part.StartIndex == nil {
			return planErrorf("partition start index missing while partitioning is enabled")
		}
		for _, p := range args.Paths {
			if depth := len(resolve.Components(p)) - 1; *part.StartIndex < 0 || *part.StartIndex > depth {
				return planErrorf("partition start index %d beyond directory depth %d of %q", *part.StartIndex, depth, p)
			}
		}
	default:
		return planErrorf("invalid partitioning toggle %d", part.Enabled)
	}
	return nil
}

// outputSchema orders columns as: row index, file columns, partition columns.
func outputSchema(file *arrow.Schema, partitions []arrow.Field, rowIndex *RowIndex) (*arrow.Schema, error) {
	var (
		fields []arrow.Field
		meta   *arrow.Metadata
	)
	seen := make(map[string]string)
	add := func(f arrow.Field, origin string) error {
		if prev, ok := seen[f.Name]; ok {
			return planErrorf("%s column %q collides with %s column", origin, f.Name, prev)
		}
		seen[f.Name] = origin
		fields = append(fields, f)
		return nil
	}

	if rowIndex != nil {
		if err := add(arrow.Field{Name: rowIndex.Name, Type: arrow.PrimitiveTypes.Uint32}, "row index"); err != nil {
			return nil, err
		}
	}
	if file != nil {
		for _, f := range file.Fields() {
			if err := add(f, "file"); err != nil {
				return nil, err
			}
		}
		if md := file.Metadata(); md.Len() > 0 {
			meta = &md
		}
	}
	for _, f := range partitions {
		if err := add(f, "partition"); err != nil {
			return nil, err
		}
	}
	return arrow.NewSchema(fields, meta), nil
}
