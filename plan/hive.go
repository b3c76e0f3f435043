package plan

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/lazyscan/resolve"
)

// hiveDefaultPartition is the Hive spelling of a null partition value.
const hiveDefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// Partition is one key=value directory segment of a file path.
type Partition struct {
	Key   string
	Value string
	// Null is set for the Hive default (null) partition.
	Null bool
}

// ParsePartitions extracts the key=value directory segments of path that
// sit at or below component index start. The file name is never a
// partition. Segments without '=' are skipped.
func ParsePartitions(path string, start int) ([]Partition, error) {
	comps := resolve.Components(path)
	if start < 0 || start > len(comps)-1 {
		return nil, planErrorf("partition start index %d outside %q", start, path)
	}

	var out []Partition
	seen := make(map[string]struct{})
	for _, seg := range comps[start : len(comps)-1] {
		key, raw, ok := strings.Cut(seg, "=")
		if !ok || key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			return nil, planErrorf("partition key %q repeated in %q", key, path)
		}
		seen[key] = struct{}{}

		value, err := url.PathUnescape(raw)
		if err != nil {
			value = raw
		}
		out = append(out, Partition{Key: key, Value: value, Null: value == hiveDefaultPartition})
	}
	return out, nil
}

// PartitionFields derives typed partition columns from every path.
// All paths must carry the same keys in the same order. Types come from
// opts.Schema when listed there, otherwise they are inferred from values:
// int64, float64, bool, date32 (with TryParseDates) or utf8.
func PartitionFields(paths []string, start int, opts PartitionOptions) ([]arrow.Field, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	var (
		keys  []string
		kinds []valueKind
	)
	for i, p := range paths {
		parts, err := ParsePartitions(p, start)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			keys = make([]string, len(parts))
			kinds = make([]valueKind, len(parts))
			for j, part := range parts {
				keys[j] = part.Key
			}
		}
		if len(parts) != len(keys) {
			return nil, planErrorf("hive partition keys of %q differ from %q", p, paths[0])
		}
		for j, part := range parts {
			if part.Key != keys[j] {
				return nil, planErrorf("hive partition keys of %q differ from %q", p, paths[0])
			}
			if !part.Null {
				kinds[j] = kinds[j].merge(classify(part.Value, opts.TryParseDates))
			}
		}
	}

	fields := make([]arrow.Field, len(keys))
	for j, key := range keys {
		fields[j] = arrow.Field{Name: key, Type: kinds[j].dataType(), Nullable: true}
		if opts.Schema != nil {
			if idx := opts.Schema.FieldIndices(key); len(idx) > 0 {
				fields[j].Type = opts.Schema.Field(idx[0]).Type
			}
		}
	}
	return fields, nil
}

// valueKind is the inferred type lattice of partition values.
type valueKind uint8

const (
	kindUnknown valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDate
	kindString
)

func classify(v string, tryDates bool) valueKind {
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return kindInt
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return kindFloat
	}
	if v == "true" || v == "false" {
		return kindBool
	}
	if tryDates {
		if _, err := time.Parse(time.DateOnly, v); err == nil {
			return kindDate
		}
	}
	return kindString
}

func (k valueKind) merge(o valueKind) valueKind {
	switch {
	case k == kindUnknown:
		return o
	case o == kindUnknown, k == o:
		return k
	case (k == kindInt && o == kindFloat) || (k == kindFloat && o == kindInt):
		return kindFloat
	default:
		return kindString
	}
}

func (k valueKind) dataType() arrow.DataType {
	switch k {
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindDate:
		return arrow.FixedWidthTypes.Date32
	case kindUnknown:
		return arrow.Null
	default:
		return arrow.BinaryTypes.String
	}
}
