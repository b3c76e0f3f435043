package plan

// OptState holds optimizer switches of a lazy frame.
type OptState struct {
	// FileCaching lets structurally identical scans within one query share
	// a single physical read.
	FileCaching bool
}

// LazyFrame is a deferred query over a plan node.
type LazyFrame struct {
	Plan     *ScanNode
	OptState OptState
}

// NewLazyFrame wraps node with default optimizer state.
func NewLazyFrame(node *ScanNode) *LazyFrame {
	return &LazyFrame{Plan: node}
}

// Explain renders the frame's plan.
func (lf *LazyFrame) Explain() string {
	return lf.Plan.Explain()
}

// FileFingerprints counts scans that may share file reads across frames.
// Only frames with FileCaching set and scans with Cache enabled take part;
// a count above one marks a read that can be performed once.
func FileFingerprints(frames ...*LazyFrame) map[uint64]int {
	counts := make(map[uint64]int)
	for _, lf := range frames {
		if lf == nil || lf.Plan == nil || !lf.OptState.FileCaching || !lf.Plan.Cache {
			continue
		}
		counts[lf.Plan.Fingerprint()]++
	}
	return counts
}
