package tierstore

import (
	"fmt"
	"strconv"
	"strings"
)

// deletedSuffix marks a ready block as consumed and pending eviction.
// Carried over verbatim from the source implementation this design is
// grounded on.
const deletedSuffix = ".nibtodelete"

// inflightPrefix marks a hidden, partially-written block.
const inflightPrefix = "."

// inflightSuffix marks a hidden, partially-written block.
const inflightSuffix = ".tmp"

// Tier is one configured staging directory with an optional byte budget.
// A Budget of 0 means "use the directory's live free space."
type Tier struct {
	Dir    string
	Budget uint64
}

// FlattenKey makes key safe to embed as a single filename component by
// replacing every "/" with "_". Applied identically by the prefetcher,
// reader and evictor wherever a staged filename is built or parsed.
func FlattenKey(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}

func flattenKey(key string) string {
	return FlattenKey(key)
}

// canonicalName returns the ready filename for (key, offset).
func canonicalName(key string, offset uint64) string {
	return fmt.Sprintf("%s.%d", flattenKey(key), offset)
}

// inflightName returns the hidden in-progress filename backing canonical.
func inflightName(canonical string) string {
	return inflightPrefix + canonical + inflightSuffix
}

// consumedName returns the delete-pending filename backing canonical.
func consumedName(canonical string) string {
	return canonical + deletedSuffix
}

// parseConsumedName reports whether name is a consumed block file and, if
// so, its flattened key and block offset. The offset is the last
// "."-delimited numeric token before the delete suffix, so this keeps
// working regardless of how the key itself was flattened.
func parseConsumedName(name string) (flattenedKey string, offset uint64, ok bool) {
	withoutSuffix, found := strings.CutSuffix(name, deletedSuffix)
	if !found {
		return "", 0, false
	}

	idx := strings.LastIndex(withoutSuffix, ".")
	if idx < 0 {
		return "", 0, false
	}

	offset, err := strconv.ParseUint(withoutSuffix[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}

	return withoutSuffix[:idx], offset, true
}
