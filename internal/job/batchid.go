package job

import (
	"fmt"
	"strconv"
	"strings"
)

// Batch identifiers follow the pattern B<n>, with a -R suffix for batches
// born from a customer return (e.g. B3-R). The numeric counter is shared
// between the two forms so identifiers stay unique across splits and returns.

const returnSuffix = "-R"

// NextBatchID returns the next free batch identifier for the job, one past
// the highest numeric suffix currently in use.
func (j Job) NextBatchID() string {
	return fmt.Sprintf("B%d", j.maxBatchNumber()+1)
}

// NextReturnBatchID returns the next free return-batch identifier.
func (j Job) NextReturnBatchID() string {
	return fmt.Sprintf("B%d%s", j.maxBatchNumber()+1, returnSuffix)
}

func (j Job) maxBatchNumber() int {
	max := 0
	for i := range j.Batches {
		if n, ok := BatchNumber(j.Batches[i].ID); ok && n > max {
			max = n
		}
	}
	return max
}

// BatchNumber extracts the numeric suffix from a batch identifier.
func BatchNumber(id string) (int, bool) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(id), returnSuffix)
	if !strings.HasPrefix(trimmed, "B") {
		return 0, false
	}
	n, err := strconv.Atoi(trimmed[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// IsReturnBatchID reports whether an identifier names a return batch.
func IsReturnBatchID(id string) bool {
	return strings.HasSuffix(strings.TrimSpace(id), returnSuffix)
}
