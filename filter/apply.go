package filter

import (
	"runtime"
	"sync"

	"github.com/southsales/tolmap/dataset"
)

// Apply returns the records satisfying every active predicate, in dataset order.
func Apply(ds *dataset.Dataset, sel Selection) []dataset.Record {
	out := []dataset.Record{}
	if ds == nil {
		return out
	}
	candidates, all := candidateRows(ds, sel)
	if all {
		for i := range ds.Records {
			if sel.Match(&ds.Records[i]) {
				out = append(out, ds.Records[i])
			}
		}
		return out
	}
	for _, i := range candidates {
		if sel.Match(&ds.Records[i]) {
			out = append(out, ds.Records[i])
		}
	}
	return out
}

// rowChunk is a contiguous slice of candidate positions.
type rowChunk struct {
	seq  int
	rows []int
}

// ApplyParallel computes the same result as Apply with a fixed pool of workers.
// Candidates are split into contiguous chunks and the per-chunk results are
// concatenated in chunk order. workers <= 0 uses runtime.NumCPU().
func ApplyParallel(ds *dataset.Dataset, sel Selection, workers int) []dataset.Record {
	if ds == nil {
		return []dataset.Record{}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	candidates, all := candidateRows(ds, sel)
	if all {
		candidates = make([]int, len(ds.Records))
		for i := range candidates {
			candidates[i] = i
		}
	}
	if workers == 1 || len(candidates) < workers*2 {
		return Apply(ds, sel)
	}

	chunkSize := (len(candidates) + workers - 1) / workers
	numChunks := (len(candidates) + chunkSize - 1) / chunkSize
	results := make([][]dataset.Record, numChunks)

	chunkChan := make(chan rowChunk, numChunks)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range chunkChan {
				var part []dataset.Record
				for _, i := range chunk.rows {
					if sel.Match(&ds.Records[i]) {
						part = append(part, ds.Records[i])
					}
				}
				// each chunk owns its slot
				results[chunk.seq] = part
			}
		}()
	}

	for seq := 0; seq < numChunks; seq++ {
		start := seq * chunkSize
		end := min(start+chunkSize, len(candidates))
		chunkChan <- rowChunk{seq: seq, rows: candidates[start:end]}
	}
	close(chunkChan)
	wg.Wait()

	total := 0
	for _, part := range results {
		total += len(part)
	}
	out := make([]dataset.Record, 0, total)
	for _, part := range results {
		out = append(out, part...)
	}
	return out
}

// Run picks Apply or ApplyParallel depending on the dataset size. A threshold
// of zero or less always runs sequentially.
func Run(ds *dataset.Dataset, sel Selection, threshold, workers int) []dataset.Record {
	if ds != nil && threshold > 0 && ds.Len() >= threshold {
		return ApplyParallel(ds, sel, workers)
	}
	return Apply(ds, sel)
}
