package plugin

import (
	"context"
	"runtime"
	"sort"
	"sync"
)

// FileSource is a single plugin file to parse: a name plus a way to open
// its contents. Opener is called at most once per ParseAll call.
type FileSource struct {
	Filename string
	Size     int64
	Opener   func() (ReadCloser, error)
}

// ReadCloser is the minimal interface ParseAll needs to read a plugin's
// bytes. io.ReadCloser satisfies it.
type ReadCloser interface {
	Read(p []byte) (int, error)
	Close() error
}

// ParseResult pairs a parsed header with the error encountered for one
// source, if any. A failed parse still carries Filename so the caller can
// decide whether to include the plugin header-less (by name only).
type ParseResult struct {
	Filename string
	Header   *PluginHeader
	Err      error
}

// ParseAll parses a batch of plugin files in parallel. Work is distributed
// across min(runtime.GOMAXPROCS(0), len(sources)) workers (at least one),
// round-robin over a file-size-descending order so large files don't all
// land on the tail of one worker's queue. Results are collected into a map
// keyed by filename under a single mutex; the map's capacity is reserved
// up front so insertion never triggers a resize mid-flight.
//
// There is no ordering guarantee between workers: any interleaving of
// completions is correct because each parse is independent. Callers that
// need determinism (the sorter does) must derive it at their own boundary,
// e.g. by iterating the returned map in canonical name order.
func ParseAll(ctx context.Context, sources []FileSource) map[string]ParseResult {
	results := make(map[string]ParseResult, len(sources))
	if len(sources) == 0 {
		return results
	}

	ordered := make([]FileSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Size > ordered[j].Size
	})

	workers := runtime.GOMAXPROCS(0)
	if workers > len(ordered) {
		workers = len(ordered)
	}
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	parser := NewParser()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < len(ordered); i += workers {
				src := ordered[i]
				res := ParseResult{Filename: src.Filename}

				if ctx.Err() != nil {
					res.Err = ctx.Err()
				} else {
					rc, err := src.Opener()
					if err != nil {
						res.Err = err
					} else {
						res.Header, res.Err = parser.Parse(ctx, rc, src.Filename)
						rc.Close()
					}
				}

				mu.Lock()
				results[src.Filename] = res
				mu.Unlock()
			}
		}(w)
	}

	wg.Wait()
	return results
}
