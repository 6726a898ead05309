package runhistory

// Page is one cursor-delimited slice of run history as returned by the
// event source. NextCursor is opaque; an empty value means no further
// pages exist.
type Page struct {
	Runs        []ScenarioRunEvent `json:"runs"`
	ScopeLabels map[string]string  `json:"scopeLabels,omitempty"`
	HasMore     bool               `json:"hasMore"`
	NextCursor  string             `json:"nextCursor,omitempty"`
}

// Accumulator merges successive cursor-based pages into a monotonically
// growing run set. Pages are never reordered; the set is replaced when a
// first page (empty originating cursor) arrives, which makes live
// refetches of page one idempotent, and it is reset wholesale when the
// query scope changes.
//
// Staleness is detected structurally rather than by cancelling in-flight
// fetches: a result is applied only if the cursor that produced it still
// matches the accumulator's expectation and the generation it was issued
// against is still current.
type Accumulator struct {
	pages      []Page
	generation uint64
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Reset drops all accumulated pages and bumps the generation so that
// results fetched before the reset are discarded on arrival. Callers
// must reset synchronously with the scope change that invalidated the
// data.
func (a *Accumulator) Reset() {
	a.pages = nil
	a.generation++
}

// Generation identifies the current accumulation epoch. Capture it
// before issuing a fetch and pass it back to Apply.
func (a *Accumulator) Generation() uint64 {
	return a.generation
}

// Apply merges a fetched page. fromCursor is the cursor the fetch was
// issued with: empty for a first page (replace), otherwise it must equal
// the accumulator's current next cursor (append). It reports whether the
// page was applied; stale results are dropped without side effects.
//
// An accepted append bumps the generation, so a first-page replace
// issued before the append lands is discarded instead of wiping the
// pages that accumulated underneath it.
func (a *Accumulator) Apply(p Page, fromCursor string, generation uint64) bool {
	if generation != a.generation {
		return false
	}

	if fromCursor == "" {
		a.pages = []Page{p}

		return true
	}

	if fromCursor != a.NextCursor() {
		return false
	}

	a.pages = append(a.pages, p)
	a.generation++

	return true
}

// PageCount returns the number of accumulated pages.
func (a *Accumulator) PageCount() int {
	return len(a.pages)
}

// HasMore reports whether the event source has further pages, read from
// the most recent page only.
func (a *Accumulator) HasMore() bool {
	if len(a.pages) == 0 {
		return false
	}

	return a.pages[len(a.pages)-1].HasMore
}

// NextCursor returns the cursor to request the next page with, empty
// when nothing has been fetched or the source is exhausted.
func (a *Accumulator) NextCursor() string {
	if len(a.pages) == 0 {
		return ""
	}

	return a.pages[len(a.pages)-1].NextCursor
}

// Runs flattens all accumulated pages in fetch order. The event source's
// cursor contract guarantees pages never overlap in membership.
func (a *Accumulator) Runs() []ScenarioRunEvent {
	total := 0
	for i := range a.pages {
		total += len(a.pages[i].Runs)
	}

	out := make([]ScenarioRunEvent, 0, total)
	for i := range a.pages {
		out = append(out, a.pages[i].Runs...)
	}

	return out
}

// ScopeLabels merges the batch-to-suite label maps from all pages.
// Later pages win on key collisions, though the source never produces
// conflicting labels for the same batch.
func (a *Accumulator) ScopeLabels() map[string]string {
	out := make(map[string]string, 8)

	for i := range a.pages {
		for k, v := range a.pages[i].ScopeLabels {
			out[k] = v
		}
	}

	return out
}
