package runhistory

import "net/url"

// Query parameter names for serialized view state.
const (
	ParamGroupBy    = "groupBy"
	ParamScenarioID = "scenarioId"
	ParamPassFail   = "passFailStatus"
)

// Filter keys accepted by SetFilter.
const (
	FilterScenarioID = "scenarioId"
	FilterPassFail   = "passFailStatus"
)

// ViewState holds the active grouping mode and filter values and
// serializes them to and from a URL query so views are shareable. The
// URL is a one-way projection of the state: it is read exactly once at
// hydration and written on every change afterwards.
//
// ViewState is not safe for concurrent use; the owning controller
// serializes access.
type ViewState struct {
	groupBy  GroupType
	filters  Filters
	hydrated bool
}

// NewViewState returns a view state with defaults: no grouping, empty
// filters. State instances are constructed explicitly and injected so
// tests get isolated instances.
func NewViewState() *ViewState {
	return &ViewState{groupBy: GroupNone}
}

// GroupBy returns the active grouping mode.
func (v *ViewState) GroupBy() GroupType {
	return v.groupBy
}

// Filters returns the active filter values.
func (v *ViewState) Filters() Filters {
	return v.filters
}

// Hydrated reports whether the state has been hydrated from a URL.
func (v *ViewState) Hydrated() bool {
	return v.hydrated
}

// SetGroupBy sets the grouping mode. Invalid values normalize to
// GroupNone rather than erroring. It reports whether the mode changed;
// consumers must reset any group-expansion state on a change, since
// group keys are meaningless across modes.
func (v *ViewState) SetGroupBy(mode GroupType) bool {
	if !mode.Valid() {
		mode = GroupNone
	}

	if v.groupBy == mode {
		return false
	}

	v.groupBy = mode

	return true
}

// SetFilter sets a filter by its query parameter key. Unknown keys and
// invalid pass/fail values are ignored silently. It reports whether a
// filter value changed.
func (v *ViewState) SetFilter(key, value string) bool {
	switch key {
	case FilterScenarioID:
		if v.filters.ScenarioID == value {
			return false
		}

		v.filters.ScenarioID = value

		return true
	case FilterPassFail:
		pf := PassFail(value)
		if !pf.Valid() {
			pf = PassFailAny
		}

		if v.filters.PassFail == pf {
			return false
		}

		v.filters.PassFail = pf

		return true
	default:
		return false
	}
}

// HydrateFromQuery populates the state from URL query values. Untrusted
// input never errors: values outside the closed enums normalize to
// defaults, and multi-value parameters collapse to their first element.
// Hydration happens at most once; later calls are no-ops so a
// hydrate-sync-hydrate feedback loop cannot form.
func (v *ViewState) HydrateFromQuery(q url.Values) {
	if v.hydrated {
		return
	}

	v.hydrated = true

	if mode := GroupType(q.Get(ParamGroupBy)); mode.Valid() {
		v.groupBy = mode
	} else {
		v.groupBy = GroupNone
	}

	v.filters.ScenarioID = q.Get(ParamScenarioID)

	if pf := PassFail(q.Get(ParamPassFail)); pf.Valid() {
		v.filters.PassFail = pf
	} else {
		v.filters.PassFail = PassFailAny
	}
}

// ApplyToQuery merges the serialized state into q, preserving unrelated
// parameters. Default values are omitted entirely rather than written as
// empty tokens, keeping URLs minimal. The input is not mutated.
func (v *ViewState) ApplyToQuery(q url.Values) url.Values {
	out := make(url.Values, len(q)+3)

	for k, vals := range q {
		switch k {
		case ParamGroupBy, ParamScenarioID, ParamPassFail:
			// Owned keys are rewritten below.
		default:
			out[k] = append([]string(nil), vals...)
		}
	}

	if v.groupBy != GroupNone {
		out.Set(ParamGroupBy, string(v.groupBy))
	}

	if v.filters.ScenarioID != "" {
		out.Set(ParamScenarioID, v.filters.ScenarioID)
	}

	if v.filters.PassFail != PassFailAny {
		out.Set(ParamPassFail, string(v.filters.PassFail))
	}

	return out
}

// Query returns the canonical serialized form of the state alone.
func (v *ViewState) Query() url.Values {
	return v.ApplyToQuery(nil)
}
