package harness

import "github.com/roach88/strtpl/internal/ir"

// Trace event types.
const (
	EventSite   = "site"
	EventRender = "render"
	EventError  = "error"
)

// TraceEvent records one observable step of a scenario run.
type TraceEvent struct {
	Type      string   `json:"type"` // "site", "render" or "error"
	Step      int      `json:"step"` // flow step index, -1 for site registration
	Site      string   `json:"site,omitempty"`
	LinkageID string   `json:"linkage_id,omitempty"`
	Processor string   `json:"processor,omitempty"`
	Path      ir.Path  `json:"path,omitempty"`
	Result    string   `json:"result,omitempty"`
	Values    []string `json:"values,omitempty"`
	Args      []string `json:"args,omitempty"`
	Code      string   `json:"code,omitempty"`
	Seq       int64    `json:"seq,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists site registrations, renders and render errors in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddSiteTrace records a registered site.
func (r *Result) AddSiteTrace(name, linkageID string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventSite,
		Step:      -1,
		Site:      name,
		LinkageID: linkageID,
		Seq:       seq,
	})
}

// AddRenderTrace records a successful render.
func (r *Result) AddRenderTrace(ev TraceEvent) {
	ev.Type = EventRender
	r.Trace = append(r.Trace, ev)
}

// AddErrorTrace records a failed step.
func (r *Result) AddErrorTrace(step int, site, code string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: EventError,
		Step: step,
		Site: site,
		Code: code,
	})
}
