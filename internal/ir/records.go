package ir

// SiteSpec is a compiled template call site: the literal fragments and the
// declared slot types of one template occurrence.
type SiteSpec struct {
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	Fragments   []string  `json:"fragments"`
	Expressions []string  `json:"expressions"`
	Types       Signature `json:"types"`
}

// Arity returns the number of embedded values.
func (s SiteSpec) Arity() int {
	return len(s.Fragments) - 1
}

// Path identifies which processing path served a render.
type Path string

const (
	// PathFast marks a render served by cached specialized metadata.
	PathFast Path = "fast"
	// PathSlow marks a render served by the generic mapping hooks.
	PathSlow Path = "slow"
)

// SiteRecord is the persisted form of a specialized linkage.
type SiteRecord struct {
	ID        string    `json:"id"`
	SiteKey   string    `json:"site_key"`
	Fragments []string  `json:"fragments"`
	Types     Signature `json:"types"`
	Seq       int64     `json:"seq"`
}

// RenderRecord is one processed template in the render log.
// Values holds the canonical string form of each embedded value.
type RenderRecord struct {
	Seq       int64    `json:"seq"`
	SiteID    string   `json:"site_id,omitempty"`
	Processor string   `json:"processor"`
	Path      Path     `json:"path"`
	Result    string   `json:"result"`
	Values    []string `json:"values"`
}
