package cache

// RenderKeyOpts are the run and output options that change a rendered
// artifact.
type RenderKeyOpts struct {
	Format       string  `json:"format"`
	Seed         uint64  `json:"seed"`
	BulkDerived  bool    `json:"bulk_derived,omitempty"`
	MaxDeferrals int     `json:"max_deferrals,omitempty"`
	Labels       bool    `json:"labels"`
	Title        string  `json:"title,omitempty"`
	Pinned       bool    `json:"pinned,omitempty"`
	Scale        float64 `json:"scale,omitempty"`
	Config       string  `json:"config,omitempty"` // hash of the placement config
	Layout       string  `json:"layout,omitempty"` // hash of the tree layout options
}

// Keyer derives cache keys.
type Keyer interface {
	// DocumentKey names a graph document fetched from a database.
	DocumentKey(uri, database string) string
	// RenderKey names one rendered output of a document.
	RenderKey(docHash string, opts RenderKeyOpts) string
}

// DefaultKeyer produces "doc:<hash>" and "render:<format>:<hash>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the stock keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) DocumentKey(uri, database string) string {
	return hashKey("doc", uri, database)
}

func (DefaultKeyer) RenderKey(docHash string, opts RenderKeyOpts) string {
	return hashKey("render:"+opts.Format, docHash, opts)
}
