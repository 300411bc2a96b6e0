package types

// StyleSet carries the three visual knobs for one classification. The
// values are opaque to the core: glyphs and highlight group names defined
// on the Lua side are passed through to extmark options untouched.
type StyleSet struct {
	Sign      string `json:"sign"`      // gutter glyph
	Highlight string `json:"highlight"` // highlight group name
	Symbol    string `json:"symbol"`    // inline eol glyph
}

// Styles maps the add/delete/change classifications to their visuals.
type Styles struct {
	Add    StyleSet `json:"add"`
	Delete StyleSet `json:"delete"`
	Change StyleSet `json:"change"`
}

// DefaultStyles mirrors the plugin's built-in configuration, used when the
// host sends no style tables.
func DefaultStyles() Styles {
	return Styles{
		Add:    StyleSet{Sign: "+", Highlight: "DiffAdd", Symbol: "│"},
		Delete: StyleSet{Sign: "-", Highlight: "DiffDelete", Symbol: "▁"},
		Change: StyleSet{Sign: "~", Highlight: "DiffChange", Symbol: "│"},
	}
}

// RefreshReason says why the engine recomputed annotations, for logging.
type RefreshReason string

const (
	RefreshManual      RefreshReason = "manual"
	RefreshTextChanged RefreshReason = "text_changed"
	RefreshRefMoved    RefreshReason = "ref_moved"
	RefreshBufEnter    RefreshReason = "buf_enter"
)
