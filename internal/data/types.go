package data

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TokenCategory is the closed set of design token categories.
type TokenCategory string

const (
	CategoryColor      TokenCategory = "color"
	CategoryTypography TokenCategory = "typography"
	CategorySpacing    TokenCategory = "spacing"
	CategoryElevation  TokenCategory = "elevation"
	CategoryMotion     TokenCategory = "motion"
)

// Categories lists all valid token categories.
func Categories() []TokenCategory {
	return []TokenCategory{CategoryColor, CategoryTypography, CategorySpacing, CategoryElevation, CategoryMotion}
}

// TokenValue holds a design token value, which the source files may express
// as either a JSON string or a JSON number. Numbers keep their numeric shape
// on re-marshal.
type TokenValue struct {
	str   string
	num   float64
	isNum bool
}

// StringValue creates a string-typed token value.
func StringValue(s string) TokenValue {
	return TokenValue{str: s}
}

// NumberValue creates a number-typed token value.
func NumberValue(n float64) TokenValue {
	return TokenValue{num: n, isNum: true}
}

// String renders the value for display and search.
func (v TokenValue) String() string {
	if v.isNum {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.str
}

// IsZero reports whether the value was never set. Used by validation to
// reject tokens without a value.
func (v TokenValue) IsZero() bool {
	return !v.isNum && v.str == ""
}

func (v TokenValue) MarshalJSON() ([]byte, error) {
	if v.isNum {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.str)
}

func (v *TokenValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = TokenValue{str: s}
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*v = TokenValue{num: n, isNum: true}
		return nil
	}
	return fmt.Errorf("token value must be a string or a number, got %s", string(b))
}

// DesignToken is one design system token. Name is the unique key; lookups
// are case-insensitive.
type DesignToken struct {
	Name        string        `json:"name" validate:"required"`
	Value       TokenValue    `json:"value"`
	Category    TokenCategory `json:"category" validate:"required,oneof=color typography spacing elevation motion"`
	Description string        `json:"description,omitempty"`
	Usage       []string      `json:"usage,omitempty"`
	Deprecated  bool          `json:"deprecated,omitempty"`
	Aliases     []string      `json:"aliases,omitempty"`
}

func (t DesignToken) key() string { return t.Name }

// PropSpec describes one component prop.
type PropSpec struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Variant is a named prop-value combination of a component.
type Variant struct {
	Name        string         `json:"name" validate:"required"`
	Props       map[string]any `json:"props,omitempty"`
	Description string         `json:"description,omitempty"`
}

// Example is a code example attached to a component.
type Example struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code"`
	Language    string `json:"language,omitempty"`
}

// Accessibility collects the accessibility notes of a component.
type Accessibility struct {
	AriaLabels    []string `json:"ariaLabels,omitempty"`
	KeyboardNav   string   `json:"keyboardNavigation,omitempty"`
	ScreenReader  string   `json:"screenReader,omitempty"`
	ContrastNotes string   `json:"contrastNotes,omitempty"`
}

// Component is one UI component specification. Name is the unique key;
// lookups are case-insensitive.
type Component struct {
	Name          string        `json:"name" validate:"required"`
	Description   string        `json:"description" validate:"required"`
	Category      string        `json:"category" validate:"required"`
	Props         []PropSpec    `json:"props,omitempty" validate:"dive"`
	Variants      []Variant     `json:"variants,omitempty" validate:"dive"`
	Examples      []Example     `json:"examples,omitempty"`
	Guidelines    []string      `json:"guidelines,omitempty"`
	Accessibility Accessibility `json:"accessibility,omitempty"`
}

func (c Component) key() string { return c.Name }

// RequiredProps returns the props with the required flag set. Together with
// OptionalProps it partitions the prop list.
func (c Component) RequiredProps() []PropSpec {
	var props []PropSpec
	for _, p := range c.Props {
		if p.Required {
			props = append(props, p)
		}
	}
	return props
}

// OptionalProps returns the props without the required flag.
func (c Component) OptionalProps() []PropSpec {
	var props []PropSpec
	for _, p := range c.Props {
		if !p.Required {
			props = append(props, p)
		}
	}
	return props
}

// Guideline is one usage guideline. ID is the unique key; lookups are
// case-insensitive. Related component and token entries are name references,
// not ownership: dangling references are tolerated.
type Guideline struct {
	ID                string    `json:"id" validate:"required"`
	Title             string    `json:"title" validate:"required"`
	Category          string    `json:"category" validate:"required"`
	Content           string    `json:"content" validate:"required"`
	Tags              []string  `json:"tags,omitempty"`
	LastUpdated       time.Time `json:"lastUpdated,omitempty"`
	RelatedComponents []string  `json:"relatedComponents,omitempty"`
	RelatedTokens     []string  `json:"relatedTokens,omitempty"`
}

func (g Guideline) key() string { return g.ID }

// Snapshot is one complete, internally consistent set of the three cached
// collections plus a load timestamp. A snapshot is immutable once published:
// the manager replaces the reference wholesale and readers never mutate it.
type Snapshot struct {
	Tokens      []DesignToken
	Components  []Component
	Guidelines  []Guideline
	LastUpdated time.Time
}

// Empty reports whether no collection has any entry.
func (s *Snapshot) Empty() bool {
	return len(s.Tokens) == 0 && len(s.Components) == 0 && len(s.Guidelines) == 0
}

// Counts returns the collection sizes keyed by dataset name.
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		"tokens":     len(s.Tokens),
		"components": len(s.Components),
		"guidelines": len(s.Guidelines),
	}
}
