package browser

import "fmt"

// Strategy is the query language of a Selector.
type Strategy int

const (
	ByCSS Strategy = iota
	ByXPath
)

func (s Strategy) String() string {
	switch s {
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Selector locates zero or more elements in the current document. It is a
// comparable value.
type Selector struct {
	Strategy Strategy
	Value    string
}

// CSS returns a selector for a CSS query.
func CSS(query string) Selector {
	return Selector{Strategy: ByCSS, Value: query}
}

// XPath returns a selector for an XPath expression.
func XPath(expr string) Selector {
	return Selector{Strategy: ByXPath, Value: expr}
}

func (s Selector) String() string {
	return fmt.Sprintf("%s %q", s.Strategy, s.Value)
}
