package extract

import (
	"log/slog"
	"regexp"

	"github.com/use-agent/cartlink/models"
)

// StatePattern matches a global-variable assignment of a JSON literal in
// inline script. Group 1 captures the literal.
type StatePattern struct {
	Name string
	Re   *regexp.Regexp
}

// StatePatterns are tried in order by FromState. Each capture is a lazy
// DOTALL match up to the first "};", so it is approximate: it may stop
// inside a nested string or swallow the next statement.
var StatePatterns = []StatePattern{
	{Name: "window.__NUXT__", Re: regexp.MustCompile(`(?s)window\.__NUXT__\s*=\s*(\{.+?\});`)},
	{Name: "window.__INITIAL_STATE__", Re: regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.+?\});`)},
}

// ProbePatterns extends StatePatterns with assignments seen on share and
// landing pages. Only the diagnostics CLI uses them.
var ProbePatterns = append(append([]StatePattern{}, StatePatterns...),
	StatePattern{Name: "window.gbRawData", Re: regexp.MustCompile(`(?s)window\.gbRawData\s*=\s*(\{.+?\});`)},
	StatePattern{Name: "window.__CART_DATA__", Re: regexp.MustCompile(`(?s)window\.__CART_DATA__\s*=\s*(\{.+?\});`)},
	StatePattern{Name: "cartData", Re: regexp.MustCompile(`(?s)cartData\s*=\s*(\{.+?\});`)},
	StatePattern{Name: "productList", Re: regexp.MustCompile(`(?s)var\s+productList\s*=\s*(\[.+?\]);`)},
	StatePattern{Name: "goods", Re: regexp.MustCompile(`(?s)var\s+goods\s*=\s*(\[.+?\]);`)},
)

// cartKeys name containers that hold cart lines, in priority order.
var cartKeys = []string{"cart", "cartItems", "items", "goods", "goodsList"}

// FromState scans html for embedded app state and returns the items of the
// first pattern whose blob parses and contains at least one named item.
func FromState(html string) []models.CartItem {
	for _, p := range StatePatterns {
		m := p.Re.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		root, err := Parse([]byte(m[1]))
		if err != nil {
			slog.Debug("state blob did not parse", "pattern", p.Name, "bytes", len(m[1]), "error", err)
			continue
		}
		if items := SearchCart(root); len(items) > 0 {
			return items
		}
	}
	return nil
}

// FromStateJSON runs the cart search over an already-serialised state
// object, as returned by the browser engine.
func FromStateJSON(state string) []models.CartItem {
	if state == "" {
		return nil
	}
	root, err := Parse([]byte(state))
	if err != nil {
		slog.Debug("evaluated state did not parse", "bytes", len(state), "error", err)
		return nil
	}
	return SearchCart(root)
}

// SearchCart walks a state tree looking for cart lines.
//
// Arrays: every element is a candidate record.
// Objects: the first key of cartKeys holding an array is walked and the
// object's other members are ignored. Without such a key, every container
// member is walked in document order.
func SearchCart(root *Value) []models.CartItem {
	var items []models.CartItem

	var walk func(v *Value)
	walk = func(v *Value) {
		switch v.Kind {
		case KindArray:
			for _, el := range v.Elems {
				if item := ParseItem(el); item != nil {
					items = append(items, *item)
				}
			}
		case KindObject:
			for _, key := range cartKeys {
				if c, ok := v.Get(key); ok && c.Kind == KindArray {
					walk(c)
					return
				}
			}
			for _, m := range v.Members {
				if m.Value.IsContainer() {
					walk(m.Value)
				}
			}
		}
	}

	if root != nil {
		walk(root)
	}
	return items
}
