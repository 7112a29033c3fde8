package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/cartlink/models"
)

func TestSearchCart_FirstCartKeyWins(t *testing.T) {
	root := mustParse(t, `{
		"page": {
			"goodsList": [{"name":"G1"},{"name":"G2"},{"name":"G3"}],
			"cart": [{"name":"C1"},{"name":"C2"}]
		}
	}`)

	got := SearchCart(root)
	want := []models.CartItem{{Name: "C1"}, {Name: "C2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchCart mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchCart_NonArrayCartKeyIsDescended(t *testing.T) {
	root := mustParse(t, `{"cart":{"items":[{"name":"Blue Dress","price":"R148","qty":"2"}]}}`)

	got := SearchCart(root)
	want := []models.CartItem{{Name: "Blue Dress", Price: "R148", Quantity: "2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchCart mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchCart_SiblingsSkippedAfterMatch(t *testing.T) {
	// "items" matches at the root, so "extra" is never visited even though it
	// holds named records.
	root := mustParse(t, `{"extra":{"cart":[{"name":"Hidden"}]},"items":[{"name":"Shown"}]}`)

	got := SearchCart(root)
	want := []models.CartItem{{Name: "Shown"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchCart mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchCart_AccumulatesAcrossChildrenInDocumentOrder(t *testing.T) {
	root := mustParse(t, `{
		"b": {"goods": [{"title":"B1"}]},
		"a": {"cartItems": [{"goodsName":"A1"},{"price":"no name"},{"goods_name":"A2"}]},
		"c": [{"name":"C1"}, "scalar", [{"name":"nested array not descended"}]]
	}`)

	got := SearchCart(root)
	want := []models.CartItem{{Name: "B1"}, {Name: "A1"}, {Name: "A2"}, {Name: "C1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchCart mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchCart_EmptyCartArrayStopsSearch(t *testing.T) {
	root := mustParse(t, `{"cart":[],"other":{"items":[{"name":"X"}]}}`)
	if got := SearchCart(root); len(got) != 0 {
		t.Errorf("SearchCart = %+v, want no items", got)
	}
}

func TestFromState_NuxtScenario(t *testing.T) {
	html := `<html><head><script>window.__NUXT__ = {"cart":{"items":[{"name":"Blue Dress","price":"R148","qty":"2"}]}};</script></head><body></body></html>`

	got := FromState(html)
	want := []models.CartItem{{Name: "Blue Dress", Price: "R148", Quantity: "2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromState mismatch (-want +got):\n%s", diff)
	}
}

func TestFromState_ParseFailureFallsThroughToNextPattern(t *testing.T) {
	// The lazy capture for __NUXT__ stops at the "};" inside the string,
	// leaving invalid JSON. __INITIAL_STATE__ parses cleanly.
	html := `<script>
window.__NUXT__ = {"note":"ends early};","cart":[{"name":"Lost"}]};
window.__INITIAL_STATE__ = {"goodsList":[{"title":"Kept","salePrice":"€12"}]};
</script>`

	got := FromState(html)
	want := []models.CartItem{{Name: "Kept", Price: "€12"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromState mismatch (-want +got):\n%s", diff)
	}
}

func TestFromState_FirstPatternWithItemsStops(t *testing.T) {
	html := `<script>
window.__INITIAL_STATE__ = {"cart":[{"name":"From state"}]};
window.__NUXT__ = {"cart":[{"name":"From nuxt"}]};
</script>`

	got := FromState(html)
	want := []models.CartItem{{Name: "From nuxt"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromState mismatch (-want +got):\n%s", diff)
	}
}

func TestFromState_NoPattern(t *testing.T) {
	if got := FromState(`<html><body><p>nothing here</p></body></html>`); len(got) != 0 {
		t.Errorf("FromState = %+v, want none", got)
	}
}

func TestFromStateJSON(t *testing.T) {
	got := FromStateJSON(`{"data":{"cartItems":[{"name":"Eval","img":"//c.example.com/e.png"}]}}`)
	want := []models.CartItem{{Name: "Eval", Image: "https://c.example.com/e.png"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromStateJSON mismatch (-want +got):\n%s", diff)
	}
	if got := FromStateJSON(""); got != nil {
		t.Errorf("FromStateJSON(\"\") = %+v, want nil", got)
	}
	if got := FromStateJSON("{broken"); got != nil {
		t.Errorf("FromStateJSON(broken) = %+v, want nil", got)
	}
}

func TestFromState_ToleratesOddScalars(t *testing.T) {
	for _, stray := range []string{`"banner":"\ud83d"`, `"stat":1e400`} {
		html := `<script>window.__NUXT__ = {` + stray + `,"cart":[{"name":"Blue Dress","price":"R148"}]};</script>`
		got := FromState(html)
		want := []models.CartItem{{Name: "Blue Dress", Price: "R148"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("with %s (-want +got):\n%s", stray, diff)
		}
	}
}
