package extract

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/cartlink/models"
)

// imageHost prefixes root-relative image paths found in cart cards.
const imageHost = "https://img.shein.com"

// minCardNameLen skips short labels ("Size", "New") that share the name
// classes with the real product title.
const minCardNameLen = 10

var (
	cardSelectors = []cascadia.Selector{
		cascadia.MustCompile(`[class*="cart-item"]`),
		cascadia.MustCompile(`[class*="goods-item"]`),
		cascadia.MustCompile(`[class*="product-item"]`),
	}
	cardNameSelectors = []cascadia.Selector{
		cascadia.MustCompile(`[class*="goods-name"]`),
		cascadia.MustCompile(`[class*="product-name"]`),
		cascadia.MustCompile(`[class*="goods-title"]`),
		cascadia.MustCompile(`h2`),
		cascadia.MustCompile(`h3`),
		cascadia.MustCompile(`[class*="name"]`),
	}
	cardPriceSelector = cascadia.MustCompile(`[class*="price"]`)
	cardImageSelector = cascadia.MustCompile(`img[src*="img"], img[data-src]`)
	cardQtySelector   = cascadia.MustCompile(`input[type="number"], [class*="quantity"] input`)
)

// FromDOM extracts items card by card: each cart line container is searched
// for its own name, price, image and quantity, so fields cannot drift across
// items the way FromHTML's positional pairing can. Container selectors are
// tried in order and the first one producing items wins. Cards repeating an
// earlier name+price+image are dropped.
func FromDOM(html string) []models.CartItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	for _, sel := range cardSelectors {
		var items []models.CartItem
		seen := make(map[string]struct{})

		doc.FindMatcher(sel).Each(func(_ int, card *goquery.Selection) {
			item, ok := parseCard(card)
			if !ok {
				return
			}
			key := strings.ToLower(item.Name + item.Price + item.Image)
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			items = append(items, item)
		})

		if len(items) > 0 {
			return items
		}
	}
	return nil
}

func parseCard(card *goquery.Selection) (models.CartItem, bool) {
	var item models.CartItem

	for _, sel := range cardNameSelectors {
		first := card.FindMatcher(sel).First()
		if first.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(first.Text())
		if utf8.RuneCountInString(text) > minCardNameLen {
			item.Name = text
			break
		}
	}
	if item.Name == "" {
		return item, false
	}

	card.FindMatcher(cardPriceSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if looksLikePrice(text) {
			item.Price = strings.Join(strings.Fields(text), " ")
			return false
		}
		return true
	})

	if img := card.FindMatcher(cardImageSelector).First(); img.Length() > 0 {
		src, _ := img.Attr("src")
		if src == "" {
			src, _ = img.Attr("data-src")
		}
		lower := strings.ToLower(src)
		if src != "" && !strings.Contains(lower, "placeholder") && !strings.Contains(lower, "loading") {
			item.Image = absoluteCardImage(src)
		}
	}

	if qty := card.FindMatcher(cardQtySelector).First(); qty.Length() > 0 {
		if v, ok := qty.Attr("value"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
				item.Quantity = strconv.Itoa(n)
			}
		}
	}

	return item, true
}

// absoluteCardImage differs from NormalizeImage: rendered cards use
// root-relative paths on the image CDN, so those are completed too.
func absoluteCardImage(src string) string {
	if strings.HasPrefix(src, "http") {
		return src
	}
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return imageHost + src
}
