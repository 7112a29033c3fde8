package extract

import (
	"regexp"
	"strings"

	"github.com/use-agent/cartlink/models"
)

var (
	reGoodsName = regexp.MustCompile(`(?i)<[^>]*class="[^"]*(?:goods-name|product-name)[^"]*"[^>]*>([^<]+)</[^>]*>`)
	rePriceText = regexp.MustCompile(`(?i)<[^>]*class="[^"]*price[^"]*"[^>]*>([^<]+)</[^>]*>`)
	reCurrency  = regexp.MustCompile(`[$€£¥R]`)
	reHasDigit  = regexp.MustCompile(`\d`)
)

// FromHTML scrapes item names and prices straight from markup. The two scans
// are independent and paired by index, so a page whose name and price
// elements are not 1:1 in document order yields mismatched pairs. Every item
// gets quantity "1".
func FromHTML(html string) []models.CartItem {
	names := scanText(reGoodsName, html, func(s string) bool { return s != "" })
	prices := scanText(rePriceText, html, looksLikePrice)

	n := min(len(names), len(prices))
	items := make([]models.CartItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.CartItem{
			Name:     names[i],
			Price:    prices[i],
			Quantity: "1",
		})
	}
	return items
}

// looksLikePrice drops "price"-classed labels carrying no amount.
func looksLikePrice(s string) bool {
	return reCurrency.MatchString(s) && reHasDigit.MatchString(s)
}

func scanText(re *regexp.Regexp, html string, keep func(string) bool) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(html, -1) {
		text := strings.TrimSpace(m[1])
		if keep != nil && !keep(text) {
			continue
		}
		out = append(out, text)
	}
	return out
}
