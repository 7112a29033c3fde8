package extract

import (
	"strings"

	"github.com/use-agent/cartlink/models"
)

// Source field aliases per canonical item field, in priority order.
var (
	nameAliases     = []string{"name", "title", "goodsName", "goods_name"}
	priceAliases    = []string{"price", "salePrice", "unit_price"}
	quantityAliases = []string{"quantity", "qty", "num"}
	imageAliases    = []string{"image", "img", "goodsImg"}
	skuAliases      = []string{"sku", "id", "goodsId"}
)

// FirstPresent returns the first alias of obj holding a truthy scalar,
// rendered as a string. Truthy containers are skipped: an object under
// "price" is not a price. This departs from plain "first truthy wins", which
// would render such a value as "[object Object]".
func FirstPresent(obj *Value, aliases ...string) (string, bool) {
	for _, key := range aliases {
		v, ok := obj.Get(key)
		if !ok || !v.Truthy() {
			continue
		}
		if s, ok := v.Text(); ok {
			return s, true
		}
	}
	return "", false
}

// ParseItem maps one candidate record onto a CartItem. It returns nil when
// the record is not an object or has no resolvable name.
func ParseItem(record *Value) *models.CartItem {
	if record == nil || record.Kind != KindObject {
		return nil
	}

	name, ok := FirstPresent(record, nameAliases...)
	if !ok {
		return nil
	}

	item := &models.CartItem{Name: name}
	item.Price, _ = FirstPresent(record, priceAliases...)
	item.Quantity, _ = FirstPresent(record, quantityAliases...)
	if img, ok := FirstPresent(record, imageAliases...); ok {
		item.Image = NormalizeImage(img)
	}
	item.SKU, _ = FirstPresent(record, skuAliases...)
	return item
}

// NormalizeImage rewrites protocol-relative image URLs to https. Absolute
// URLs and bare relative paths are returned unchanged.
func NormalizeImage(src string) string {
	if strings.HasPrefix(src, "http") {
		return src
	}
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}
