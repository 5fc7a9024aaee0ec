package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"inventory-agent/internal/domain"
)

// Free-form continuation parsing: once a correspondent is inside a
// multi-turn flow, follow-up messages arrive as plain text and must be
// decomposed into field values before the assembly engine merges them.

var (
	resetPattern    = regexp.MustCompile(`(?i)(?:^|\s)(?:cancel|reset|abort|start over)(?:\s|$)`)
	qtyPricePattern = regexp.MustCompile(`(?i)^(.*?)\s*(?:qty|quantity)\s+(\S+)(?:\s+(?:price|at)\s+(\S+))?\s*$`)
	pricePattern    = regexp.MustCompile(`(?i)^(.*?)\s*(?:price|at)\s+(\S+)\s*$`)
)

// purchase-order field aliases accepted in "key: value" input.
var purchaseFieldAliases = map[string]string{
	"item":           "item_name",
	"item name":      "item_name",
	"product":        "item_name",
	"vendor":         "vendor_name",
	"vendor name":    "vendor_name",
	"supplier":       "vendor_name",
	"qty":            "quantity",
	"quantity":       "quantity",
	"price":          "price_per_item",
	"unit price":     "price_per_item",
	"price per item": "price_per_item",
	"description":    "description",
}

// parseContinuation extracts a FieldUpdate from free text for the given
// pending operation. A parse failure returns an ErrorParse without any
// update, so stored state stays untouched for that attempt.
func parseContinuation(op domain.PendingOperation, text string) (domain.FieldUpdate, error) {
	text = strings.TrimSpace(text)
	if resetPattern.MatchString(text) {
		return domain.FieldUpdate{Reset: true}, nil
	}
	switch op.Kind {
	case domain.KindSale:
		return parseSaleContinuation(op, text)
	case domain.KindPurchaseOrder:
		return parsePurchaseContinuation(op, text)
	default:
		return domain.FieldUpdate{}, newError(ErrorInternal, "unknown_kind", nil)
	}
}

func parseSaleContinuation(op domain.PendingOperation, text string) (domain.FieldUpdate, error) {
	if key, value, ok := splitKeyValue(text); ok {
		switch key {
		case "customer", "customer name", "client":
			return domain.FieldUpdate{Fields: map[string]string{"customer_name": value}}, nil
		case "item", "product":
			li, err := parseLineItem(value)
			if err != nil {
				return domain.FieldUpdate{}, err
			}
			return domain.FieldUpdate{Items: []domain.LineItem{li}}, nil
		}
		// Unknown key: fall through and treat the whole text as free form.
	}

	// A bare value answers whatever was asked last: the customer name if
	// it is still missing, otherwise line-item data.
	if strings.TrimSpace(op.Fields["customer_name"]) == "" && !looksLikeLineItem(text) {
		return domain.FieldUpdate{Fields: map[string]string{"customer_name": text}}, nil
	}

	// When an incomplete item was just asked about, accept "5 10",
	// "5 at 10" or "qty 5 price 10" without repeating the item name.
	if name, ok := firstIncompleteItem(op.Items); ok {
		if li, ok, err := parseBareNumbers(text); ok {
			if err != nil {
				return domain.FieldUpdate{}, err
			}
			li.Name = name
			return domain.FieldUpdate{Items: []domain.LineItem{li}}, nil
		}
		if li, err := parseLineItem(text); err == nil && li.Name == "" {
			li.Name = name
			return domain.FieldUpdate{Items: []domain.LineItem{li}}, nil
		}
	}

	li, err := parseLineItem(text)
	if err != nil {
		return domain.FieldUpdate{}, err
	}
	if li.Name == "" {
		return domain.FieldUpdate{}, newSubjectError(ErrorParse, "missing_item_name", text)
	}
	return domain.FieldUpdate{Items: []domain.LineItem{li}}, nil
}

func parsePurchaseContinuation(op domain.PendingOperation, text string) (domain.FieldUpdate, error) {
	if key, value, ok := splitKeyValue(text); ok {
		if field, known := purchaseFieldAliases[key]; known {
			if err := validatePurchaseField(field, value); err != nil {
				return domain.FieldUpdate{}, err
			}
			return domain.FieldUpdate{Fields: map[string]string{field: value}}, nil
		}
	}

	// Bare value: answer to the first missing schema field.
	for _, field := range domain.PurchaseOrderSchema {
		if strings.TrimSpace(op.Fields[field.Name]) != "" {
			continue
		}
		if err := validatePurchaseField(field.Name, text); err != nil {
			return domain.FieldUpdate{}, err
		}
		return domain.FieldUpdate{Fields: map[string]string{field.Name: text}}, nil
	}
	return domain.FieldUpdate{}, newSubjectError(ErrorParse, "no_field_expected", text)
}

// parseLineItem decomposes one line-item description. Accepted forms:
// "pen qty 5 price 10", "pen 5 at 10", the compact "pen:5:10", a bare
// "pen" (incomplete), or values without a name ("qty 5 price 10") when
// completing a previously named item.
func parseLineItem(text string) (domain.LineItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.LineItem{}, newSubjectError(ErrorParse, "empty_item", text)
	}

	if strings.Contains(text, ":") {
		return parseCompactLineItem(text)
	}

	if m := qtyPricePattern.FindStringSubmatch(text); m != nil {
		li := domain.LineItem{Name: strings.TrimSpace(m[1])}
		qty, err := parseQuantity(m[2])
		if err != nil {
			return domain.LineItem{}, err
		}
		li.Quantity = &qty
		if m[3] != "" {
			price, err := parsePrice(m[3])
			if err != nil {
				return domain.LineItem{}, err
			}
			li.UnitPrice = &price
		}
		return li, nil
	}

	if m := pricePattern.FindStringSubmatch(text); m != nil {
		price, err := parsePrice(m[2])
		if err != nil {
			return domain.LineItem{}, err
		}
		li := domain.LineItem{UnitPrice: &price}
		remainder := strings.TrimSpace(m[1])
		name, qty, err := splitNameQuantity(remainder)
		if err != nil {
			return domain.LineItem{}, err
		}
		li.Name = name
		li.Quantity = qty
		return li, nil
	}

	// "pen 5 10": two trailing numbers are quantity then unit price.
	tokens := strings.Fields(text)
	if len(tokens) >= 3 {
		if _, qerr := strconv.Atoi(tokens[len(tokens)-2]); qerr == nil {
			if _, perr := strconv.ParseFloat(tokens[len(tokens)-1], 64); perr == nil {
				qty, err := parseQuantity(tokens[len(tokens)-2])
				if err != nil {
					return domain.LineItem{}, err
				}
				price, err := parsePrice(tokens[len(tokens)-1])
				if err != nil {
					return domain.LineItem{}, err
				}
				return domain.LineItem{
					Name:      strings.Join(tokens[:len(tokens)-2], " "),
					Quantity:  &qty,
					UnitPrice: &price,
				}, nil
			}
		}
	}

	name, qty, err := splitNameQuantity(text)
	if err != nil {
		return domain.LineItem{}, err
	}
	return domain.LineItem{Name: name, Quantity: qty}, nil
}

// parseCompactLineItem handles the "name:qty:price" form carried over
// from the legacy chat commands.
func parseCompactLineItem(text string) (domain.LineItem, error) {
	parts := strings.Split(text, ":")
	if len(parts) > 3 {
		return domain.LineItem{}, newSubjectError(ErrorParse, "malformed_item", text)
	}
	li := domain.LineItem{Name: strings.TrimSpace(parts[0])}
	if li.Name == "" {
		return domain.LineItem{}, newSubjectError(ErrorParse, "missing_item_name", text)
	}
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		qty, err := parseQuantity(parts[1])
		if err != nil {
			return domain.LineItem{}, err
		}
		li.Quantity = &qty
	}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		price, err := parsePrice(parts[2])
		if err != nil {
			return domain.LineItem{}, err
		}
		li.UnitPrice = &price
	}
	return li, nil
}

// splitNameQuantity peels one trailing integer quantity off a token
// list, leaving the name. Text without a trailing number is a bare,
// incomplete item name.
func splitNameQuantity(text string) (string, *int, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return "", nil, nil
	}
	last := tokens[len(tokens)-1]
	if _, err := strconv.Atoi(last); err == nil {
		qty, err := parseQuantity(last)
		if err != nil {
			return "", nil, err
		}
		return strings.Join(tokens[:len(tokens)-1], " "), &qty, nil
	}
	return text, nil, nil
}

func looksLikeLineItem(text string) bool {
	if strings.Contains(text, ":") {
		return true
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, " qty ") || strings.Contains(lower, " quantity ") || strings.Contains(lower, " price ") {
		return true
	}
	tokens := strings.Fields(text)
	if len(tokens) < 2 {
		return false
	}
	_, err := strconv.ParseFloat(tokens[len(tokens)-1], 64)
	return err == nil
}

// parseBareNumbers treats one or two bare numbers as quantity and unit
// price for the item currently being asked about. ok reports whether
// the text was purely numeric; err carries range violations.
func parseBareNumbers(text string) (domain.LineItem, bool, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || len(tokens) > 2 {
		return domain.LineItem{}, false, nil
	}
	for _, tok := range tokens {
		if _, err := strconv.ParseFloat(tok, 64); err != nil {
			return domain.LineItem{}, false, nil
		}
	}
	qty, err := parseQuantity(tokens[0])
	if err != nil {
		return domain.LineItem{}, true, err
	}
	li := domain.LineItem{Quantity: &qty}
	if len(tokens) == 2 {
		price, err := parsePrice(tokens[1])
		if err != nil {
			return domain.LineItem{}, true, err
		}
		li.UnitPrice = &price
	}
	return li, true, nil
}

func firstIncompleteItem(items []domain.LineItem) (string, bool) {
	for _, li := range items {
		if !li.Complete() {
			return li.Name, true
		}
	}
	return "", false
}

func splitKeyValue(text string) (key, value string, ok bool) {
	idx := strings.Index(text, ":")
	if idx <= 0 {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(text[:idx]))
	value = strings.TrimSpace(text[idx+1:])
	if key == "" || value == "" || strings.Contains(key, " qty") {
		return "", "", false
	}
	// Reject the compact item form "pen:5:10", recognizable by a numeric
	// segment before the second colon.
	if first, _, found := strings.Cut(value, ":"); found {
		if _, err := strconv.Atoi(strings.TrimSpace(first)); err == nil {
			return "", "", false
		}
	}
	return key, value, true
}

func parseQuantity(raw string) (int, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty < 1 {
		return 0, newSubjectError(ErrorParse, "invalid_quantity", strings.TrimSpace(raw))
	}
	return qty, nil
}

func parsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || price < 0 {
		return 0, newSubjectError(ErrorParse, "invalid_price", strings.TrimSpace(raw))
	}
	return price, nil
}

func validatePurchaseField(field, value string) error {
	switch field {
	case "quantity":
		_, err := parseQuantity(value)
		return err
	case "price_per_item":
		_, err := parsePrice(value)
		return err
	default:
		return nil
	}
}
