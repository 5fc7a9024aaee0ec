package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"inventory-agent/internal/domain"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func saleOp(fields map[string]string, items ...domain.LineItem) domain.PendingOperation {
	if fields == nil {
		fields = map[string]string{}
	}
	return domain.PendingOperation{
		Correspondent: "5511999999999",
		Kind:          domain.KindSale,
		Fields:        fields,
		Items:         items,
	}
}

func purchaseOp(fields map[string]string) domain.PendingOperation {
	if fields == nil {
		fields = map[string]string{}
	}
	return domain.PendingOperation{
		Correspondent: "5511999999999",
		Kind:          domain.KindPurchaseOrder,
		Fields:        fields,
	}
}

func requireParseError(t *testing.T, err error, reason string) {
	t.Helper()
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, ErrorParse, e.Code)
	require.Equal(t, reason, e.Reason)
}

// ---------------------------------------------------------------------------
// parseLineItem
// ---------------------------------------------------------------------------

func TestParseLineItem_Forms(t *testing.T) {
	cases := []struct {
		name string
		text string
		want domain.LineItem
	}{
		{"qty and price keywords", "pen qty 5 price 10", domain.LineItem{Name: "pen", Quantity: intPtr(5), UnitPrice: floatPtr(10)}},
		{"qty keyword only", "pen qty 5", domain.LineItem{Name: "pen", Quantity: intPtr(5)}},
		{"at keyword", "pen 5 at 10.50", domain.LineItem{Name: "pen", Quantity: intPtr(5), UnitPrice: floatPtr(10.50)}},
		{"two trailing numbers", "pen 5 10", domain.LineItem{Name: "pen", Quantity: intPtr(5), UnitPrice: floatPtr(10)}},
		{"multiword name", "blue ball pen 5 10", domain.LineItem{Name: "blue ball pen", Quantity: intPtr(5), UnitPrice: floatPtr(10)}},
		{"compact", "pen:5:10", domain.LineItem{Name: "pen", Quantity: intPtr(5), UnitPrice: floatPtr(10)}},
		{"compact partial", "pen:5", domain.LineItem{Name: "pen", Quantity: intPtr(5)}},
		{"name and quantity", "pen 5", domain.LineItem{Name: "pen", Quantity: intPtr(5)}},
		{"bare name", "pen", domain.LineItem{Name: "pen"}},
		{"values only", "qty 5 price 10", domain.LineItem{Name: "", Quantity: intPtr(5), UnitPrice: floatPtr(10)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseLineItem(tc.text)
			require.NoError(t, err)
			require.Equal(t, tc.want.Name, got.Name)
			require.Equal(t, tc.want.Quantity, got.Quantity)
			require.Equal(t, tc.want.UnitPrice, got.UnitPrice)
		})
	}
}

func TestParseLineItem_Invalid(t *testing.T) {
	cases := []struct {
		text   string
		reason string
	}{
		{"", "empty_item"},
		{"pen qty 0 price 10", "invalid_quantity"},
		{"pen qty -3", "invalid_quantity"},
		{"pen qty five", "invalid_quantity"},
		{"pen 5 at -2", "invalid_price"},
		{"pen:5:10:extra", "malformed_item"},
		{":5:10", "missing_item_name"},
	}
	for _, tc := range cases {
		_, err := parseLineItem(tc.text)
		requireParseError(t, err, tc.reason)
	}
}

// ---------------------------------------------------------------------------
// parseContinuation: sale flow
// ---------------------------------------------------------------------------

func TestParseContinuation_Reset(t *testing.T) {
	for _, text := range []string{"cancel", "please cancel", "RESET", "start over", "abort"} {
		update, err := parseContinuation(saleOp(nil), text)
		require.NoError(t, err, "text=%q", text)
		require.True(t, update.Reset, "text=%q", text)
	}

	update, err := parseContinuation(saleOp(map[string]string{"customer_name": "x"}), "cancellation fee 5 10")
	require.NoError(t, err)
	require.False(t, update.Reset, "substring must not trigger a reset")
}

func TestParseSale_BareTextIsCustomerName(t *testing.T) {
	update, err := parseContinuation(saleOp(nil), "Ali Hassan")
	require.NoError(t, err)
	require.Equal(t, "Ali Hassan", update.Fields["customer_name"])
	require.Empty(t, update.Items)
}

func TestParseSale_KeyValueCustomer(t *testing.T) {
	update, err := parseContinuation(saleOp(map[string]string{"customer_name": "Ali"}), "customer: Sara")
	require.NoError(t, err)
	require.Equal(t, "Sara", update.Fields["customer_name"])
}

func TestParseSale_KeyValueItem(t *testing.T) {
	update, err := parseContinuation(saleOp(map[string]string{"customer_name": "Ali"}), "item: pen 5 10")
	require.NoError(t, err)
	require.Len(t, update.Items, 1)
	require.Equal(t, "pen", update.Items[0].Name)
	require.Equal(t, 5, *update.Items[0].Quantity)
	require.Equal(t, 10.0, *update.Items[0].UnitPrice)
}

func TestParseSale_LineItemWhenCustomerKnown(t *testing.T) {
	update, err := parseContinuation(saleOp(map[string]string{"customer_name": "Ali"}), "pen 5 10")
	require.NoError(t, err)
	require.Len(t, update.Items, 1)
	require.Equal(t, "pen", update.Items[0].Name)
}

func TestParseSale_LineItemEvenWithoutCustomer(t *testing.T) {
	// Text that clearly looks like a line item never becomes the
	// customer name.
	update, err := parseContinuation(saleOp(nil), "pen 5 10")
	require.NoError(t, err)
	require.Empty(t, update.Fields["customer_name"])
	require.Len(t, update.Items, 1)
}

func TestParseSale_BareNumbersCompleteAskedItem(t *testing.T) {
	op := saleOp(map[string]string{"customer_name": "Ali"}, domain.LineItem{Name: "pen"})

	update, err := parseContinuation(op, "5 10")
	require.NoError(t, err)
	require.Len(t, update.Items, 1)
	require.Equal(t, "pen", update.Items[0].Name)
	require.Equal(t, 5, *update.Items[0].Quantity)
	require.Equal(t, 10.0, *update.Items[0].UnitPrice)
}

func TestParseSale_NamelessValuesCompleteAskedItem(t *testing.T) {
	op := saleOp(map[string]string{"customer_name": "Ali"}, domain.LineItem{Name: "pen", Quantity: intPtr(5)})

	update, err := parseContinuation(op, "qty 5 price 10")
	require.NoError(t, err)
	require.Len(t, update.Items, 1)
	require.Equal(t, "pen", update.Items[0].Name)
	require.Equal(t, 10.0, *update.Items[0].UnitPrice)
}

func TestParseSale_InvalidQuantitySurfacesParseError(t *testing.T) {
	op := saleOp(map[string]string{"customer_name": "Ali"}, domain.LineItem{Name: "pen"})
	_, err := parseContinuation(op, "0 10")
	requireParseError(t, err, "invalid_quantity")
}

func TestParseSale_NamelessItemWithoutContext(t *testing.T) {
	op := saleOp(map[string]string{"customer_name": "Ali"})
	_, err := parseContinuation(op, "qty 5 price 10")
	requireParseError(t, err, "missing_item_name")
}

// ---------------------------------------------------------------------------
// parseContinuation: purchase-order flow
// ---------------------------------------------------------------------------

func TestParsePurchase_KeyValueAliases(t *testing.T) {
	cases := []struct {
		text  string
		field string
		value string
	}{
		{"item: notebook", "item_name", "notebook"},
		{"product: notebook", "item_name", "notebook"},
		{"vendor: Al Noor", "vendor_name", "Al Noor"},
		{"supplier: Al Noor", "vendor_name", "Al Noor"},
		{"qty: 20", "quantity", "20"},
		{"price per item: 3.5", "price_per_item", "3.5"},
		{"description: urgent restock", "description", "urgent restock"},
	}
	for _, tc := range cases {
		update, err := parseContinuation(purchaseOp(nil), tc.text)
		require.NoError(t, err, "text=%q", tc.text)
		require.Equal(t, tc.value, update.Fields[tc.field], "text=%q", tc.text)
	}
}

func TestParsePurchase_BareValueFillsFirstMissingField(t *testing.T) {
	update, err := parseContinuation(purchaseOp(nil), "notebook")
	require.NoError(t, err)
	require.Equal(t, "notebook", update.Fields["item_name"])

	op := purchaseOp(map[string]string{"item_name": "notebook"})
	update, err = parseContinuation(op, "Al Noor")
	require.NoError(t, err)
	require.Equal(t, "Al Noor", update.Fields["vendor_name"])

	op = purchaseOp(map[string]string{"item_name": "notebook", "vendor_name": "Al Noor"})
	update, err = parseContinuation(op, "20")
	require.NoError(t, err)
	require.Equal(t, "20", update.Fields["quantity"])
}

func TestParsePurchase_ValidatesNumericFields(t *testing.T) {
	op := purchaseOp(map[string]string{"item_name": "notebook", "vendor_name": "Al Noor"})
	_, err := parseContinuation(op, "twenty")
	requireParseError(t, err, "invalid_quantity")

	_, err = parseContinuation(op, "qty: 0")
	requireParseError(t, err, "invalid_quantity")

	op.Fields["quantity"] = "20"
	_, err = parseContinuation(op, "-1")
	requireParseError(t, err, "invalid_price")
}

func TestParsePurchase_NothingExpected(t *testing.T) {
	op := purchaseOp(map[string]string{
		"item_name": "notebook", "vendor_name": "Al Noor",
		"quantity": "20", "price_per_item": "3.5",
	})
	_, err := parseContinuation(op, "something else")
	requireParseError(t, err, "no_field_expected")
}

// ---------------------------------------------------------------------------
// splitKeyValue
// ---------------------------------------------------------------------------

func TestSplitKeyValue(t *testing.T) {
	key, value, ok := splitKeyValue("Customer: Ali Hassan")
	require.True(t, ok)
	require.Equal(t, "customer", key)
	require.Equal(t, "Ali Hassan", value)

	_, _, ok = splitKeyValue("pen:5:10")
	require.False(t, ok, "compact item form is not key:value")

	_, _, ok = splitKeyValue("no separator here")
	require.False(t, ok)

	_, _, ok = splitKeyValue(": value only")
	require.False(t, ok)
}
