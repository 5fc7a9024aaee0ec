package domain

// OperationKind identifies a multi-step transaction flow.
type OperationKind string

const (
	KindPurchaseOrder  OperationKind = "purchase_order"
	KindSale           OperationKind = "sale"
	KindCreateCustomer OperationKind = "create_customer" // reserved, not yet driven by the assembly engine
)

// KnownKinds lists the kinds the router probes for an active pending
// operation, in a fixed order so routing stays deterministic.
var KnownKinds = []OperationKind{KindPurchaseOrder, KindSale}

// Field is one required entry of a kind's schema. Order matters: it is
// both the completeness-check order and the prompt order.
type Field struct {
	Name  string
	Label string
}

// PurchaseOrderSchema lists the required fields for a purchase order.
// "description" is accepted but optional, so it is not listed here.
var PurchaseOrderSchema = []Field{
	{Name: "item_name", Label: "the item name"},
	{Name: "vendor_name", Label: "the vendor name"},
	{Name: "quantity", Label: "the quantity to order"},
	{Name: "price_per_item", Label: "the price per item"},
}

// SaleSchema lists the required root fields for a sale. Line items live
// in the free-form "items" list and are validated per entry.
var SaleSchema = []Field{
	{Name: "customer_name", Label: "the customer name"},
}

// LineItem is one partially or fully specified sale line. Quantity and
// UnitPrice are pointers so "not yet supplied" is distinguishable from
// zero.
type LineItem struct {
	Name      string   `json:"name"`
	Quantity  *int     `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}

// Complete reports whether the line carries everything finalization needs.
func (li LineItem) Complete() bool {
	return li.Name != "" && li.Quantity != nil && li.UnitPrice != nil
}

// PendingOperation is the partial, not-yet-committed state of a
// multi-step flow for one correspondent. At most one exists per
// (correspondent, kind).
type PendingOperation struct {
	Correspondent string
	Kind          OperationKind
	Fields        map[string]string
	Items         []LineItem // sale only
	Version       int        // optimistic-locking counter maintained by the store
}

// FieldUpdate carries the values extracted from a single inbound
// message. Only non-empty fields are merged; Items append.
type FieldUpdate struct {
	Fields map[string]string
	Items  []LineItem
	Reset  bool
}

// Empty reports whether the update carries nothing to merge.
func (u FieldUpdate) Empty() bool {
	return !u.Reset && len(u.Fields) == 0 && len(u.Items) == 0
}
