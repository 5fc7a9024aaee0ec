package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"inventory-agent/internal/domain"
)

// ToolRegistry exposes the inventory operations to the reasoning
// engine and dispatches its calls. The correspondent is bound by the
// dispatcher from the inbound message, never taken from the model, so
// a tool call can only ever touch the caller's own pending state.
type ToolRegistry struct {
	assembler *Assembler
	records   RecordStore
	newID     func() string
	log       *slog.Logger
}

// NewToolRegistry creates a ToolRegistry.
func NewToolRegistry(assembler *Assembler, records RecordStore, log *slog.Logger) (*ToolRegistry, error) {
	if assembler == nil {
		return nil, errors.New("usecase: assembler must not be nil")
	}
	if records == nil {
		return nil, errors.New("usecase: record store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ToolRegistry{
		assembler: assembler,
		records:   records,
		newID:     uuid.NewString,
		log:       log,
	}, nil
}

// Specs lists the tools offered to the model on every chat call.
func (r *ToolRegistry) Specs() []domain.ToolSpec {
	return []domain.ToolSpec{
		{
			Name: "manage_purchase_order",
			Description: "Record or continue a purchase order for the current user. " +
				"Pass only the fields the user actually stated; the pipeline asks for the rest. " +
				"Set reset to true to discard the order in progress.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"item_name": {"type": "string", "description": "Name of the item being purchased"},
					"vendor_name": {"type": "string", "description": "Name of the vendor supplying the item"},
					"quantity": {"type": "integer", "description": "Number of units, at least 1"},
					"price_per_item": {"type": "number", "description": "Unit price"},
					"description": {"type": "string", "description": "Optional free-text note"},
					"reset": {"type": "boolean", "description": "Discard the purchase order in progress"}
				}
			}`),
		},
		{
			Name: "manage_sale",
			Description: "Record or continue a sale for the current user. " +
				"item_input is one line item as free text, e.g. \"pen 5 10\" for 5 pens at 10 each. " +
				"Call once per line item. Set reset to true to discard the sale in progress.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"customer_name": {"type": "string", "description": "Name of the buying customer"},
					"item_input": {"type": "string", "description": "One line item: name, quantity, unit price"},
					"reset": {"type": "boolean", "description": "Discard the sale in progress"}
				}
			}`),
		},
		{
			Name: "finalize_sale",
			Description: "Commit the sale currently in progress for this user. " +
				"Fails if nothing is pending or details are still missing.",
			Parameters: json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        "create_customer",
			Description: "Create a new customer record. Name is required.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Customer name"},
					"phone": {"type": "string", "description": "Phone number"},
					"email": {"type": "string", "description": "Email address"}
				},
				"required": ["name"]
			}`),
		},
		{
			Name:        "search_item",
			Description: "Look up an inventory item by a case-insensitive name fragment.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Part of the item name"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "search_customer",
			Description: "Look up a customer by a case-insensitive name fragment.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Part of the customer name"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "get_vendors",
			Description: "List the vendors on file with their phone numbers.",
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        "get_all_customers",
			Description: "List the customers on file with their contact details.",
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        "get_low_stock_items",
			Description: "List inventory items at or below a stock threshold.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"threshold": {"type": "integer", "description": "Stock threshold, default 10"}
				}
			}`),
		},
	}
}

// Dispatch runs one tool call on behalf of correspondent and returns
// the textual result fed back to the model. Pipeline errors are
// converted to their user-facing sentence so the model can relay them
// verbatim instead of inventing an apology.
func (r *ToolRegistry) Dispatch(ctx context.Context, correspondent string, call domain.ToolCall) string {
	result, err := r.dispatch(ctx, correspondent, call)
	if err != nil {
		r.log.Warn("tool call failed",
			"tool", call.Function.Name, "correspondent", correspondent, "err", err)
		return userMessage(err)
	}
	return result
}

func (r *ToolRegistry) dispatch(ctx context.Context, correspondent string, call domain.ToolCall) (string, error) {
	args := call.Function.Arguments
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	switch call.Function.Name {
	case "manage_purchase_order":
		return r.managePurchaseOrder(ctx, correspondent, args)
	case "manage_sale":
		return r.manageSale(ctx, correspondent, args)
	case "finalize_sale":
		return r.assembler.FinalizeExisting(ctx, correspondent, domain.KindSale)
	case "create_customer":
		return r.createCustomer(ctx, args)
	case "search_item":
		return r.searchItem(ctx, args)
	case "search_customer":
		return r.searchCustomer(ctx, args)
	case "get_vendors":
		return r.listVendors(ctx)
	case "get_all_customers":
		return r.listCustomers(ctx)
	case "get_low_stock_items":
		return r.lowStockItems(ctx, args)
	default:
		return "", newSubjectError(ErrorInvalidInput, "unknown_tool", call.Function.Name)
	}
}

func (r *ToolRegistry) managePurchaseOrder(ctx context.Context, correspondent, args string) (string, error) {
	var in struct {
		ItemName     string  `json:"item_name"`
		VendorName   string  `json:"vendor_name"`
		Quantity     int     `json:"quantity"`
		PricePerItem float64 `json:"price_per_item"`
		Description  string  `json:"description"`
		Reset        bool    `json:"reset"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", newError(ErrorParse, "bad_tool_arguments", err)
	}
	update := domain.FieldUpdate{Reset: in.Reset, Fields: map[string]string{}}
	if v := strings.TrimSpace(in.ItemName); v != "" {
		update.Fields["item_name"] = v
	}
	if v := strings.TrimSpace(in.VendorName); v != "" {
		update.Fields["vendor_name"] = v
	}
	if in.Quantity > 0 {
		update.Fields["quantity"] = strconv.Itoa(in.Quantity)
	}
	if in.PricePerItem > 0 {
		update.Fields["price_per_item"] = strconv.FormatFloat(in.PricePerItem, 'f', -1, 64)
	}
	if v := strings.TrimSpace(in.Description); v != "" {
		update.Fields["description"] = v
	}
	return r.assembler.Advance(ctx, correspondent, domain.KindPurchaseOrder, update)
}

func (r *ToolRegistry) manageSale(ctx context.Context, correspondent, args string) (string, error) {
	var in struct {
		CustomerName string `json:"customer_name"`
		ItemInput    string `json:"item_input"`
		Reset        bool   `json:"reset"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", newError(ErrorParse, "bad_tool_arguments", err)
	}
	update := domain.FieldUpdate{Reset: in.Reset, Fields: map[string]string{}}
	if v := strings.TrimSpace(in.CustomerName); v != "" {
		update.Fields["customer_name"] = v
	}
	if v := strings.TrimSpace(in.ItemInput); v != "" {
		item, err := parseLineItem(v)
		if err != nil {
			return "", err
		}
		update.Items = []domain.LineItem{item}
	}
	return r.assembler.Advance(ctx, correspondent, domain.KindSale, update)
}

func (r *ToolRegistry) createCustomer(ctx context.Context, args string) (string, error) {
	var in struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", newError(ErrorParse, "bad_tool_arguments", err)
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return "", newSubjectError(ErrorParse, "missing_field", "name")
	}
	customer := domain.Customer{
		ID:    r.newID(),
		Name:  in.Name,
		Phone: strings.TrimSpace(in.Phone),
		Email: strings.TrimSpace(in.Email),
	}
	if err := r.records.CreateCustomer(ctx, customer); err != nil {
		return "", newError(ErrorInternal, "create_customer_error", err)
	}
	r.log.Info("customer created", "customer_id", customer.ID, "name", customer.Name)
	return fmt.Sprintf("Customer %s created.", customer.Name), nil
}

func (r *ToolRegistry) searchItem(ctx context.Context, args string) (string, error) {
	query, err := queryArg(args)
	if err != nil {
		return "", err
	}
	item, err := r.records.FindItem(ctx, query)
	if err != nil {
		return "", newError(ErrorInternal, "find_item_error", err)
	}
	if item == nil {
		return fmt.Sprintf("No item matching %q.", query), nil
	}
	return fmt.Sprintf("%s: %d in stock at %.2f each.", item.Name, item.Quantity, item.Price), nil
}

func (r *ToolRegistry) searchCustomer(ctx context.Context, args string) (string, error) {
	query, err := queryArg(args)
	if err != nil {
		return "", err
	}
	customer, err := r.records.FindCustomer(ctx, query)
	if err != nil {
		return "", newError(ErrorInternal, "find_customer_error", err)
	}
	if customer == nil {
		return fmt.Sprintf("No customer matching %q.", query), nil
	}
	out := customer.Name
	if customer.Phone != "" {
		out += ", phone " + customer.Phone
	}
	if customer.Email != "" {
		out += ", email " + customer.Email
	}
	return out + ".", nil
}

func (r *ToolRegistry) listVendors(ctx context.Context) (string, error) {
	vendors, err := r.records.ListVendors(ctx)
	if err != nil {
		return "", newError(ErrorInternal, "list_vendors_error", err)
	}
	if len(vendors) == 0 {
		return "No vendors on file.", nil
	}
	lines := make([]string, 0, len(vendors)+1)
	lines = append(lines, "Vendors:")
	for _, v := range vendors {
		line := "- " + v.Name
		if v.Phone != "" {
			line += ", phone " + v.Phone
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (r *ToolRegistry) listCustomers(ctx context.Context) (string, error) {
	customers, err := r.records.ListCustomers(ctx)
	if err != nil {
		return "", newError(ErrorInternal, "list_customers_error", err)
	}
	if len(customers) == 0 {
		return "No customers on file.", nil
	}
	lines := make([]string, 0, len(customers)+1)
	lines = append(lines, "Customers:")
	for _, c := range customers {
		line := "- " + c.Name
		if c.Phone != "" {
			line += ", phone " + c.Phone
		}
		if c.Email != "" {
			line += ", email " + c.Email
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (r *ToolRegistry) lowStockItems(ctx context.Context, args string) (string, error) {
	in := struct {
		Threshold int `json:"threshold"`
	}{Threshold: 10}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", newError(ErrorParse, "bad_tool_arguments", err)
	}
	if in.Threshold <= 0 {
		in.Threshold = 10
	}
	items, err := r.records.ListLowStockItems(ctx, in.Threshold)
	if err != nil {
		return "", newError(ErrorInternal, "low_stock_error", err)
	}
	if len(items) == 0 {
		return fmt.Sprintf("No items at or below %d in stock.", in.Threshold), nil
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, fmt.Sprintf("Items at or below %d in stock:", in.Threshold))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s: %d left", item.Name, item.Quantity))
	}
	return strings.Join(lines, "\n"), nil
}

func queryArg(args string) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", newError(ErrorParse, "bad_tool_arguments", err)
	}
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return "", newSubjectError(ErrorParse, "missing_field", "query")
	}
	return in.Query, nil
}
