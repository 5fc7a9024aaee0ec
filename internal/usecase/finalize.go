package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"inventory-agent/internal/domain"
)

// RecordStore is the committed-business-record contract consumed by
// the finalizer and the agent tools.
type RecordStore interface {
	FindCustomer(ctx context.Context, fragment string) (*domain.Customer, error)
	FindVendor(ctx context.Context, fragment string) (*domain.Vendor, error)
	FindItem(ctx context.Context, fragment string) (*domain.Item, error)
	CreateSale(ctx context.Context, sale domain.Sale) error
	CreatePurchase(ctx context.Context, p domain.Purchase) error
	CreateCustomer(ctx context.Context, c domain.Customer) error
	ListVendors(ctx context.Context) ([]domain.Vendor, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	ListLowStockItems(ctx context.Context, threshold int) ([]domain.Item, error)
}

// TransactionFinalizer validates a complete pending operation against
// the record store and commits it. Commits are all-or-nothing; any
// validation failure returns before a single write happens, so the
// caller's pending record stays intact for correction.
type TransactionFinalizer struct {
	records RecordStore
	newID   func() string
	log     *slog.Logger
}

// NewTransactionFinalizer creates a TransactionFinalizer.
func NewTransactionFinalizer(records RecordStore, log *slog.Logger) (*TransactionFinalizer, error) {
	if records == nil {
		return nil, errors.New("usecase: record store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &TransactionFinalizer{records: records, newID: uuid.NewString, log: log}, nil
}

// Finalize dispatches on the operation kind.
func (f *TransactionFinalizer) Finalize(ctx context.Context, op domain.PendingOperation) (string, error) {
	switch op.Kind {
	case domain.KindSale:
		return f.finalizeSale(ctx, op)
	case domain.KindPurchaseOrder:
		return f.finalizePurchase(ctx, op)
	default:
		return "", newError(ErrorInternal, "unknown_kind", fmt.Errorf("kind %q", op.Kind))
	}
}

func (f *TransactionFinalizer) finalizeSale(ctx context.Context, op domain.PendingOperation) (string, error) {
	customerName := strings.TrimSpace(op.Fields["customer_name"])
	customer, err := f.records.FindCustomer(ctx, customerName)
	if err != nil {
		return "", newError(ErrorInternal, "customer_lookup_error", err)
	}
	if customer == nil {
		return "", newSubjectError(ErrorNotFound, "customer_not_found", customerName)
	}

	var (
		lines  []domain.SaleLine
		total  float64
		needed = map[string]int{}
	)
	for _, li := range op.Items {
		if !li.Complete() {
			return "", newSubjectError(ErrorParse, "incomplete_line_item", li.Name)
		}
		item, err := f.records.FindItem(ctx, li.Name)
		if err != nil {
			return "", newError(ErrorInternal, "item_lookup_error", err)
		}
		if item == nil {
			return "", newSubjectError(ErrorNotFound, "item_not_found", li.Name)
		}
		// Lines may repeat an item; stock has to cover their sum, not
		// each line in isolation.
		needed[item.ID] += *li.Quantity
		if item.Quantity < needed[item.ID] {
			return "", newSubjectError(ErrorInsufficientStock, "insufficient_stock", item.Name)
		}
		lineTotal := float64(*li.Quantity) * *li.UnitPrice
		lines = append(lines, domain.SaleLine{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Quantity:  *li.Quantity,
			UnitPrice: *li.UnitPrice,
			Total:     lineTotal,
		})
		total += lineTotal
	}

	sale := domain.Sale{
		ID:           f.newID(),
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Lines:        lines,
		GrandTotal:   total,
	}
	if err := f.records.CreateSale(ctx, sale); err != nil {
		return "", newError(ErrorInternal, "sale_commit_error", err)
	}

	f.log.Info("sale committed", "saleId", sale.ID, "customer", customer.Name, "total", total)
	return saleConfirmation(sale), nil
}

func (f *TransactionFinalizer) finalizePurchase(ctx context.Context, op domain.PendingOperation) (string, error) {
	itemName := strings.TrimSpace(op.Fields["item_name"])
	item, err := f.records.FindItem(ctx, itemName)
	if err != nil {
		return "", newError(ErrorInternal, "item_lookup_error", err)
	}
	if item == nil {
		return "", newSubjectError(ErrorNotFound, "item_not_found", itemName)
	}

	vendorName := strings.TrimSpace(op.Fields["vendor_name"])
	vendor, err := f.records.FindVendor(ctx, vendorName)
	if err != nil {
		return "", newError(ErrorInternal, "vendor_lookup_error", err)
	}
	if vendor == nil {
		return "", newSubjectError(ErrorNotFound, "vendor_not_found", vendorName)
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(op.Fields["quantity"]))
	if err != nil || quantity < 1 {
		return "", newSubjectError(ErrorParse, "invalid_quantity", op.Fields["quantity"])
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(op.Fields["price_per_item"]), 64)
	if err != nil || price < 0 {
		return "", newSubjectError(ErrorParse, "invalid_price", op.Fields["price_per_item"])
	}

	purchase := domain.Purchase{
		ID:           f.newID(),
		ItemID:       item.ID,
		ItemName:     item.Name,
		VendorID:     vendor.ID,
		VendorName:   vendor.Name,
		Quantity:     quantity,
		PricePerItem: price,
		TotalValue:   float64(quantity) * price,
		Description:  strings.TrimSpace(op.Fields["description"]),
	}
	if err := f.records.CreatePurchase(ctx, purchase); err != nil {
		return "", newError(ErrorInternal, "purchase_commit_error", err)
	}

	f.log.Info("purchase order committed", "purchaseId", purchase.ID, "item", item.Name, "vendor", vendor.Name)
	return purchaseConfirmation(purchase), nil
}

func saleConfirmation(sale domain.Sale) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sale recorded for %s.\n", sale.CustomerName)
	for _, line := range sale.Lines {
		fmt.Fprintf(&b, "- %s: %d x %.2f = %.2f\n", line.ItemName, line.Quantity, line.UnitPrice, line.Total)
	}
	fmt.Fprintf(&b, "Total: %.2f\nReference: %s", sale.GrandTotal, sale.ID)
	return b.String()
}

func purchaseConfirmation(p domain.Purchase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Purchase order created.\n")
	fmt.Fprintf(&b, "- item: %s\n- vendor: %s\n- quantity: %d\n- price per item: %.2f\n", p.ItemName, p.VendorName, p.Quantity, p.PricePerItem)
	if p.Description != "" {
		fmt.Fprintf(&b, "- description: %s\n", p.Description)
	}
	fmt.Fprintf(&b, "Total value: %.2f\nReference: %s", p.TotalValue, p.ID)
	return b.String()
}
