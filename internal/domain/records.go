package domain

// Customer is a business customer record.
type Customer struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// Vendor is a supplier record.
type Vendor struct {
	ID    string
	Name  string
	Phone string
}

// Item is an inventory item with its available stock.
type Item struct {
	ID       string
	Name     string
	Price    float64
	Quantity int
}

// SaleLine is one committed line of a sale.
type SaleLine struct {
	ItemID    string
	ItemName  string
	Quantity  int
	UnitPrice float64
	Total     float64
}

// Sale is a committed sale header plus its lines.
type Sale struct {
	ID           string
	CustomerID   string
	CustomerName string
	Lines        []SaleLine
	GrandTotal   float64
}

// Purchase is a committed purchase order.
type Purchase struct {
	ID           string
	ItemID       string
	ItemName     string
	VendorID     string
	VendorName   string
	Quantity     int
	PricePerItem float64
	TotalValue   float64
	Description  string
}
