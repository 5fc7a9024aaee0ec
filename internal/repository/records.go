package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"inventory-agent/internal/domain"
)

const (
	pkCustomerPrefix = "CUSTOMER#"
	pkVendorPrefix   = "VENDOR#"
	pkItemPrefix     = "ITEM#"
	pkSalePrefix     = "SALE#"
	pkPurchasePrefix = "PURCHASE#"

	skMeta        = "META#"
	skLinePrefix  = "LINE#"
	scanPageLimit = 100
	listLimit     = 25
)

// RecordStore persists and resolves the committed business records:
// customers, vendors, inventory items, sales and purchases.
type RecordStore struct {
	api       dynamodbAPI
	tableName string
}

// NewRecordStore creates a RecordStore over the given table.
func NewRecordStore(api dynamodbAPI, tableName string) (*RecordStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &RecordStore{api: api, tableName: tableName}, nil
}

// FindCustomer resolves a customer by case-insensitive substring match
// on the name, returning the first match or nil.
func (s *RecordStore) FindCustomer(ctx context.Context, fragment string) (*domain.Customer, error) {
	item, err := s.scanFirst(ctx, pkCustomerPrefix, fragment)
	if err != nil || item == nil {
		return nil, err
	}
	c, err := itemToCustomer(item)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindVendor resolves a vendor by case-insensitive substring match.
func (s *RecordStore) FindVendor(ctx context.Context, fragment string) (*domain.Vendor, error) {
	item, err := s.scanFirst(ctx, pkVendorPrefix, fragment)
	if err != nil || item == nil {
		return nil, err
	}
	v, err := itemToVendor(item)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FindItem resolves an inventory item by case-insensitive substring match.
func (s *RecordStore) FindItem(ctx context.Context, fragment string) (*domain.Item, error) {
	item, err := s.scanFirst(ctx, pkItemPrefix, fragment)
	if err != nil || item == nil {
		return nil, err
	}
	it, err := itemToItem(item)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateCustomer writes a new customer record.
func (s *RecordStore) CreateCustomer(ctx context.Context, c domain.Customer) error {
	if c.ID == "" || c.Name == "" {
		return errors.New("repository: CreateCustomer: id and name are required")
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        strVal(pkCustomerPrefix + c.ID),
			"SK":        strVal(skMeta),
			"name":      strVal(c.Name),
			"nameLower": strVal(strings.ToLower(c.Name)),
			"phone":     strVal(c.Phone),
			"email":     strVal(c.Email),
		},
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: CreateCustomer: %w", err)
	}
	return nil
}

// CreateSale commits the sale header, its lines, and the stock
// decrements in a single transaction. Lines referencing the same item
// share one decrement, since DynamoDB forbids two operations on one
// key per transaction. Every decrement carries a quantity >= :q
// condition, so an undetected stock race cancels the whole write and
// nothing is committed.
func (s *RecordStore) CreateSale(ctx context.Context, sale domain.Sale) error {
	if sale.ID == "" {
		return errors.New("repository: CreateSale: id is required")
	}
	if len(sale.Lines) == 0 {
		return errors.New("repository: CreateSale: at least one line is required")
	}

	tx := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName: aws.String(s.tableName),
			Item: map[string]types.AttributeValue{
				"PK":           strVal(pkSalePrefix + sale.ID),
				"SK":           strVal(skMeta),
				"customerId":   strVal(sale.CustomerID),
				"customerName": strVal(sale.CustomerName),
				"grandTotal":   floatVal(sale.GrandTotal),
			},
			ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
		},
	}}

	decrements := map[string]int{}
	var itemOrder []string
	for i, line := range sale.Lines {
		tx = append(tx, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.tableName),
				Item: map[string]types.AttributeValue{
					"PK":        strVal(pkSalePrefix + sale.ID),
					"SK":        strVal(fmt.Sprintf("%s%03d", skLinePrefix, i+1)),
					"itemId":    strVal(line.ItemID),
					"itemName":  strVal(line.ItemName),
					"quantity":  intVal(line.Quantity),
					"unitPrice": floatVal(line.UnitPrice),
					"total":     floatVal(line.Total),
				},
			},
		})
		if _, seen := decrements[line.ItemID]; !seen {
			itemOrder = append(itemOrder, line.ItemID)
		}
		decrements[line.ItemID] += line.Quantity
	}

	for _, itemID := range itemOrder {
		tx = append(tx, types.TransactWriteItem{
			Update: &types.Update{
				TableName:           aws.String(s.tableName),
				Key:                 map[string]types.AttributeValue{"PK": strVal(pkItemPrefix + itemID), "SK": strVal(skMeta)},
				UpdateExpression:    aws.String("SET quantity = quantity - :q"),
				ConditionExpression: aws.String("quantity >= :q"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":q": intVal(decrements[itemID]),
				},
			},
		})
	}

	if _, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx}); err != nil {
		return fmt.Errorf("repository: CreateSale: %w", err)
	}
	return nil
}

// CreatePurchase writes a committed purchase order record.
func (s *RecordStore) CreatePurchase(ctx context.Context, p domain.Purchase) error {
	if p.ID == "" {
		return errors.New("repository: CreatePurchase: id is required")
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":           strVal(pkPurchasePrefix + p.ID),
			"SK":           strVal(skMeta),
			"itemId":       strVal(p.ItemID),
			"itemName":     strVal(p.ItemName),
			"vendorId":     strVal(p.VendorID),
			"vendorName":   strVal(p.VendorName),
			"quantity":     intVal(p.Quantity),
			"pricePerItem": floatVal(p.PricePerItem),
			"totalValue":   floatVal(p.TotalValue),
			"description":  strVal(p.Description),
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: CreatePurchase: %w", err)
	}
	return nil
}

// ListLowStockItems returns items at or below the given stock threshold.
func (s *RecordStore) ListLowStockItems(ctx context.Context, threshold int) ([]domain.Item, error) {
	var (
		items    []domain.Item
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.tableName),
			FilterExpression: aws.String("begins_with(PK, :p) AND SK = :sk AND quantity <= :t"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":p":  strVal(pkItemPrefix),
				":sk": strVal(skMeta),
				":t":  intVal(threshold),
			},
			Limit:             aws.Int32(scanPageLimit),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ListLowStockItems: %w", err)
		}
		for _, raw := range out.Items {
			it, err := itemToItem(raw)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
			if len(items) >= listLimit {
				return items, nil
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// ListVendors returns up to listLimit vendor records.
func (s *RecordStore) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	raws, err := s.scanEntities(ctx, pkVendorPrefix)
	if err != nil {
		return nil, fmt.Errorf("repository: ListVendors: %w", err)
	}
	vendors := make([]domain.Vendor, 0, len(raws))
	for _, raw := range raws {
		v, err := itemToVendor(raw)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}

// ListCustomers returns up to listLimit customer records.
func (s *RecordStore) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	raws, err := s.scanEntities(ctx, pkCustomerPrefix)
	if err != nil {
		return nil, fmt.Errorf("repository: ListCustomers: %w", err)
	}
	customers := make([]domain.Customer, 0, len(raws))
	for _, raw := range raws {
		c, err := itemToCustomer(raw)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// scanEntities pages through the meta records of one entity type,
// stopping at listLimit.
func (s *RecordStore) scanEntities(ctx context.Context, pkPrefix string) ([]map[string]types.AttributeValue, error) {
	var (
		raws     []map[string]types.AttributeValue
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.tableName),
			FilterExpression: aws.String("begins_with(PK, :p) AND SK = :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":p":  strVal(pkPrefix),
				":sk": strVal(skMeta),
			},
			Limit:             aws.Int32(scanPageLimit),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		for _, raw := range out.Items {
			raws = append(raws, raw)
			if len(raws) >= listLimit {
				return raws, nil
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return raws, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// scanFirst pages through records of one entity type and returns the
// first whose lowercased name contains the fragment, or nil.
func (s *RecordStore) scanFirst(ctx context.Context, pkPrefix, fragment string) (map[string]types.AttributeValue, error) {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return nil, nil
	}

	var startKey map[string]types.AttributeValue
	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.tableName),
			FilterExpression: aws.String("begins_with(PK, :p) AND SK = :sk AND contains(nameLower, :frag)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":p":    strVal(pkPrefix),
				":sk":   strVal(skMeta),
				":frag": strVal(fragment),
			},
			Limit:             aws.Int32(scanPageLimit),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: scan %s: %w", pkPrefix, err)
		}
		if len(out.Items) > 0 {
			return out.Items[0], nil
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func itemToCustomer(item map[string]types.AttributeValue) (domain.Customer, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Customer{}, err
	}
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.Customer{}, err
	}
	return domain.Customer{
		ID:    strings.TrimPrefix(pk, pkCustomerPrefix),
		Name:  name,
		Phone: optStrAttr(item, "phone"),
		Email: optStrAttr(item, "email"),
	}, nil
}

func itemToVendor(item map[string]types.AttributeValue) (domain.Vendor, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Vendor{}, err
	}
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.Vendor{}, err
	}
	return domain.Vendor{
		ID:    strings.TrimPrefix(pk, pkVendorPrefix),
		Name:  name,
		Phone: optStrAttr(item, "phone"),
	}, nil
}

func itemToItem(item map[string]types.AttributeValue) (domain.Item, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Item{}, err
	}
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.Item{}, err
	}
	price, err := floatAttr(item, "price")
	if err != nil {
		return domain.Item{}, err
	}
	quantity, err := intAttr(item, "quantity")
	if err != nil {
		return domain.Item{}, err
	}
	return domain.Item{
		ID:       strings.TrimPrefix(pk, pkItemPrefix),
		Name:     name,
		Price:    price,
		Quantity: quantity,
	}, nil
}
