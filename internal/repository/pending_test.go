package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"inventory-agent/internal/domain"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func pendingItem(data string, version int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":      strVal("USER#5511999999999"),
		"SK":      strVal("PENDING#sale"),
		"data":    strVal(data),
		"version": intVal(version),
	}
}

func TestNewPendingStore_Validation(t *testing.T) {
	_, err := NewPendingStore(nil, "table")
	require.Error(t, err)
	_, err = NewPendingStore(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestPendingGet_Absent(t *testing.T) {
	api := &fakeDynamo{}
	store, err := NewPendingStore(api, "table")
	require.NoError(t, err)

	op, err := store.Get(context.Background(), "5511999999999", domain.KindSale)
	require.NoError(t, err)
	require.Nil(t, op)
}

func TestPendingGet_DecodesRecord(t *testing.T) {
	api := &fakeDynamo{
		getItem: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			require.Equal(t, "USER#5511999999999", in.Key["PK"].(*types.AttributeValueMemberS).Value)
			require.Equal(t, "PENDING#sale", in.Key["SK"].(*types.AttributeValueMemberS).Value)
			require.NotNil(t, in.ConsistentRead)
			require.True(t, *in.ConsistentRead)
			return &dynamodb.GetItemOutput{Item: pendingItem(
				`{"fields":{"customer_name":"Ali"},"items":[{"name":"pen","quantity":5}]}`, 2,
			)}, nil
		},
	}
	store, err := NewPendingStore(api, "table")
	require.NoError(t, err)

	op, err := store.Get(context.Background(), "5511999999999", domain.KindSale)
	require.NoError(t, err)
	require.NotNil(t, op)
	require.Equal(t, "Ali", op.Fields["customer_name"])
	require.Len(t, op.Items, 1)
	require.Equal(t, "pen", op.Items[0].Name)
	require.Equal(t, 5, *op.Items[0].Quantity)
	require.Nil(t, op.Items[0].UnitPrice)
	require.Equal(t, 2, op.Version)
}

func TestPendingUpsert_CreatesRecord(t *testing.T) {
	var put *dynamodb.PutItemInput
	api := &fakeDynamo{
		putItem: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			put = in
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	store, err := NewPendingStore(api, "table")
	require.NoError(t, err)

	op, err := store.Upsert(context.Background(), "5511999999999", domain.KindSale, domain.FieldUpdate{
		Fields: map[string]string{"customer_name": "Ali"},
	})
	require.NoError(t, err)
	require.Equal(t, "Ali", op.Fields["customer_name"])
	require.Equal(t, 1, op.Version)

	require.NotNil(t, put)
	require.Contains(t, *put.ConditionExpression, "attribute_not_exists")
	require.Contains(t, put.Item["data"].(*types.AttributeValueMemberS).Value, `"customer_name":"Ali"`)
	require.Equal(t, "1", put.Item["version"].(*types.AttributeValueMemberN).Value)
	require.Contains(t, put.Item, "ttl")
}

func TestPendingUpsert_MergesIntoExisting(t *testing.T) {
	var put *dynamodb.PutItemInput
	api := &fakeDynamo{
		getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: pendingItem(`{"fields":{"customer_name":"Ali"}}`, 3)}, nil
		},
		putItem: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			put = in
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	store, err := NewPendingStore(api, "table")
	require.NoError(t, err)

	op, err := store.Upsert(context.Background(), "5511999999999", domain.KindSale, domain.FieldUpdate{
		Fields: map[string]string{
			"customer_name": "   ", // blank never overwrites
			"note":          "urgent",
		},
		Items: []domain.LineItem{{Name: "pen", Quantity: intPtr(5)}},
	})
	require.NoError(t, err)
	require.Equal(t, "Ali", op.Fields["customer_name"])
	require.Equal(t, "urgent", op.Fields["note"])
	require.Len(t, op.Items, 1)
	require.Equal(t, 4, op.Version)

	require.NotNil(t, put)
	require.Equal(t, "version = :v", *put.ConditionExpression)
	require.Equal(t, "3", put.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberN).Value)
}

func TestPendingUpsert_RetriesOnVersionConflict(t *testing.T) {
	gets, puts := 0, 0
	api := &fakeDynamo{
		getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			gets++
			return &dynamodb.GetItemOutput{Item: pendingItem(`{"fields":{}}`, gets)}, nil
		},
		putItem: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			puts++
			if puts == 1 {
				return nil, &types.ConditionalCheckFailedException{}
			}
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	store, err := NewPendingStore(api, "table")
	require.NoError(t, err)

	_, err = store.Upsert(context.Background(), "5511999999999", domain.KindSale, domain.FieldUpdate{
		Fields: map[string]string{"customer_name": "Ali"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, gets, "a lost race must re-read before re-merging")
	require.Equal(t, 2, puts)
}

func TestPendingUpsert_RetriesExhausted(t *testing.T) {
	api := &fakeDynamo{
		getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: pendingItem(`{"fields":{}}`, 1)}, nil
		},
		putItem: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{}
		},
	}
	store, err := NewPendingStore(api, "table")
	require.NoError(t, err)

	_, err = store.Upsert(context.Background(), "5511999999999", domain.KindSale, domain.FieldUpdate{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "retries exhausted")
}

func TestPendingUpsert_NonConditionalErrorFailsFast(t *testing.T) {
	puts := 0
	api := &fakeDynamo{
		putItem: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			puts++
			return nil, errors.New("throttled")
		},
	}
	store, err := NewPendingStore(api, "table")
	require.NoError(t, err)

	_, err = store.Upsert(context.Background(), "5511999999999", domain.KindSale, domain.FieldUpdate{})
	require.Error(t, err)
	require.Equal(t, 1, puts)
}

func TestPendingDelete(t *testing.T) {
	var del *dynamodb.DeleteItemInput
	api := &fakeDynamo{
		deleteItem: func(in *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
			del = in
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	store, err := NewPendingStore(api, "table")
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), "5511999999999", domain.KindPurchaseOrder))
	require.NotNil(t, del)
	require.Equal(t, "USER#5511999999999", del.Key["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "PENDING#purchase_order", del.Key["SK"].(*types.AttributeValueMemberS).Value)
}

func TestMergeItems(t *testing.T) {
	stored := []domain.LineItem{
		{Name: "pen", Quantity: intPtr(5)},
		{Name: "book", Quantity: intPtr(2), UnitPrice: floatPtr(30)},
	}

	merged := mergeItems(stored, []domain.LineItem{
		{Name: "Pen", UnitPrice: floatPtr(10)}, // completes the incomplete pen line
		{Name: "book", Quantity: intPtr(9)},    // complete line stays untouched, appends
		{Name: "eraser", Quantity: intPtr(1)},  // new item appends
	})

	require.Len(t, merged, 4)
	require.Equal(t, 5, *merged[0].Quantity)
	require.Equal(t, 10.0, *merged[0].UnitPrice)
	require.Equal(t, 2, *merged[1].Quantity)
	require.Equal(t, "book", merged[2].Name)
	require.Equal(t, 9, *merged[2].Quantity)
	require.Equal(t, "eraser", merged[3].Name)
}

func TestMergeItems_NeverOverwritesSuppliedValues(t *testing.T) {
	stored := []domain.LineItem{{Name: "pen", Quantity: intPtr(5)}}
	merged := mergeItems(stored, []domain.LineItem{{Name: "pen", Quantity: intPtr(99), UnitPrice: floatPtr(10)}})
	require.Len(t, merged, 1)
	require.Equal(t, 5, *merged[0].Quantity)
	require.Equal(t, 10.0, *merged[0].UnitPrice)
}
