package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"inventory-agent/internal/domain"
)

const (
	skPendingPrefix = "PENDING#"
	pendingTTL      = 24 * time.Hour

	// upsertAttempts bounds the optimistic-write retry loop. The keyed
	// mutex already serializes in-process callers; the version condition
	// covers concurrent Lambda containers.
	upsertAttempts = 3
)

// PendingStore keeps the single-slot partial transaction state per
// (correspondent, kind).
type PendingStore struct {
	api       dynamodbAPI
	tableName string
	locks     *keyLock
}

// NewPendingStore creates a PendingStore over the given table.
func NewPendingStore(api dynamodbAPI, tableName string) (*PendingStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &PendingStore{api: api, tableName: tableName, locks: newKeyLock()}, nil
}

func userPK(correspondent string) string {
	return "USER#" + correspondent
}

func pendingSK(kind domain.OperationKind) string {
	return skPendingPrefix + string(kind)
}

func pendingLockKey(correspondent string, kind domain.OperationKind) string {
	return correspondent + "|" + string(kind)
}

// pendingData is the JSON document persisted in the "data" attribute,
// mirroring the opaque field bag plus the sale line-item list.
type pendingData struct {
	Fields map[string]string `json:"fields"`
	Items  []domain.LineItem `json:"items,omitempty"`
}

// Get returns the pending operation for (correspondent, kind), or nil
// when none exists.
func (s *PendingStore) Get(ctx context.Context, correspondent string, kind domain.OperationKind) (*domain.PendingOperation, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": strVal(userPK(correspondent)),
			"SK": strVal(pendingSK(kind)),
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: Get pending: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	op, err := itemToPending(out.Item, correspondent, kind)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// Upsert merges the supplied update into the pending record, creating
// one if absent. Only non-empty field values overwrite; line items
// append. Mutations for the same (correspondent, kind) serialize, and a
// version condition guards against writers in other processes.
func (s *PendingStore) Upsert(ctx context.Context, correspondent string, kind domain.OperationKind, update domain.FieldUpdate) (domain.PendingOperation, error) {
	lock := s.locks.Lock(pendingLockKey(correspondent, kind))
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		existing, err := s.Get(ctx, correspondent, kind)
		if err != nil {
			return domain.PendingOperation{}, err
		}

		op := domain.PendingOperation{
			Correspondent: correspondent,
			Kind:          kind,
			Fields:        map[string]string{},
		}
		if existing != nil {
			op = *existing
		}
		if op.Fields == nil {
			op.Fields = map[string]string{}
		}
		for name, value := range update.Fields {
			if strings.TrimSpace(value) == "" {
				continue
			}
			op.Fields[name] = value
		}
		op.Items = mergeItems(op.Items, update.Items)

		if err := s.put(ctx, op, existing == nil); err != nil {
			var checkFailed *types.ConditionalCheckFailedException
			if errors.As(err, &checkFailed) {
				lastErr = err
				continue // lost a cross-process race, re-read and re-merge
			}
			return domain.PendingOperation{}, err
		}
		op.Version++
		return op, nil
	}
	return domain.PendingOperation{}, fmt.Errorf("repository: Upsert pending: retries exhausted: %w", lastErr)
}

// Delete removes the pending operation, if any.
func (s *PendingStore) Delete(ctx context.Context, correspondent string, kind domain.OperationKind) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": strVal(userPK(correspondent)),
			"SK": strVal(pendingSK(kind)),
		},
	})
	if err != nil {
		return fmt.Errorf("repository: Delete pending: %w", err)
	}
	return nil
}

func (s *PendingStore) put(ctx context.Context, op domain.PendingOperation, isNew bool) error {
	data, err := json.Marshal(pendingData{Fields: op.Fields, Items: op.Items})
	if err != nil {
		return fmt.Errorf("repository: marshal pending data: %w", err)
	}

	in := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":      strVal(userPK(op.Correspondent)),
			"SK":      strVal(pendingSK(op.Kind)),
			"kind":    strVal(string(op.Kind)),
			"data":    strVal(string(data)),
			"version": intVal(op.Version + 1),
			"ttl":     int64Val(time.Now().Add(pendingTTL).Unix()),
		},
	}
	if isNew {
		in.ConditionExpression = aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)")
	} else {
		in.ConditionExpression = aws.String("version = :v")
		in.ExpressionAttributeValues = map[string]types.AttributeValue{":v": intVal(op.Version)}
	}

	if _, err := s.api.PutItem(ctx, in); err != nil {
		return fmt.Errorf("repository: put pending: %w", err)
	}
	return nil
}

// mergeItems folds incoming line items into the stored list. An
// incoming entry whose name matches a stored entry that is still
// missing quantity or price completes that entry in place; everything
// else appends. Supplied values never get overwritten by nil.
func mergeItems(stored, incoming []domain.LineItem) []domain.LineItem {
	for _, in := range incoming {
		merged := false
		for i := range stored {
			if !strings.EqualFold(stored[i].Name, in.Name) {
				continue
			}
			if stored[i].Quantity != nil && stored[i].UnitPrice != nil {
				continue
			}
			if stored[i].Quantity == nil && in.Quantity != nil {
				stored[i].Quantity = in.Quantity
			}
			if stored[i].UnitPrice == nil && in.UnitPrice != nil {
				stored[i].UnitPrice = in.UnitPrice
			}
			merged = true
			break
		}
		if !merged {
			stored = append(stored, in)
		}
	}
	return stored
}

func itemToPending(item map[string]types.AttributeValue, correspondent string, kind domain.OperationKind) (domain.PendingOperation, error) {
	raw, err := strAttr(item, "data")
	if err != nil {
		return domain.PendingOperation{}, err
	}
	var data pendingData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return domain.PendingOperation{}, fmt.Errorf("repository: decode pending data: %w", err)
	}
	version, err := intAttr(item, "version")
	if err != nil {
		return domain.PendingOperation{}, err
	}
	if data.Fields == nil {
		data.Fields = map[string]string{}
	}
	return domain.PendingOperation{
		Correspondent: correspondent,
		Kind:          kind,
		Fields:        data.Fields,
		Items:         data.Items,
		Version:       version,
	}, nil
}
