package repository

import (
	"context"
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
	skTurnPrefix    = "MSG#"
	conversationTTL = 30 * 24 * time.Hour
)

// ConversationLog appends the inbound/outbound exchange of each handled
// message for auditing. It is write-only from the pipeline's point of
// view; nothing in routing reads it back.
type ConversationLog struct {
	api       dynamodbAPI
	tableName string
}

// NewConversationLog creates a ConversationLog over the given table.
func NewConversationLog(api dynamodbAPI, tableName string) (*ConversationLog, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &ConversationLog{api: api, tableName: tableName}, nil
}

func convPK(correspondent string) string {
	return "CONV#" + correspondent
}

func turnSK(ts time.Time) string {
	return skTurnPrefix + ts.UTC().Format(time.RFC3339Nano)
}

// NewTurn constructs a Turn keyed by correspondent and current time.
func NewTurn(correspondent, inbound, reply string) domain.Turn {
	return domain.Turn{
		PK:            convPK(correspondent),
		SK:            turnSK(time.Now()),
		Correspondent: correspondent,
		Inbound:       inbound,
		Reply:         reply,
		TTL:           time.Now().Add(conversationTTL).Unix(),
	}
}

// AppendTurn persists one inbound/reply exchange.
func (l *ConversationLog) AppendTurn(ctx context.Context, correspondent, inbound, reply string) error {
	if strings.TrimSpace(correspondent) == "" {
		return errors.New("repository: AppendTurn: correspondent is required")
	}
	turn := NewTurn(correspondent, inbound, reply)
	_, err := l.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"PK":            strVal(turn.PK),
			"SK":            strVal(turn.SK),
			"correspondent": strVal(turn.Correspondent),
			"inbound":       strVal(turn.Inbound),
			"reply":         strVal(turn.Reply),
			"ttl":           int64Val(turn.TTL),
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: AppendTurn: %w", err)
	}
	return nil
}
