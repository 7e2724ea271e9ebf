package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Counter names.
const (
	counterMessages      = "messages"
	counterNotifications = "notifications"
)

// Counters hands out monotonically increasing int64 ids, one sequence per name.
type Counters struct {
	client    *dynamodb.Client
	tableName string
}

func NewCounters(client *dynamodb.Client, tableName string) *Counters {
	return &Counters{client: client, tableName: tableName}
}

// NextID atomically increments the named sequence and returns the new value.
func (c *Counters) NextID(ctx context.Context, name string) (int64, error) {
	out, err := c.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       strKey(fieldCounterName, name),
		UpdateExpression:          aws.String("ADD #seq :one"),
		ExpressionAttributeNames:  map[string]string{"#seq": fieldSeq},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": intValue(1)},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	n, ok := out.Attributes[fieldSeq].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("next %s id: counter attribute missing", name)
	}
	return strconv.ParseInt(n.Value, 10, 64)
}
