package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/lo"
)

// maxTransactItems is the DynamoDB limit for a single TransactWriteItems call.
const maxTransactItems = 100

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// intKey builds a DynamoDB primary key map with a single number attribute.
func intKey(name string, value int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: intValue(value),
	}
}

func intValue(v int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Keys are visited in sorted order so the output is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (updateExpr, error) {
	if len(updates) == 0 {
		return updateExpr{}, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := updateExpr{
		Expr:   "SET ",
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return updateExpr{}, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		if i > 0 {
			ue.Expr += ", "
		}
		ue.Expr += fmt.Sprintf("%s = %s", nameKey, valueKey)
	}
	return ue, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// flagRead sets is_read=true on every row of table keyed by keyName=id, but
// only where it is still false. It returns how many rows actually flipped.
// Rows go out in transactions of up to maxTransactItems; when a transaction
// is cancelled because another writer got there first, that chunk is
// replayed item by item so the rows still pending are not lost.
func flagRead(ctx context.Context, client *dynamodb.Client, table, keyName string, ids []int64) (int, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldIsRead: true})
	if err != nil {
		return 0, err
	}
	ue.Names["#r"] = fieldIsRead
	ue.Values[":unread"] = &types.AttributeValueMemberBOOL{Value: false}
	cond := aws.String("#r = :unread")

	total := 0
	for _, chunk := range lo.Chunk(ids, maxTransactItems) {
		items := lo.Map(chunk, func(id int64, _ int) types.TransactWriteItem {
			return types.TransactWriteItem{Update: &types.Update{
				TableName:                 aws.String(table),
				Key:                       intKey(keyName, id),
				UpdateExpression:          aws.String(ue.Expr),
				ConditionExpression:       cond,
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
			}}
		})
		_, err := client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
		if err == nil {
			total += len(chunk)
			continue
		}
		var tce *types.TransactionCanceledException
		if !errors.As(err, &tce) {
			return total, fmt.Errorf("mark read: %w", err)
		}
		for _, id := range chunk {
			_, err := client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:                 aws.String(table),
				Key:                       intKey(keyName, id),
				UpdateExpression:          aws.String(ue.Expr),
				ConditionExpression:       cond,
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
			})
			switch {
			case err == nil:
				total++
			case isConditionFailed(err):
			default:
				return total, fmt.Errorf("mark read %d: %w", id, err)
			}
		}
	}
	return total, nil
}
