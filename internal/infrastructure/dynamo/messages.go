package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/market-realtime/internal/domain"
	"github.com/samber/lo"
)

// MessageRepo provides typed DynamoDB operations for the messages table.
type MessageRepo struct {
	client    *dynamodb.Client
	tableName string
	counters  *Counters
	now       func() time.Time
}

func NewMessageRepo(client *dynamodb.Client, tableName string, counters *Counters) *MessageRepo {
	return &MessageRepo{client: client, tableName: tableName, counters: counters, now: time.Now}
}

// Create assigns the next message id and stores the message. A reply is
// written in the same transaction as a check that the referenced message
// exists in the same conversation.
func (r *MessageRepo) Create(ctx context.Context, n domain.NewMessage) (*domain.Message, error) {
	n = n.Normalize()
	if err := n.Validate(); err != nil {
		return nil, err
	}
	id, err := r.counters.NextID(ctx, counterMessages)
	if err != nil {
		return nil, err
	}
	m := n.Build(id, r.now())

	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	put := &types.Put{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": fieldMessageID},
	}

	if m.ReplyToID == nil {
		_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                put.TableName,
			Item:                     put.Item,
			ConditionExpression:      put.ConditionExpression,
			ExpressionAttributeNames: put.ExpressionAttributeNames,
		})
		if err != nil {
			return nil, fmt.Errorf("put message: %w", err)
		}
		return m, nil
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{ConditionCheck: &types.ConditionCheck{
				TableName:                aws.String(r.tableName),
				Key:                      intKey(fieldMessageID, *m.ReplyToID),
				ConditionExpression:      aws.String("#ck = :ck"),
				ExpressionAttributeNames: map[string]string{"#ck": fieldConversationKey},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":ck": &types.AttributeValueMemberS{Value: m.ConversationKey},
				},
			}},
			{Put: put},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && len(tce.CancellationReasons) > 0 &&
			aws.ToString(tce.CancellationReasons[0].Code) == "ConditionalCheckFailed" {
			return nil, fmt.Errorf("reply_to_id %d is not a message of this conversation: %w", *m.ReplyToID, domain.ErrBadRequest)
		}
		return nil, fmt.Errorf("put reply: %w", err)
	}
	return m, nil
}

// History returns every message exchanged between the two users, oldest first.
func (r *MessageRepo) History(ctx context.Context, userA, userB int64) ([]domain.Message, error) {
	msgs, err := r.query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(indexConversation),
		KeyConditionExpression:   aws.String("#ck = :ck"),
		ExpressionAttributeNames: map[string]string{"#ck": fieldConversationKey},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ck": &types.AttributeValueMemberS{Value: domain.ConversationKey(userA, userB)},
		},
	})
	if err != nil {
		return nil, err
	}
	// Stored timestamps are RFC3339Nano strings, which do not sort lexically
	// when fractional digits differ, so order on the decoded values.
	sort.SliceStable(msgs, func(i, j int) bool { return olderFirst(msgs[i], msgs[j]) })
	return msgs, nil
}

// Conversations returns the distinct counterpart ids of userID, ascending.
func (r *MessageRepo) Conversations(ctx context.Context, userID int64) ([]int64, error) {
	msgs, err := r.involving(ctx, userID, fieldMessageID+", "+fieldSenderID+", "+fieldReceiverID)
	if err != nil {
		return nil, err
	}
	peers := lo.Uniq(lo.Map(msgs, func(m domain.Message, _ int) int64 { return m.Counterpart(userID) }))
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers, nil
}

// ListForUser returns every message userID sent or received, newest first.
func (r *MessageRepo) ListForUser(ctx context.Context, userID int64) ([]domain.Message, error) {
	msgs, err := r.involving(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool { return olderFirst(msgs[j], msgs[i]) })
	return msgs, nil
}

// MarkRead flags unread messages from senderID to readerID as read and
// returns how many changed.
func (r *MessageRepo) MarkRead(ctx context.Context, senderID, readerID int64) (int, error) {
	msgs, err := r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexReceiver),
		KeyConditionExpression: aws.String("#recv = :reader"),
		FilterExpression:       aws.String("#send = :sender AND #r = :unread"),
		ProjectionExpression:   aws.String("#id"),
		ExpressionAttributeNames: map[string]string{
			"#recv": fieldReceiverID,
			"#send": fieldSenderID,
			"#r":    fieldIsRead,
			"#id":   fieldMessageID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":reader": intValue(readerID),
			":sender": intValue(senderID),
			":unread": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		return 0, err
	}
	ids := lo.Map(msgs, func(m domain.Message, _ int) int64 { return m.MessageID })
	return flagRead(ctx, r.client, r.tableName, fieldMessageID, ids)
}

// involving unions the sender and receiver indexes for userID. projection
// limits the returned attributes when non-empty.
func (r *MessageRepo) involving(ctx context.Context, userID int64, projection string) ([]domain.Message, error) {
	var out []domain.Message
	for _, idx := range []struct{ index, field string }{
		{indexSender, fieldSenderID},
		{indexReceiver, fieldReceiverID},
	} {
		in := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(idx.index),
			KeyConditionExpression:    aws.String(idx.field + " = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":uid": intValue(userID)},
		}
		if projection != "" {
			in.ProjectionExpression = aws.String(projection)
		}
		msgs, err := r.query(ctx, in)
		if err != nil {
			return nil, err
		}
		out = append(out, msgs...)
	}
	// A message to oneself shows up on both indexes.
	return lo.UniqBy(out, func(m domain.Message) int64 { return m.MessageID }), nil
}

func (r *MessageRepo) query(ctx context.Context, in *dynamodb.QueryInput) ([]domain.Message, error) {
	var msgs []domain.Message
	p := dynamodb.NewQueryPaginator(r.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query messages: %w", err)
		}
		var batch []domain.Message
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		msgs = append(msgs, batch...)
	}
	return msgs, nil
}

func olderFirst(a, b domain.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.MessageID < b.MessageID
}
