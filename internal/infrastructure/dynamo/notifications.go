package dynamo

import (
	"context"
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

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
	counters  *Counters
	now       func() time.Time
}

func NewNotificationRepo(client *dynamodb.Client, tableName string, counters *Counters) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName, counters: counters, now: time.Now}
}

func (r *NotificationRepo) Create(ctx context.Context, n domain.NewNotification) (*domain.Notification, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	id, err := r.counters.NextID(ctx, counterNotifications)
	if err != nil {
		return nil, err
	}
	created := n.Build(id, r.now())
	item, err := attributevalue.MarshalMap(created)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("put notification: %w", err)
	}
	return created, nil
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID int64) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       intKey(fieldNotificationID, notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification %d: %w", notificationID, domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns one page of userID's notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, userID int64, offset, limit int) ([]domain.Notification, error) {
	all, err := r.forUser(ctx, userID, "", nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].NotificationID > all[j].NotificationID
	})
	if offset >= len(all) {
		return []domain.Notification{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// MarkRead flags a notification as read and returns the updated row.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID int64) (*domain.Notification, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldIsRead: true})
	if err != nil {
		return nil, err
	}
	ue.Names["#id"] = fieldNotificationID
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       intKey(fieldNotificationID, notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, fmt.Errorf("notification %d: %w", notificationID, domain.ErrNotFound)
		}
		return nil, err
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Attributes, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead flags every unread notification of userID and returns how
// many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	unread, err := r.forUser(ctx, userID, "#r = :unread", map[string]types.AttributeValue{
		":unread": &types.AttributeValueMemberBOOL{Value: false},
	})
	if err != nil {
		return 0, err
	}
	ids := lo.Map(unread, func(n domain.Notification, _ int) int64 { return n.NotificationID })
	return flagRead(ctx, r.client, r.tableName, fieldNotificationID, ids)
}

func (r *NotificationRepo) forUser(ctx context.Context, userID int64, filter string, values map[string]types.AttributeValue) ([]domain.Notification, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexUserNotifications),
		KeyConditionExpression:    aws.String("#uid = :uid"),
		ScanIndexForward:          aws.Bool(false),
		ExpressionAttributeNames:  map[string]string{"#uid": fieldUserID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":uid": intValue(userID)},
	}
	if filter != "" {
		in.FilterExpression = aws.String(filter)
		in.ExpressionAttributeNames["#r"] = fieldIsRead
		for k, v := range values {
			in.ExpressionAttributeValues[k] = v
		}
	}

	var out []domain.Notification
	p := dynamodb.NewQueryPaginator(r.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query notifications: %w", err)
		}
		var batch []domain.Notification
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}
