package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/market-realtime/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableDefinitions_IndexesHaveDefinedAttributes(t *testing.T) {
	defs := tableDefinitions(config.DynamoTables{
		Messages:      "m",
		Notifications: "n",
		Attachments:   "a",
		Counters:      "c",
	})
	require.Len(t, defs, 4)

	for _, d := range defs {
		defined := map[string]bool{}
		for _, a := range d.AttributeDefinitions {
			defined[aws.ToString(a.AttributeName)] = true
		}
		for _, k := range d.KeySchema {
			assert.True(t, defined[aws.ToString(k.AttributeName)], "table %s key %s", aws.ToString(d.TableName), aws.ToString(k.AttributeName))
		}
		used := map[string]bool{}
		for _, k := range d.KeySchema {
			used[aws.ToString(k.AttributeName)] = true
		}
		for _, g := range d.GlobalSecondaryIndexes {
			for _, k := range g.KeySchema {
				name := aws.ToString(k.AttributeName)
				assert.True(t, defined[name], "index %s key %s", aws.ToString(g.IndexName), name)
				used[name] = true
			}
		}
		// DynamoDB rejects attribute definitions that no key uses.
		for name := range defined {
			assert.True(t, used[name], "table %s defines unused attribute %s", aws.ToString(d.TableName), name)
		}
	}
}

func TestTableDefinitions_MessageIndexes(t *testing.T) {
	defs := tableDefinitions(config.DynamoTables{Messages: "m"})
	var names []string
	for _, g := range defs[0].GlobalSecondaryIndexes {
		names = append(names, aws.ToString(g.IndexName))
	}
	assert.ElementsMatch(t, []string{indexConversation, indexSender, indexReceiver}, names)
}
