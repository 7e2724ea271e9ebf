package awsconf

import (
	"context"
	"testing"

	"github.com/market-realtime/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_StaticCredentials(t *testing.T) {
	awsCfg, err := Load(context.Background(), &config.Config{
		AWSRegion:      "eu-west-1",
		AWSAccessKeyID: "test",
		AWSSecretKey:   "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}
