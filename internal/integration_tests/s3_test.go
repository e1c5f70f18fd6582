package integrationtests

import (
	"bytes"
	"context"
	"hearts-echo/internal/core"
	"hearts-echo/internal/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucketName = "test-templates"

func setupTestProvider(t *testing.T, ctx context.Context) *storage.S3Provider {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MinIO integration test in short mode")
	}

	endpoint := setupMinioContainer(t, ctx)

	provider, err := storage.NewS3Provider(&storage.S3ProviderConfig{
		S3EndpointURL:     endpoint,
		S3AccessKeyID:     minioUsername,
		S3SecretAccessKey: minioPassword,
		S3Region:          minioRegion,
	})
	require.NoError(t, err)

	require.NoError(t, provider.CreateBucket(ctx, bucketName))
	return provider
}

func TestS3Provider_PutGetList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	provider := setupTestProvider(t, ctx)

	require.NoError(t, provider.CreateBucket(ctx, bucketName), "creating an existing bucket is not an error")

	content := []byte("It is {weather}.\n")
	require.NoError(t, provider.PutObject(ctx, bucketName, "templates.txt", bytes.NewReader(content)))
	require.NoError(t, provider.PutObject(ctx, bucketName, "index.md", bytes.NewReader([]byte("# Docs"))))

	data, err := provider.GetObject(ctx, bucketName, "templates.txt")
	require.NoError(t, err)
	assert.Equal(t, content, data)

	_, err = provider.GetObject(ctx, bucketName, "templates.fr.txt")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	objects, err := provider.ListObjects(ctx, bucketName, "templates.")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "templates.txt", objects[0].Name)
	assert.EqualValues(t, len(content), objects[0].Size)
}

func TestS3Provider_Registry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	provider := setupTestProvider(t, ctx)

	for key, bank := range map[string]string{
		"templates.txt":       "It is {weather}.\nI feel {mood} because it is {weather}.\n",
		"templates.zh-tw.txt": "今天天氣{weather}。\n",
	} {
		require.NoError(t, provider.PutObject(ctx, bucketName, key, bytes.NewReader([]byte(bank))))
	}

	registry := core.NewRegistry(core.NewStorageSource(provider, bucketName))
	require.NoError(t, registry.Preload(ctx, 2))

	langs, err := registry.Languages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "zh-tw"}, langs)

	vocab, err := registry.Vocabulary(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mood", "weather"}, vocab.Names())

	bank, err := registry.Bank(ctx, "zh_TW")
	require.NoError(t, err)
	assert.False(t, bank.Fallback)

	selector := core.NewSelector(vocab, nil)
	weather := "晴朗"
	res, err := selector.Select(bank.Templates, core.Request{Fields: core.FieldSet{"weather": &weather}})
	require.NoError(t, err)
	assert.Equal(t, "今天天氣晴朗。", res.Text)
	assert.Equal(t, []string{"mood"}, res.Ignore)
}
