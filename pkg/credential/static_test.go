package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticFetcher(t *testing.T) {
	src := NewCredentials("ak", "sk", "token", time.Time{})
	f := NewStaticFetcher(src)
	src.AccessKeyID = "changed"

	c, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ak", c.AccessKeyID)
	assert.Equal(t, staticFetcherName, c.ProviderName)

	c.AccessKeySecret = "changed"
	c, err = f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk", c.AccessKeySecret)
}

func TestStaticFetcher_Nil(t *testing.T) {
	f := NewStaticFetcher(nil)
	assert.Equal(t, staticFetcherName, f.Name())

	c, err := f.Fetch(context.Background())
	assert.Nil(t, c)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FetchErrorMissingField, fe.Kind)

	p, err := NewCachedProvider(f)
	require.NoError(t, err)
	assert.Nil(t, p.GetCredentials(context.Background()))
}
