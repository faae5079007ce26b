package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	logger := &testLogger{}

	c, err := NewClient("http://localhost",
		WithHTTPClient(hc),
		WithLogger(logger),
		WithRetryMax(7),
		WithRetryWait(time.Second, 2*time.Second),
		WithUserAgent("ua/1"),
	)
	require.NoError(t, err)

	assert.Same(t, hc, c.httpClient)
	assert.Same(t, logger, c.logger)
	assert.Equal(t, 7, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 2*time.Second, c.retryWaitMax)
	assert.Equal(t, "ua/1", c.userAgent)
}

func TestOptions_InvalidValuesIgnored(t *testing.T) {
	c, err := NewClient("http://localhost",
		WithHTTPClient(nil),
		WithLogger(nil),
		WithRetryMax(-1),
		WithRetryWait(0, time.Second),
		WithUserAgent(""),
		WithTimeout(0),
	)
	require.NoError(t, err)

	assert.NotNil(t, c.httpClient)
	assert.NotNil(t, c.logger)
	assert.Equal(t, 3, c.retryMax)
	assert.Equal(t, 500*time.Millisecond, c.retryWaitMin)
	assert.Contains(t, c.userAgent, "molscout-go-sdk/")
	assert.Equal(t, 60*time.Second, c.httpClient.Timeout)
}

func TestWithRetryWait_MaxBelowMinKeepsDefaultMax(t *testing.T) {
	c, err := NewClient("http://localhost", WithRetryWait(2*time.Second, time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, c.retryWaitMin)
	assert.Equal(t, 5*time.Second, c.retryWaitMax)
}

func TestWithTimeout(t *testing.T) {
	c, err := NewClient("http://localhost", WithTimeout(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
}
