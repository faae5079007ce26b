package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_Validate(t *testing.T) {
	assert.NoError(t, RequestID("550e8400-e29b-41d4-a716-446655440000").Validate())

	err := RequestID("").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")

	err = RequestID("not-a-uuid").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request id format")
}

func TestNewRequestID_Unique(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.NoError(t, a.Validate())
	assert.NotEqual(t, a, b)
}

func TestTimestamp_JSON(t *testing.T) {
	ts := Timestamp(time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2023-10-27T10:00:00Z"`, string(data))

	var back Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, time.Time(ts), time.Time(back))

	assert.Error(t, json.Unmarshal([]byte(`"invalid-date"`), &back))
}

func TestErrorDetail_JSON(t *testing.T) {
	data, err := json.Marshal(NewErrorDetail("MOL_001", "Invalid SMILES"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"MOL_001","message":"Invalid SMILES"}`, string(data))
}
