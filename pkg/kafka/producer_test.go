package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "run-1", Value: map[string]int{"k": 10}},
		{Key: "run-1", Value: "done"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("run-1"), msgs[0].Key)

	var v map[string]int
	require.NoError(t, json.Unmarshal(msgs[0].Value, &v))
	assert.Equal(t, 10, v["k"])
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode([]Event{{Key: "x", Value: make(chan int)}})
	assert.Error(t, err)
}
