package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Op string `json:"op"`
	ID int    `json:"id"`
}

func TestEncodeDecodeEvent(t *testing.T) {
	msgs, err := EncodeEvents(Event{Key: "7", Value: payload{Op: "add", ID: 7}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("7"), msgs[0].Key)

	got, err := DecodeJSON[payload](msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, payload{Op: "add", ID: 7}, got)
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := EncodeEvents(Event{Key: "x", Value: make(chan int)})
	assert.Error(t, err)
}

func TestDecodeJSONError(t *testing.T) {
	_, err := DecodeJSON[payload]([]byte("{"))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestPingWithoutBrokers(t *testing.T) {
	err := Ping(context.Background(), nil)
	assert.EqualError(t, err, "no kafka brokers configured")
}

func TestPingUnreachableBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := Ping(ctx, []string{"127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialing 127.0.0.1:1")
}
