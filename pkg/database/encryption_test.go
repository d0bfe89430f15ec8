package database

import (
	"encoding/json"
	"testing"
	"time"

	"modbusgw/pkg/config"
	"modbusgw/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "1234567890123456789012345678901212345678901234567890123456789012"

func TestEncryptDecryptInvocation(t *testing.T) {
	entry := models.Invocation{
		RequestID:  "req-1",
		Payload:    `{"ip":"192.168.1.50","commands":[]}`,
		Status:     models.StatusOK,
		Record:     json.RawMessage(`{"status":"ok"}`),
		DurationMs: 42,
		CreatedAt:  time.Now().UTC(),
	}

	encrypted, err := EncryptStruct(entry, testKey)
	require.NoError(t, err)
	assert.NotEqual(t, entry.Payload, encrypted.Payload)
	assert.Equal(t, entry.RequestID, encrypted.RequestID)
	assert.Equal(t, entry.Status, encrypted.Status)

	decrypted, err := DecryptStruct(encrypted, testKey)
	require.NoError(t, err)
	assert.Equal(t, entry.Payload, decrypted.Payload)
}

func TestEncryptStruct_InvalidKey(t *testing.T) {
	_, err := EncryptStruct(models.Invocation{Payload: "{}"}, "short")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBUser: "gw", DBPassword: "pw", DBName: "history", DBPort: "5433"}
	assert.Equal(t, "host=db user=gw password=pw dbname=history port=5433 sslmode=disable TimeZone=UTC", DSN(cfg))
}
