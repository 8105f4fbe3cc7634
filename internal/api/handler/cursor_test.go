package handler

import (
	"testing"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCursor_RoundTrip(t *testing.T) {
	cursor := &storage.JobCursor{
		SubmittedAt: time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC),
		JobID:       "3f9a|odd-id",
	}

	decoded, err := DecodeJobCursor(EncodeJobCursor(cursor))
	require.NoError(t, err)
	assert.True(t, cursor.SubmittedAt.Equal(decoded.SubmittedAt))
	assert.Equal(t, cursor.JobID, decoded.JobID)
}

func TestDecodeJobCursor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantNil bool
		wantErr bool
	}{
		{name: "empty", input: "", wantNil: true},
		{name: "not base64", input: "!!", wantErr: true},
		{name: "missing separator", input: "MTIzNDU=", wantErr: true},
		{name: "bad timestamp", input: "YWJjfGpvYg==", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeJobCursor(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cursor)
			}
		})
	}
}

func TestLogCursor(t *testing.T) {
	seq, err := DecodeLogCursor("")
	require.NoError(t, err)
	assert.Zero(t, seq)

	seq, err = DecodeLogCursor(EncodeLogCursor(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq)

	_, err = DecodeLogCursor("YWJj")
	assert.Error(t, err)
}
