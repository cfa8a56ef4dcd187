package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("att-1", "tasks/task-1/notes.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	attachmentID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "att-1", attachmentID)
	require.Equal(t, "tasks/task-1/notes.pdf", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("att-1", "tasks/task-1/notes.pdf")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	attachmentID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "att-1", attachmentID)
	require.Equal(t, "tasks/task-1/notes.pdf", path)
}

func TestSignedURLSignerTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("att-1", "tasks/task-1/notes.pdf")
	require.NoError(t, err)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	require.Error(t, err)
}

func TestLocalStorageAllowed(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 1024, []string{"application/pdf", "image/png"})
	require.NoError(t, err)

	require.True(t, store.Allowed("application/pdf"))
	require.True(t, store.Allowed("image/png; charset=binary"))
	require.False(t, store.Allowed("text/html"))
}

func TestLocalStorageSaveEnforcesSizeLimit(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 4, nil)
	require.NoError(t, err)

	_, err = store.Save("small.txt", []byte("ok"))
	require.NoError(t, err)

	_, err = store.Save("big.txt", []byte("too large"))
	require.Error(t, err)
}
