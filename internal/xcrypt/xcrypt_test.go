package xcrypt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() *[32]byte {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	return &key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey()
	plaintexts := [][]byte{
		[]byte(`{"message_type":1,"router_ip":"10.0.0.1"}`),
		[]byte(""),
		[]byte("a single byte: x"),
	}

	for _, plaintext := range plaintexts {
		ciphertext, err := Encrypt(plaintext, key)
		require.NoError(t, err)

		decrypted, err := Decrypt(ciphertext, key)
		require.NoError(t, err)
		require.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptProducesDistinctCiphertextsForSamePlaintext(t *testing.T) {
	key := testKey()
	plaintext := []byte("repeat me")

	a, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	b, err := Encrypt(plaintext, key)
	require.NoError(t, err)

	require.NotEqual(t, a, b, "nonce reuse would be a correctness bug")
}

func TestDecryptFailsOnWrongKey(t *testing.T) {
	key := testKey()
	var other [32]byte
	ciphertext, err := Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, &other)
	require.Error(t, err)
}

func TestDecryptFailsOnTruncatedInput(t *testing.T) {
	key := testKey()
	_, err := Decrypt([]byte("short"), key)
	require.Error(t, err)
}
