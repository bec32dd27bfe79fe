package secrets

// SecretStore provides encryption and decryption of stored key material.
type SecretStore interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// PlaintextStore is a no-op SecretStore used when no encryption key is
// configured. Key material is stored as submitted.
type PlaintextStore struct{}

func (PlaintextStore) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (PlaintextStore) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
