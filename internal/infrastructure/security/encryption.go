// Package security provides encryption and input-hardening services
// shared by the HTTP surface and the feed credential store.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"
)

// EncryptionService provides AES-256-GCM encryption at rest, keyed off a
// single master key derived with Argon2id.
type EncryptionService struct {
	logger        *zap.Logger
	masterKey     []byte
	keyDerivation KeyDerivationMethod
}

// KeyDerivationMethod represents different key derivation methods.
type KeyDerivationMethod int

const (
	KeyDerivationArgon2 KeyDerivationMethod = iota
	KeyDerivationScrypt
)

// EncryptionAlgorithm represents supported encryption algorithms.
type EncryptionAlgorithm int

const (
	AlgorithmAES256GCM EncryptionAlgorithm = iota
)

// NewEncryptionService derives a master key from masterKey using Argon2id
// and a fixed, installation-wide salt.
func NewEncryptionService(logger *zap.Logger, masterKey string) *EncryptionService {
	salt := []byte("aetim-credential-store-v1")
	derivedKey := argon2.IDKey([]byte(masterKey), salt, 1, 64*1024, 4, 32)

	return &EncryptionService{
		logger:        logger,
		masterKey:     derivedKey,
		keyDerivation: KeyDerivationArgon2,
	}
}

// EncryptedData represents encrypted data with metadata.
type EncryptedData struct {
	Data      []byte              `json:"data"`
	Nonce     []byte              `json:"nonce"`
	Algorithm EncryptionAlgorithm `json:"algorithm"`
	KeyID     string              `json:"key_id"`
}

// EncryptString encrypts a string using AES-256-GCM.
func (e *EncryptionService) EncryptString(plaintext string) (*EncryptedData, error) {
	return e.EncryptBytes([]byte(plaintext))
}

// EncryptBytes encrypts byte data using AES-256-GCM.
func (e *EncryptionService) EncryptBytes(plaintext []byte) (*EncryptedData, error) {
	block, err := aes.NewCipher(e.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	return &EncryptedData{
		Data:      ciphertext,
		Nonce:     nonce,
		Algorithm: AlgorithmAES256GCM,
		KeyID:     "master-v1",
	}, nil
}

// DecryptString decrypts encrypted data to string.
func (e *EncryptionService) DecryptString(encrypted *EncryptedData) (string, error) {
	bytes, err := e.DecryptBytes(encrypted)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// DecryptBytes decrypts encrypted data to bytes.
func (e *EncryptionService) DecryptBytes(encrypted *EncryptedData) ([]byte, error) {
	if encrypted.Algorithm != AlgorithmAES256GCM {
		return nil, fmt.Errorf("unsupported algorithm: %d", encrypted.Algorithm)
	}

	block, err := aes.NewCipher(e.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, encrypted.Nonce, encrypted.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// EncryptStringToBase64 encrypts and encodes nonce+ciphertext to base64,
// the form persisted in a feed's credential blob column.
func (e *EncryptionService) EncryptStringToBase64(plaintext string) (string, error) {
	encrypted, err := e.EncryptString(plaintext)
	if err != nil {
		return "", err
	}

	combined := append(encrypted.Nonce, encrypted.Data...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// DecryptStringFromBase64 decrypts from base64 encoded nonce+ciphertext.
func (e *EncryptionService) DecryptStringFromBase64(encoded string) (string, error) {
	combined, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	if len(combined) < 12 {
		return "", fmt.Errorf("invalid encrypted data length")
	}

	nonce := combined[:12]
	ciphertext := combined[12:]

	encrypted := &EncryptedData{
		Data:      ciphertext,
		Nonce:     nonce,
		Algorithm: AlgorithmAES256GCM,
		KeyID:     "master-v1",
	}

	return e.DecryptString(encrypted)
}

// DeriveKey derives a key from password using the configured method.
func (e *EncryptionService) DeriveKey(password, salt []byte) ([]byte, error) {
	switch e.keyDerivation {
	case KeyDerivationArgon2:
		return argon2.IDKey(password, salt, 1, 64*1024, 4, 32), nil
	case KeyDerivationScrypt:
		return scrypt.Key(password, salt, 32768, 8, 1, 32)
	default:
		return nil, fmt.Errorf("unsupported key derivation method")
	}
}

// CredentialBlobCipher adapts EncryptionService to outbound.EncryptionService's
// raw byte-slice contract, used by the collection pipeline to decrypt a
// feed's stored CredentialBlob before handing it to the feed driver.
type CredentialBlobCipher struct {
	encryption *EncryptionService
}

// NewCredentialBlobCipher creates the byte-oriented adapter.
func NewCredentialBlobCipher(encryption *EncryptionService) *CredentialBlobCipher {
	return &CredentialBlobCipher{encryption: encryption}
}

// Encrypt implements outbound.EncryptionService.
func (c *CredentialBlobCipher) Encrypt(plaintext []byte) ([]byte, error) {
	encrypted, err := c.encryption.EncryptBytes(plaintext)
	if err != nil {
		return nil, err
	}
	return append(encrypted.Nonce, encrypted.Data...), nil
}

// Decrypt implements outbound.EncryptionService.
func (c *CredentialBlobCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 12 {
		return nil, fmt.Errorf("invalid encrypted data length")
	}
	return c.encryption.DecryptBytes(&EncryptedData{
		Nonce:     ciphertext[:12],
		Data:      ciphertext[12:],
		Algorithm: AlgorithmAES256GCM,
	})
}

// CredentialEncryption encrypts and decrypts the opaque credential blob a
// feed carries for its collector (API keys, bearer tokens, basic-auth
// pairs) before it crosses the persistence boundary.
type CredentialEncryption struct {
	encryption *EncryptionService
	logger     *zap.Logger
}

// NewCredentialEncryption creates a feed-credential encryption helper.
func NewCredentialEncryption(encryption *EncryptionService, logger *zap.Logger) *CredentialEncryption {
	return &CredentialEncryption{encryption: encryption, logger: logger}
}

// EncryptCredential encrypts a feed's raw credential material for storage.
func (c *CredentialEncryption) EncryptCredential(feedName, value string) (string, error) {
	if value == "" {
		return "", nil
	}

	encoded, err := c.encryption.EncryptStringToBase64(value)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credential for feed %s: %w", feedName, err)
	}
	return encoded, nil
}

// DecryptCredential decrypts a feed's stored credential blob.
func (c *CredentialEncryption) DecryptCredential(feedName, encryptedValue string) (string, error) {
	if encryptedValue == "" {
		return "", nil
	}

	decrypted, err := c.encryption.DecryptStringFromBase64(encryptedValue)
	if err != nil {
		c.logger.Error("failed to decrypt feed credential",
			zap.String("feed", feedName),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to decrypt credential for feed %s: %w", feedName, err)
	}

	return decrypted, nil
}

// KeyRotationService handles encryption key rotation for operators that
// need to retire a compromised master key without re-keying every row
// in a single migration.
type KeyRotationService struct {
	logger         *zap.Logger
	currentKeyID   string
	keys           map[string][]byte
	rotationPeriod time.Duration
}

// NewKeyRotationService creates a new key rotation service.
func NewKeyRotationService(logger *zap.Logger) *KeyRotationService {
	return &KeyRotationService{
		logger:         logger,
		keys:           make(map[string][]byte),
		rotationPeriod: 90 * 24 * time.Hour,
	}
}

// AddKey adds a new encryption key.
func (k *KeyRotationService) AddKey(keyID string, key []byte) {
	k.keys[keyID] = key
	if k.currentKeyID == "" {
		k.currentKeyID = keyID
	}
}

// RotateKey generates a new key and sets it as current.
func (k *KeyRotationService) RotateKey() (string, error) {
	newKey := make([]byte, 32)
	if _, err := rand.Read(newKey); err != nil {
		return "", fmt.Errorf("failed to generate new key: %w", err)
	}

	keyID := fmt.Sprintf("key-%d", time.Now().Unix())
	k.keys[keyID] = newKey
	k.currentKeyID = keyID

	k.logger.Info("encryption key rotated", zap.String("new_key_id", keyID))

	return keyID, nil
}

// GetKey retrieves a key by ID.
func (k *KeyRotationService) GetKey(keyID string) ([]byte, error) {
	key, exists := k.keys[keyID]
	if !exists {
		return nil, fmt.Errorf("key not found: %s", keyID)
	}
	return key, nil
}

// PasswordHashingService provides secure password hashing for any local
// operator accounts that sit outside the OIDC exchange.
type PasswordHashingService struct {
	logger *zap.Logger
}

// NewPasswordHashingService creates a password hashing service.
func NewPasswordHashingService(logger *zap.Logger) *PasswordHashingService {
	return &PasswordHashingService{logger: logger}
}

// HashPassword hashes a password using Argon2id with a random salt.
func (p *PasswordHashingService) HashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	encoded := base64.StdEncoding.EncodeToString(append(salt, hash...))

	return encoded, nil
}

// VerifyPassword verifies a password against its hash.
func (p *PasswordHashingService) VerifyPassword(password, hashedPassword string) (bool, error) {
	decoded, err := base64.StdEncoding.DecodeString(hashedPassword)
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	if len(decoded) != 48 {
		return false, fmt.Errorf("invalid hash format")
	}

	salt := decoded[:16]
	hash := decoded[16:]

	inputHash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	return subtle.ConstantTimeCompare(hash, inputHash) == 1, nil
}

// SecureRandom generates cryptographically secure random bytes.
func SecureRandom(size int) ([]byte, error) {
	bytes := make([]byte, size)
	if _, err := rand.Read(bytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return bytes, nil
}

// GenerateSecureToken generates a secure random token.
func GenerateSecureToken(length int) (string, error) {
	bytes, err := SecureRandom(length)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// HashSHA256 creates a SHA-256 hash of input, used to fingerprint IOC
// values for dedup keys without storing the raw indicator twice.
func HashSHA256(input []byte) []byte {
	hash := sha256.Sum256(input)
	return hash[:]
}

// SecureCompare performs a constant-time comparison.
func SecureCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
