// Package sqlitestore provides the durable session tier. Values are kept in
// a single-file SQLite database and sealed at rest, so credentials picked up
// from disk cannot be read without the seal key.
package sqlitestore

import (
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/empowerhr/empower-client/internal/errors"
	"github.com/empowerhr/empower-client/session"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_values (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`

// defaultSealContext keys the derived seal key when no passphrase is
// configured. The values are still machine-local but not portable secrets.
const defaultSealContext = "empower-client/session"

// SQLiteStore is a durable implementation of session.Backend.
type SQLiteStore struct {
	db   *sql.DB
	aead cipher.AEAD
}

var _ session.Backend = (*SQLiteStore)(nil)

// Open creates or opens the session database at path. sealKey is the
// passphrase protecting stored values; when empty a default key derived from
// the database path is used.
func Open(path, sealKey string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrapf(err, "sqlitestore.Open mkdir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlitestore.Open sql.Open")
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "sqlitestore.Open schema")
	}

	if sealKey == "" {
		sealKey = defaultSealContext + ":" + path
	}
	derived := blake2b.Sum256([]byte(sealKey))

	aead, err := chacha20poly1305.NewX(derived[:])
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "sqlitestore.Open aead")
	}

	return &SQLiteStore{db: db, aead: aead}, nil
}

// Set seals and stores a value under key.
func (s *SQLiteStore) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	sealed, err := s.seal([]byte(value))
	if err != nil {
		return errors.Wrapf(err, "sqlitestore.Set seal")
	}

	query := `
		INSERT INTO session_values (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.Exec(query, key, sealed, now); err != nil {
		return errors.Wrapf(err, "sqlitestore.Set exec")
	}
	return nil
}

// Get retrieves and opens a sealed value.
func (s *SQLiteStore) Get(key string) (string, error) {
	var sealed []byte
	err := s.db.QueryRow(`SELECT value FROM session_values WHERE key = ?`, key).Scan(&sealed)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", errors.ErrNotFound
		}
		return "", errors.Wrapf(err, "sqlitestore.Get query")
	}

	value, err := s.open(sealed)
	if err != nil {
		// A value that no longer opens (key rotation, corruption) is
		// indistinguishable from an absent one to callers.
		return "", errors.Wrapf(errors.ErrSealedValue, "sqlitestore.Get key %q: %v", key, err)
	}
	return string(value), nil
}

// Delete removes a key. Removing an absent key is a no-op.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM session_values WHERE key = ?`, key); err != nil {
		return errors.Wrapf(err, "sqlitestore.Delete exec")
	}
	return nil
}

// Clear drops every stored value.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM session_values`); err != nil {
		return errors.Wrapf(err, "sqlitestore.Clear exec")
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// seal encrypts plaintext with a random nonce prepended to the ciphertext.
func (s *SQLiteStore) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *SQLiteStore) open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, fmt.Errorf("sealed value too short")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	return s.aead.Open(nil, nonce, ciphertext, nil)
}
