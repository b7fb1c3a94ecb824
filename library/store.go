package library

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/nacl/secretbox"
)

// Keys of the two persisted session entries.
const (
	keyToken = "auth_token"
	keyUser  = "auth_user"
)

// SessionStore persists the token and user between runs.
// Load returns an empty token and nil user when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (token string, user *User, err error)
	Save(ctx context.Context, token string, user *User) error
	Clear(ctx context.Context) error
}

// SQLiteStore keeps the session as two rows of a key/value table.
type SQLiteStore struct {
	db  *sql.DB
	key *[32]byte // nil stores the token in clear text
}

// OpenSQLiteStore opens (or creates) the database at path and applies the schema.
func OpenSQLiteStore(path string, key *[32]byte) (*SQLiteStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLiteStore(db, key), nil
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB, key *[32]byte) *SQLiteStore {
	return &SQLiteStore{db: db, key: key}
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return tx.Commit()
}

const upsertSession = `INSERT INTO session(key,value) VALUES(?,?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value`

// Save replaces both entries in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, token string, user *User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	sealed, err := s.seal(token)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertSession, keyToken, sealed); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertSession, keyUser, string(userJSON)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return tx.Commit()
}

// Load reads both entries. A half-written session counts as no session.
func (s *SQLiteStore) Load(ctx context.Context) (string, *User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session WHERE key IN (?,?)`, keyToken, keyUser)
	if err != nil {
		return "", nil, err
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return "", nil, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return "", nil, err
	}

	sealed, userJSON := values[keyToken], values[keyUser]
	if sealed == "" || userJSON == "" {
		return "", nil, nil
	}
	token, err := s.open(sealed)
	if err != nil {
		return "", nil, err
	}
	var u User
	if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
		return "", nil, fmt.Errorf("decode stored user: %w", err)
	}
	return token, &u, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE key IN (?,?)`, keyToken, keyUser)
	return err
}

// ---------------------------------------------------------------------------
// Token sealing
// ---------------------------------------------------------------------------

const sealedPrefix = "sealed:"

// SessionKey derives the secretbox key from a passphrase. Empty means no sealing.
func SessionKey(passphrase string) *[32]byte {
	if strings.TrimSpace(passphrase) == "" {
		return nil
	}
	k := sha256.Sum256([]byte(passphrase))
	return &k
}

func (s *SQLiteStore) seal(token string) (string, error) {
	if s.key == nil {
		return token, nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("seal token: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(token), &nonce, s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

func (s *SQLiteStore) open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if s.key == nil {
		return "", errors.New("stored token is sealed but no session key is configured")
	}
	box, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(box) < 24 {
		return "", errors.New("stored token is corrupt")
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plain, ok := secretbox.Open(nil, box[24:], &nonce, s.key)
	if !ok {
		return "", errors.New("stored token cannot be opened with the configured session key")
	}
	return string(plain), nil
}

// MemoryStore is an in-process SessionStore.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	user  *User
}

func (m *MemoryStore) Load(context.Context) (string, *User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || m.user == nil {
		return "", nil, nil
	}
	u := *m.user
	return m.token, &u, nil
}

func (m *MemoryStore) Save(_ context.Context, token string, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *user
	m.token, m.user = token, &u
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.user = "", nil
	return nil
}
