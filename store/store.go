package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrAlreadyFriend means the username is already in the friend set.
	ErrAlreadyFriend = errors.New("store: already a friend")

	// ErrSelfFriend means the username is the primary user's own.
	ErrSelfFriend = errors.New("store: cannot add yourself as a friend")
)

const usernameKey = "username"

// Store persists the two pieces of local state: the primary username and
// the friend set. Friend uniqueness is enforced by the schema.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the preference database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS friends (
		username TEXT PRIMARY KEY,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PrimaryUser returns the stored username, or "" when none is set.
func (s *Store) PrimaryUser() (string, error) {
	var username string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, usernameKey).Scan(&username)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return username, nil
}

// SetPrimaryUser stores the username, replacing any previous value.
func (s *Store) SetPrimaryUser(username string) error {
	_, err := s.db.Exec(`
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, usernameKey, username)
	return err
}

// Friends returns the friend set. Insertion order is preserved for stable
// fan-out ordering but carries no meaning.
func (s *Store) Friends() ([]string, error) {
	rows, err := s.db.Query(`SELECT username FROM friends ORDER BY added_at, username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := []string{}
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, err
		}
		friends = append(friends, username)
	}
	return friends, rows.Err()
}

// AddFriend adds a username to the friend set. The primary user's own name
// and duplicates are rejected.
func (s *Store) AddFriend(username string) error {
	primary, err := s.PrimaryUser()
	if err != nil {
		return err
	}
	if username == primary {
		return ErrSelfFriend
	}

	result, err := s.db.Exec(`INSERT OR IGNORE INTO friends (username) VALUES (?)`, username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyFriend
	}
	return nil
}

// RemoveFriend deletes a username from the friend set. Removing a username
// that is not present is not an error.
func (s *Store) RemoveFriend(username string) error {
	_, err := s.db.Exec(`DELETE FROM friends WHERE username = ?`, username)
	return err
}
