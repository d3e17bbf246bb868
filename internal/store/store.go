package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/tweide/chirp/internal/model/chat"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store wraps the sqlite database holding users and messages.
type Store struct {
	conn *sql.DB
}

// Open opens (and if needed initializes) the database at path.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			full_name TEXT NOT NULL,
			password TEXT NOT NULL,
			profile_pic TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender_id TEXT NOT NULL REFERENCES users(id),
			recipient_id TEXT NOT NULL REFERENCES users(id),
			text TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_pair
			ON messages(sender_id, recipient_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (s *Store) CreateUser(fullName, email, password string) (chat.User, error) {
	var exists int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&exists)
	if err != nil {
		return chat.User{}, err
	}
	if exists > 0 {
		return chat.User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return chat.User{}, err
	}

	user := chat.User{
		ID:        uuid.NewString(),
		Email:     email,
		FullName:  fullName,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.conn.Exec(
		`INSERT INTO users (id, email, full_name, password, profile_pic, created_at) VALUES (?, ?, ?, ?, '', ?)`,
		user.ID, user.Email, user.FullName, string(hash), user.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return chat.User{}, err
	}
	return user, nil
}

// Authenticate verifies email/password and returns the matching user.
func (s *Store) Authenticate(email, password string) (chat.User, error) {
	var (
		user      chat.User
		hash      string
		createdAt string
	)
	err := s.conn.QueryRow(
		`SELECT id, email, full_name, password, profile_pic, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&user.ID, &user.Email, &user.FullName, &hash, &user.ProfilePic, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return chat.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return chat.User{}, ErrInvalidCredentials
	}

	user.CreatedAt = parseTime(createdAt)
	return user, nil
}

// GetUser looks up a user by id.
func (s *Store) GetUser(id string) (chat.User, error) {
	var (
		user      chat.User
		createdAt string
	)
	err := s.conn.QueryRow(
		`SELECT id, email, full_name, profile_pic, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.Email, &user.FullName, &user.ProfilePic, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.User{}, ErrNotFound
	}
	if err != nil {
		return chat.User{}, err
	}
	user.CreatedAt = parseTime(createdAt)
	return user, nil
}

// UpdateProfilePic replaces the avatar reference and returns the updated user.
func (s *Store) UpdateProfilePic(id, profilePic string) (chat.User, error) {
	res, err := s.conn.Exec(`UPDATE users SET profile_pic = ? WHERE id = ?`, profilePic, id)
	if err != nil {
		return chat.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.User{}, ErrNotFound
	}
	return s.GetUser(id)
}

// ListContacts returns every user except selfID, newest first.
func (s *Store) ListContacts(selfID string) ([]chat.User, error) {
	rows, err := s.conn.Query(
		`SELECT id, email, full_name, profile_pic, created_at FROM users WHERE id != ? ORDER BY created_at DESC`,
		selfID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]chat.User, 0)
	for rows.Next() {
		var (
			user      chat.User
			createdAt string
		)
		if err := rows.Scan(&user.ID, &user.Email, &user.FullName, &user.ProfilePic, &createdAt); err != nil {
			return nil, err
		}
		user.CreatedAt = parseTime(createdAt)
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateMessage persists a message and assigns its id and timestamp.
func (s *Store) CreateMessage(senderID, recipientID string, req chat.SendRequest) (chat.Message, error) {
	if _, err := s.GetUser(recipientID); err != nil {
		return chat.Message{}, err
	}

	msg := chat.Message{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        req.Text,
		Image:       req.Image,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.conn.Exec(
		`INSERT INTO messages (id, sender_id, recipient_id, text, image, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SenderID, msg.RecipientID, msg.Text, msg.Image, msg.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// ListMessagesBetween returns the full history between two users, both
// directions, in insertion order. Insertion order is the server's
// receipt order, which is what clients treat as chronological.
func (s *Store) ListMessagesBetween(a, b string) ([]chat.Message, error) {
	rows, err := s.conn.Query(
		`SELECT id, sender_id, recipient_id, text, image, created_at FROM messages
		 WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		 ORDER BY rowid ASC`,
		a, b, b, a,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]chat.Message, 0)
	for rows.Next() {
		var (
			msg       chat.Message
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Text, &msg.Image, &createdAt); err != nil {
			return nil, err
		}
		msg.CreatedAt = parseTime(createdAt)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
