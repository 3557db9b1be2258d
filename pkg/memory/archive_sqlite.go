package memory

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Archive keeps a full transcript of every exchange in sqlite, beyond
// the short ring the engine holds per user. It is strictly supplemental:
// user-facing operations never depend on it.
type Archive struct {
	db *sql.DB
}

func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	// Single connection avoids SQLITE_BUSY with the modernc driver.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS transcript (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		ts INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_user_ts ON transcript(user_id, ts);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Append(userID, role, text string, ts int64) error {
	_, err := a.db.Exec(
		`INSERT INTO transcript (id, user_id, role, text, ts) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, role, text, ts,
	)
	if err != nil {
		return fmt.Errorf("appending transcript row: %w", err)
	}
	return nil
}

// RecentByUser returns up to limit turns for a user, oldest first.
func (a *Archive) RecentByUser(userID string, limit int) ([]ConversationTurn, error) {
	rows, err := a.db.Query(
		`SELECT role, text, ts FROM transcript WHERE user_id = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}
	defer rows.Close()

	var turns []ConversationTurn
	for rows.Next() {
		var t ConversationTurn
		if err := rows.Scan(&t.Role, &t.Text, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning transcript row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transcript rows: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// CountByUser returns how many transcript rows a user has accumulated.
func (a *Archive) CountByUser(userID string) (int, error) {
	var n int
	err := a.db.QueryRow(`SELECT COUNT(*) FROM transcript WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting transcript rows: %w", err)
	}
	return n, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}
