package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"shipsense/internal/logging"
)

// Archive persists finished turns to SQLite so conversations survive
// restarts. It is append-only; the in-memory Store stays the source of
// truth for live sessions.
type Archive struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// OpenArchive initializes the SQLite database at the given path.
func OpenArchive(path string) (*Archive, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &Archive{db: db, dbPath: path}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Session("turn archive opened at %s", path)
	return a, nil
}

func (a *Archive) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		utterance TEXT,
		intent TEXT,
		response TEXT,
		clarification TEXT,
		error TEXT,
		turn_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE(session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create turns table: %w", err)
	}
	return nil
}

// SaveTurn appends one committed turn. The full turn is stored as JSON
// alongside the queryable columns.
func (a *Archive) SaveTurn(turn Turn) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	blob, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}

	_, err = a.db.Exec(`
		INSERT INTO turns (id, session_id, seq, utterance, intent, response, clarification, error, turn_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.Seq, turn.Utterance, turn.Intent,
		turn.Response, turn.Clarification, turn.Err, string(blob), turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}
	return nil
}

// Turns loads all archived turns for a session in sequence order.
func (a *Archive) Turns(sessionID string) ([]Turn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.db.Query(
		`SELECT turn_json FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var turn Turn
		if err := json.Unmarshal([]byte(blob), &turn); err != nil {
			return nil, fmt.Errorf("failed to decode turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// SessionIDs lists the sessions present in the archive.
func (a *Archive) SessionIDs() ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.db.Query(`SELECT DISTINCT session_id FROM turns ORDER BY session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}
