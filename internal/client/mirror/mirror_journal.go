package mirror

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/openmined/ftpmirror/internal/db"
	"github.com/openmined/ftpmirror/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_records (
    id TEXT PRIMARY KEY,
    status INTEGER NOT NULL,
    remote_size INTEGER
);
`

const upsertQuery = `INSERT OR REPLACE INTO file_records (id, status, remote_size)
	VALUES (:id, :status, :remote_size)`

// dbFileRecord is the row shape of file_records.
type dbFileRecord struct {
	ID         string        `db:"id"`
	Status     int           `db:"status"`
	RemoteSize sql.NullInt64 `db:"remote_size"`
}

func toDBRecord(r *FileRecord) dbFileRecord {
	row := dbFileRecord{ID: r.ID, Status: int(r.Status)}
	if r.RemoteSize != nil {
		row.RemoteSize = sql.NullInt64{Int64: *r.RemoteSize, Valid: true}
	}
	return row
}

func (row dbFileRecord) toRecord() (*FileRecord, error) {
	status := FileStatus(row.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("record %q has unknown status %d", row.ID, row.Status)
	}
	rec := &FileRecord{ID: row.ID, Status: status}
	if row.RemoteSize.Valid {
		rec.RemoteSize = sizePtr(row.RemoteSize.Int64)
	}
	return rec, nil
}

// Journal is the SQLite backed Store.
type Journal struct {
	db     *sqlx.DB
	dbPath string
}

func NewJournal(dbPath string) *Journal {
	return &Journal{dbPath: dbPath}
}

// OpenJournal creates and opens a journal in one step.
func OpenJournal(dbPath string) (*Journal, error) {
	j := NewJournal(dbPath)
	if err := j.Open(); err != nil {
		return nil, err
	}
	return j, nil
}

// Open opens the database and creates the schema if needed. Opening an
// existing state file is a no-op for the schema.
func (j *Journal) Open() error {
	if j.db != nil {
		return fmt.Errorf("journal already open")
	}

	opts := []db.SqliteOption{db.WithPath(j.dbPath), db.WithMaxOpenConns(1)}
	if j.dbPath != ":memory:" {
		if err := utils.EnsureParent(j.dbPath); err != nil {
			return fmt.Errorf("create journal directory: %w", err)
		}
	}

	conn, err := db.NewSqliteDB(opts...)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return fmt.Errorf("initialize journal schema: %w", err)
	}

	j.db = conn
	return nil
}

func (j *Journal) Close() error {
	if j.db == nil {
		return fmt.Errorf("journal not open")
	}
	err := j.db.Close()
	j.db = nil
	if err != nil {
		slog.Error("journal close", "error", err)
		return err
	}
	slog.Debug("journal closed", "path", j.dbPath)
	return nil
}

func (j *Journal) Path() string {
	return j.dbPath
}

func (j *Journal) Get(id string) (*FileRecord, error) {
	var row dbFileRecord
	err := j.db.Get(&row, "SELECT id, status, remote_size FROM file_records WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query record %s: %w", id, err)
	}
	return row.toRecord()
}

func (j *Journal) Upsert(record *FileRecord) error {
	if record == nil {
		return fmt.Errorf("cannot upsert nil record")
	}
	if _, err := j.db.NamedExec(upsertQuery, toDBRecord(record)); err != nil {
		return fmt.Errorf("upsert record %s: %w", record.ID, err)
	}
	slog.Debug("journal upsert", "path", record.ID, "status", record.Status)
	return nil
}

func (j *Journal) UpsertAll(records []*FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := j.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareNamed(upsertQuery)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.Exec(toDBRecord(record)); err != nil {
			return fmt.Errorf("upsert record %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	slog.Debug("journal upsert batch", "records", len(records))
	return nil
}

func (j *Journal) Delete(id string) error {
	if _, err := j.db.Exec("DELETE FROM file_records WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return nil
}

func (j *Journal) ScanAll() ([]*FileRecord, error) {
	var rows []dbFileRecord
	if err := j.db.Select(&rows, "SELECT id, status, remote_size FROM file_records ORDER BY id ASC"); err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	records := make([]*FileRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (j *Journal) Count() (int, error) {
	var count int
	if err := j.db.Get(&count, "SELECT COUNT(*) FROM file_records"); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// Destroy closes the journal and moves the state file aside so the next
// open starts from an empty state.
func (j *Journal) Destroy() error {
	if err := j.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")
	if err := os.Rename(j.dbPath, fmt.Sprintf("%s.%s.bak", j.dbPath, timestamp)); err != nil {
		return fmt.Errorf("rename journal file: %w", err)
	}
	return nil
}
