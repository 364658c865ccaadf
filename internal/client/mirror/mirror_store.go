package mirror

// Store is the persistent state of every file id ever seen.
// Every mutating call is durable when it returns.
type Store interface {
	// Get returns nil, nil when no record exists.
	Get(id string) (*FileRecord, error)
	Upsert(record *FileRecord) error
	// UpsertAll writes all records atomically.
	UpsertAll(records []*FileRecord) error
	Delete(id string) error
	// ScanAll returns every record ordered by id ascending.
	ScanAll() ([]*FileRecord, error)
}
