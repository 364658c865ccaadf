package mirror

import "fmt"

// FileStatus is the persisted lifecycle state of a mirrored file.
// The integer values are stored in the state file and must not be renumbered.
type FileStatus int

const (
	StatusNotDownloaded FileStatus = 0 // remote has it, no local copy fetched yet
	StatusDownloaded    FileStatus = 1 // local copy matches the last known remote size
	StatusUpdated       FileStatus = 2 // remote size changed since the last download
	StatusDeleted       FileStatus = 3 // gone from remote, local copy still present
)

func (s FileStatus) String() string {
	switch s {
	case StatusNotDownloaded:
		return "NotDownloaded"
	case StatusDownloaded:
		return "Downloaded"
	case StatusUpdated:
		return "Updated"
	case StatusDeleted:
		return "Deleted"
	}
	return fmt.Sprintf("FileStatus(%d)", int(s))
}

func (s FileStatus) Valid() bool {
	switch s {
	case StatusNotDownloaded, StatusDownloaded, StatusUpdated, StatusDeleted:
		return true
	}
	return false
}

// FileRecord is the persisted state of one file identifier.
// ID is the slash separated path relative to the mirrored directories.
type FileRecord struct {
	ID         string
	Status     FileStatus
	RemoteSize *int64 // nil until the file has been seen on the remote
}

func NewFileRecord(id string, status FileStatus, remoteSize int64) *FileRecord {
	return &FileRecord{ID: id, Status: status, RemoteSize: sizePtr(remoteSize)}
}

// HasRemoteSize reports whether the stored remote size equals size.
func (r *FileRecord) HasRemoteSize(size int64) bool {
	return r.RemoteSize != nil && *r.RemoteSize == size
}

// Size returns the stored remote size or 0 when absent.
func (r *FileRecord) Size() int64 {
	if r.RemoteSize == nil {
		return 0
	}
	return *r.RemoteSize
}

func (r *FileRecord) Clone() *FileRecord {
	c := &FileRecord{ID: r.ID, Status: r.Status}
	if r.RemoteSize != nil {
		c.RemoteSize = sizePtr(*r.RemoteSize)
	}
	return c
}

func (r *FileRecord) String() string {
	if r.RemoteSize == nil {
		return fmt.Sprintf("%s[%s size=-]", r.ID, r.Status)
	}
	return fmt.Sprintf("%s[%s size=%d]", r.ID, r.Status, *r.RemoteSize)
}

func sizePtr(n int64) *int64 {
	return &n
}
