package mirror

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

// fakeRemote is an in-memory remote directory shared by the sessions it hands out.
type fakeRemote struct {
	mu        sync.Mutex
	files     map[string][]byte
	failFetch map[string]error
	listErr   error
	dialErr   error
	chunked   bool
	onFetch   func(id string)
	fetched   []string
	dials     int
	closed    int
}

func newFakeRemote(files map[string]string) *fakeRemote {
	r := &fakeRemote{files: make(map[string][]byte), failFetch: make(map[string]error)}
	for id, data := range files {
		r.files[id] = []byte(data)
	}
	return r
}

func (r *fakeRemote) put(id, data string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[id] = []byte(data)
}

func (r *fakeRemote) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
}

func (r *fakeRemote) Dial(ctx context.Context) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dialErr != nil {
		return nil, r.dialErr
	}
	r.dials++
	return &fakeSession{remote: r}, nil
}

type fakeSession struct {
	remote *fakeRemote
}

func (s *fakeSession) List(ctx context.Context) ([]RemoteEntry, error) {
	s.remote.mu.Lock()
	defer s.remote.mu.Unlock()
	if s.remote.listErr != nil {
		return nil, s.remote.listErr
	}
	entries := make([]RemoteEntry, 0, len(s.remote.files))
	for id, data := range s.remote.files {
		entries = append(entries, RemoteEntry{ID: id, Size: int64(len(data))})
	}
	slices.SortFunc(entries, func(a, b RemoteEntry) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return entries, nil
}

func (s *fakeSession) Fetch(ctx context.Context, id string) (io.ReadCloser, error) {
	s.remote.mu.Lock()
	onFetch := s.remote.onFetch
	s.remote.fetched = append(s.remote.fetched, id)
	err := s.remote.failFetch[id]
	data, ok := s.remote.files[id]
	chunked := s.remote.chunked
	s.remote.mu.Unlock()

	if onFetch != nil {
		onFetch(id)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRemoteFileGone, id)
	}

	var r io.Reader = bytes.NewReader(slices.Clone(data))
	if chunked {
		r = iotest.OneByteReader(r)
	}
	return io.NopCloser(r), nil
}

func (s *fakeSession) Close() error {
	s.remote.mu.Lock()
	defer s.remote.mu.Unlock()
	s.remote.closed++
	return nil
}

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func recordsByID(t *testing.T, store Store) map[string]*FileRecord {
	t.Helper()
	records, err := store.ScanAll()
	require.NoError(t, err)
	out := make(map[string]*FileRecord, len(records))
	for _, r := range records {
		out[r.ID] = r
	}
	return out
}
