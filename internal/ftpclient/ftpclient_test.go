package ftpclient

import (
	"context"
	"errors"
	"io"
	"net/textproto"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/openmined/ftpmirror/internal/client/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn serves a directory tree held in memory. Paths are absolute.
type fakeConn struct {
	dirs     map[string][]*ftp.Entry
	files    map[string]string
	loginErr error
	listErr  map[string]error
	retrErr  error
	cwd      string
	user     string
	quit     bool
	lastRetr *fakeStream
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		dirs:    map[string][]*ftp.Entry{"/": nil},
		files:   make(map[string]string),
		listErr: make(map[string]error),
	}
}

func (c *fakeConn) addFile(p, data string) {
	dir := path.Dir(p)
	c.mkdirAll(dir)
	c.dirs[dir] = append(c.dirs[dir], &ftp.Entry{Name: path.Base(p), Type: ftp.EntryTypeFile, Size: uint64(len(data))})
	c.files[p] = data
}

func (c *fakeConn) mkdirAll(dir string) {
	if _, ok := c.dirs[dir]; ok {
		return
	}
	parent := path.Dir(dir)
	c.mkdirAll(parent)
	c.dirs[parent] = append(c.dirs[parent], &ftp.Entry{Name: path.Base(dir), Type: ftp.EntryTypeFolder})
	c.dirs[dir] = nil
}

func (c *fakeConn) Login(user, password string) error {
	c.user = user
	return c.loginErr
}

func (c *fakeConn) ChangeDir(p string) error {
	if _, ok := c.dirs[p]; !ok {
		return &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file or directory"}
	}
	c.cwd = p
	return nil
}

func (c *fakeConn) List(p string) ([]*ftp.Entry, error) {
	if err := c.listErr[p]; err != nil {
		return nil, err
	}
	entries, ok := c.dirs[p]
	if !ok {
		return nil, &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file or directory"}
	}
	out := append([]*ftp.Entry{{Name: ".", Type: ftp.EntryTypeFolder}, {Name: "..", Type: ftp.EntryTypeFolder}}, entries...)
	return out, nil
}

func (c *fakeConn) Retr(p string) (stream, error) {
	if c.retrErr != nil {
		return nil, c.retrErr
	}
	data, ok := c.files[p]
	if !ok {
		return nil, &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file"}
	}
	c.lastRetr = &fakeStream{Reader: strings.NewReader(data)}
	return c.lastRetr, nil
}

func (c *fakeConn) Quit() error {
	c.quit = true
	return nil
}

type fakeStream struct {
	io.Reader
	mu       sync.Mutex
	deadline time.Time
	closed   bool
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func (s *fakeStream) SetDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadline = t
	return nil
}

func (s *fakeStream) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

func newTestClient(t *testing.T, fc *fakeConn, cfg Config) *Client {
	t.Helper()
	if cfg.Host == "" {
		cfg.Host = "ftp.example.com"
	}
	c, err := New(cfg)
	require.NoError(t, err)
	c.dial = func(ctx context.Context, addr string, opts ...ftp.DialOption) (conn, error) {
		return fc, nil
	}
	return c
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoHost)

	c, err := New(Config{Host: "ftp.example.com", RemoteDir: `\\MXF`})
	require.NoError(t, err)
	assert.Equal(t, "ftp.example.com:21", c.addr)
	assert.Equal(t, "/MXF", c.root)
	assert.Equal(t, anonymousUser, c.config.User)
	assert.Equal(t, defaultTimeout, c.config.Timeout)

	c, err = New(Config{Host: "10.0.0.5:2121", User: "ingest"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:2121", c.addr)
	assert.Empty(t, c.config.Password)
}

func TestNormalizeRemoteDir(t *testing.T) {
	cases := map[string]string{
		"":              "/",
		"  ":            "/",
		"/":             "/",
		"MXF":           "/MXF",
		`\\MXF`:         "/MXF",
		`\media\clips\`: "/media/clips",
		"/a/./b/../c/":  "/a/c",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRemoteDir(in), in)
	}
}

func TestDial_BindsRoot(t *testing.T) {
	fc := newFakeConn()
	fc.mkdirAll("/MXF")
	c := newTestClient(t, fc, Config{RemoteDir: "MXF", User: "u", Password: "p"})

	s, err := c.Dial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/MXF", fc.cwd)
	assert.Equal(t, "u", fc.user)

	require.NoError(t, s.Close())
	assert.True(t, fc.quit)
}

func TestDial_RemoteDirInaccessible(t *testing.T) {
	fc := newFakeConn()
	c := newTestClient(t, fc, Config{RemoteDir: "/missing"})

	_, err := c.Dial(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, mirror.ErrRemoteDirInaccessible)
	assert.True(t, IsNotFound(err))
	assert.True(t, fc.quit)
}

func TestDial_LoginFailure(t *testing.T) {
	fc := newFakeConn()
	fc.loginErr = &textproto.Error{Code: ftp.StatusNotLoggedIn, Msg: "Login incorrect."}
	c := newTestClient(t, fc, Config{})

	_, err := c.Dial(context.Background())
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "login", remoteErr.Op)
	assert.Equal(t, ftp.StatusNotLoggedIn, remoteErr.Code())
	assert.False(t, errors.Is(err, mirror.ErrRemoteDirInaccessible))
}

func TestDial_ConnectFailure(t *testing.T) {
	c, err := New(Config{Host: "ftp.example.com"})
	require.NoError(t, err)
	c.dial = func(ctx context.Context, addr string, opts ...ftp.DialOption) (conn, error) {
		return nil, errors.New("connection refused")
	}

	_, err = c.Dial(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestSession_ListRecursive(t *testing.T) {
	fc := newFakeConn()
	fc.addFile("/MXF/a.mxf", "aaaa")
	fc.addFile("/MXF/day1/b.mxf", "bb")
	fc.addFile("/MXF/day1/deep/c.xml", "c")
	fc.addFile("/other/x", "ignored")
	fc.dirs["/MXF"] = append(fc.dirs["/MXF"], &ftp.Entry{Name: "latest", Type: ftp.EntryTypeLink, Target: "day1"})

	s, err := newTestClient(t, fc, Config{RemoteDir: "/MXF"}).Dial(context.Background())
	require.NoError(t, err)

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	assert.Equal(t, []mirror.RemoteEntry{
		{ID: "a.mxf", Size: 4},
		{ID: "day1/b.mxf", Size: 2},
		{ID: "day1/deep/c.xml", Size: 1},
	}, entries)
}

func TestSession_ListSubdirFailure(t *testing.T) {
	fc := newFakeConn()
	fc.addFile("/MXF/day1/b.mxf", "bb")
	fc.listErr["/MXF/day1"] = &textproto.Error{Code: 450, Msg: "busy"}

	s, err := newTestClient(t, fc, Config{RemoteDir: "/MXF"}).Dial(context.Background())
	require.NoError(t, err)

	_, err = s.List(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, mirror.ErrRemoteDirInaccessible))
}

func TestSession_ListRootFailure(t *testing.T) {
	fc := newFakeConn()
	fc.mkdirAll("/MXF")
	fc.listErr["/MXF"] = &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "gone"}

	s, err := newTestClient(t, fc, Config{RemoteDir: "/MXF"}).Dial(context.Background())
	require.NoError(t, err)

	_, err = s.List(context.Background())
	assert.ErrorIs(t, err, mirror.ErrRemoteDirInaccessible)
}

func TestSession_ListCanceled(t *testing.T) {
	fc := newFakeConn()
	fc.addFile("/a", "1")
	s, err := newTestClient(t, fc, Config{}).Dial(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_Fetch(t *testing.T) {
	fc := newFakeConn()
	fc.addFile("/MXF/day1/b.mxf", "payload")
	s, err := newTestClient(t, fc, Config{RemoteDir: "/MXF"}).Dial(context.Background())
	require.NoError(t, err)

	rc, err := s.Fetch(context.Background(), "day1/b.mxf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	assert.Equal(t, "payload", string(data))
	assert.True(t, fc.lastRetr.closed)

	_, err = s.Fetch(context.Background(), "nope")
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, mirror.ErrRemoteFileGone)
}

func TestSession_FetchOtherErrorNotGone(t *testing.T) {
	fc := newFakeConn()
	fc.addFile("/a", "1")
	fc.retrErr = &textproto.Error{Code: 425, Msg: "Can't open data connection."}
	s, err := newTestClient(t, fc, Config{}).Dial(context.Background())
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), "a")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, 425, remoteErr.Code())
	assert.False(t, IsNotFound(err))
	assert.NotErrorIs(t, err, mirror.ErrRemoteFileGone)
}

func TestSession_FetchCancelSetsDeadline(t *testing.T) {
	fc := newFakeConn()
	fc.addFile("/a", "1")
	s, err := newTestClient(t, fc, Config{}).Dial(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rc, err := s.Fetch(ctx, "a")
	require.NoError(t, err)
	defer rc.Close()

	cancel()
	assert.Eventually(t, func() bool {
		return !fc.lastRetr.Deadline().IsZero()
	}, time.Second, 5*time.Millisecond)
}
