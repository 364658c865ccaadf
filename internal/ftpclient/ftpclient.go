package ftpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/openmined/ftpmirror/internal/client/mirror"
)

const (
	defaultPort    = "21"
	defaultTimeout = 30 * time.Second
	anonymousUser  = "anonymous"
)

var ErrNoHost = errors.New("ftp host is required")

type Config struct {
	Host        string // host or host:port
	User        string
	Password    string
	RemoteDir   string
	Timeout     time.Duration
	TLS         bool // explicit FTPS (AUTH TLS)
	DisableEPSV bool
}

// Client dials sessions bound to Config.RemoteDir.
type Client struct {
	config Config
	addr   string
	root   string
	dial   dialFunc
}

// stream is the data connection of a RETR.
type stream interface {
	io.ReadCloser
	SetDeadline(t time.Time) error
}

// conn is the subset of *ftp.ServerConn used by a session.
type conn interface {
	Login(user, password string) error
	ChangeDir(path string) error
	List(path string) ([]*ftp.Entry, error)
	Retr(path string) (stream, error)
	Quit() error
}

type dialFunc func(ctx context.Context, addr string, opts ...ftp.DialOption) (conn, error)

func New(config Config) (*Client, error) {
	if config.Host == "" {
		return nil, ErrNoHost
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.User == "" {
		config.User = anonymousUser
		if config.Password == "" {
			config.Password = anonymousUser
		}
	}

	return &Client{
		config: config,
		addr:   withDefaultPort(config.Host),
		root:   NormalizeRemoteDir(config.RemoteDir),
		dial:   dialServer,
	}, nil
}

// Dial connects, logs in and binds the session to the remote dir. A remote
// dir the server refuses to enter fails with mirror.ErrRemoteDirInaccessible.
func (c *Client) Dial(ctx context.Context) (mirror.Session, error) {
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(c.config.Timeout),
		ftp.DialWithDisabledEPSV(c.config.DisableEPSV),
	}
	if c.config.TLS {
		host, _, _ := net.SplitHostPort(c.addr)
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}))
	}

	sc, err := c.dial(ctx, c.addr, opts...)
	if err != nil {
		return nil, &RemoteError{Op: "dial", Path: c.addr, Err: err}
	}

	if err := sc.Login(c.config.User, c.config.Password); err != nil {
		sc.Quit()
		return nil, &RemoteError{Op: "login", Path: c.config.User, Err: err}
	}

	if err := sc.ChangeDir(c.root); err != nil {
		sc.Quit()
		return nil, fmt.Errorf("%w: %w", mirror.ErrRemoteDirInaccessible, &RemoteError{Op: "cwd", Path: c.root, Err: err})
	}

	slog.Debug("ftp connected", "addr", c.addr, "user", c.config.User, "root", c.root, "tls", c.config.TLS)
	return &Session{conn: sc, root: c.root}, nil
}

func withDefaultPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, defaultPort)
}

// serverConn adapts *ftp.ServerConn to conn.
type serverConn struct {
	*ftp.ServerConn
}

func (s serverConn) Retr(path string) (stream, error) {
	resp, err := s.ServerConn.Retr(path)
	if err != nil {
		// never hand back a typed nil
		return nil, err
	}
	return resp, nil
}

func dialServer(ctx context.Context, addr string, opts ...ftp.DialOption) (conn, error) {
	sc, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, err
	}
	return serverConn{sc}, nil
}
