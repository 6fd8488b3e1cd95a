// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPCredentials locate and authenticate against the FTP server.
type FTPCredentials struct {
	Server   string `mapstructure:"server"`
	Login    string `mapstructure:"login"`
	Password string `mapstructure:"password"`
}

func (c FTPCredentials) address() string {
	if strings.Contains(c.Server, ":") {
		return c.Server
	}
	return c.Server + ":21"
}

// ftpConn is the subset of *ftp.ServerConn the store uses.
type ftpConn interface {
	List(path string) ([]*ftp.Entry, error)
	Fetch(path string) ([]byte, error)
	Stor(path string, r io.Reader) error
	Rename(from, to string) error
	MakeDir(path string) error
	Delete(path string) error
	Quit() error
}

type serverConn struct {
	*ftp.ServerConn
}

// Fetch reads the whole file so the data connection is closed before the
// next command; a server connection handles one transfer at a time.
func (c serverConn) Fetch(p string) ([]byte, error) {
	r, err := c.Retr(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

type ftpDialer func(ctx context.Context) (ftpConn, error)

type ftpStore struct {
	root  string
	label string
	dial  ftpDialer

	mu   sync.Mutex
	conn ftpConn
}

var _ Store = (*ftpStore)(nil)

// NewFTPStore connects lazily on first use and reconnects after a transport failure.
func NewFTPStore(creds FTPCredentials, root string, timeout time.Duration) Store {
	dial := func(ctx context.Context) (ftpConn, error) {
		c, err := ftp.Dial(creds.address(),
			ftp.DialWithContext(ctx),
			ftp.DialWithTimeout(timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("dial ftp %s: %w", creds.Server, err)
		}
		if err := c.Login(creds.Login, creds.Password); err != nil {
			_ = c.Quit()
			return nil, fmt.Errorf("login ftp %s: %w", creds.Server, err)
		}
		return serverConn{c}, nil
	}
	return newFTPStore(creds.Server, root, dial)
}

func newFTPStore(server, root string, dial ftpDialer) *ftpStore {
	root = strings.Trim(root, "/")
	label := "ftp://" + server
	if root != "" {
		label += "/" + root
	}
	return &ftpStore{root: root, label: label, dial: dial}
}

func (s *ftpStore) Name() string {
	return s.label
}

// with runs fn on a live connection while holding the lock.
func (s *ftpStore) with(ctx context.Context, fn func(c ftpConn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		c, err := s.dial(ctx)
		if err != nil {
			return err
		}
		s.conn = c
	}

	err := fn(s.conn)
	if err != nil && !isFTPReply(err) {
		_ = s.conn.Quit()
		s.conn = nil
	}
	return err
}

// isFTPReply reports whether the server answered with a status code, in
// which case the control connection is still usable.
func isFTPReply(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr)
}

func isFTPNotFound(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable
}

func (s *ftpStore) abs(name string) string {
	return "/" + joinKey(s.root, name)
}

func (s *ftpStore) List(ctx context.Context, dir string) ([]FileInfo, error) {
	var entries []*ftp.Entry
	err := s.with(ctx, func(c ftpConn) error {
		var err error
		entries, err = c.List(s.abs(dir))
		return err
	})
	if err != nil {
		if isFTPNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s/%s: %w", s.label, dir, err)
	}

	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		out = append(out, FileInfo{
			Name:    joinKey(dir, path.Base(e.Name)),
			ModTime: e.Time,
			Size:    int64(e.Size),
		})
	}
	return out, nil
}

func (s *ftpStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	var data []byte
	err := s.with(ctx, func(c ftpConn) error {
		var err error
		data, err = c.Fetch(s.abs(name))
		return err
	})
	if err != nil {
		if isFTPNotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", s.label, name, ErrNotFound)
		}
		return nil, fmt.Errorf("retr %s/%s: %w", s.label, name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put uploads under a ".part" name and renames it over the target.
func (s *ftpStore) Put(ctx context.Context, name string, data []byte) error {
	target := s.abs(name)
	part := target + ".part"
	err := s.with(ctx, func(c ftpConn) error {
		ensureDirs(c, path.Dir(target))
		if err := c.Stor(part, bytes.NewReader(data)); err != nil {
			return err
		}
		if err := c.Rename(part, target); err != nil {
			_ = c.Delete(part)
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("stor %s/%s: %w", s.label, name, err)
	}
	return nil
}

// ensureDirs creates every directory on the way to dir. Errors are ignored
// because most servers answer 550 for an existing directory.
func ensureDirs(c ftpConn, dir string) {
	cur := ""
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" {
			continue
		}
		cur += "/" + part
		_ = c.MakeDir(cur)
	}
}

func (s *ftpStore) Delete(ctx context.Context, names ...string) error {
	return s.with(ctx, func(c ftpConn) error {
		for _, name := range names {
			if err := c.Delete(s.abs(name)); err != nil && !isFTPNotFound(err) {
				return fmt.Errorf("delete %s/%s: %w", s.label, name, err)
			}
		}
		return nil
	})
}

func (s *ftpStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Quit()
	s.conn = nil
	return err
}
