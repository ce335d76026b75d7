// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package reflog adapts the teacher's reflog format (originally
// modules/zeta/reflog) onto go-git's plumbing/object types, providing the
// ReflogWriter half of the rebase engine's RefDB external collaborator.
package reflog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	REFLOG_DIR       = "logs"
	REFLOG_DIR_MOD   = 0777
	REFLOG_FILE_MODE = 0666
)

type Entry struct {
	O, N      plumbing.Hash
	Committer object.Signature
	Message   string
}

type Entries []*Entry

type Reflog struct {
	name    plumbing.ReferenceName
	Entries Entries
}

func (o *Reflog) Empty() bool {
	return o == nil || len(o.Entries) == 0
}

func (o *Reflog) Clear() {
	o.Entries = o.Entries[:0]
}

func (o *Reflog) Drop(index int, rewritePreviousEntry bool) error {
	count := len(o.Entries)
	if index < 0 || index >= count {
		return fmt.Errorf("no reflog entry at index %d", index)
	}
	newEntries := make([]*Entry, 0, count-1)
	for i, e := range o.Entries {
		if i != index {
			newEntries = append(newEntries, e)
		}
	}
	switch {
	case !rewritePreviousEntry || index == 0 || count == 1:
	case index == count-1:
		newEntries[len(newEntries)-1].O = plumbing.ZeroHash
	default:
		newEntries[index-1].O = newEntries[index].N
	}
	o.Entries = newEntries
	return nil
}

// Push prepends a new entry recording oid as the reference's new value.
func (o *Reflog) Push(oid plumbing.Hash, committer *object.Signature, message string) {
	e := &Entry{
		N:         oid,
		Committer: *committer,
		Message:   message,
	}
	newEntries := make([]*Entry, 0, len(o.Entries)+1)
	if len(o.Entries) > 0 {
		e.O = o.Entries[0].N
	}
	newEntries = append(newEntries, e)
	newEntries = append(newEntries, o.Entries...)
	o.Entries = newEntries
}

type DB struct {
	root string
}

func NewDB(root string) *DB {
	return &DB{root: root}
}

var ErrUnparsableReflogLine = errors.New("unparsable reflog line")

func newEntry(line string) (*Entry, error) {
	pos := strings.IndexByte(line, ' ')
	if pos == -1 {
		return nil, ErrUnparsableReflogLine
	}
	o := line[0:pos]
	line = line[pos+1:]
	if pos = strings.IndexByte(line, ' '); pos == -1 {
		return nil, ErrUnparsableReflogLine
	}
	n := line[0:pos]
	line = line[pos+1:]
	var message string
	signature := line
	if pos = strings.IndexByte(line, '\t'); pos != -1 {
		message = line[pos+1:]
		signature = line[:pos]
	}
	e := &Entry{
		O:       plumbing.NewHash(o),
		N:       plumbing.NewHash(n),
		Message: message,
	}
	e.Committer.Decode([]byte(signature))
	return e, nil
}

func (d *DB) parse(r io.Reader) ([]*Entry, error) {
	br := bufio.NewScanner(r)
	entries := make([]*Entry, 0, 20)
	for br.Scan() {
		line := strings.TrimSpace(br.Text())
		e, err := newEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (d *DB) serialize(w io.Writer, entries []*Entry) error {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if len(e.Message) == 0 {
			if _, err := fmt.Fprintf(w, "%s %s %s\n", e.O, e.N, &e.Committer); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\t%s\n", e.O, e.N, &e.Committer, strings.ReplaceAll(e.Message, "\n", " ")); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) Exists(refname plumbing.ReferenceName) bool {
	logPath := filepath.Join(d.root, REFLOG_DIR, string(refname))
	_, err := os.Stat(logPath)
	return err == nil
}

func (d *DB) Read(refname plumbing.ReferenceName) (*Reflog, error) {
	logPath := filepath.Join(d.root, REFLOG_DIR, string(refname))
	fd, err := os.Open(logPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(logPath), REFLOG_DIR_MOD); err != nil {
			return nil, err
		}
		if fd, err = os.OpenFile(logPath, os.O_CREATE, REFLOG_FILE_MODE); err != nil {
			return nil, err
		}
		_ = fd.Close()
		return &Reflog{name: refname, Entries: make([]*Entry, 0)}, nil
	}
	defer fd.Close()
	reflog := &Reflog{name: refname}
	if reflog.Entries, err = d.parse(fd); err != nil {
		return nil, err
	}
	return reflog, nil
}

func (d *DB) Write(o *Reflog) error {
	logPath := filepath.Join(d.root, REFLOG_DIR, string(o.name))
	return d.lockPath(logPath, func() error {
		var tempReflog string
		defer func() {
			if len(tempReflog) != 0 {
				_ = os.Remove(tempReflog)
			}
		}()
		if err := os.MkdirAll(filepath.Dir(logPath), REFLOG_DIR_MOD); err != nil {
			return err
		}
		fd, err := os.CreateTemp(filepath.Dir(logPath), "temp_reflog")
		if err != nil {
			return err
		}
		_ = fd.Chmod(0644)
		tempReflog = fd.Name()
		w := bufio.NewWriter(fd)
		if err := d.serialize(w, o.Entries); err != nil {
			_ = fd.Close()
			return err
		}
		if err := w.Flush(); err != nil {
			_ = fd.Close()
			return err
		}
		_ = fd.Close()
		return os.Rename(tempReflog, logPath)
	})
}

func (d *DB) Delete(name plumbing.ReferenceName) error {
	logPath := filepath.Join(d.root, REFLOG_DIR, string(name))
	err := d.lockPath(logPath, func() error {
		if err := os.Remove(logPath); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	})
	_ = d.prune()
	return err
}

func (d *DB) lockPath(p string, fn func() error) error {
	lockName := p + ".lock"
	fd, err := openNotExists(lockName)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("reflog %q is locked by another process", p)
		}
		return err
	}
	err = fn()
	_ = fd.Close()
	_ = os.Remove(lockName)
	return err
}

func openNotExists(name string) (*os.File, error) {
	_ = os.MkdirAll(filepath.Dir(name), 0755)
	return os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_RDWR|os.O_TRUNC, 0644)
}

var pruneKeeps = map[string]bool{
	"heads":   true,
	"tags":    true,
	"remotes": true,
}

func (d *DB) prune() error {
	logsPath := filepath.Join(d.root, REFLOG_DIR)
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		absPath := filepath.Join(logsPath, e.Name())
		if err := pruneDirsDFS(absPath, pruneKeeps[e.Name()]); err != nil {
			return err
		}
	}
	return nil
}

func pruneDirsDFS(dir string, keep bool) error {
	empty := true
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			empty = false
			continue
		}
		absPath := filepath.Join(dir, e.Name())
		if err := pruneDirsDFS(absPath, false); err != nil {
			return err
		}
	}
	if !empty || keep {
		return nil
	}
	return os.Remove(dir)
}
