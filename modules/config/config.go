// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
)

// ErrBadConfigKey reports an unrecognized "section.key" config path.
type ErrBadConfigKey struct {
	key string
}

func (err *ErrBadConfigKey) Error() string {
	return fmt.Sprintf("bad config key '%s'", err.key)
}

func IsErrBadConfigKey(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*ErrBadConfigKey)
	return ok
}

var ErrInvalidArgument = errors.New("invalid argument")

type User struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

func (u *User) Empty() bool {
	return u == nil || len(u.Email) == 0 || len(u.Name) == 0
}

func overwrite(a, b string) string {
	if len(b) != 0 {
		return b
	}
	return a
}

func (u *User) Overwrite(o *User) {
	u.Name = overwrite(u.Name, o.Name)
	u.Email = overwrite(u.Email, o.Email)
}

// Core carries repository-level settings: where to resolve hooks from
// and which editor to launch for a message edit. The rebase engine does
// not read either of them.
type Core struct {
	HooksPath string `toml:"hooksPath,omitempty"`
	Editor    string `toml:"editor,omitempty"`
}

func (c *Core) Overwrite(o *Core) {
	c.HooksPath = overwrite(c.HooksPath, o.HooksPath)
	c.Editor = overwrite(c.Editor, o.Editor)
}

// Merge controls the default three-way merge conflict-marker style
// ("merge", "diff3", or "zdiff3"). It is loaded and layered like every
// other section; the TreeMerger adapter in pkg/merge3 does not read it.
type Merge struct {
	ConflictStyle string `toml:"conflictStyle,omitempty"`
}

func (m *Merge) Overwrite(o *Merge) {
	m.ConflictStyle = overwrite(m.ConflictStyle, o.ConflictStyle)
}

// Notes controls whether and where rebase note propagation writes,
// resolved by the rebase engine's Options layer per precedence: caller
// override > notes.rewrite.rebase > notes.rewriteref.
type Notes struct {
	RewriteRebase Boolean `toml:"rewrite.rebase,omitempty"`
	RewriteRef    string  `toml:"rewriteref,omitempty"`
}

func (n *Notes) Overwrite(o *Notes) {
	if !o.RewriteRebase.IsUnset() {
		n.RewriteRebase = o.RewriteRebase
	}
	n.RewriteRef = overwrite(n.RewriteRef, o.RewriteRef)
}

type Config struct {
	Core  Core  `toml:"core,omitempty"`
	User  User  `toml:"user,omitempty"`
	Merge Merge `toml:"merge,omitempty"`
	Notes Notes `toml:"notes,omitempty"`
}

// Overwrite merges a higher-precedence layer (e.g. repo-local) onto c
// (e.g. global), in place, field by field.
func (c *Config) Overwrite(co *Config) {
	c.Core.Overwrite(&co.Core)
	c.User.Overwrite(&co.User)
	c.Merge.Overwrite(&co.Merge)
	c.Notes.Overwrite(&co.Notes)
}
