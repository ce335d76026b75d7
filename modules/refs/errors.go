// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package refs

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-git/go-git/v5/plumbing"
)

var (
	ErrIsDir               = errors.New("reference path is a directory")
	ErrPackedRefsBadFormat = errors.New("malformed packed-refs line")
	ErrReferenceHasChanged = errors.New("reference has changed concurrently")
)

type ErrBadReferenceName struct {
	Name string
}

func (e ErrBadReferenceName) Error() string {
	return fmt.Sprintf("bad reference name: %q", e.Name)
}

// validRefName mirrors git's simplified check-ref-format rules closely
// enough for internal bookkeeping; it is not a full implementation.
var validRefName = regexp.MustCompile(`^[^\x00-\x1f\x7f ~^:?*\[\\]+$`)

func ValidateReferenceName(name []byte) bool {
	if len(name) == 0 {
		return false
	}
	return validRefName.Match(name)
}

type ErrResourceLocked struct {
	Kind string
	Name fmt.Stringer
}

func (e *ErrResourceLocked) Error() string {
	return fmt.Sprintf("%s %q is locked by another process", e.Kind, e.Name)
}

type stringerName string

func (s stringerName) String() string { return string(s) }

func NewErrResourceLocked(kind string, name fmt.Stringer) error {
	if name == nil {
		name = stringerName("")
	}
	return &ErrResourceLocked{Kind: kind, Name: name}
}

func NewErrResourceLockedName(kind string, name plumbing.ReferenceName) error {
	return NewErrResourceLocked(kind, name)
}
