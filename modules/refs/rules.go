// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package refs

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// Rule follows git's priority order for resolving a short name into a
// full reference name.
//
// https://git-scm.com/docs/git-rev-parse#Documentation/git-rev-parse.txt-emltrefnamegtemegemmasterememheadsmasterememrefsheadsmasterem
type Rule struct {
	prefix string
	suffix string
}

func (r Rule) ReferenceName(name string) plumbing.ReferenceName {
	return plumbing.ReferenceName(r.prefix + name + r.suffix)
}

func (r Rule) ShortName(name string) string {
	if strings.HasPrefix(name, r.prefix) {
		return strings.TrimSuffix(name[len(r.prefix):], r.suffix)
	}
	return ""
}

var refRevParseRules = []*Rule{
	{},
	{prefix: "refs/"},
	{prefix: "refs/tags/"},
	{prefix: "refs/heads/"},
	{prefix: "refs/remotes/"},
	{prefix: "refs/remotes/", suffix: "/HEAD"},
}

// RefRevParseRules are the rules used to parse references into short names,
// mirroring git's shorten_unambiguous_ref.
func RefRevParseRules() []*Rule {
	return refRevParseRules
}
