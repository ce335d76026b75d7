// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

const (
	mergeDirName = "rebase-merge"
	applyDirName = "rebase-apply"

	fileHeadName  = "head-name"
	fileOrigHead  = "orig-head"
	fileHead      = "head" // legacy alias for orig-head, never written
	fileOnto      = "onto"
	fileOntoName  = "onto_name"
	fileQuiet     = "quiet"
	fileMsgnum    = "msgnum"
	fileEnd       = "end"
	fileCurrent   = "current"
	fileRewritten = "rewritten"
	fileIndex     = "index-staging"

	detachedHeadLiteral = "detached HEAD"

	stateDirMode = 0o777
	stateFileMode = 0o666
)

func mergeStatePath(repoDir string) string {
	return filepath.Join(repoDir, mergeDirName)
}

func applyStatePath(repoDir string) string {
	return filepath.Join(repoDir, applyDirName)
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// probeFlavor determines which state directory, if any, exists. Apply is
// probed first, per §4.B step 1.
func probeFlavor(repoDir string) (Flavor, string) {
	if isDir(applyStatePath(repoDir)) {
		return FlavorApply, applyStatePath(repoDir)
	}
	if isDir(mergeStatePath(repoDir)) {
		return FlavorMerge, mergeStatePath(repoDir)
	}
	return FlavorNone, ""
}

// writeStateFile truncates-and-writes the full content followed by a
// single trailing newline, per §4.A's write discipline.
func writeStateFile(stateDir, name, content string) error {
	p := filepath.Join(stateDir, name)
	if err := os.WriteFile(p, []byte(content+"\n"), stateFileMode); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// appendStateFile opens name for append, creating it if absent.
func appendStateFile(stateDir, name, line string) error {
	p := filepath.Join(stateDir, name)
	fd, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_APPEND, stateFileMode)
	if err != nil {
		return fmt.Errorf("append %s: %w", name, err)
	}
	defer fd.Close() // nolint
	if _, err := fd.WriteString(line); err != nil {
		return fmt.Errorf("append %s: %w", name, err)
	}
	return nil
}

// readStateFile reads name and right-trims trailing whitespace, per
// §4.A. ok is false iff the file does not exist.
func readStateFile(stateDir, name string) (content string, ok bool, err error) {
	b, err := os.ReadFile(filepath.Join(stateDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimRight(string(b), " \t\r\n"), true, nil
}

func readStateFileRequired(stateDir, name string) (string, error) {
	v, ok, err := readStateFile(stateDir, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", newErrCorrupt(fmt.Sprintf("missing required file %q", name))
	}
	return v, nil
}

func readHashFile(stateDir, name string) (plumbing.Hash, error) {
	v, err := readStateFileRequired(stateDir, name)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	h := plumbing.NewHash(v)
	if h.IsZero() && v != plumbing.ZeroHash.String() {
		return plumbing.ZeroHash, newErrCorrupt(fmt.Sprintf("invalid object id in %q: %q", name, v))
	}
	return h, nil
}

func readIntFile(stateDir, name string, def int32) (int32, error) {
	v, ok, err := readStateFile(stateDir, name)
	if err != nil {
		return 0, err
	}
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, newErrCorrupt(fmt.Sprintf("invalid integer in %q: %q", name, v))
	}
	return int32(n), nil
}

func pickFileName(step int32) string {
	return fmt.Sprintf("cmt.%d", step)
}

func rewrittenLine(oldOID, newOID plumbing.Hash) string {
	return fmt.Sprintf("%s %s\n", oldOID.String(), newOID.String())
}

// parseRewrittenLine validates and splits one rewritten-file line,
// failing Corrupt with a 1-based line number per §4.F.
func parseRewrittenLine(line string, lineNo int) (oldOID, newOID plumbing.Hash, err error) {
	fields := strings.Split(line, " ")
	if len(fields) != 2 {
		return plumbing.ZeroHash, plumbing.ZeroHash, newErrCorrupt(fmt.Sprintf("invalid rewritten file at line %d", lineNo))
	}
	oldHex, newHex := fields[0], fields[1]
	if len(oldHex) != len(plumbing.ZeroHash.String()) || len(newHex) != len(plumbing.ZeroHash.String()) {
		return plumbing.ZeroHash, plumbing.ZeroHash, newErrCorrupt(fmt.Sprintf("invalid rewritten file at line %d", lineNo))
	}
	return plumbing.NewHash(oldHex), plumbing.NewHash(newHex), nil
}

// readRewrittenLines skips blank lines rather than treating a trailing
// unterminated line as Corrupt; appendStateFile always writes a
// terminating newline, so this only ever discards genuinely empty
// lines, never a truncated final record.
func readRewrittenLines(stateDir string) ([][2]plumbing.Hash, error) {
	content, ok, err := readStateFile(stateDir, fileRewritten)
	if err != nil {
		return nil, err
	}
	if !ok || content == "" {
		return nil, nil
	}
	lines := strings.Split(content, "\n")
	pairs := make([][2]plumbing.Hash, 0, len(lines))
	for i, line := range lines {
		if line == "" {
			continue
		}
		oldOID, newOID, err := parseRewrittenLine(line, i+1)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]plumbing.Hash{oldOID, newOID})
	}
	return pairs, nil
}

func removeStateDir(stateDir string) error {
	if err := os.RemoveAll(stateDir); err != nil {
		return fmt.Errorf("remove state directory: %w", err)
	}
	return nil
}

// persistIndex parks idx's staged entries in the state directory so a
// later Commit, Resolve, or ConflictedPaths call — possibly in a
// separate process — can pick the same staging area back up.
func persistIndex(stateDir string, idx Index) error {
	p := filepath.Join(stateDir, fileIndex)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, stateFileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", fileIndex, err)
	}
	if err := idx.Save(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("save %s: %w", fileIndex, err)
	}
	return f.Close()
}

// loadIndex reloads idx from the staging area a previous Next call
// parked via persistIndex. ErrInvalidState if nothing is staged.
func loadIndex(stateDir string, idx Index) error {
	p := filepath.Join(stateDir, fileIndex)
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrInvalidState
		}
		return fmt.Errorf("open %s: %w", fileIndex, err)
	}
	defer f.Close() // nolint
	return idx.LoadFrom(f)
}

// removeIndexStaging drops the parked staging area once Commit has
// consumed it. Abort and Finish remove it along with the whole state
// directory.
func removeIndexStaging(stateDir string) {
	_ = os.Remove(filepath.Join(stateDir, fileIndex))
}
