package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/odvcencio/snap/pkg/fault"
	"github.com/odvcencio/snap/pkg/object"
)

// ErrHeadMoved reports that HEAD no longer holds the value a writer read
// before updating it.
var ErrHeadMoved = errors.New("HEAD changed concurrently")

const (
	headLockRetryDelay = 5 * time.Millisecond
	headLockWaitLimit  = 2 * time.Second
)

// ReadHead returns the id of the most recent commit, or "" when the
// repository has no commits yet. A missing HEAD file means the repository
// was never initialised and is reported as fault.ErrPrecondition.
func (r *Repo) ReadHead() (object.Hash, error) {
	data, err := os.ReadFile(r.headPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", fault.Precondition("read HEAD: %s does not exist", r.headPath())
		}
		return "", fault.Precondition("read HEAD: %v", err)
	}
	h := object.Hash(strings.TrimSpace(string(data)))
	if h != "" && !object.IsHex(string(h), r.Store.Options().Hash.HexLen()) {
		return "", fault.InvalidInput("read HEAD: malformed commit id %q", h)
	}
	return h, nil
}

// writeHead replaces HEAD with h using lockfile + rename. The update only
// happens when HEAD still holds expectedOld.
func (r *Repo) writeHead(h, expectedOld object.Hash, reason string) error {
	headPath := r.headPath()
	if _, err := os.Stat(headPath); err != nil {
		return fault.Precondition("update HEAD: %v", err)
	}

	lockPath := headPath + ".lock"
	lockFile, err := acquireHeadLock(lockPath)
	if err != nil {
		return fault.Precondition("update HEAD: lock: %v", err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	data, err := os.ReadFile(headPath)
	if err != nil {
		return fault.Precondition("update HEAD: read old hash: %v", err)
	}
	if old := object.Hash(strings.TrimSpace(string(data))); old != expectedOld {
		return fmt.Errorf("update HEAD: %w (expected %q, found %q)", ErrHeadMoved, expectedOld, old)
	}

	content := ""
	if h != "" {
		content = string(h) + "\n"
	}
	if _, err := lockFile.WriteString(content); err != nil {
		return fault.IO("update HEAD write", lockPath, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fault.IO("update HEAD sync", lockPath, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fault.IO("update HEAD close", lockPath, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, headPath); err != nil {
		return fault.IO("update HEAD rename", headPath, err)
	}
	cleanupLock = false

	if err := r.appendHeadLog(expectedOld, h, reason); err != nil {
		// HEAD is already committed; the log is informational.
		r.logger.Warn("HEAD log append failed", "error", err)
	}
	r.logger.Debug("HEAD updated", "old", expectedOld, "new", h, "reason", reason)
	return nil
}

func acquireHeadLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(headLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(headLockRetryDelay)
			continue
		}
		return nil, err
	}
}

// HeadLogEntry is one line of .snap/logs/HEAD.
type HeadLogEntry struct {
	OldHash   object.Hash
	NewHash   object.Hash
	Timestamp int64
	Reason    string
}

func (r *Repo) headLogPath() string {
	return filepath.Join(r.SnapDir, "logs", "HEAD")
}

func (r *Repo) appendHeadLog(oldHash, newHash object.Hash, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = "update"
	}
	// Keep each record on one line.
	reason = strings.ReplaceAll(reason, "\n", " ")

	logPath := r.headLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fault.IO("head log mkdir", filepath.Dir(logPath), err)
	}
	line := fmt.Sprintf("%s %s %d %s\n", hashOrDash(oldHash), hashOrDash(newHash), r.now().Unix(), reason)

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fault.IO("head log open", logPath, err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fault.IO("head log write", logPath, err)
	}
	return nil
}

// ReadHeadLog returns every recorded HEAD transition, oldest first.
func (r *Repo) ReadHeadLog() ([]HeadLogEntry, error) {
	data, err := os.ReadFile(r.headLogPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fault.IO("read head log", r.headLogPath(), err)
	}

	var entries []HeadLogEntry
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 4)
		if len(parts) < 3 {
			return nil, fault.InvalidInput("read head log: malformed line %q", line)
		}
		var ts int64
		if _, err := fmt.Sscan(parts[2], &ts); err != nil {
			return nil, fault.InvalidInput("read head log: bad timestamp %q", parts[2])
		}
		e := HeadLogEntry{
			OldHash:   dashOrHash(parts[0]),
			NewHash:   dashOrHash(parts[1]),
			Timestamp: ts,
		}
		if len(parts) == 4 {
			e.Reason = parts[3]
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func hashOrDash(h object.Hash) string {
	if h == "" {
		return "-"
	}
	return string(h)
}

func dashOrHash(s string) object.Hash {
	if s == "-" {
		return ""
	}
	return object.Hash(s)
}
