package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// ChangedFile is one file touched between a base ref and the working tree.
type ChangedFile struct {
	Path         string
	Deleted      bool
	ChangedLines []int
}

var chunkHeader = regexp.MustCompile(`^@@ \-\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// GetChangedFiles runs git diff in dir and returns the changed files with
// the line numbers touched in their new version.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--no-color", "-U0", baseRef)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}

	return parseDiff(output)
}

func parseDiff(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var changes []ChangedFile
	var currentFile *ChangedFile
	var oldPath string
	inHunk := false

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "diff --git ") {
			if currentFile != nil {
				changes = append(changes, *currentFile)
			}
			// provisional; the rename and +++ lines below are authoritative
			currentFile = &ChangedFile{Path: headerPath(line), ChangedLines: []int{}}
			oldPath = ""
			inHunk = false
			continue
		}

		if currentFile == nil {
			continue
		}

		// -U0 hunk bodies can hold lines that look like headers
		if inHunk && !strings.HasPrefix(line, "@@") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "rename from "):
			// git reports a rename as one entry; the old path has to be purged too
			changes = append(changes, ChangedFile{
				Path:         unquotePath(strings.TrimPrefix(line, "rename from ")),
				Deleted:      true,
				ChangedLines: []int{},
			})
		case strings.HasPrefix(line, "rename to "):
			currentFile.Path = unquotePath(strings.TrimPrefix(line, "rename to "))
		case strings.HasPrefix(line, "deleted file mode"):
			currentFile.Deleted = true
		case strings.HasPrefix(line, "--- "):
			if p := unquotePath(strings.TrimPrefix(line, "--- ")); p != "/dev/null" {
				oldPath = strings.TrimPrefix(p, "a/")
			}
		case strings.HasPrefix(line, "+++ "):
			p := unquotePath(strings.TrimPrefix(line, "+++ "))
			if p == "/dev/null" {
				currentFile.Deleted = true
				if oldPath != "" {
					currentFile.Path = oldPath
				}
				continue
			}
			currentFile.Path = strings.TrimPrefix(p, "b/")
		case strings.HasPrefix(line, "@@"):
			inHunk = true
			matches := chunkHeader.FindStringSubmatch(line)
			if len(matches) < 2 {
				continue
			}
			startLine, _ := strconv.Atoi(matches[1])
			count := 1
			if matches[2] != "" {
				count, _ = strconv.Atoi(matches[2])
			}
			// count 0 is a pure deletion; no lines remain at startLine
			for i := 0; i < count; i++ {
				currentFile.ChangedLines = append(currentFile.ChangedLines, startLine+i)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read diff: %w", err)
	}

	if currentFile != nil {
		changes = append(changes, *currentFile)
	}

	return changes, nil
}

// headerPath guesses the new path from "diff --git a/<old> b/<new>". It is
// only used when no rename or +++ line follows, as for binary files.
func headerPath(line string) string {
	rest := strings.TrimPrefix(line, "diff --git ")
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		return rest[i+len(" b/"):]
	}
	return strings.TrimPrefix(rest, "a/")
}

// unquotePath strips the trailing tab git adds to names with spaces and
// undoes C-style quoting of unusual names.
func unquotePath(p string) string {
	p = strings.TrimSuffix(p, "\t")
	if strings.HasPrefix(p, `"`) {
		if unquoted, err := strconv.Unquote(p); err == nil {
			return unquoted
		}
	}
	return p
}
