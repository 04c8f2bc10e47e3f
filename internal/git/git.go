// Package git summarizes what an SDK update changed in the git worktree
// that holds the SDK root.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotAGitRepo is returned when no repository contains the path.
var ErrNotAGitRepo = errors.New("not a git repository")

// Summary counts changed files under a directory, relative to HEAD and
// the index.
type Summary struct {
	Head     string
	Added    int
	Modified int
	Deleted  int
	// Files lists every changed path relative to the worktree root.
	Files []string
}

// Changed reports whether anything changed.
func (s *Summary) Changed() bool {
	return s.Added+s.Modified+s.Deleted > 0
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d added, %d modified, %d deleted", s.Added, s.Modified, s.Deleted)
}

// Client reads repository state with go-git.
type Client struct {
	path    string
	exclude []string
}

// NewClient creates a client for the repository containing path. Parent
// directories are searched for the repository.
func NewClient(path string, exclude ...string) *Client {
	return &Client{path: path, exclude: exclude}
}

// Summarize counts the changes under the client path. Untracked files
// count as added.
func (c *Client) Summarize(ctx context.Context) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := c.open()
	if err != nil {
		return nil, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}

	prefix, err := relPrefix(worktree.Filesystem.Root(), c.path)
	if err != nil {
		return nil, err
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}

	head, err := headCommit(repo)
	if err != nil {
		return nil, err
	}
	s := &Summary{Head: head}

	for file, st := range status {
		if !strings.HasPrefix(file, prefix) || c.excluded(file) {
			continue
		}
		switch {
		case st.Worktree == gogit.Deleted || st.Staging == gogit.Deleted:
			s.Deleted++
		case st.Worktree == gogit.Untracked || st.Staging == gogit.Added:
			s.Added++
		case st.Worktree == gogit.Modified || st.Staging == gogit.Modified ||
			st.Staging == gogit.Renamed || st.Staging == gogit.Copied:
			s.Modified++
		default:
			continue
		}
		s.Files = append(s.Files, file)
	}
	sort.Strings(s.Files)
	return s, nil
}

// headCommit returns the commit hash of HEAD, or "" before the first
// commit.
func headCommit(repo *gogit.Repository) (string, error) {
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

func (c *Client) open() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(c.path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotAGitRepo, c.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}

func (c *Client) excluded(file string) bool {
	base := filepath.Base(file)
	for _, e := range c.exclude {
		if base == e {
			return true
		}
	}
	return false
}

// relPrefix returns path relative to root as a slash prefix, "" for the
// root itself.
func relPrefix(root, path string) (string, error) {
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}
	if p, err := filepath.EvalSymlinks(path); err == nil {
		path = p
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("resolve %s in worktree: %w", path, err)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel) + "/", nil
}
