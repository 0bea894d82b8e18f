package gitsource

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Per-file cap keeps a pathological repo from exhausting memory
const maxFileSize = 1 << 20

// Options controls a fetch
type Options struct {
	Branch   string
	Username string
	Password string
}

// Fetch shallow-clones a repository into memory and returns its files
// as path -> content. The .git directory and files over the size cap
// are skipped.
func Fetch(ctx context.Context, repoURL string, opts Options) (map[string]string, error) {
	cloneOpts := &git.CloneOptions{
		URL:          repoURL,
		Depth:        1,
		SingleBranch: true,
	}
	if opts.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
	}
	if opts.Password != "" {
		username := opts.Username
		if username == "" {
			username = "git"
		}
		cloneOpts.Auth = &http.BasicAuth{Username: username, Password: opts.Password}
	}

	fs := memfs.New()
	if _, err := git.CloneContext(ctx, memory.NewStorage(), fs, cloneOpts); err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}

	files := make(map[string]string)
	if err := collectFiles(fs, "/", files); err != nil {
		return nil, fmt.Errorf("failed to read cloned tree: %w", err)
	}
	return files, nil
}

func collectFiles(fs billy.Filesystem, dir string, files map[string]string) error {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := path.Join(dir, entry.Name())
		if entry.IsDir() {
			if entry.Name() == ".git" {
				continue
			}
			if err := collectFiles(fs, name, files); err != nil {
				return err
			}
			continue
		}
		if entry.Size() > maxFileSize {
			continue
		}

		f, err := fs.Open(name)
		if err != nil {
			return err
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return err
		}
		// Paths are relative to the repository root
		files[name[1:]] = string(content)
	}
	return nil
}
