// Package git versions archived outline exports in a local repository.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

const remoteName = "origin"

// ErrNoRemote is returned by Push and Pull when no remote URL is configured.
var ErrNoRemote = errors.New("no remote configured")

// Status represents Git state following a commit attempt.
type Status struct {
	Committed bool   `json:"committed"`
	Hash      string `json:"hash,omitempty"`
}

// Repo describes the operations needed by the daemon.
type Repo interface {
	Init(ctx context.Context) error
	WriteFile(name string, data []byte) error
	Commit(ctx context.Context, message string) (Status, error)
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
}

// Options configures a FilesystemRepo.
type Options struct {
	Path      string
	Branch    string
	RemoteURL string
	// Token authenticates HTTP remotes. Empty means anonymous.
	Token  string
	Author string
	Email  string
}

// FilesystemRepo is a non-bare repository on disk driven by go-git.
type FilesystemRepo struct {
	opts Options
	repo *gogit.Repository
}

// New returns an unopened repo; call Init before use.
func New(opts Options) *FilesystemRepo {
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.Author == "" {
		opts.Author = "pdfmarks"
	}
	if opts.Email == "" {
		opts.Email = "pdfmarks@localhost"
	}
	return &FilesystemRepo{opts: opts}
}

// Path returns the worktree root.
func (r *FilesystemRepo) Path() string { return r.opts.Path }

// Init opens the repository at Path, creating it on the configured branch if
// needed, and points origin at the configured remote.
func (r *FilesystemRepo) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.opts.Path, 0o700); err != nil {
		return err
	}
	repo, err := gogit.PlainOpen(r.opts.Path)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		repo, err = gogit.PlainInitWithOptions(r.opts.Path, &gogit.PlainInitOptions{
			InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(r.opts.Branch)},
		})
	}
	if err != nil {
		return fmt.Errorf("open repo %s: %w", r.opts.Path, err)
	}
	r.repo = repo
	return r.ensureRemote()
}

func (r *FilesystemRepo) ensureRemote() error {
	if r.opts.RemoteURL == "" {
		return nil
	}
	remote, err := r.repo.Remote(remoteName)
	switch {
	case errors.Is(err, gogit.ErrRemoteNotFound):
	case err != nil:
		return err
	case len(remote.Config().URLs) > 0 && remote.Config().URLs[0] == r.opts.RemoteURL:
		return nil
	default:
		if err := r.repo.DeleteRemote(remoteName); err != nil {
			return err
		}
	}
	_, err = r.repo.CreateRemote(&gitconfig.RemoteConfig{Name: remoteName, URLs: []string{r.opts.RemoteURL}})
	return err
}

// WriteFile writes name, relative to the worktree root, creating parent directories.
func (r *FilesystemRepo) WriteFile(name string, data []byte) error {
	full := filepath.Join(r.opts.Path, filepath.Clean("/"+name))
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o600)
}

// Commit stages every change in the worktree and records a commit. A clean
// worktree commits nothing.
func (r *FilesystemRepo) Commit(ctx context.Context, message string) (Status, error) {
	if r.repo == nil {
		return Status{}, errors.New("repo not initialized")
	}
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return Status{}, err
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return Status{}, fmt.Errorf("stage: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return Status{}, err
	}
	if status.IsClean() {
		return Status{}, nil
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{Name: r.opts.Author, Email: r.opts.Email, When: time.Now()},
	})
	if err != nil {
		return Status{}, fmt.Errorf("commit: %w", err)
	}
	return Status{Committed: true, Hash: hash.String()}, nil
}

// Push pushes the configured branch to origin.
func (r *FilesystemRepo) Push(ctx context.Context) error {
	if r.opts.RemoteURL == "" {
		return ErrNoRemote
	}
	ref := plumbing.NewBranchReferenceName(r.opts.Branch)
	err := r.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(ref + ":" + ref)},
		Auth:       r.auth(),
	})
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// Pull fetches and fast-forward merges the configured branch.
func (r *FilesystemRepo) Pull(ctx context.Context) error {
	if r.opts.RemoteURL == "" {
		return ErrNoRemote
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(r.opts.Branch),
		Auth:          r.auth(),
	})
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func (r *FilesystemRepo) auth() transport.AuthMethod {
	if r.opts.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: r.opts.Author, Password: r.opts.Token}
}

// Head returns the hash of the branch tip.
func (r *FilesystemRepo) Head() (string, error) {
	if r.repo == nil {
		return "", errors.New("repo not initialized")
	}
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(r.opts.Branch), true)
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}
