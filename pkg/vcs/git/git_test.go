package git

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

func TestCommit(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "archive")
	repo := New(Options{Path: dir})
	if err := repo.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if st, err := repo.Commit(ctx, "nothing"); err != nil || st.Committed {
		t.Fatalf("empty commit: %+v %v", st, err)
	}
	if err := repo.WriteFile("report/bookmarks.json", []byte("[]")); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := repo.Commit(ctx, "archive report")
	if err != nil || !st.Committed || st.Hash == "" {
		t.Fatalf("commit: %+v %v", st, err)
	}
	head, err := repo.Head()
	if err != nil || head != st.Hash {
		t.Fatalf("head %s, commit %s (%v)", head, st.Hash, err)
	}
	if st, err := repo.Commit(ctx, "again"); err != nil || st.Committed {
		t.Fatalf("unchanged commit: %+v %v", st, err)
	}

	reopened := New(Options{Path: dir})
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if h, _ := reopened.Head(); h != head {
		t.Fatalf("reopened head = %s", h)
	}
}

func TestWriteFileStaysInWorktree(t *testing.T) {
	dir := t.TempDir()
	repo := New(Options{Path: dir})
	if err := repo.WriteFile("../../escape.json", []byte("{}")); err != nil {
		t.Fatalf("write: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "escape.json"))
	if len(matches) != 1 {
		t.Fatalf("file not written inside worktree")
	}
}

func TestPush(t *testing.T) {
	ctx := context.Background()
	local := New(Options{Path: filepath.Join(t.TempDir(), "local")})
	if err := local.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := local.Push(ctx); !errors.Is(err, ErrNoRemote) {
		t.Fatalf("push without remote: %v", err)
	}

	bareDir := filepath.Join(t.TempDir(), "remote.git")
	if _, err := gogit.PlainInit(bareDir, true); err != nil {
		t.Fatalf("init bare: %v", err)
	}
	repo := New(Options{Path: filepath.Join(t.TempDir(), "work"), RemoteURL: bareDir})
	if err := repo.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	repo.WriteFile("a.json", []byte("[]"))
	st, err := repo.Commit(ctx, "first")
	if err != nil || !st.Committed {
		t.Fatalf("commit: %+v %v", st, err)
	}
	if err := repo.Push(ctx); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := repo.Push(ctx); err != nil {
		t.Fatalf("second push: %v", err)
	}

	bare, err := gogit.PlainOpen(bareDir)
	if err != nil {
		t.Fatalf("open bare: %v", err)
	}
	ref, err := bare.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil || ref.Hash().String() != st.Hash {
		t.Fatalf("remote main = %v (%v), want %s", ref, err, st.Hash)
	}
}
