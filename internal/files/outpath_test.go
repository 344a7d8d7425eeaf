package files

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCheckOutputPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink not permitted on Windows")
	}
	tmp := realTempDir(t)
	videos := filepath.Join(tmp, "videos", "2026")
	if err := os.MkdirAll(videos, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	existing := filepath.Join(videos, "clip.mp4")
	if err := os.WriteFile(existing, []byte("MP4"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	mustLink := func(target, link string) string {
		t.Helper()
		if err := os.Symlink(target, link); err != nil {
			t.Fatalf("symlink: %v", err)
		}
		return link
	}
	fileLink := mustLink(existing, filepath.Join(videos, "latest.mp4"))
	dirLink := mustLink(videos, filepath.Join(tmp, "current"))
	ancestorLink := mustLink(filepath.Join(tmp, "videos"), filepath.Join(tmp, "archive"))

	tests := []struct {
		name   string
		path   string
		unsafe bool
		at     string
	}{
		{name: "new file in real dir", path: filepath.Join(videos, "new.mp4")},
		{name: "existing regular file", path: existing},
		{name: "missing directories", path: filepath.Join(tmp, "a", "b", "config.yaml")},
		{name: "file is a symlink", path: fileLink, unsafe: true, at: fileLink},
		{name: "parent is a symlink", path: filepath.Join(dirLink, "new.mp4"), unsafe: true, at: dirLink},
		{name: "ancestor is a symlink", path: filepath.Join(ancestorLink, "2026", "new.mp4"), unsafe: true, at: ancestorLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOutputPath(tt.path)
			if !tt.unsafe {
				if err != nil {
					t.Fatalf("CheckOutputPath: %v", err)
				}
				return
			}
			var upe *UnsafePathError
			if !errors.As(err, &upe) || !errors.Is(err, ErrUnsafePath) {
				t.Fatalf("err = %v, want UnsafePathError", err)
			}
			if upe.At != tt.at || upe.Kind != "symlink" {
				t.Fatalf("flagged %s (%s), want %s", upe.At, upe.Kind, tt.at)
			}
		})
	}

	if err := CheckOutputPath("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestWritersRefuseSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink not permitted on Windows")
	}
	tmp := realTempDir(t)
	target := filepath.Join(tmp, "target.yaml")
	if err := os.WriteFile(target, []byte("original"), 0o600); err != nil {
		t.Fatalf("write target: %v", err)
	}
	link := filepath.Join(tmp, "config.yaml")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if err := AtomicWrite(link, []byte("new"), 0o600); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("AtomicWrite err = %v, want ErrUnsafePath", err)
	}
	if _, _, err := CreateAtomic(link, &hookReader{data: "new"}, 0o600); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("CreateAtomic err = %v, want ErrUnsafePath", err)
	}
	if data, _ := os.ReadFile(target); string(data) != "original" {
		t.Fatalf("target modified through symlink: %q", data)
	}
}

func TestAncestry(t *testing.T) {
	root := string(filepath.Separator)
	if runtime.GOOS == "windows" {
		root = `C:\`
	}
	p := filepath.Join(root, "home", "pi", "clip.mp4")
	got := ancestry(p)
	want := []string{
		filepath.Join(root, "home"),
		filepath.Join(root, "home", "pi"),
		p,
	}
	if len(got) != len(want) {
		t.Fatalf("ancestry = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ancestry = %v, want %v", got, want)
		}
	}
}

// realTempDir resolves links in the temp dir itself (macOS /var -> /private/var).
func realTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}
	return dir
}
