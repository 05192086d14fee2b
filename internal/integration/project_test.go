package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"
)

var tagPattern = regexp.MustCompile(`^claudecode_project_[0-9a-f]{16}$`)

func TestContainerTag_NonGitDir(t *testing.T) {
	dir := t.TempDir()
	tag := ContainerTag(dir)
	if !tagPattern.MatchString(tag) {
		t.Errorf("ContainerTag = %q", tag)
	}
	if tag != projectTagPrefix+shortHash(projectBase(dir)) {
		t.Errorf("ContainerTag = %q, want hash of %s", tag, dir)
	}
	if ContainerTag(dir) != tag {
		t.Error("ContainerTag is not stable")
	}
}

func TestContainerTag_GitSubdirsShareTag(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	root := t.TempDir()
	if err := exec.Command("git", "init", "-q", root).Run(); err != nil {
		t.Skipf("git init failed: %v", err)
	}
	sub := filepath.Join(root, "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	if GitRoot(sub) == "" {
		t.Fatal("GitRoot returned empty inside a repository")
	}
	if ContainerTag(sub) != ContainerTag(root) {
		t.Error("subdirectory tag differs from repository root tag")
	}
	if got, want := ProjectName(sub), filepath.Base(GitRoot(root)); got != want {
		t.Errorf("ProjectName = %q, want %q", got, want)
	}
}

func TestProjectName_NonGitDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-service")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if GitRoot(dir) != "" {
		t.Skip("temp dir is inside a git work tree")
	}
	if got := ProjectName(dir); got != "my-service" {
		t.Errorf("ProjectName = %q, want my-service", got)
	}
}

func TestShortHash(t *testing.T) {
	// sha256("abc") = ba7816bf8f01cfea...
	if got := shortHash("abc"); got != "ba7816bf8f01cfea" {
		t.Errorf("shortHash = %q", got)
	}
}

func TestUserContainerTag(t *testing.T) {
	tag := UserContainerTag()
	if !regexp.MustCompile(`^claudecode_user_[0-9a-f]{16}$`).MatchString(tag) {
		t.Errorf("UserContainerTag = %q", tag)
	}
}
