package integration

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	projectTagPrefix = "claudecode_project_"
	userTagPrefix    = "claudecode_user_"
)

// shortHash returns the first 16 hex characters of the SHA-256 of s.
func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// GitRoot returns the top-level directory of the git work tree containing
// dir, or "" when dir is not inside one.
func GitRoot(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// projectBase is the git root of dir, falling back to dir itself.
func projectBase(dir string) string {
	if root := GitRoot(dir); root != "" {
		return root
	}
	return dir
}

// ContainerTag identifies the project that dir belongs to. All directories
// of one repository share a tag.
func ContainerTag(dir string) string {
	return projectTagPrefix + shortHash(projectBase(dir))
}

// ProjectName is the last path element of the project's base directory.
func ProjectName(dir string) string {
	base := filepath.Base(filepath.Clean(projectBase(dir)))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "unknown"
	}
	return base
}

// UserContainerTag identifies the developer across projects, preferring the
// configured git email over the login name.
func UserContainerTag() string {
	out, err := exec.Command("git", "config", "user.email").Output()
	if err == nil {
		if email := strings.TrimSpace(string(out)); email != "" {
			return userTagPrefix + shortHash(email)
		}
	}
	for _, key := range []string{"USER", "USERNAME"} {
		if name := os.Getenv(key); name != "" {
			return userTagPrefix + shortHash(name)
		}
	}
	return userTagPrefix + shortHash("anonymous")
}
