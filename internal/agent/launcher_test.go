package agent

import (
	"strings"
	"testing"
)

func TestFreePort(t *testing.T) {
	p1, err := FreePort()
	if err != nil {
		t.Fatal(err)
	}
	if p1 <= 0 || p1 > 65535 {
		t.Errorf("invalid port %d", p1)
	}
}

func TestFindBinaryMissing(t *testing.T) {
	if got := FindBinary("definitely-not-a-real-binary-name"); got != "" {
		t.Errorf("expected empty path, got %s", got)
	}
}

func TestAugmentedPathKeepsExisting(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	path := augmentedPath()
	if !strings.Contains(path, "/usr/bin") {
		t.Errorf("existing PATH entries must be preserved, got %s", path)
	}
	if !strings.Contains(path, "/usr/local/bin") {
		t.Errorf("expected tool directories prepended, got %s", path)
	}
}
