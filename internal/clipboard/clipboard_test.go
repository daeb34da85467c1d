package clipboard

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestSelectCommandDarwin(t *testing.T) {
	cmd, err := SelectCommand("darwin", func(name string) (string, error) {
		if name == "pbcopy" {
			return "/usr/bin/pbcopy", nil
		}
		return "", errors.New("not found")
	})
	if err != nil {
		t.Fatalf("expected command, got error: %v", err)
	}
	if cmd.Path != "/usr/bin/pbcopy" {
		t.Fatalf("unexpected path: %s", cmd.Path)
	}
	if len(cmd.Args) != 0 {
		t.Fatalf("did not expect args for pbcopy: %#v", cmd.Args)
	}
}

func TestSelectCommandLinuxPrefersWlCopy(t *testing.T) {
	cmd, err := SelectCommand("linux", func(name string) (string, error) {
		switch name {
		case "wl-copy":
			return "/usr/bin/wl-copy", nil
		case "xclip":
			return "/usr/bin/xclip", nil
		default:
			return "", errors.New("not found")
		}
	})
	if err != nil {
		t.Fatalf("expected command, got error: %v", err)
	}
	if cmd.Path != "/usr/bin/wl-copy" {
		t.Fatalf("expected wl-copy, got %q", cmd.Path)
	}
}

func TestSelectCommandLinuxFallsBackToXclip(t *testing.T) {
	cmd, err := SelectCommand("linux", func(name string) (string, error) {
		if name == "xclip" {
			return "/usr/bin/xclip", nil
		}
		return "", errors.New("not found")
	})
	if err != nil {
		t.Fatalf("expected command, got error: %v", err)
	}
	if cmd.Path != "/usr/bin/xclip" {
		t.Fatalf("expected xclip, got %q", cmd.Path)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "-selection" || cmd.Args[1] != "clipboard" {
		t.Fatalf("unexpected xclip args: %#v", cmd.Args)
	}
}

func TestSelectCommandUnavailable(t *testing.T) {
	_, err := SelectCommand("linux", func(string) (string, error) {
		return "", errors.New("not found")
	})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestSelectCommandLinuxFallsBackToXsel(t *testing.T) {
	cmd, err := SelectCommand("linux", func(name string) (string, error) {
		if name == "xsel" {
			return "/usr/bin/xsel", nil
		}
		return "", errors.New("not found")
	})
	if err != nil {
		t.Fatalf("expected command, got error: %v", err)
	}
	if cmd.Path != "/usr/bin/xsel" || len(cmd.Args) != 2 || cmd.Args[0] != "--clipboard" {
		t.Fatalf("unexpected command: %#v", cmd)
	}
}

func TestSelectCommandWindows(t *testing.T) {
	cmd, err := SelectCommand("windows", func(name string) (string, error) {
		if name == "clip.exe" {
			return `C:\Windows\System32\clip.exe`, nil
		}
		return "", errors.New("not found")
	})
	if err != nil || cmd.Path != `C:\Windows\System32\clip.exe` {
		t.Fatalf("cmd=%#v err=%v", cmd, err)
	}
}

func TestSelectCommandUnknownOS(t *testing.T) {
	_, err := SelectCommand("plan9", func(string) (string, error) { return "/bin/x", nil })
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRunPipesTextToTool(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	out := filepath.Join(t.TempDir(), "clip.txt")
	cmd := Command{Path: sh, Args: []string{"-c", `cat > "$0"`, out}}
	if err := run(context.Background(), cmd, "cd '/src/app' && claude --resume abc"); err != nil {
		t.Fatalf("run: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "cd '/src/app' && claude --resume abc" {
		t.Fatalf("got %q", got)
	}
}

func TestRunReportsToolFailure(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	err = run(context.Background(), Command{Path: sh, Args: []string{"-c", "echo no display >&2; exit 1"}}, "x")
	if err == nil || !strings.Contains(err.Error(), "no display") {
		t.Fatalf("err=%v", err)
	}
}
