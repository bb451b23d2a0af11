package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/wayfind-ai/wayfind/internal/devlog"
)

// FindChrome locates a Chrome/Chromium executable. Resolution order:
// explicit path from config, WAYFIND_CHROME, then the usual install
// locations for the platform.
func FindChrome(customPath string) (string, error) {
	if customPath != "" {
		if !fileExists(customPath) {
			return "", fmt.Errorf("browser executable not found: %s", customPath)
		}
		return customPath, nil
	}
	if env := os.Getenv("WAYFIND_CHROME"); env != "" {
		if !fileExists(env) {
			return "", fmt.Errorf("WAYFIND_CHROME points to a missing file: %s", env)
		}
		return env, nil
	}

	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		home := os.Getenv("HOME")
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome"),
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		candidates = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/brave-browser",
			"/usr/bin/microsoft-edge",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	case "windows":
		programFiles := os.Getenv("ProgramFiles")
		if programFiles == "" {
			programFiles = `C:\Program Files`
		}
		localAppData := os.Getenv("LOCALAPPDATA")
		candidates = []string{
			filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(localAppData, "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(programFiles, "Microsoft", "Edge", "Application", "msedge.exe"),
		}
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	for _, c := range candidates {
		if fileExists(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("no Chrome/Chromium install found; set browser.path in config or WAYFIND_CHROME")
}

// IsRunning reports whether a debuggable Chrome answers on the port.
func IsRunning(port int, timeout time.Duration) bool {
	_, err := versionInfo(port, timeout)
	return err == nil
}

// WebSocketURL returns the browser-level CDP websocket endpoint of the
// Chrome listening on port.
func WebSocketURL(port int, timeout time.Duration) (string, error) {
	v, err := versionInfo(port, timeout)
	if err != nil {
		return "", err
	}
	if v.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("chrome on port %d reported no webSocketDebuggerUrl", port)
	}
	return v.WebSocketDebuggerURL, nil
}

type chromeVersion struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

func versionInfo(port int, timeout time.Duration) (*chromeVersion, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	url := fmt.Sprintf("http://127.0.0.1:%d/json/version", port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	var v chromeVersion
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Process is a Chrome instance launched by us (as opposed to one the
// user already had running, which we only attach to).
type Process struct {
	Path      string
	Port      int
	StartedAt time.Time
	cmd       *exec.Cmd
}

// Launch starts Chrome with remote debugging enabled on port, using a
// dedicated profile under dataDir, and waits for CDP to come up.
func Launch(exePath string, port int, headless bool, dataDir string) (*Process, error) {
	profileDir := filepath.Join(dataDir, "chrome-profile")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile dir: %w", err)
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", port),
		fmt.Sprintf("--user-data-dir=%s", profileDir),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-sync",
		"--disable-background-networking",
		"--disable-session-crashed-bubble",
		"--hide-crash-restore-bubble",
		"--password-store=basic",
	}
	if headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	if runtime.GOOS == "linux" {
		args = append(args, "--disable-dev-shm-usage")
	}
	args = append(args, "about:blank")

	cmd := exec.Command(exePath, args...)
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}
	devlog.Tagf("Browser", "launched %s (pid %d) on port %d", exePath, cmd.Process.Pid, port)

	p := &Process{Path: exePath, Port: port, StartedAt: time.Now(), cmd: cmd}
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if IsRunning(port, 500*time.Millisecond) {
			return p, nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	killProcessGroup(cmd, true)
	return nil, fmt.Errorf("chrome CDP did not start on port %d within 15s", port)
}

// Stop shuts the launched Chrome down, escalating to a hard kill after
// the timeout.
func (p *Process) Stop(timeout time.Duration) error {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	killProcessGroup(p.cmd, false)

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		killProcessGroup(p.cmd, true)
		return nil
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
