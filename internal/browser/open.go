// Package browser opens links from chat messages in the user's browser.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Open opens the specified URL in the user's default browser.
// Only http and https links are opened.
func Open(link string) error {
	name, args, err := command(runtime.GOOS, link)
	if err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

// command returns the launcher for goos.
func command(goos, link string) (string, []string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", nil, fmt.Errorf("browser.Open: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, fmt.Errorf("browser.Open: unsupported scheme %q", u.Scheme)
	}
	switch goos {
	case "darwin":
		return "open", []string{link}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{link}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", link}, nil
	default:
		return "", nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}
