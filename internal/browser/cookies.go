// Package browser extracts the Gemini session cookies from a local browser's
// cookie store. It is a one-shot setup utility: its only contract with the
// server is to persist the two secret values into .env before startup.
package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/browserutils/kooky"
	"github.com/browserutils/kooky/browser/firefox"
	"github.com/joho/godotenv"
)

const googleDomain = "google.com"

// Cookie names this tool extracts.
const (
	namePSID   = "__Secure-1PSID"
	namePSIDTS = "__Secure-1PSIDTS"
)

// FetchCookies locates the local Firefox cookie store, extracts the two
// Gemini session cookies, and persists them into .env. The running browser
// holds a lock on cookies.sqlite, so the database is copied aside first.
func FetchCookies(ctx context.Context) error {
	cookies, err := readFirefoxCookies(ctx)
	if err != nil {
		return err
	}

	if cookies[namePSID] == "" {
		return fmt.Errorf("cookie %s not found; log into https://gemini.google.com/ in Firefox and close it before retrying", namePSID)
	}

	if err := persistToEnv(cookies); err != nil {
		return fmt.Errorf("failed to persist cookies: %w", err)
	}

	fmt.Println("Cookies saved to .env. You can now start the server.")
	return nil
}

func readFirefoxCookies(ctx context.Context) (map[string]string, error) {
	found := make(map[string]string)

	var cookies []*kooky.Cookie
	var err error

	if db := findFirefoxCookieDB(); db != "" {
		fmt.Printf("Found Firefox cookie store: %s\n", db)

		// Copy aside to dodge the browser's file lock.
		tmp := filepath.Join(os.TempDir(), "gemini-web2api-cookies.sqlite")
		if copyErr := copyFile(db, tmp); copyErr == nil {
			defer os.Remove(tmp)
			cookies, err = firefox.ReadCookies(ctx, tmp)
		} else {
			cookies, err = firefox.ReadCookies(ctx, db)
		}
	} else {
		// Fall back to whatever browser kooky can find.
		cookies, err = kooky.ReadCookies(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	for _, c := range cookies {
		if !strings.Contains(c.Domain, googleDomain) {
			continue
		}
		if c.Name == namePSID || c.Name == namePSIDTS {
			if found[c.Name] == "" {
				found[c.Name] = c.Value
			}
		}
	}

	return found, nil
}

// findFirefoxCookieDB walks the default profile locations for cookies.sqlite.
func findFirefoxCookieDB() string {
	var roots []string

	if appData := os.Getenv("APPDATA"); appData != "" {
		roots = append(roots, filepath.Join(appData, "Mozilla", "Firefox", "Profiles"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots,
			filepath.Join(home, ".mozilla", "firefox"),
			filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles"),
		)
	}

	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		// Prefer the default-release profile when present.
		for _, pass := range []bool{true, false} {
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				if pass && !strings.Contains(entry.Name(), ".default-release") {
					continue
				}
				candidate := filepath.Join(root, entry.Name(), "cookies.sqlite")
				if _, err := os.Stat(candidate); err == nil {
					return candidate
				}
			}
		}
	}
	return ""
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// persistToEnv merges the cookies into .env, preserving unrelated keys.
func persistToEnv(cookies map[string]string) error {
	env, err := godotenv.Read(".env")
	if err != nil {
		env = make(map[string]string)
	}

	for name, value := range cookies {
		env[name] = value
	}

	return godotenv.Write(env, ".env")
}
