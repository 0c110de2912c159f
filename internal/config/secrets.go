package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Secrets holds the provider credentials read from the secrets file.
type Secrets struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

// LoadSecrets reads key=value lines from path. Blank lines and lines starting
// with # are ignored; unknown keys are ignored.
func LoadSecrets(path string) (Secrets, error) {
	var s Secrets

	f, err := os.Open(path)
	if err != nil {
		return s, fmt.Errorf("open secrets: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Secrets{}, fmt.Errorf("secrets %s:%d: expected key=value", path, lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return Secrets{}, fmt.Errorf("secrets %s:%d: empty key", path, lineNo)
		}

		switch strings.ToLower(key) {
		case "api_key":
			s.APIKey = value
		case "api_secret":
			s.APISecret = value
		case "access_token":
			s.AccessToken = value
		case "access_token_secret":
			s.AccessTokenSecret = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Secrets{}, fmt.Errorf("read secrets: %w", err)
	}

	return s, nil
}

// Missing returns the names of empty credentials.
func (s Secrets) Missing() []string {
	var missing []string
	for _, kv := range []struct {
		name  string
		value string
	}{
		{"api_key", s.APIKey},
		{"api_secret", s.APISecret},
		{"access_token", s.AccessToken},
		{"access_token_secret", s.AccessTokenSecret},
	} {
		if kv.value == "" {
			missing = append(missing, kv.name)
		}
	}
	return missing
}
