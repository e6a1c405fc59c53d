package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrKeyNotFound is returned when the env file has no line for the key.
var ErrKeyNotFound = errors.New("key not found")

// ReadEnvKey scans a KEY=VALUE file line by line and returns the value of the
// first line starting with key+"=". Values keep any further '=' characters.
func ReadEnvKey(path, key string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	prefix := key + "="
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		v := strings.TrimSpace(strings.TrimPrefix(line, prefix))
		if v == "" {
			return "", fmt.Errorf("%s: %w", key, ErrKeyNotFound)
		}
		return v, nil
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read env file: %w", err)
	}
	return "", fmt.Errorf("%s: %w", key, ErrKeyNotFound)
}
