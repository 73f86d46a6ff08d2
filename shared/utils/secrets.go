package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretsDir - каталог Docker Secrets.
var SecretsDir = "/run/secrets"

// ErrEmptySecret возвращается для пустого файла секрета.
var ErrEmptySecret = errors.New("secret file is empty")

// ReadSecret читает обязательный секрет из файла Docker Secrets.
func ReadSecret(secretName string) (string, error) {
	filePath := filepath.Join(SecretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, filePath)
	}
	return secret, nil
}

// ReadOptionalSecret читает необязательный секрет: сначала файл, затем переменную окружения envKey.
// Если секрета нет нигде, возвращается пустая строка без ошибки.
func ReadOptionalSecret(secretName, envKey string) (string, error) {
	secret, err := ReadSecret(secretName)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, ErrEmptySecret) {
		return "", err
	}
	if envKey == "" {
		return "", nil
	}
	return strings.TrimSpace(os.Getenv(envKey)), nil
}
