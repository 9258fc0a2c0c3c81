package cmd

import (
	"bufio"
	"crypto/subtle"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/live-labs/notevault/internal/credential"
)

// PasswordEnvVar names the environment variable consulted before prompting,
// for non-interactive use.
const PasswordEnvVar = "NOTEVAULT_PASSWORD"

// ReadPassword reads a password from the terminal without echoing.
// The caller is responsible for clearing the returned bytes.
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)

	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // New line after password

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match.
func ReadPasswordConfirm() ([]byte, error) {
	password1, err := ReadPassword("Enter new password: ")
	if err != nil {
		return nil, err
	}
	defer credential.ClearBytes(password1)

	password2, err := ReadPassword("Confirm new password: ")
	if err != nil {
		return nil, err
	}
	defer credential.ClearBytes(password2)

	if subtle.ConstantTimeCompare(password1, password2) != 1 {
		return nil, fmt.Errorf("passwords do not match")
	}

	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// PasswordFromEnv reads the password from PasswordEnvVar, or nil if unset.
func PasswordFromEnv() []byte {
	password := os.Getenv(PasswordEnvVar)
	if password == "" {
		return nil
	}
	// Copy so the returned slice can be cleared independently.
	result := make([]byte, len(password))
	copy(result, password)
	return result
}

// readLine prompts and reads a single trimmed line. io.EOF-style errors are
// reported through the bool.
func readLine(scanner *bufio.Scanner, prompt string) (string, bool) {
	fmt.Print(prompt)
	if !scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(scanner.Text()), true
}

// readBody reads a multi-line note body terminated by a single "." line.
func readBody(scanner *bufio.Scanner) (string, bool) {
	fmt.Println("Enter note body, finish with a single '.' on its own line:")
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "." {
			return strings.Join(lines, "\n"), true
		}
		lines = append(lines, line)
	}
	return "", false
}
