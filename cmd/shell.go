package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/live-labs/notevault/internal/credential"
	"github.com/live-labs/notevault/internal/keyring"
	"github.com/live-labs/notevault/internal/store"
	"github.com/live-labs/notevault/internal/vault"
)

// runShell is the interactive loop. Each iteration renders a prompt for the
// machine's current state and feeds exactly one user intent back into it; the
// machine decides every transition.
func runShell(ctx context.Context, m *vault.Machine, records *store.Store, log *slog.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// A stored password that fails once is not consulted again; otherwise a
	// stale environment or keyring value would lock the shell in a retry
	// loop that never reaches the prompt.
	storedFailed := false

	for ctx.Err() == nil {
		switch m.State() {
		case vault.StateEmpty:
			if !setupPassword(m) {
				return nil
			}
		case vault.StateInvalidNewPassword:
			fmt.Println("Error: provided password did not satisfy requirements!")
			fmt.Println(credential.Requirements)
			m.Acknowledge()
		case vault.StateLoggedOff:
			cont, usedStored := login(m, records, storedFailed)
			if !cont {
				return nil
			}
			if usedStored && m.State() == vault.StateInvalidPassword {
				storedFailed = true
			}
		case vault.StateInvalidPassword:
			fmt.Println("Error: wrong password! The app remains locked.")
			m.Acknowledge()
		case vault.StateLoggedOn:
			if !dispatch(scanner, m, records, log) {
				return nil
			}
		default:
			// Notification states left over from a flow; dismiss.
			m.Acknowledge()
		}
	}
	return nil
}

// setupPassword handles the Empty state: first password for a new vault.
// Returns false when input is exhausted.
func setupPassword(m *vault.Machine) bool {
	fmt.Printf("Welcome to %s! No password is set yet.\n", AppName)
	fmt.Println(credential.Requirements)

	password := PasswordFromEnv()
	if password == nil {
		var err error
		password, err = ReadPasswordConfirm()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			return false
		}
	}
	defer credential.ClearBytes(password)

	if err := m.SetNewPassword(password); err != nil {
		if !errors.Is(err, credential.ErrRequirementsNotMet) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			return false
		}
		// Machine is now in InvalidNewPassword; the loop renders it.
		return true
	}

	fmt.Println("Password set. Please log in.")
	return true
}

// login handles the LoggedOff state. Password sources in order: environment,
// OS keyring, terminal prompt; skipStored jumps straight to the prompt. The
// first result is false when input is exhausted, the second reports whether a
// stored source supplied the password.
func login(m *vault.Machine, records *store.Store, skipStored bool) (bool, bool) {
	var password []byte
	usedStored := false

	if !skipStored {
		password = PasswordFromEnv()
		if password == nil {
			if vaultID, err := records.VaultID(); err == nil {
				if stored, err := keyring.GetPassword(vaultID); err == nil {
					password = []byte(stored)
				}
			}
		}
		usedStored = password != nil
	}

	if password == nil {
		var err error
		password, err = ReadPassword("Enter password (Ctrl+D to quit): ")
		if err != nil {
			return false, false
		}
		if len(password) == 0 {
			return true, false
		}
	}
	defer credential.ClearBytes(password)

	if err := m.Login(password); err != nil && !errors.Is(err, vault.ErrAuthenticationFailed) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return false, usedStored
	}
	return true, usedStored
}

// dispatch reads one command in the LoggedOn state. Returns false to exit.
func dispatch(scanner *bufio.Scanner, m *vault.Machine, records *store.Store, log *slog.Logger) bool {
	cmd, ok := readLine(scanner, "notevault> ")
	if !ok {
		return false
	}

	switch cmd {
	case "":
	case "help":
		fmt.Println("Available commands: add, find, del, edit, passwd, reset, logout, exit")
	case "add":
		addNote(scanner, m)
	case "find":
		findNote(scanner, m, log)
	case "del", "delete":
		deleteNote(scanner, m)
	case "edit":
		editNote(scanner, m, log)
	case "passwd":
		changePassword(m, records)
	case "reset":
		hardReset(scanner, m, records)
	case "logout":
		m.Logoff()
		fmt.Println("Logged off.")
	case "exit", "quit":
		fmt.Println("Bye!")
		return false
	default:
		fmt.Println("Unknown command:", cmd)
	}
	return true
}

func addNote(scanner *bufio.Scanner, m *vault.Machine) {
	if err := m.StartAdd(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}

	title, ok := readLine(scanner, "Title: ")
	if !ok || title == "" {
		m.Cancel()
		return
	}
	body, ok := readBody(scanner)
	if !ok || body == "" {
		m.Cancel()
		return
	}

	if err := m.SubmitRecord(title, body); err != nil {
		if errors.Is(err, store.ErrDuplicateTitle) {
			fmt.Println("Error: a note with this title already exists. Pick a different title or use 'edit'.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		m.Cancel()
		return
	}
	fmt.Println("Note stored.")
}

func findNote(scanner *bufio.Scanner, m *vault.Machine, log *slog.Logger) {
	body, found := lookup(scanner, m, log)
	if found {
		fmt.Println("--- note ---")
		fmt.Println(body)
		fmt.Println("------------")
	}
	m.Acknowledge()
}

// lookup runs the find flow once and reports whether a readable note was
// found. The machine is left in RecordFound or RecordNotFound.
func lookup(scanner *bufio.Scanner, m *vault.Machine, log *slog.Logger) (string, bool) {
	if err := m.StartFind(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return "", false
	}

	title, ok := readLine(scanner, "Title: ")
	if !ok || title == "" {
		m.Cancel()
		return "", false
	}

	body, err := m.LookupRecord(title)
	switch {
	case err != nil && vault.IsCipherError(err):
		// Confidentiality over detail: the note reads as missing.
		fmt.Println("Note not found.")
		log.Warn("lookup hit an unreadable record", "title", title)
		return "", false
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return "", false
	case m.State() == vault.StateRecordNotFound:
		fmt.Println("Note not found.")
		return "", false
	}
	return body, true
}

func deleteNote(scanner *bufio.Scanner, m *vault.Machine) {
	if err := m.StartDelete(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}

	title, ok := readLine(scanner, "Title: ")
	if !ok || title == "" {
		m.Cancel()
		return
	}

	if err := m.RemoveRecord(title); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}
	fmt.Println("Note deleted (if it existed).")
}

// editNote sequences find, diff preview and an in-place replace. The machine
// gains no extra states; the shell just chains legal intents.
func editNote(scanner *bufio.Scanner, m *vault.Machine, log *slog.Logger) {
	fmt.Println("Find the note to edit.")
	oldBody, found := lookup(scanner, m, log)
	m.Acknowledge()
	if !found {
		return
	}

	fmt.Println("--- current body ---")
	fmt.Println(oldBody)
	fmt.Println("--------------------")

	newBody, ok := readBody(scanner)
	if !ok || newBody == "" {
		fmt.Println("Edit cancelled.")
		return
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldBody, newBody, false)
	fmt.Println("Changes:")
	fmt.Println(dmp.DiffPrettyText(diffs))

	answer, ok := readLine(scanner, "Apply changes? [y/N]: ")
	if !ok || answer != "y" {
		fmt.Println("Edit cancelled.")
		return
	}

	title, ok := readLine(scanner, "Confirm title: ")
	if !ok || title == "" {
		fmt.Println("Edit cancelled.")
		return
	}

	if err := m.StartAdd(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}
	if err := m.ReplaceRecord(title, newBody); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		m.Cancel()
		return
	}
	fmt.Println("Note updated.")
}

func changePassword(m *vault.Machine, records *store.Store) {
	if err := m.StartChangePassword(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}

	current, err := ReadPassword("Enter current password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		m.Cancel()
		return
	}
	defer credential.ClearBytes(current)

	next, err := ReadPasswordConfirm()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		m.Cancel()
		return
	}
	defer credential.ClearBytes(next)

	if err := m.CompleteChangePassword(current, next); err != nil {
		switch {
		case errors.Is(err, vault.ErrAuthenticationFailed):
			fmt.Println("Error: current password is wrong.")
		case errors.Is(err, credential.ErrRequirementsNotMet):
			fmt.Println("Error: new password did not satisfy requirements!")
			fmt.Println(credential.Requirements)
		default:
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		m.Acknowledge()
		return
	}

	// Keep a stored keyring password in sync with the change.
	if vaultID, err := records.VaultID(); err == nil && keyring.HasPassword(vaultID) {
		if err := keyring.SavePassword(vaultID, string(next)); err == nil {
			fmt.Println("Keyring updated with new password.")
		}
	}
	fmt.Println("Password changed successfully.")
}

func hardReset(scanner *bufio.Scanner, m *vault.Machine, records *store.Store) {
	if err := m.StartHardReset(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}

	fmt.Println("This erases the vault configuration and ALL notes.")
	answer, ok := readLine(scanner, "Type 'yes' to confirm: ")

	// Grab the vault ID before the wipe destroys it.
	vaultID, vaultIDErr := records.VaultID()

	if err := m.ConfirmHardReset(ok && answer == "yes"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		m.Acknowledge()
		return
	}
	if m.State() != vault.StateEmpty {
		fmt.Println("Hard reset not confirmed.")
		m.Acknowledge()
		return
	}

	if vaultIDErr == nil {
		_ = keyring.DeletePassword(vaultID)
	}
	fmt.Println("Vault erased.")
}
