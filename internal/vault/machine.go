package vault

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/live-labs/notevault/internal/cipher"
	"github.com/live-labs/notevault/internal/config"
	"github.com/live-labs/notevault/internal/credential"
	"github.com/live-labs/notevault/internal/store"
)

var (
	// ErrAuthenticationFailed reports a rejected password. Deliberately
	// carries no detail about why.
	ErrAuthenticationFailed = errors.New("invalid password")
	// ErrIllegalState marks an intent that the current state does not
	// permit. This is a programming error in the caller, not user input.
	ErrIllegalState = errors.New("operation not allowed in current state")
	// ErrEmptyRecord rejects a record with a missing title or body.
	ErrEmptyRecord = errors.New("record title and body must not be empty")
)

// Machine gates vault operations on the current access state. It owns the
// session and is the only component able to decrypt record bodies.
type Machine struct {
	log     *slog.Logger
	cfg     *config.Config
	records *store.Store
	state   State
	session *Session
}

// New creates a machine over a loaded configuration and an open record store.
// The initial state is Empty for a vault that has never had a password set,
// LoggedOff otherwise.
func New(cfg *config.Config, records *store.Store, log *slog.Logger) *Machine {
	state := StateLoggedOff
	if !cfg.HasVerifier() {
		state = StateEmpty
	}
	return &Machine{
		log:     log,
		cfg:     cfg,
		records: records,
		state:   state,
	}
}

// State returns the current access state, the machine's only externally
// observable output.
func (m *Machine) State() State {
	return m.state
}

// SetNewPassword initializes the vault password from the Empty state. A
// password failing the requirements moves to InvalidNewPassword; otherwise the
// verifier is derived, persisted, and the machine moves to LoggedOff.
func (m *Machine) SetNewPassword(password []byte) error {
	if m.state != StateEmpty {
		return fmt.Errorf("%w: set new password in state %q", ErrIllegalState, m.state)
	}

	if !credential.MeetsRequirements(password) {
		m.state = StateInvalidNewPassword
		return credential.ErrRequirementsNotMet
	}

	master, err := credential.DeriveKey(password, m.cfg.PasswordSalt)
	if err != nil {
		return err
	}
	defer credential.ClearBytes(master)

	verifier := credential.Verifier(master)
	defer credential.ClearBytes(verifier)

	m.cfg.SetVerifier(verifier)
	if err := m.cfg.Save(); err != nil {
		return err
	}

	m.log.Debug("vault password initialized")
	m.state = StateLoggedOff
	return nil
}

// Login verifies a password from the LoggedOff state and, on success,
// establishes the session. Failure moves to InvalidPassword with the session
// absent and key material discarded.
func (m *Machine) Login(password []byte) error {
	if m.state != StateLoggedOff {
		return fmt.Errorf("%w: login in state %q", ErrIllegalState, m.state)
	}

	// One KDF invocation per attempt: the same master feeds both the
	// verifier comparison and the session cipher.
	master, err := credential.DeriveKey(password, m.cfg.PasswordSalt)
	if err != nil {
		return err
	}
	defer credential.ClearBytes(master)

	verifier := credential.Verifier(master)
	defer credential.ClearBytes(verifier)

	if subtle.ConstantTimeCompare(verifier, m.cfg.Verifier()) != 1 {
		m.log.Info("login failed")
		m.state = StateInvalidPassword
		return ErrAuthenticationFailed
	}

	session, err := newSession(master)
	if err != nil {
		m.state = StateInvalidPassword
		return err
	}

	m.log.Info("login successful")
	m.session = session
	m.state = StateLoggedOn
	return nil
}

// Logoff discards the session and returns to LoggedOff. Legal from any state
// holding a session.
func (m *Machine) Logoff() {
	m.session.Destroy()
	m.session = nil
	if m.state != StateEmpty && m.state != StateInvalidNewPassword {
		m.state = StateLoggedOff
	}
}

// Close releases the session on process exit. The record store and config are
// owned by the caller.
func (m *Machine) Close() {
	m.session.Destroy()
	m.session = nil
}

// Acknowledge dismisses a terminal notification state: error indicators return
// to their retry state, find results return to LoggedOn.
func (m *Machine) Acknowledge() {
	switch m.state {
	case StateInvalidNewPassword:
		m.state = StateEmpty
	case StateInvalidPassword:
		m.state = StateLoggedOff
	case StateRecordFound, StateRecordNotFound:
		m.state = StateLoggedOn
	case StateChangePasswordFailed, StateConfirmHardResetFailed:
		m.state = StateLoggedOn
	}
}

// StartAdd enters the add-record flow.
func (m *Machine) StartAdd() error { return m.startOperation(StateAddRecord) }

// StartFind enters the find-record flow.
func (m *Machine) StartFind() error { return m.startOperation(StateFindRecord) }

// StartDelete enters the delete-record flow.
func (m *Machine) StartDelete() error { return m.startOperation(StateDeleteRecord) }

func (m *Machine) startOperation(next State) error {
	if m.state != StateLoggedOn {
		return fmt.Errorf("%w: %q in state %q", ErrIllegalState, next, m.state)
	}
	m.state = next
	return nil
}

// Cancel abandons an in-progress operation and returns to LoggedOn. The
// session is unaffected.
func (m *Machine) Cancel() error {
	switch m.state {
	case StateAddRecord, StateFindRecord, StateDeleteRecord,
		StateChangePassword, StateConfirmHardReset:
		m.state = StateLoggedOn
		return nil
	}
	return fmt.Errorf("%w: cancel in state %q", ErrIllegalState, m.state)
}

// SubmitRecord encrypts the body under the session cipher and stores it. On a
// duplicate title the machine stays in AddRecord and surfaces the error so the
// user can pick another title; a storage failure likewise keeps the state (the
// vault remains usable for reads). Success returns to LoggedOn.
func (m *Machine) SubmitRecord(title, body string) error {
	if m.state != StateAddRecord {
		return fmt.Errorf("%w: submit record in state %q", ErrIllegalState, m.state)
	}
	if title == "" || body == "" {
		return ErrEmptyRecord
	}

	token, err := m.session.cipher.Encrypt(body)
	if err != nil {
		return err
	}
	if err := m.records.Put(title, token); err != nil {
		return err
	}

	m.log.Debug("record stored")
	m.state = StateLoggedOn
	return nil
}

// LookupRecord fetches and decrypts a record by title. A hit moves to
// RecordFound and returns the body; a miss moves to RecordNotFound. A token
// that fails authentication is also treated as RecordNotFound, so raw
// ciphertext never leaks; the error is surfaced and logged as a tamper signal.
func (m *Machine) LookupRecord(title string) (string, error) {
	if m.state != StateFindRecord {
		return "", fmt.Errorf("%w: lookup record in state %q", ErrIllegalState, m.state)
	}

	token, found, err := m.records.Get(title)
	if err != nil {
		return "", err
	}
	if !found {
		m.state = StateRecordNotFound
		return "", nil
	}

	body, err := m.session.cipher.Decrypt(token)
	if err != nil {
		m.log.Warn("stored record failed decryption, possible tampering or corruption")
		m.state = StateRecordNotFound
		return "", err
	}

	m.state = StateRecordFound
	return body, nil
}

// ReplaceRecord encrypts the body and overwrites the stored record in one
// transaction. The edit flow uses it instead of delete-then-add, so a failed
// write never loses the original body.
func (m *Machine) ReplaceRecord(title, body string) error {
	if m.state != StateAddRecord {
		return fmt.Errorf("%w: replace record in state %q", ErrIllegalState, m.state)
	}
	if title == "" || body == "" {
		return ErrEmptyRecord
	}

	token, err := m.session.cipher.Encrypt(body)
	if err != nil {
		return err
	}
	if err := m.records.Replace(title, token); err != nil {
		return err
	}

	m.log.Debug("record replaced")
	m.state = StateLoggedOn
	return nil
}

// RemoveRecord deletes a record by title and returns to LoggedOn. An absent
// title is not an error.
func (m *Machine) RemoveRecord(title string) error {
	if m.state != StateDeleteRecord {
		return fmt.Errorf("%w: remove record in state %q", ErrIllegalState, m.state)
	}
	if err := m.records.Delete(title); err != nil {
		return err
	}
	m.state = StateLoggedOn
	return nil
}

// StartChangePassword enters the password-change flow from any authenticated
// state.
func (m *Machine) StartChangePassword() error {
	if !m.state.Authenticated() {
		return fmt.Errorf("%w: change password in state %q", ErrIllegalState, m.state)
	}
	m.state = StateChangePassword
	return nil
}

// CompleteChangePassword re-verifies the current password, derives a new
// verifier and re-encrypts every stored record under the new key, so old
// records stay readable after the change. The salt is fixed at vault creation
// and is kept. Any failure moves to ChangePasswordFailed with the old
// credentials still in force.
func (m *Machine) CompleteChangePassword(current, next []byte) error {
	if m.state != StateChangePassword {
		return fmt.Errorf("%w: complete password change in state %q", ErrIllegalState, m.state)
	}

	if !credential.Verify(current, m.cfg.PasswordSalt, m.cfg.Verifier()) {
		m.state = StateChangePasswordFailed
		return ErrAuthenticationFailed
	}
	if !credential.MeetsRequirements(next) {
		m.state = StateChangePasswordFailed
		return credential.ErrRequirementsNotMet
	}

	newMaster, err := credential.DeriveKey(next, m.cfg.PasswordSalt)
	if err != nil {
		m.state = StateChangePasswordFailed
		return err
	}
	defer credential.ClearBytes(newMaster)

	newSess, err := newSession(newMaster)
	if err != nil {
		m.state = StateChangePasswordFailed
		return err
	}

	// Phase 1: decrypt everything under the old key and re-encrypt under
	// the new one. Nothing is written until every record converts.
	reencrypted := make(map[string]string)
	err = m.records.ForEach(func(title, token string) error {
		body, err := m.session.cipher.Decrypt(token)
		if err != nil {
			return fmt.Errorf("record %q cannot be re-encrypted: %w", title, err)
		}
		newToken, err := newSess.cipher.Encrypt(body)
		if err != nil {
			return err
		}
		reencrypted[title] = newToken
		return nil
	})
	if err != nil {
		newSess.Destroy()
		m.state = StateChangePasswordFailed
		return err
	}

	// Phase 2: persist the new verifier, then rewrite all records in one
	// transaction.
	verifier := credential.Verifier(newMaster)
	defer credential.ClearBytes(verifier)

	m.cfg.SetVerifier(verifier)
	if err := m.cfg.Save(); err != nil {
		newSess.Destroy()
		m.state = StateChangePasswordFailed
		return err
	}
	if err := m.records.ReplaceAll(reencrypted); err != nil {
		newSess.Destroy()
		m.state = StateChangePasswordFailed
		return err
	}

	m.session.Destroy()
	m.session = newSess
	m.log.Info("vault password changed", "records", len(reencrypted))
	m.state = StateLoggedOn
	return nil
}

// StartHardReset enters the reset confirmation flow from any authenticated
// state.
func (m *Machine) StartHardReset() error {
	if !m.state.Authenticated() {
		return fmt.Errorf("%w: hard reset in state %q", ErrIllegalState, m.state)
	}
	m.state = StateConfirmHardReset
	return nil
}

// ConfirmHardReset resolves the confirmation. Declined, the machine moves to
// ConfirmHardResetFailed. Confirmed, the configuration and every record are
// erased, then the session is destroyed and the machine returns to Empty with
// a fresh salt, exactly as a never-initialized vault. A failed erase returns
// to ConfirmHardResetFailed with the session intact.
func (m *Machine) ConfirmHardReset(confirmed bool) error {
	if m.state != StateConfirmHardReset {
		return fmt.Errorf("%w: confirm hard reset in state %q", ErrIllegalState, m.state)
	}
	if !confirmed {
		m.state = StateConfirmHardResetFailed
		return nil
	}

	salt, err := credential.GenerateSalt()
	if err != nil {
		m.state = StateConfirmHardResetFailed
		return err
	}

	// The session lives until the erase is complete: every failure path
	// leads back into the authenticated range.
	m.state = StateHardReset
	if err := m.records.Wipe(); err != nil {
		m.state = StateConfirmHardResetFailed
		return err
	}
	if err := m.cfg.Reset(); err != nil {
		m.state = StateConfirmHardResetFailed
		return err
	}
	m.cfg = config.Initialize(m.cfg.StoragePath, salt)

	m.session.Destroy()
	m.session = nil

	m.log.Info("vault hard reset complete")
	m.state = StateEmpty
	return nil
}

// IsCipherError reports whether err came from token authentication, as opposed
// to storage or state problems.
func IsCipherError(err error) bool {
	return errors.Is(err, cipher.ErrCipher)
}
