package vault

import (
	"github.com/live-labs/notevault/internal/cipher"
)

// Session exists only while the user is authenticated. It owns the cipher
// bound to the credential computed at login and nothing else holds decrypting
// capability.
type Session struct {
	cipher *cipher.Cipher
}

func newSession(master []byte) (*Session, error) {
	c, err := cipher.New(master)
	if err != nil {
		return nil, err
	}
	return &Session{cipher: c}, nil
}

// Destroy discards the session's key material. Safe to call on nil.
func (s *Session) Destroy() {
	if s == nil {
		return
	}
	s.cipher.Destroy()
	s.cipher = nil
}
