// Package vault orchestrates the credential, cipher, config and store layers
// behind a state machine that gates which operations are legal.
//
// The machine processes one user intent at a time. Record operations are only
// reachable from authenticated states. The session cipher is the sole holder
// of decrypting capability; it is destroyed on logoff, hard reset and Close,
// and a successful password change swaps it for a cipher under the new key.
package vault
