package vault

// State enumerates the access states. New states must be added to both
// String and Authenticated; nothing relies on the numeric order.
type State int

const (
	StateEmpty State = iota // no password has ever been set
	StateInvalidNewPassword
	StateLoggedOff
	StateInvalidPassword
	StateLoggedOn
	StateAddRecord
	StateFindRecord
	StateDeleteRecord
	StateRecordFound
	StateRecordNotFound
	StateChangePassword
	StateChangePasswordFailed
	StateConfirmHardReset
	StateConfirmHardResetFailed
	StateHardReset
)

// Authenticated reports whether the user is currently authenticated. The
// password-change and reset confirmation states sit outside this range even
// though the session still exists while they resolve.
func (s State) Authenticated() bool {
	switch s {
	case StateLoggedOn, StateAddRecord, StateFindRecord, StateDeleteRecord,
		StateRecordFound, StateRecordNotFound:
		return true
	}
	return false
}

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateInvalidNewPassword:
		return "invalid new password"
	case StateLoggedOff:
		return "logged off"
	case StateInvalidPassword:
		return "invalid password"
	case StateLoggedOn:
		return "logged on"
	case StateAddRecord:
		return "add record"
	case StateFindRecord:
		return "find record"
	case StateDeleteRecord:
		return "delete record"
	case StateRecordFound:
		return "record found"
	case StateRecordNotFound:
		return "record not found"
	case StateChangePassword:
		return "change password"
	case StateChangePasswordFailed:
		return "change password failed"
	case StateConfirmHardReset:
		return "confirm hard reset"
	case StateConfirmHardResetFailed:
		return "hard reset not confirmed"
	case StateHardReset:
		return "hard reset"
	}
	return "unknown"
}
