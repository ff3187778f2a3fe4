package srp

import "math/big"

// Session is the ephemeral state of one SRP login attempt. It exists
// between Initiate and Respond and holds secret material (the private
// exponent a); it must be wiped after Respond, success or failure, and
// never reused for a second attempt.
type Session struct {
	Username string
	UserID   string

	group Group

	a    *big.Int // private ephemeral
	bigA *big.Int // A = g^a mod N

	salt        []byte
	bigB        *big.Int
	secretBlock string

	wiped bool
}

// A returns the client public ephemeral. Exposed for tests and for wire
// encoding; the private exponent never leaves the session.
func (s *Session) A() *big.Int {
	return new(big.Int).Set(s.bigA)
}

// Wiped reports whether the session's secrets have been destroyed.
func (s *Session) Wiped() bool { return s.wiped }

// Wipe destroys the session's secret material in place. Safe to call more
// than once. Go cannot guarantee the GC left no copies, but every word we
// own is zeroed.
func (s *Session) Wipe() {
	if s.wiped {
		return
	}
	zero(s.a)
	zero(s.bigA)
	zero(s.bigB)
	zeroBytes(s.salt)
	s.secretBlock = ""
	s.wiped = true
}
