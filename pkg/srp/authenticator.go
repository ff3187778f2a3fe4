// Package srp implements the client side of the SRP-6a password-proof
// exchange against the identity provider, plus the adjacent session
// operations (token refresh, remote session validation). The password
// never crosses the wire; only the public ephemeral A and an HMAC proof
// keyed by the derived session key do.
package srp

import (
	"context"
	"crypto/hmac"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"math/big"
	"time"

	"github.com/voyant-travel/authcore/pkg/autherr"
	"github.com/voyant-travel/authcore/pkg/identity"
	"github.com/voyant-travel/authcore/pkg/idp"
	"github.com/voyant-travel/authcore/pkg/metrics"
)

// IdPClient is the slice of the IdP wire client the authenticator needs.
type IdPClient interface {
	SRPChallenge(ctx context.Context, username, srpAHex string) (*idp.Challenge, error)
	SRPVerify(ctx context.Context, req idp.VerifyRequest) (*idp.Tokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*idp.Tokens, error)
	UserInfo(ctx context.Context, accessToken string) (*idp.UserInfo, error)
}

// timestampLayout is the claim-signature timestamp format. It is part of
// the proof input, so the IdP must parse the exact same string.
const timestampLayout = time.RFC3339

// Authenticator drives SRP logins. It is stateless between calls; every
// login attempt gets its own Session, so concurrent logins are
// independent.
type Authenticator struct {
	idp     IdPClient
	group   Group
	kdf     KeyDeriver
	log     *slog.Logger
	metrics *metrics.Set
	now     func() time.Time
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithGroup selects the SRP group agreed with the IdP.
func WithGroup(g Group) AuthOption {
	return func(a *Authenticator) { a.group = g }
}

// WithKDF selects the session-key derivation the IdP implements.
func WithKDF(kdf KeyDeriver) AuthOption {
	return func(a *Authenticator) { a.kdf = kdf }
}

// WithLogger attaches a logger. Secrets are never logged.
func WithLogger(log *slog.Logger) AuthOption {
	return func(a *Authenticator) { a.log = log }
}

// WithMetrics attaches the module's metric set.
func WithMetrics(m *metrics.Set) AuthOption {
	return func(a *Authenticator) { a.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) AuthOption {
	return func(a *Authenticator) { a.now = now }
}

// NewAuthenticator builds an Authenticator over the given IdP client.
func NewAuthenticator(client IdPClient, opts ...AuthOption) (*Authenticator, error) {
	a := &Authenticator{
		idp:   client,
		group: DefaultGroup(),
		kdf:   HashKDF{},
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.group.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Initiate opens a login attempt: it generates the client ephemeral,
// sends (username, A) to the IdP, and captures the server's (salt, B).
func (a *Authenticator) Initiate(ctx context.Context, username string) (*Session, error) {
	var (
		priv *big.Int
		pub  *big.Int
	)
	// A ≡ 0 (mod N) would let the server fix the shared secret, so
	// regenerate until it cannot happen. With a as drawn here A is
	// g^a mod N over a prime modulus and can only be zero if the draw
	// itself was degenerate; the loop is the correctness guarantee.
	for {
		var err error
		priv, err = randomEphemeral(a.group.N)
		if err != nil {
			return nil, autherr.Wrap(autherr.KindProtocolError, "could not generate login ephemeral", err)
		}
		pub = modExp(a.group.G, priv, a.group.N)
		if new(big.Int).Mod(pub, a.group.N).Sign() != 0 {
			break
		}
		zero(priv)
	}

	ch, err := a.idp.SRPChallenge(ctx, username, hex.EncodeToString(a.group.padInt(pub)))
	if err != nil {
		zero(priv)
		a.log.DebugContext(ctx, "srp challenge failed", "kind", autherr.KindOf(err))
		return nil, err
	}

	salt, err := hex.DecodeString(ch.Salt)
	if err != nil || len(salt) == 0 {
		zero(priv)
		return nil, autherr.New(autherr.KindProtocolError, "identity provider sent an invalid salt")
	}
	bigB, ok := new(big.Int).SetString(ch.SRPB, 16)
	if !ok {
		zero(priv)
		return nil, autherr.New(autherr.KindProtocolError, "identity provider sent an invalid public value")
	}
	// B ≡ 0 (mod N) is the server-side analogue of the A check above.
	if new(big.Int).Mod(bigB, a.group.N).Sign() == 0 {
		zero(priv)
		return nil, autherr.New(autherr.KindProtocolError, "identity provider sent a degenerate public value")
	}

	return &Session{
		Username:    username,
		UserID:      ch.UserID,
		group:       a.group,
		a:           priv,
		bigA:        pub,
		salt:        salt,
		bigB:        bigB,
		secretBlock: ch.SecretBlock,
	}, nil
}

// Respond completes the exchange: it derives the session key from the
// password and submits the claim signature. The session is wiped before
// returning on every path.
func (a *Authenticator) Respond(ctx context.Context, sess *Session, password string) (*idp.Tokens, error) {
	defer sess.Wipe()

	if sess.Wiped() {
		return nil, autherr.New(autherr.KindProtocolError, "login session already consumed")
	}

	u := sess.group.computeU(sess.bigA, sess.bigB)
	if u.Sign() == 0 {
		// The exchange is unusable with this (A, B) pair; the caller must
		// restart with a fresh ephemeral.
		return nil, autherr.New(autherr.KindProtocolError, "scrambling parameter is zero, restart login")
	}

	x := sess.group.computeX(sess.salt, sess.Username, password)
	k := sess.group.computeK()
	s := sess.group.computeS(sess.bigB, k, x, sess.a, u)
	key := a.kdf.DeriveKey(sess.group, s, u)
	zero(x)
	zero(s)
	defer zeroBytes(key)

	ts := a.now().UTC().Format(timestampLayout)

	mac := hmac.New(sess.group.Hash.New, key)
	mac.Write([]byte(sess.UserID))
	mac.Write([]byte(sess.Username))
	mac.Write([]byte(sess.secretBlock))
	mac.Write([]byte(ts))

	tokens, err := a.idp.SRPVerify(ctx, idp.VerifyRequest{
		Username:       sess.Username,
		Timestamp:      ts,
		SecretBlock:    sess.secretBlock,
		ClaimSignature: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	})
	if err != nil {
		a.metrics.Login(string(autherr.KindOf(err)))
		a.log.InfoContext(ctx, "login rejected", "kind", autherr.KindOf(err))
		return nil, err
	}

	a.metrics.Login("ok")
	a.log.InfoContext(ctx, "login succeeded", "user_id", sess.UserID)
	return tokens, nil
}

// Login is Initiate followed by Respond.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*idp.Tokens, error) {
	sess, err := a.Initiate(ctx, username)
	if err != nil {
		a.metrics.Login(string(autherr.KindOf(err)))
		return nil, err
	}
	return a.Respond(ctx, sess, password)
}

// Refresh exchanges a refresh token for new tokens.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*idp.Tokens, error) {
	tokens, err := a.idp.RefreshTokens(ctx, refreshToken)
	if err != nil {
		a.log.InfoContext(ctx, "refresh rejected", "kind", autherr.KindOf(err))
		return nil, err
	}
	return tokens, nil
}

// ValidateSession asks the IdP whether the access token still names a live
// session. Unlike local validation this sees revocation immediately.
func (a *Authenticator) ValidateSession(ctx context.Context, accessToken string) (*identity.UserContext, error) {
	info, err := a.idp.UserInfo(ctx, accessToken)
	if err != nil {
		a.log.InfoContext(ctx, "session validation rejected", "kind", autherr.KindOf(err))
		return nil, err
	}
	return &identity.UserContext{
		UserID:          info.Sub,
		Username:        info.Username,
		Claims:          info.Claims,
		AuthenticatedAt: a.now().UTC(),
	}, nil
}
