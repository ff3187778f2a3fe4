package srp

import (
	"context"
	"crypto/hmac"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voyant-travel/authcore/pkg/autherr"
	"github.com/voyant-travel/authcore/pkg/idp"
)

func TestGroupByName(t *testing.T) {
	g, err := GroupByName("rfc5054-3072")
	require.NoError(t, err)
	require.Equal(t, 3072, g.N.BitLen())
	require.NoError(t, g.validate())

	g, err = GroupByName(" RFC5054-4096 ")
	require.NoError(t, err)
	require.Equal(t, 4096, g.N.BitLen())

	_, err = GroupByName("rfc5054-1536")
	require.Error(t, err)
}

func TestPadWidth(t *testing.T) {
	g := DefaultGroup()
	small := big.NewInt(7)
	padded := g.padInt(small)
	require.Len(t, padded, g.byteSize())
	require.Equal(t, byte(7), padded[len(padded)-1])
}

func TestRandomEphemeralNonZero(t *testing.T) {
	g := DefaultGroup()
	for range 32 {
		a, err := randomEphemeral(g.N)
		require.NoError(t, err)
		require.Positive(t, a.Sign())
		require.Negative(t, a.Cmp(g.N))
	}
}

// TestPremasterSymmetry checks the algebra end to end: the client-side
// S = (B - k*g^x)^(a + u*x) must equal the server-side S = (A * v^u)^b
// when both sides agree on the group, salt, and password.
func TestPremasterSymmetry(t *testing.T) {
	g := DefaultGroup()
	salt := []byte("0123456789abcdef")

	x := g.computeX(salt, "alice", "correct horse")
	v := modExp(g.G, x, g.N) // verifier the server stores

	a, err := randomEphemeral(g.N)
	require.NoError(t, err)
	bigA := modExp(g.G, a, g.N)

	b, err := randomEphemeral(g.N)
	require.NoError(t, err)
	k := g.computeK()
	// B = (k*v + g^b) mod N
	bigB := new(big.Int).Mul(k, v)
	bigB.Add(bigB, modExp(g.G, b, g.N))
	bigB.Mod(bigB, g.N)

	u := g.computeU(bigA, bigB)
	require.Positive(t, u.Sign())

	clientS := g.computeS(bigB, k, x, a, u)

	serverS := new(big.Int).Mul(bigA, modExp(v, u, g.N))
	serverS.Mod(serverS, g.N)
	serverS = modExp(serverS, b, g.N)

	require.Zero(t, clientS.Cmp(serverS))

	// A wrong password must diverge.
	xBad := g.computeX(salt, "alice", "wrong horse")
	badS := g.computeS(bigB, k, xBad, a, u)
	require.NotZero(t, badS.Cmp(serverS))
}

func TestKDFVariants(t *testing.T) {
	g := DefaultGroup()
	s := big.NewInt(123456789)
	u := big.NewInt(42)

	plain := HashKDF{}.DeriveKey(g, s, u)
	require.Len(t, plain, g.Hash.Size())
	require.Equal(t, g.hashParts(s.Bytes()), plain)

	hk := HKDFDeriver{}.DeriveKey(g, s, u)
	require.Len(t, hk, 32)
	require.NotEqual(t, plain, hk)

	// Deterministic for the same inputs.
	require.Equal(t, hk, HKDFDeriver{}.DeriveKey(g, s, u))
}

// fakeIdP implements the server side of the SRP exchange in-process so the
// whole protocol can be exercised without a network.
type fakeIdP struct {
	t     *testing.T
	group Group

	users map[string]string // username -> password

	// per-challenge state
	verifier *big.Int
	b        *big.Int
	bigA     *big.Int
	salt     []byte

	refreshErr error
	userInfo   *idp.UserInfo
	infoErr    error
}

func newFakeIdP(t *testing.T) *fakeIdP {
	return &fakeIdP{
		t:     t,
		group: DefaultGroup(),
		users: map[string]string{"alice": "correct horse"},
	}
}

func (f *fakeIdP) SRPChallenge(_ context.Context, username, srpAHex string) (*idp.Challenge, error) {
	password, ok := f.users[username]
	if !ok {
		return nil, autherr.New(autherr.KindUserNotFound, "")
	}

	bigA, ok := new(big.Int).SetString(srpAHex, 16)
	require.True(f.t, ok)
	require.NotZero(f.t, new(big.Int).Mod(bigA, f.group.N).Sign())

	f.salt = []byte("pepper-and-salt!")
	x := f.group.computeX(f.salt, username, password)
	f.verifier = modExp(f.group.G, x, f.group.N)

	var err error
	f.b, err = randomEphemeral(f.group.N)
	require.NoError(f.t, err)
	f.bigA = bigA

	k := f.group.computeK()
	bigB := new(big.Int).Mul(k, f.verifier)
	bigB.Add(bigB, modExp(f.group.G, f.b, f.group.N))
	bigB.Mod(bigB, f.group.N)

	return &idp.Challenge{
		UserID:      "user-" + username,
		Salt:        hex.EncodeToString(f.salt),
		SRPB:        bigB.Text(16),
		SecretBlock: "opaque-block",
	}, nil
}

func (f *fakeIdP) SRPVerify(_ context.Context, req idp.VerifyRequest) (*idp.Tokens, error) {
	k := f.group.computeK()
	bigB := new(big.Int).Mul(k, f.verifier)
	bigB.Add(bigB, modExp(f.group.G, f.b, f.group.N))
	bigB.Mod(bigB, f.group.N)

	u := f.group.computeU(f.bigA, bigB)
	s := new(big.Int).Mul(f.bigA, modExp(f.verifier, u, f.group.N))
	s.Mod(s, f.group.N)
	s = modExp(s, f.b, f.group.N)
	key := HashKDF{}.DeriveKey(f.group, s, u)

	mac := hmac.New(f.group.Hash.New, key)
	mac.Write([]byte("user-" + req.Username))
	mac.Write([]byte(req.Username))
	mac.Write([]byte(req.SecretBlock))
	mac.Write([]byte(req.Timestamp))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if req.ClaimSignature != want {
		return nil, autherr.New(autherr.KindInvalidCredentials, "")
	}
	return &idp.Tokens{
		AccessToken:  "access-token",
		IDToken:      "id-token",
		RefreshToken: "refresh-token",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	}, nil
}

func (f *fakeIdP) RefreshTokens(context.Context, string) (*idp.Tokens, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &idp.Tokens{AccessToken: "refreshed", TokenType: "Bearer", ExpiresIn: 3600}, nil
}

func (f *fakeIdP) UserInfo(context.Context, string) (*idp.UserInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.userInfo, nil
}

func TestLoginSucceeds(t *testing.T) {
	fake := newFakeIdP(t)
	auth, err := NewAuthenticator(fake)
	require.NoError(t, err)

	tokens, err := auth.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "access-token", tokens.AccessToken)
	require.Equal(t, "Bearer", tokens.TokenType)
}

func TestLoginWrongPassword(t *testing.T) {
	fake := newFakeIdP(t)
	auth, err := NewAuthenticator(fake)
	require.NoError(t, err)

	_, err = auth.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	require.Equal(t, autherr.KindInvalidCredentials, autherr.KindOf(err))
}

func TestLoginMessagesDoNotEnumerate(t *testing.T) {
	fake := newFakeIdP(t)
	auth, err := NewAuthenticator(fake)
	require.NoError(t, err)

	_, wrongPass := auth.Login(context.Background(), "alice", "wrong")
	_, noUser := auth.Login(context.Background(), "mallory", "anything")

	require.Error(t, wrongPass)
	require.Error(t, noUser)
	require.Equal(t, wrongPass.Error(), noUser.Error())
	require.NotEqual(t, autherr.KindOf(wrongPass), autherr.KindOf(noUser))
}

func TestSessionWipedAfterRespond(t *testing.T) {
	fake := newFakeIdP(t)
	auth, err := NewAuthenticator(fake)
	require.NoError(t, err)

	sess, err := auth.Initiate(context.Background(), "alice")
	require.NoError(t, err)
	require.False(t, sess.Wiped())

	_, err = auth.Respond(context.Background(), sess, "correct horse")
	require.NoError(t, err)
	require.True(t, sess.Wiped())
	require.Zero(t, sess.a.Sign())

	// A consumed session cannot be replayed.
	_, err = auth.Respond(context.Background(), sess, "correct horse")
	require.Equal(t, autherr.KindProtocolError, autherr.KindOf(err))
}

func TestSessionWipedOnFailure(t *testing.T) {
	fake := newFakeIdP(t)
	auth, err := NewAuthenticator(fake)
	require.NoError(t, err)

	sess, err := auth.Initiate(context.Background(), "alice")
	require.NoError(t, err)

	_, err = auth.Respond(context.Background(), sess, "wrong")
	require.Error(t, err)
	require.True(t, sess.Wiped())
}

func TestInitiateRejectsDegenerateB(t *testing.T) {
	fake := newFakeIdP(t)
	auth, err := NewAuthenticator(&degenerateBIdP{fake})
	require.NoError(t, err)

	_, err = auth.Initiate(context.Background(), "alice")
	require.Equal(t, autherr.KindProtocolError, autherr.KindOf(err))
}

// degenerateBIdP answers the challenge with B ≡ 0 (mod N).
type degenerateBIdP struct{ *fakeIdP }

func (d *degenerateBIdP) SRPChallenge(ctx context.Context, username, srpAHex string) (*idp.Challenge, error) {
	ch, err := d.fakeIdP.SRPChallenge(ctx, username, srpAHex)
	if err != nil {
		return nil, err
	}
	ch.SRPB = d.group.N.Text(16)
	return ch, nil
}

func TestRefreshMapsTokenErrors(t *testing.T) {
	fake := newFakeIdP(t)
	fake.refreshErr = autherr.New(autherr.KindRefreshTokenRevoked, "")
	auth, err := NewAuthenticator(fake)
	require.NoError(t, err)

	_, err = auth.Refresh(context.Background(), "stale")
	require.Equal(t, autherr.KindRefreshTokenRevoked, autherr.KindOf(err))
}

func TestValidateSession(t *testing.T) {
	fake := newFakeIdP(t)
	fake.userInfo = &idp.UserInfo{
		Sub:      "user-alice",
		Username: "alice",
		Claims:   map[string]any{"sub": "user-alice", "plan": "explorer"},
	}
	auth, err := NewAuthenticator(fake)
	require.NoError(t, err)

	user, err := auth.ValidateSession(context.Background(), "access-token")
	require.NoError(t, err)
	require.Equal(t, "user-alice", user.UserID)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "explorer", user.Claims["plan"])
	require.False(t, user.AuthenticatedAt.IsZero())

	fake.infoErr = autherr.New(autherr.KindSessionInvalid, "")
	_, err = auth.ValidateSession(context.Background(), "revoked")
	require.Equal(t, autherr.KindSessionInvalid, autherr.KindOf(err))
}
