package srp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// minEphemeralBits is the minimum entropy of the client ephemeral a.
// RFC 5054 asks for at least 256 bits; the protocol requirement is 128.
const minEphemeralBits = 256

// modExp computes base^exp mod m.
func modExp(base, exp, m *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, m)
}

// pad left-pads b with zero bytes to size, per the PAD() operation in
// RFC 5054. Values longer than size are returned unchanged.
func pad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

// padInt is pad applied to a big.Int using the group's modulus width.
func (g Group) padInt(n *big.Int) []byte {
	return pad(n.Bytes(), g.byteSize())
}

// hashParts hashes the concatenation of parts with the group hash.
func (g Group) hashParts(parts ...[]byte) []byte {
	h := g.Hash.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// randomEphemeral draws a uniform a in [1, limit) with rejection sampling.
func randomEphemeral(limit *big.Int) (*big.Int, error) {
	if limit.BitLen() < minEphemeralBits {
		return nil, fmt.Errorf("srp: group modulus smaller than %d bits", minEphemeralBits)
	}
	for {
		a, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return nil, fmt.Errorf("srp: entropy source: %w", err)
		}
		if a.Sign() != 0 {
			return a, nil
		}
	}
}

// computeK derives the SRP-6a multiplier k = H(N, PAD(g)).
func (g Group) computeK() *big.Int {
	return new(big.Int).SetBytes(g.hashParts(g.N.Bytes(), g.padInt(g.G)))
}

// computeU derives the scrambling parameter u = H(PAD(A), PAD(B)).
func (g Group) computeU(bigA, bigB *big.Int) *big.Int {
	return new(big.Int).SetBytes(g.hashParts(g.padInt(bigA), g.padInt(bigB)))
}

// computeX derives the private key value x = H(salt, H(username ":" password)).
func (g Group) computeX(salt []byte, username, password string) *big.Int {
	inner := g.hashParts([]byte(username + ":" + password))
	return new(big.Int).SetBytes(g.hashParts(salt, inner))
}

// computeS derives the premaster secret
//
//	S = (B - k*g^x) ^ (a + u*x) mod N
//
// from the client's view of the exchange. The base is reduced into [0, N)
// before exponentiation so the subtraction cannot go negative.
func (g Group) computeS(bigB, k, x, a, u *big.Int) *big.Int {
	base := new(big.Int).Mul(k, modExp(g.G, x, g.N))
	base.Sub(bigB, base)
	base.Mod(base, g.N)

	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, a)

	return modExp(base, exp, g.N)
}

// zero wipes a big.Int in place where the runtime allows it.
func zero(n *big.Int) {
	if n == nil {
		return
	}
	bits := n.Bits()
	for i := range bits {
		bits[i] = 0
	}
	n.SetInt64(0)
}

// zeroBytes wipes a byte slice in place.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
