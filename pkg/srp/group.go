package srp

import (
	"crypto"
	_ "crypto/sha256" // default group hash
	_ "crypto/sha512"
	"fmt"
	"math/big"
	"strings"
)

// Group is an SRP-6a parameter set: a safe prime N, a generator g, and the
// hash used for the protocol's derived values (k, u, x). The group is an
// agreement with the IdP, so it must be selected by configuration rather
// than assumed. The registered groups below are from RFC 5054 Appendix A.
type Group struct {
	Name string
	N    *big.Int
	G    *big.Int
	Hash crypto.Hash
}

// byteSize returns the length of N in bytes, used for PAD() per RFC 5054.
func (g Group) byteSize() int {
	return (g.N.BitLen() + 7) / 8
}

func (g Group) validate() error {
	switch {
	case g.N == nil || g.N.Sign() <= 0:
		return fmt.Errorf("srp: group %q has no prime", g.Name)
	case g.G == nil || g.G.Sign() <= 0:
		return fmt.Errorf("srp: group %q has no generator", g.Name)
	case !g.Hash.Available():
		return fmt.Errorf("srp: group %q hash not linked in", g.Name)
	}
	return nil
}

const (
	// GroupRFC5054_3072 names the default group.
	GroupRFC5054_3072 = "rfc5054-3072"
	GroupRFC5054_4096 = "rfc5054-4096"
)

// RFC 5054 Appendix A 3072-bit prime (identical to the RFC 3526 3072-bit
// MODP group), generator 5.
const hexN3072 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74" +
	"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
	"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05" +
	"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB" +
	"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718" +
	"3995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33" +
	"A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
	"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864" +
	"D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E2" +
	"08E24FA074E5AB3143DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF"

// RFC 5054 Appendix A 4096-bit prime (identical to the RFC 3526 4096-bit
// MODP group), generator 5.
const hexN4096 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74" +
	"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
	"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05" +
	"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB" +
	"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718" +
	"3995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33" +
	"A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
	"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864" +
	"D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E2" +
	"08E24FA074E5AB3143DB5BFCE0FD108E4B82D120A92108011A723C12A787E6D7" +
	"88719A10BDBA5B2699C327186AF4E23C1A946834B6150BDA2583E9CA2AD44CE8" +
	"DBBBC2DB04DE8EF92E8EFC141FBECAA6287C59474E6BC05D99B2964FA090C3A2" +
	"233BA186515BE7ED1F612970CEE2D7AFB81BDD762170481CD0069127D5B05AA9" +
	"93B4EA988D8FDDC186FFB7DC90A6C08F4DF435C934063199FFFFFFFFFFFFFFFF"

func mustHexInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("srp: bad group constant")
	}
	return n
}

var registeredGroups = map[string]Group{
	GroupRFC5054_3072: {
		Name: GroupRFC5054_3072,
		N:    mustHexInt(hexN3072),
		G:    big.NewInt(5),
		Hash: crypto.SHA256,
	},
	GroupRFC5054_4096: {
		Name: GroupRFC5054_4096,
		N:    mustHexInt(hexN4096),
		G:    big.NewInt(5),
		Hash: crypto.SHA256,
	},
}

// DefaultGroup returns the RFC 5054 3072-bit group with SHA-256.
func DefaultGroup() Group {
	return registeredGroups[GroupRFC5054_3072]
}

// GroupByName looks up a registered group by its configuration name.
func GroupByName(name string) (Group, error) {
	g, ok := registeredGroups[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Group{}, fmt.Errorf("srp: unknown group %q", name)
	}
	return g, nil
}
