package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/sweetshop-backend/pkg/config"
)

const argonPrefix = "$argon2id$"

// Temp passwords are read off a terminal and typed into the admin console,
// so look-alike glyphs (0/O, 1/l/I) are left out.
const (
	tempUpper  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	tempLower  = "abcdefghijkmnopqrstuvwxyz"
	tempDigits = "23456789"
)

var ErrInvalidHash = errors.New("invalid argon2id hash")

// ArgonParams are the cost settings embedded into every stored hash.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// ParamsFromConfig bounds the configured cost so a typo in the environment
// cannot produce a trivially weak or a memory-exhausting hash.
func ParamsFromConfig(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      uint32(bounded(cfg.ArgonMemoryKB, 8, 512*1024)),
		Time:        uint32(bounded(cfg.ArgonTime, 1, 10)),
		Parallelism: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     uint32(bounded(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:      uint32(bounded(cfg.ArgonKeyLen, 16, 64)),
	}
}

// weakerThan reports whether any cost dimension falls below want.
func (p ArgonParams) weakerThan(want ArgonParams) bool {
	return p.Memory < want.Memory ||
		p.Time < want.Time ||
		p.Parallelism < want.Parallelism ||
		p.KeyLen < want.KeyLen ||
		p.SaltLen < want.SaltLen
}

type argonHash struct {
	params ArgonParams
	salt   []byte
	key    []byte
}

func (h argonHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLen)
}

// String renders the PHC form: $argon2id$v=19$m=..,t=..,p=..$salt$key.
func (h argonHash) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argonPrefix,
		argon2.Version,
		h.params.Memory, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

func parseArgonHash(encoded string) (argonHash, error) {
	rest, ok := strings.CutPrefix(encoded, argonPrefix)
	if !ok {
		return argonHash{}, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return argonHash{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil || version != argon2.Version {
		return argonHash{}, ErrInvalidHash
	}

	var h argonHash
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &h.params.Memory, &h.params.Time, &h.params.Parallelism); err != nil {
		return argonHash{}, ErrInvalidHash
	}
	if h.params.Memory == 0 || h.params.Time == 0 || h.params.Parallelism == 0 {
		return argonHash{}, ErrInvalidHash
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[2]); err != nil || len(h.salt) == 0 {
		return argonHash{}, ErrInvalidHash
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(fields[3]); err != nil || len(h.key) == 0 {
		return argonHash{}, ErrInvalidHash
	}
	h.params.SaltLen = uint32(len(h.salt))
	h.params.KeyLen = uint32(len(h.key))
	return h, nil
}

// HashPassword derives a fresh Argon2id hash with a random salt.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	h := argonHash{params: ParamsFromConfig(cfg)}
	h.salt = make([]byte, h.params.SaltLen)
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// VerifyPassword compares in constant time. A malformed hash is an error, a
// wrong password is not.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parseArgonHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, h.derive(password)) == 1, nil
}

// NeedsRehash is checked after a successful login so stored hashes follow the
// configured cost upwards. Unparseable hashes always need replacing.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	h, err := parseArgonHash(encoded)
	if err != nil {
		return true
	}
	return h.params.weakerThan(ParamsFromConfig(cfg))
}

// GenerateTempPassword returns a bootstrap credential that always mixes
// upper case, lower case and digits.
func GenerateTempPassword(length int) (string, error) {
	classes := []string{tempUpper, tempLower, tempDigits}
	if length < len(classes) {
		return "", fmt.Errorf("length must be at least %d", len(classes))
	}
	all := strings.Join(classes, "")

	out := make([]byte, length)
	for i := range out {
		pool := all
		if i < len(classes) {
			pool = classes[i]
		}
		c, err := pick(pool)
		if err != nil {
			return "", err
		}
		out[i] = c
	}

	// Fisher-Yates so the guaranteed classes are not always at the front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func pick(pool string) (byte, error) {
	idx, err := randIndex(len(pool))
	if err != nil {
		return 0, err
	}
	return pool[idx], nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random index: %w", err)
	}
	return int(v.Int64()), nil
}

func bounded(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
