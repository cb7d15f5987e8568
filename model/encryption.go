package model

// Standard Security Handler: PDF 1.7 §7.6.3, algorithms 33-35, RC4 only
// (AES/V>=4 is out of scope).

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
)

// padding is the 32-byte standard password padding string, PDF §7.6.3.3.
var padding = [32]byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

func padPassword(pw string) [32]byte {
	var out [32]byte
	n := copy(out[:], pw)
	copy(out[n:], padding[:32-n])
	return out
}

// UserPermissions is the /P bit field; only its byte encoding matters here.
type UserPermissions uint32

func (p UserPermissions) bytes() []byte {
	return []byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)}
}

// Encrypt mirrors the fields of the /Encrypt dictionary that the Standard
// Security Handler needs; V and R are the algorithm/revision numbers,
// Length is the key length in bits.
type Encrypt struct {
	V, R, Length int
	O, U         [32]byte
	P            UserPermissions
	ID           string // first element of the file /ID array, raw bytes
	EncryptMetadata bool
}

// RC4SecurityHandler derives and checks encryption keys for a single
// document instance.
type RC4SecurityHandler struct {
	Revision  int // 2 or 3
	KeyLength int // bytes: 5 for 40-bit, 16 for 128-bit
	P         UserPermissions
	ID        string
	EncryptMetadata bool
}

func NewRC4SecurityHandler(e Encrypt) *RC4SecurityHandler {
	keyLength := e.Length / 8
	if keyLength == 0 {
		keyLength = 5
	}
	return &RC4SecurityHandler{
		Revision:        e.R,
		KeyLength:       keyLength,
		P:               e.P,
		ID:              e.ID,
		EncryptMetadata: e.EncryptMetadata,
	}
}

// GenerateEncryptionKey computes the document encryption key from the
// user password and the already-derived /O hash (algorithm 2); used when
// authenticating a password and, in reverse, when first encrypting a
// freshly created document.
func (s RC4SecurityHandler) GenerateEncryptionKey(password string, ownerHash [32]byte) []byte {
	return s.generateEncryptionKey(password, ownerHash)
}

func (s RC4SecurityHandler) generateEncryptionKey(password string, ownerHash [32]byte) []byte {
	pass := padPassword(password)

	buf := append([]byte(nil), pass[:]...)
	buf = append(buf, ownerHash[:]...)
	buf = append(buf, s.P.bytes()...)
	buf = append(buf, s.ID...)
	if s.Revision >= 4 && !s.EncryptMetadata {
		buf = append(buf, 0xff, 0xff, 0xff, 0xff)
	}
	sum := md5.Sum(buf)

	if s.Revision >= 3 {
		for i := 0; i < 50; i++ {
			sum = md5.Sum(sum[0:s.KeyLength])
		}
	}
	return sum[0:s.KeyLength]
}

// Algorithm 3 steps a-d: the key used only to wrap/unwrap the user
// password inside the /O entry.
func (s RC4SecurityHandler) generateOwnerEncryptionKey(ownerPassword string) []byte {
	ownerPass := padPassword(ownerPassword)
	tmp := md5.Sum(ownerPass[:])
	if s.Revision >= 3 {
		for i := 0; i < 50; i++ {
			tmp = md5.Sum(tmp[:])
		}
	}
	return tmp[0:s.KeyLength]
}

// GenerateOwnerHash computes /O (algorithm 3).
func (s RC4SecurityHandler) GenerateOwnerHash(userPassword, ownerPassword string) [32]byte {
	firstEncKey := s.generateOwnerEncryptionKey(ownerPassword)
	userPass := padPassword(userPassword)

	var v [32]byte
	c, _ := rc4.NewCipher(firstEncKey)
	c.XORKeyStream(v[:], userPass[:])

	if s.Revision >= 3 {
		xor20Rounds(v[:], firstEncKey)
	}
	return v
}

// GenerateUserHash computes /U (algorithms 4 and 5).
func (s RC4SecurityHandler) GenerateUserHash(encryptionKey []byte) [32]byte {
	var v [32]byte
	if s.Revision >= 3 {
		buf := append([]byte(nil), padding[:]...)
		buf = append(buf, s.ID...)
		hash := md5.Sum(buf)
		c, _ := rc4.NewCipher(encryptionKey)
		c.XORKeyStream(hash[:], hash[:])
		xor20Rounds(hash[:], encryptionKey)
		copy(v[0:16], hash[:]) // remaining 16 bytes are arbitrary, left zero
	} else {
		c, _ := rc4.NewCipher(encryptionKey)
		c.XORKeyStream(v[:], padding[:])
	}
	return v
}

// xor20Rounds runs the revision->=3 "encrypt 19 more times with key XOR i"
// construction used by both /O and /U derivation.
func xor20Rounds(buf, baseKey []byte) {
	newKey := make([]byte, len(baseKey))
	for i := byte(1); i <= 19; i++ {
		for j, b := range baseKey {
			newKey[j] = b ^ i
		}
		c, _ := rc4.NewCipher(newKey)
		c.XORKeyStream(buf, buf)
	}
}

// AuthUserPassword implements algorithms 6, returning the document
// encryption key and whether password authenticates as the user password.
func (s RC4SecurityHandler) AuthUserPassword(password string, ownerHash, userHash [32]byte) ([]byte, bool) {
	key := s.generateEncryptionKey(password, ownerHash)
	got := s.GenerateUserHash(key)
	var ok bool
	if s.Revision <= 2 {
		ok = bytes.Equal(userHash[:], got[:])
	} else {
		ok = bytes.Equal(userHash[:16], got[:16])
	}
	return key, ok
}

// AuthOwnerPassword implements algorithm 7 (algorithm 33 reversed).
func (s RC4SecurityHandler) AuthOwnerPassword(password string, ownerHash, userHash [32]byte) ([]byte, bool) {
	encryptionKey := s.generateOwnerEncryptionKey(password)

	decrypted := ownerHash
	if s.Revision <= 2 {
		c, _ := rc4.NewCipher(encryptionKey)
		c.XORKeyStream(decrypted[:], decrypted[:])
	} else {
		newKey := make([]byte, len(encryptionKey))
		for i := byte(19); ; i-- {
			for j, b := range encryptionKey {
				newKey[j] = b ^ i
			}
			c, _ := rc4.NewCipher(newKey)
			c.XORKeyStream(decrypted[:], decrypted[:])
			if i == 0 {
				break
			}
		}
	}
	return s.AuthUserPassword(string(decrypted[:]), ownerHash, userHash)
}

// ObjectKey derives the per-object RC4 key (PDF §7.6.2): the document key
// followed by the low 3 bytes of the object number and low 2 bytes of the
// generation, MD5-hashed and truncated to min(16, len(key)+5).
func ObjectKey(baseKey []byte, ref Reference) []byte {
	buf := append([]byte(nil), baseKey...)
	n, g := ref.Number, ref.Generation
	buf = append(buf, byte(n), byte(n>>8), byte(n>>16), byte(g), byte(g>>8))
	sum := md5.Sum(buf)
	l := len(baseKey) + 5
	if l > 16 {
		l = 16
	}
	return sum[:l]
}

// DecryptResult is the return code of Document.Decrypt: 0 no match,
// 1 user-password match, 2 owner-password match.
type DecryptResult int

const (
	DecryptNoMatch DecryptResult = iota
	DecryptUser
	DecryptOwner
)
