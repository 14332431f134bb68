package economy

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2s"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// EncodeBase62 encodes n with the alphabet 0-9, A-Z, a-z.
func EncodeBase62(n uint64) string {
	if n == 0 {
		return base62Alphabet[:1]
	}
	var buf [11]byte // 62^11 > 2^64
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(buf[i:])
}

// GenerateID derives an operation identifier from the subject, the value
// resulting from the operation, its description and its timestamp.
//
// The id is the base-62 timestamp followed by a base-62 encoded 16-bit
// BLAKE2s digest of "{subject}-{value}-{description}". It is deterministic:
// identical inputs in the same second yield the same id. It is NOT unique;
// different inputs collide with probability about 1/65536 per second.
// Uniqueness is enforced by the operation log's primary key, which rejects
// a colliding insert with ErrStorageConflict.
func GenerateID(subjectID, resultingValue int64, description string, timestamp int64) OperationID {
	prefix := EncodeBase62(uint64(timestamp))

	sum := blake2s.Sum256([]byte(fmt.Sprintf("%d-%d-%s", subjectID, resultingValue, description)))
	suffix := EncodeBase62(uint64(binary.BigEndian.Uint16(sum[:2])))

	return OperationID(prefix + suffix)
}
