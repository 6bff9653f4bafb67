package msgproxy

import (
	"crypto/md5"
	"io"
	"regexp"

	"github.com/google/uuid"
)

var nicknameRegexp = regexp.MustCompile("^[A-Za-z0-9_]{3,16}$")

func ValidateNickname(nickname string) bool {
	return nicknameRegexp.MatchString(nickname)
}

// OfflinePlayerUUID is the version 3 uuid offline mode servers derive from
// the nickname, so the upstream sees the same identity.
func OfflinePlayerUUID(nickname string) uuid.UUID {
	h := md5.New()
	io.WriteString(h, "OfflinePlayer:"+nickname)
	var u, _ = uuid.FromBytes(h.Sum(nil))
	u[6] = (u[6] & 0x0f) | uint8((3&0xf)<<4)
	u[8] = (u[8] & 0x3f) | 0x80 // RFC 4122 variant
	return u
}
