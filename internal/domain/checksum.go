package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Checksum is a content hash in hex form. It addresses blobs in the content
// store and identifies compiled outputs.
type Checksum string

// ChecksumOf returns the sha256 checksum of data.
func ChecksumOf(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return Checksum(hex.EncodeToString(sum[:]))
}

func (c Checksum) Validate() error {
	if len(c) != sha256.Size*2 {
		return errors.New("checksum must be a hex sha256")
	}
	if _, err := hex.DecodeString(string(c)); err != nil {
		return errors.New("checksum must be a hex sha256")
	}
	return nil
}

func (c Checksum) String() string {
	return string(c)
}
