package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// Key identifies one cached request. A snapshot is valid only for the key it
// was fetched under.
type Key struct {
	Provider string
	Account  string
	MaxCount int
}

// Fingerprint returns a stable hex digest of the key.
func (k Key) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(k.Provider))
	h.Write([]byte{0})
	h.Write([]byte(k.Account))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(k.MaxCount)))
	return hex.EncodeToString(h.Sum(nil))
}

// FileName returns a readable, filesystem-safe name for the key with the given
// extension. The fingerprint prefix keeps names unique after sanitizing.
func (k Key) FileName(ext string) string {
	account := strings.Trim(unsafeNameRe.ReplaceAllString(k.Account, "_"), "_.")
	if account == "" {
		account = "account"
	}
	provider := strings.Trim(unsafeNameRe.ReplaceAllString(k.Provider, "_"), "_.")
	if provider == "" {
		provider = "default"
	}
	return fmt.Sprintf("%s-%s-%d-%s%s", provider, account, k.MaxCount, k.Fingerprint()[:12], ext)
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s (max %d)", k.Provider, k.Account, k.MaxCount)
}
