package application

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kunometrika/bmitrack/internal/domain"
)

const sessionKey = "bmi_session_id"

// SessionProvider mints and caches the anonymous session identity. The
// id is an advisory scoping token, not a security boundary: it is never
// verified, only matched against stored entries.
type SessionProvider struct {
	kv        domain.KeyValue
	clientSig string
}

func NewSessionProvider(kv domain.KeyValue, clientSig string) *SessionProvider {
	if len(clientSig) > 8 {
		clientSig = clientSig[:8]
	}
	return &SessionProvider{kv: kv, clientSig: clientSig}
}

// GetOrCreate returns the stored session id, minting and storing a new
// one on first call. Repeated calls return the same id until Clear.
func (p *SessionProvider) GetOrCreate() (string, error) {
	if id, ok := p.kv.Get(sessionKey); ok && id != "" {
		return id, nil
	}
	id, err := p.mint()
	if err != nil {
		return "", err
	}
	p.kv.Set(sessionKey, id)
	return id, nil
}

// Clear removes the identity. Entries saved under the old id stay in the
// store but become unreachable through this provider.
func (p *SessionProvider) Clear() {
	p.kv.Remove(sessionKey)
}

func (p *SessionProvider) mint() (string, error) {
	raw := make([]byte, 6)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	sig := p.clientSig
	if sig == "" {
		sig = "anon"
	}
	return fmt.Sprintf("anon_%d_%s_%s", time.Now().UnixMilli(), hex.EncodeToString(raw), sig), nil
}
