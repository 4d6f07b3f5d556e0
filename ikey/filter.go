package ikey

import (
	"slatekv/filter"
)

// InternalFilterPolicy adapts a user-key filter policy to internal keys:
// every key is stripped to its user-key portion before reaching the
// wrapped policy.
type InternalFilterPolicy struct {
	user filter.Policy
}

func NewInternalFilterPolicy(p filter.Policy) *InternalFilterPolicy {
	return &InternalFilterPolicy{user: p}
}

func (p *InternalFilterPolicy) Name() string {
	return p.user.Name()
}

func (p *InternalFilterPolicy) CreateFilter(keys [][]byte) []byte {
	userKeys := make([][]byte, len(keys))
	for i, key := range keys {
		userKeys[i] = ExtractUserKey(key)
	}
	return p.user.CreateFilter(userKeys)
}

func (p *InternalFilterPolicy) KeyMayMatch(key, f []byte) bool {
	return p.user.KeyMayMatch(ExtractUserKey(key), f)
}
