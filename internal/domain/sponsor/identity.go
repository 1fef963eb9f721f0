package sponsor

import "strings"

// anonymousKeyPrefix namespaces pseudo-identities synthesized for
// unauthenticated donors so they can never collide with identity-provider
// account ids.
const anonymousKeyPrefix = "anon:"

// DonorKey derives the stable identity key a sponsor aggregate is keyed by.
//
// Authenticated donors use their identity-provider account id. Anonymous
// donors get a pseudo-identity derived from the payment session id, so a
// retried webhook for the same session lands on the same sponsor while
// unrelated anonymous sessions stay distinct. Two anonymous gifts made in
// different sessions therefore never merge into one sponsor, even if they
// come from the same person; that is intended behavior.
//
// The function is pure and total: every input yields a key.
func DonorKey(donorExternalID, sessionID string, anonymous bool) string {
	if anonymous || donorExternalID == "" {
		return anonymousKeyPrefix + sessionID
	}
	return donorExternalID
}

// IsAnonymousKey reports whether the donor key is a synthesized
// pseudo-identity rather than an identity-provider account id
func IsAnonymousKey(key string) bool {
	return strings.HasPrefix(key, anonymousKeyPrefix)
}
