package redis

import "strings"

const defaultNamespace = "ss"

// Keyspace builds every key the service writes so deployments sharing one
// Redis can be separated by prefix.
type Keyspace struct {
	namespace string
}

func NewKeyspace(namespace string) Keyspace {
	namespace = strings.Trim(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		namespace = defaultNamespace
	}
	return Keyspace{namespace: namespace}
}

func (k Keyspace) join(parts ...string) string {
	ns := k.namespace
	if ns == "" {
		ns = defaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (k Keyspace) Idempotency(scope, id string) string { return k.join("idempotency", scope, id) }
func (k Keyspace) RateLimit(scope string) string       { return k.join("rate_limit", scope) }
func (k Keyspace) Cart(sessionID string) string        { return k.join("cart", sessionID) }
func (k Keyspace) ActiveOffers() string                { return k.join("offers", "active") }
func (k Keyspace) AccessSession(jti string) string     { return k.join("session", "access", jti) }
