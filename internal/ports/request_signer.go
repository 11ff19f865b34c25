package ports

// RequestSigner signs and verifies platform requests with a shared secret
type RequestSigner interface {
	Sign(secret string, payload []byte) string
	Verify(secret string, payload []byte, signature string) error
}
