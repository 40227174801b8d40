// Package identity carries the signed-in user value threaded through the
// cart and checkout core. The authentication flow itself lives outside this
// module; consumers only ever receive "an identity or none".
package identity

// Identity is a signed-in user.
type Identity struct {
	ID    string
	Email string
}
