// Package csrf derives and verifies anti-forgery tokens bound to a server-side session.
//
// Each session carries a random secret created with [NewSecret]. The token handed to
// views is an HMAC-SHA256 of the session ID keyed by that secret, so a token issued
// for one session never validates against another, and it stays valid until the
// secret is rotated.
//
//	secret, _ := csrf.NewSecret()
//	token, _ := csrf.Token(secret, sess.ID)
//
//	// on a state-changing request
//	if !csrf.IsSafeMethod(r.Method) {
//		if err := csrf.Verify(secret, sess.ID, csrf.FromRequest(r)); err != nil {
//			// reject with 403
//		}
//	}
package csrf
