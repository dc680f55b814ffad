// Package sealedbox implements the ECDH sealed-box envelope: an
// ephemeral-static Diffie-Hellman handshake over a PIV slot's curve,
// wrapped in an AEAD, self-describing enough to be unsealed by whichever
// card holds the matching private key.
package sealedbox

import "errors"

// ErrBadMessage is returned by UnsealCard/UnsealOffline whenever the
// AEAD tag fails to verify: tampered ciphertext, a flipped IV byte, or an
// envelope bound to the wrong recipient.
var ErrBadMessage = errors.New("sealedbox: bad message")
