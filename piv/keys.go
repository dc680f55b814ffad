package piv

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// sshPublicKey marshals a certificate's public key into SSH-wire form, the
// representation spec.md uses throughout for slot and sealed-box keys
// (grounded on kryptco-kr's protocol.go, which carries profile keys the
// same way).
func sshPublicKey(cert *x509.Certificate) (ssh.PublicKey, error) {
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return ssh.NewPublicKey(pub)
	case *ecdsa.PublicKey:
		return ssh.NewPublicKey(pub)
	default:
		return nil, fmt.Errorf("%w: unsupported certificate public key type %T", ErrUnsupported, cert.PublicKey)
	}
}

// algorithmForKey infers the PIV algorithm id matching a certificate's
// public key, used to cross-check a slot's declared algorithm against the
// key it actually holds (spec.md §3 invariant).
func algorithmForKey(cert *x509.Certificate) (Algorithm, error) {
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		switch pub.N.BitLen() {
		case 1024:
			return AlgRSA1024, nil
		case 2048:
			return AlgRSA2048, nil
		default:
			return 0, fmt.Errorf("%w: unsupported RSA modulus size %d", ErrUnsupported, pub.N.BitLen())
		}
	case *ecdsa.PublicKey:
		switch pub.Curve.Params().BitSize {
		case 256:
			return AlgECCP256, nil
		case 384:
			return AlgECCP384, nil
		default:
			return 0, fmt.Errorf("%w: unsupported EC curve size %d", ErrUnsupported, pub.Curve.Params().BitSize)
		}
	default:
		return 0, fmt.Errorf("%w: unsupported certificate public key type %T", ErrUnsupported, cert.PublicKey)
	}
}
