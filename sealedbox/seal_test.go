package sealedbox

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/pivhold/piv/piv"
)

// TestSealUnsealOfflineRoundTrip covers spec.md §8's property: for any
// (public/private EC pair, plaintext) using a stream-shaped cipher (blockSize
// 1), unseal(priv, seal(pub, plaintext)) equals plaintext exactly. pad is a
// no-op for these ciphers, so there's nothing for decrypt to leave behind.
func TestSealUnsealOfflineRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		curve   elliptic.Curve
		cipher  string
		kdf     string
		message []byte
	}{
		{"P256 default cipher/kdf", elliptic.P256(), "", "", []byte("hello sealed box")},
		{"P384 default", elliptic.P384(), "", "", []byte("p384 plaintext")},
		{"empty plaintext", elliptic.P256(), "", "", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recipient, err := ecdsa.GenerateKey(tc.curve, rand.Reader)
			if err != nil {
				t.Fatalf("generate recipient key: %v", err)
			}

			box, err := Seal(uuid.New(), piv.SlotKeyManagement, &recipient.PublicKey, tc.message, SealOptions{Cipher: tc.cipher, KDF: tc.kdf})
			if err != nil {
				t.Fatalf("Seal: %v", err)
			}

			got, err := UnsealOffline(recipient, box)
			if err != nil {
				t.Fatalf("UnsealOffline: %v", err)
			}
			if !bytes.Equal(got, tc.message) {
				t.Fatalf("UnsealOffline = %q, want %q", got, tc.message)
			}
		})
	}
}

// TestSealUnsealBlockCipherLeavesPaddingInPlace covers spec.md §9: for a
// cipher with blockSize>1 (aes-256-gcm), pad's 1,2,3,…,n suffix is not
// self-describing and decrypt does not strip it back off, so the offline
// unseal output is the original message plus that suffix, not the message
// alone.
func TestSealUnsealBlockCipherLeavesPaddingInPlace(t *testing.T) {
	recipient, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate recipient key: %v", err)
	}
	message := []byte("a different message")

	box, err := Seal(uuid.New(), piv.SlotKeyManagement, &recipient.PublicKey, message, SealOptions{Cipher: "aes-256-gcm", KDF: "sha256"})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	got, err := UnsealOffline(recipient, box)
	if err != nil {
		t.Fatalf("UnsealOffline: %v", err)
	}
	if !bytes.HasPrefix(got, message) {
		t.Fatalf("UnsealOffline = %q, want prefix %q", got, message)
	}
	suffix := got[len(message):]
	if len(suffix) == 0 {
		t.Fatal("expected a non-empty 1,2,3,… padding suffix, got none")
	}
	for i, b := range suffix {
		if b != byte(i+1) {
			t.Fatalf("padding suffix = % X, want ascending count starting at 1", suffix)
		}
	}
}

func TestSealUnsealWrongKeyFails(t *testing.T) {
	recipient, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate recipient key: %v", err)
	}
	wrongKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate wrong key: %v", err)
	}

	box, err := Seal(uuid.New(), piv.SlotKeyManagement, &recipient.PublicKey, []byte("secret"), SealOptions{})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := UnsealOffline(wrongKey, box); !errors.Is(err, ErrBadMessage) {
		t.Fatalf("UnsealOffline err = %v, want ErrBadMessage", err)
	}
}

// TestSealTamperingDetected covers spec.md §8: flipping a byte of the
// ciphertext or IV, or substituting another ephemeral public key, produces
// a bad-message error.
func TestSealTamperingDetected(t *testing.T) {
	recipient, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate recipient key: %v", err)
	}

	newBox := func() *Box {
		b, err := Seal(uuid.New(), piv.SlotKeyManagement, &recipient.PublicKey, []byte("tamper me"), SealOptions{})
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		return b
	}

	t.Run("flipped ciphertext byte", func(t *testing.T) {
		box := newBox()
		box.Ciphertext[0] ^= 0xFF
		if _, err := UnsealOffline(recipient, box); !errors.Is(err, ErrBadMessage) {
			t.Fatalf("err = %v, want ErrBadMessage", err)
		}
	})

	t.Run("flipped IV byte", func(t *testing.T) {
		box := newBox()
		box.IV[0] ^= 0xFF
		if _, err := UnsealOffline(recipient, box); !errors.Is(err, ErrBadMessage) {
			t.Fatalf("err = %v, want ErrBadMessage", err)
		}
	})

	t.Run("substituted ephemeral key", func(t *testing.T) {
		box := newBox()
		other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			t.Fatalf("generate substitute key: %v", err)
		}
		box.EphemeralPub = mustPub(t, other)
		if _, err := UnsealOffline(recipient, box); !errors.Is(err, ErrBadMessage) {
			t.Fatalf("err = %v, want ErrBadMessage", err)
		}
	})
}
