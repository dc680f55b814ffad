package piv

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/pivhold/piv/internal/bertlv"
)

func TestGenerateKeyRSA(t *testing.T) {
	modulus := bytes.Repeat([]byte{0xAB}, 256)
	replyW := bertlv.NewWriter()
	replyW.Open("7f49")
	replyW.WriteBytes("81", modulus)
	replyW.WriteBytes("82", []byte{0x01, 0x00, 0x01})
	replyW.Close()
	reply, err := replyW.Bytes()
	if err != nil {
		t.Fatalf("build GENERATE reply fixture: %v", err)
	}

	s := newTestSession(scriptedStep{reply: sw(0x90, 0x00, reply...)})
	pub, err := GenerateKey(&Token{session: s}, SlotAuthentication, AlgRSA2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		t.Fatalf("GenerateKey returned %T, want *rsa.PublicKey", pub)
	}
	if rsaPub.E != 65537 {
		t.Fatalf("rsaPub.E = %d, want 65537", rsaPub.E)
	}
	if rsaPub.N.Cmp(new(big.Int).SetBytes(modulus)) != 0 {
		t.Fatal("rsaPub.N does not match fixture modulus")
	}
}

func TestGenerateKeyECC(t *testing.T) {
	curve := elliptic.P256()
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("generate reference EC key: %v", err)
	}
	point := elliptic.Marshal(curve, priv.X, priv.Y)

	replyW := bertlv.NewWriter()
	replyW.Open("7f49")
	replyW.WriteBytes("86", point)
	replyW.Close()
	reply, err := replyW.Bytes()
	if err != nil {
		t.Fatalf("build GENERATE reply fixture: %v", err)
	}

	s := newTestSession(scriptedStep{reply: sw(0x90, 0x00, reply...)})
	pub, err := GenerateKey(&Token{session: s}, SlotSignature, AlgECCP256)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		t.Fatalf("GenerateKey returned %T, want *ecdsa.PublicKey", pub)
	}
	if ecPub.X.Cmp(priv.X) != 0 || ecPub.Y.Cmp(priv.Y) != 0 {
		t.Fatal("parsed EC public key point does not match fixture")
	}
}

func TestGenerateKeyFailure(t *testing.T) {
	s := newTestSession(scriptedStep{reply: sw(0x69, 0x82)})
	if _, err := GenerateKey(&Token{session: s}, SlotAuthentication, AlgRSA2048); err == nil {
		t.Fatal("GenerateKey: expected error on non-success status word")
	}
}
