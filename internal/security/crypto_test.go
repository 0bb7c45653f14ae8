package security

import (
	"os"
	"path/filepath"
	"testing"
)

// ─── Keypair Generation ─────────────────────────────────────────────────────

func TestGenerateKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	if len(kp.Public) != 32 {
		t.Errorf("public key len = %d, want 32", len(kp.Public))
	}
	if len(kp.Private) != 64 {
		t.Errorf("private key len = %d, want 64", len(kp.Private))
	}
}

func TestGenerateKeypair_Unique(t *testing.T) {
	kp1, _ := GenerateKeypair()
	kp2, _ := GenerateKeypair()

	if kp1.PublicKeyHex() == kp2.PublicKeyHex() {
		t.Error("two generated keypairs should have different public keys")
	}
}

// ─── Sign / Verify ──────────────────────────────────────────────────────────

func TestSignVerify_RecordHash(t *testing.T) {
	kp, _ := GenerateKeypair()
	hash := []byte("9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08")

	sig := kp.Sign(hash)
	if len(sig) != 64 {
		t.Errorf("signature len = %d, want 64", len(sig))
	}
	if !Verify(hash, sig, kp.Public) {
		t.Error("Verify() should return true for valid signature")
	}
	if Verify([]byte("tampered"), sig, kp.Public) {
		t.Error("Verify() should return false for wrong message")
	}
}

func TestVerify_WrongKey(t *testing.T) {
	kp1, _ := GenerateKeypair()
	kp2, _ := GenerateKeypair()

	message := []byte("record hash")
	sig := kp1.Sign(message)

	if Verify(message, sig, kp2.Public) {
		t.Error("Verify() should return false for wrong public key")
	}
}

func TestVerify_MalformedKey(t *testing.T) {
	kp, _ := GenerateKeypair()
	sig := kp.Sign([]byte("x"))
	if Verify([]byte("x"), sig, []byte{1, 2, 3}) {
		t.Error("Verify() should reject a short public key")
	}
}

// ─── Hex Encoding ───────────────────────────────────────────────────────────

func TestPublicKeyFromHex(t *testing.T) {
	kp, _ := GenerateKeypair()

	pub, err := PublicKeyFromHex(kp.PublicKeyHex() + "\n")
	if err != nil {
		t.Fatalf("PublicKeyFromHex() error: %v", err)
	}
	if !pub.Equal(kp.Public) {
		t.Error("decoded key should equal original")
	}

	if _, err := PublicKeyFromHex("zz"); err == nil {
		t.Error("PublicKeyFromHex(non-hex) should fail")
	}
	if _, err := PublicKeyFromHex("abcd"); err == nil {
		t.Error("PublicKeyFromHex(short) should fail")
	}
}

// ─── Persistence ────────────────────────────────────────────────────────────

func TestLoadOrCreateKeypair_Creates(t *testing.T) {
	home := t.TempDir()
	kp, err := LoadOrCreateKeypair(home)
	if err != nil {
		t.Fatalf("LoadOrCreateKeypair() error: %v", err)
	}
	if kp == nil {
		t.Fatal("LoadOrCreateKeypair() returned nil")
	}

	keyDir := filepath.Join(home, "keys")
	if _, err := os.Stat(filepath.Join(keyDir, "records.pub")); os.IsNotExist(err) {
		t.Error("records.pub should exist")
	}
	if _, err := os.Stat(filepath.Join(keyDir, "records.key")); os.IsNotExist(err) {
		t.Error("records.key should exist")
	}
}

func TestLoadOrCreateKeypair_Loads(t *testing.T) {
	home := t.TempDir()

	kp1, _ := LoadOrCreateKeypair(home)
	kp2, err := LoadOrCreateKeypair(home)
	if err != nil {
		t.Fatalf("LoadOrCreateKeypair() second call error: %v", err)
	}
	if kp1.PublicKeyHex() != kp2.PublicKeyHex() {
		t.Error("loaded keypair should match created keypair")
	}

	message := []byte("persistent identity test")
	if !Verify(message, kp1.Sign(message), kp2.Public) {
		t.Error("signature should verify after reloading keypair")
	}
}
