package password

import (
	"strings"
	"testing"
)

// Parámetros livianos para que los tests no quemen 64 MiB por hash.
var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerify(t *testing.T) {
	phc, err := Hash(testParams, "correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Errorf("phc = %q", phc)
	}
	if !Verify("correct horse battery staple", phc) {
		t.Error("correct password rejected")
	}
	if Verify("wrong password", phc) {
		t.Error("wrong password accepted")
	}
	if Verify("", phc) {
		t.Error("empty password accepted")
	}
}

func TestHashSaltsDiffer(t *testing.T) {
	a, err := Hash(testParams, "same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := Hash(testParams, "same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same input are identical: salt is not random")
	}
	if !Verify("same", a) || !Verify("same", b) {
		t.Error("either hash failed to verify")
	}
}

func TestHashRejectsEmpty(t *testing.T) {
	if _, err := Hash(testParams, ""); err == nil {
		t.Fatal("empty secret should be rejected")
	}
}

func TestVerifyMalformedPHC(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$ZGs",    // variante equivocada
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$ZGs",   // versión equivocada
		"$argon2id$v=19$m=8192$c2FsdA$ZGs",           // params incompletos
		"$argon2id$v=19$m=8192,t=1,p=1$!!$ZGs",       // salt no-base64
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$!!",    // dk no-base64
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA",       // campos de menos
	}
	for _, phc := range cases {
		if Verify("whatever", phc) {
			t.Errorf("malformed PHC accepted: %q", phc)
		}
	}
}
