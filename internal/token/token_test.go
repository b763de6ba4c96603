package token

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "3132333435363738393031323334353637383930313233343536373839303132"

func TestGenerateDeterministicWithinWindow(t *testing.T) {
	g := NewGenerator(30 * time.Second)
	base := time.Unix(1_700_000_010, 0)

	first, errFirst := g.Generate(testSecret, base)
	if errFirst != nil {
		t.Fatalf("generate: %v", errFirst)
	}
	second, errSecond := g.Generate(testSecret, base.Add(19*time.Second))
	if errSecond != nil {
		t.Fatalf("generate: %v", errSecond)
	}
	if first != second {
		t.Fatalf("same window produced different codes: %s vs %s", first, second)
	}
	if len(first) != 8 {
		t.Fatalf("code length %d, want 8", len(first))
	}
}

func TestGenerateConsecutiveWindowsDistinct(t *testing.T) {
	g := NewGenerator(30 * time.Second)
	base := time.Unix(1_700_000_000, 0)

	repeats := 0
	prev := ""
	for i := 0; i < 200; i++ {
		code, errGen := g.Generate(testSecret, base.Add(time.Duration(i)*30*time.Second))
		if errGen != nil {
			t.Fatalf("generate: %v", errGen)
		}
		if code == prev {
			repeats++
		}
		prev = code
	}
	// Adjacent 8-digit codes collide with probability 1e-8; any repeat in
	// 200 windows indicates ordering leakage.
	if repeats != 0 {
		t.Fatalf("%d consecutive-window repeats in 200 samples", repeats)
	}
}

func TestValidateToleranceWindow(t *testing.T) {
	g := NewGenerator(30 * time.Second)
	minted := time.Unix(1_700_000_015, 0)

	code, errGen := g.Generate(testSecret, minted)
	if errGen != nil {
		t.Fatalf("generate: %v", errGen)
	}

	cases := []struct {
		shift time.Duration
		valid bool
	}{
		{-30 * time.Second, true},
		{0, true},
		{30 * time.Second, true},
		{-60 * time.Second, false},
		{60 * time.Second, false},
	}
	for _, tc := range cases {
		valid, _, errValidate := g.Validate(code, testSecret, minted, minted.Add(tc.shift), 1)
		if errValidate != nil {
			t.Fatalf("validate at %v: %v", tc.shift, errValidate)
		}
		if valid != tc.valid {
			t.Fatalf("validate at %v: got %v, want %v", tc.shift, valid, tc.valid)
		}
	}
}

func TestValidateReportsWindowDrift(t *testing.T) {
	g := NewGenerator(30 * time.Second)
	minted := time.Unix(1_700_000_015, 0)

	code, _ := g.Generate(testSecret, minted)

	valid, offset, _ := g.Validate(code, testSecret, minted, minted.Add(30*time.Second), 1)
	if !valid || offset != -1 {
		t.Fatalf("scan one window late: valid=%v offset=%d, want valid offset -1", valid, offset)
	}

	valid, offset, _ = g.Validate(code, testSecret, minted, minted, 1)
	if !valid || offset != 0 {
		t.Fatalf("scan in window: valid=%v offset=%d, want valid offset 0", valid, offset)
	}
}

func TestValidateAcceptsBorrowedWindowCode(t *testing.T) {
	g := NewGenerator(30 * time.Second)
	minted := time.Unix(1_700_000_015, 0)

	// A forced rotation may install the code of a window up to three steps
	// ahead. The scan happens right after the mint, so it must verify.
	for k := 1; k <= 3; k++ {
		code, errGen := g.Generate(testSecret, minted.Add(time.Duration(k)*30*time.Second))
		if errGen != nil {
			t.Fatalf("generate k=%d: %v", k, errGen)
		}
		valid, offset, errValidate := g.Validate(code, testSecret, minted, minted, 1)
		if errValidate != nil {
			t.Fatalf("validate k=%d: %v", k, errValidate)
		}
		if !valid || offset != 0 {
			t.Fatalf("borrowed code k=%d: valid=%v offset=%d, want valid offset 0", k, valid, offset)
		}
	}

	// Beyond the lookahead the code is not one this mint could have issued.
	beyond, _ := g.Generate(testSecret, minted.Add(4*30*time.Second))
	if valid, _, _ := g.Validate(beyond, testSecret, minted, minted, 1); valid {
		t.Fatal("code beyond the mint lookahead accepted")
	}
}

func TestMintSkipsLiveCodes(t *testing.T) {
	g := NewGenerator(30 * time.Second)
	base := time.Unix(1_700_000_015, 0)

	w0, _ := g.Generate(testSecret, base)
	w1, _ := g.Generate(testSecret, base.Add(30*time.Second))

	code, errMint := g.Mint(testSecret, base)
	if errMint != nil {
		t.Fatalf("mint: %v", errMint)
	}
	if code != w0 {
		t.Fatalf("unconstrained mint %s, want current window code %s", code, w0)
	}

	code, errMint = g.Mint(testSecret, base, w0)
	if errMint != nil {
		t.Fatalf("mint avoiding current: %v", errMint)
	}
	if code != w1 {
		t.Fatalf("mint avoiding current gave %s, want next window code %s", code, w1)
	}
}

func TestValidateRejectsBadSecretEncoding(t *testing.T) {
	g := NewGenerator(30 * time.Second)
	if _, errGen := g.Generate("not-hex", time.Now()); errGen == nil {
		t.Fatal("non-hex secret accepted")
	}
}

func TestNewGeneratorWindowFloor(t *testing.T) {
	if w := NewGenerator(500 * time.Millisecond).Window(); w != 30*time.Second {
		t.Fatalf("sub-second window kept: %v", w)
	}
	if w := NewGenerator(45*time.Second + 500*time.Millisecond).Window(); w != 45*time.Second {
		t.Fatalf("window not truncated to whole seconds: %v", w)
	}
	// WindowIndex must not divide by zero after the floor.
	if idx := NewGenerator(time.Millisecond).WindowIndex(time.Unix(60, 0)); idx != 2 {
		t.Fatalf("window index %d, want 2 under the 30s fallback", idx)
	}
}

func TestWindowIndex(t *testing.T) {
	g := NewGenerator(30 * time.Second)
	base := time.Unix(3000, 0)
	if idx := g.WindowIndex(base); idx != 100 {
		t.Fatalf("window index %d, want 100", idx)
	}
	if idx := g.WindowIndex(base.Add(29 * time.Second)); idx != 100 {
		t.Fatalf("window index %d, want 100", idx)
	}
	if idx := g.WindowIndex(base.Add(30 * time.Second)); idx != 101 {
		t.Fatalf("window index %d, want 101", idx)
	}
}

func TestNewSecretShape(t *testing.T) {
	secret, errNew := NewSecret()
	if errNew != nil {
		t.Fatalf("new secret: %v", errNew)
	}
	if len(secret) != 64 {
		t.Fatalf("secret length %d, want 64 hex chars", len(secret))
	}
	other, _ := NewSecret()
	if secret == other {
		t.Fatal("two secrets identical")
	}
}

func TestNewCardNumberShape(t *testing.T) {
	number, errNew := NewCardNumber()
	if errNew != nil {
		t.Fatalf("new card number: %v", errNew)
	}
	if !strings.HasPrefix(number, "PP-") {
		t.Fatalf("card number %q missing prefix", number)
	}
	if len(number) != len("PP-0000-0000-0000-0000") {
		t.Fatalf("card number %q has unexpected length", number)
	}
	other, _ := NewCardNumber()
	if number == other {
		t.Fatal("two card numbers identical")
	}
}
