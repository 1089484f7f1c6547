package main

import (
	"strings"
	"testing"
)

func TestTruncateTweet(t *testing.T) {
	short := "gm ser"
	if got := truncateTweet(short); got != short {
		t.Errorf("short text must pass through, got %q", got)
	}

	long := strings.Repeat("a", 300)
	got := truncateTweet(long)
	if len([]rune(got)) != 280 {
		t.Fatalf("expected 280 runes, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated tweet must end with ellipsis")
	}
}

func TestShortWallet(t *testing.T) {
	if got := shortWallet("Unknown"); got != "anon" {
		t.Errorf("expected anon for Unknown, got %q", got)
	}
	if got := shortWallet(""); got != "anon" {
		t.Errorf("expected anon for empty, got %q", got)
	}
	if got := shortWallet("abc"); got != "abc" {
		t.Errorf("short addresses pass through, got %q", got)
	}
	if got := shortWallet("ABCDEFGH123456789WXYZ"); got != "ABCD...WXYZ" {
		t.Errorf("unexpected short form %q", got)
	}
}

func TestWalletTag(t *testing.T) {
	if got := walletTag("shortwallet"); got != "shortwallet" {
		t.Errorf("short wallets pass through, got %q", got)
	}
	long := "ABCDEFGH" + strings.Repeat("x", 20) + "12345678"
	if got := walletTag(long); got != "ABCDEFGH...12345678" {
		t.Errorf("unexpected tag %q", got)
	}
}

func TestFormatThousands(t *testing.T) {
	cases := map[int]string{
		5:         "5",
		999:       "999",
		1000:      "1,000",
		1234567:   "1,234,567",
		100000000: "100,000,000",
	}
	for in, want := range cases {
		if got := formatThousands(in); got != want {
			t.Errorf("formatThousands(%d) = %q, want %q", in, got, want)
		}
	}
}
