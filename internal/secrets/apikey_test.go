package secrets

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestResolveAPIKey_ConfiguredWins(t *testing.T) {
	keyring.MockInit()
	if err := SetAPIKey("acct", "from-keyring"); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveAPIKey("  from-config ", "acct")
	if err != nil {
		t.Fatal(err)
	}
	if got != "from-config" {
		t.Errorf("got %q, want from-config", got)
	}
}

func TestResolveAPIKey_FromKeyring(t *testing.T) {
	keyring.MockInit()
	if err := SetAPIKey("acct", "sk-stored"); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveAPIKey("", "acct")
	if err != nil {
		t.Fatal(err)
	}
	if got != "sk-stored" {
		t.Errorf("got %q, want sk-stored", got)
	}

	if err := DeleteAPIKey("acct"); err != nil {
		t.Fatal(err)
	}
	if _, err := ResolveAPIKey("", "acct"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("after delete: err = %v, want ErrNoAPIKey", err)
	}
}

func TestResolveAPIKey_Missing(t *testing.T) {
	keyring.MockInit()
	if _, err := ResolveAPIKey("", ""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
	if _, err := ResolveAPIKey("", "nobody"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestSetAPIKey_Validates(t *testing.T) {
	keyring.MockInit()
	if err := SetAPIKey("", "k"); err == nil {
		t.Error("expected error for empty account")
	}
	if err := SetAPIKey("a", " "); err == nil {
		t.Error("expected error for empty key")
	}
}
