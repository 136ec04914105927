package auth

import (
	"testing"
	"time"

	"github.com/akulikov/driveguard/internal/common"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	client := "backup-agent"

	tok, err := GenerateToken(client, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	got, err := GetClientFromToken(tok, secret)
	if err != nil {
		t.Fatalf("GetClientFromToken error: %v", err)
	}
	if got != client {
		t.Fatalf("client mismatch: got %q want %q", got, client)
	}
}

func TestGetClientFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken("c1", secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetClientFromToken(tok, secret)
	if err != common.ErrTokenExpired {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestGetClientFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("c2", []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetClientFromToken(tok, []byte("wrong-secret"))
	if err != common.ErrInvalidToken {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestGetClientFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := GetClientFromToken("not.a.jwt", []byte("k"))
	if err != common.ErrInvalidToken {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}
