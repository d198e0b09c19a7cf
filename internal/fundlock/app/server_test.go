package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"
)

func TestServer_OwnerEndpointRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	t.Setenv("FUNDLOCK_DB_PATH", filepath.Join(t.TempDir(), "fundlock.db"))
	t.Setenv("FUNDLOCK_OWNER_ADDRESS", "admin")
	t.Setenv("FUNDLOCK_SETTLEMENT_ASSET", "usdc")
	t.Setenv("FUNDLOCK_SWAP_RATES", "native:usdc=3000/1")
	t.Setenv("FUNDLOCK_AUTH_ISSUER", "fundlock")
	t.Setenv("FUNDLOCK_AUTH_AUDIENCE", "fundlock-api")
	t.Setenv("FUNDLOCK_AUTH_PUBLIC_KEY", base64.RawStdEncoding.EncodeToString(pub))

	srv, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Fatalf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for server shutdown")
		}
	})

	resp, err := http.Get("http://" + srv.Addr() + "/v1/owner")
	if err != nil {
		t.Fatalf("get owner: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", resp.StatusCode)
	}
	var owner struct {
		Owner           string `json:"owner"`
		SettlementAsset string `json:"settlement_asset"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&owner); err != nil {
		t.Fatalf("decode owner: %v", err)
	}
	if owner.Owner != "admin" || owner.SettlementAsset != "usdc" {
		t.Fatalf("owner view = %+v", owner)
	}
}

func TestNewWithAddr_RequiresOwner(t *testing.T) {
	t.Setenv("FUNDLOCK_DB_PATH", filepath.Join(t.TempDir(), "fundlock.db"))
	t.Setenv("FUNDLOCK_OWNER_ADDRESS", "")

	if _, err := NewWithAddr("127.0.0.1:0"); err == nil {
		t.Fatal("expected error without owner address")
	}
}
