package site

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/google/uuid"

	"translate-platform/pkg/crypto"
)

func newKeys(t *testing.T) (*Keys, *MemoryStore) {
	t.Helper()
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("rand: %v", err)
	}
	cipher, err := crypto.NewTokenCipher(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}
	store := NewMemoryStore()
	return NewKeys(store, cipher), store
}

func TestProviderKeyRoundtrip(t *testing.T) {
	keys, store := newKeys(t)
	ctx := context.Background()
	siteID := uuid.NewString()
	if err := store.Ensure(ctx, siteID, "demo"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	if err := keys.StoreProviderKey(ctx, siteID, "dl-site-key"); err != nil {
		t.Fatalf("StoreProviderKey: %v", err)
	}
	// 落库的是密文负载
	st, _ := store.Get(ctx, siteID)
	if st.ProviderToken == nil || *st.ProviderToken == "dl-site-key" {
		t.Fatalf("stored token must be encrypted, got %v", st.ProviderToken)
	}

	got, err := keys.ProviderKey(ctx, siteID)
	if err != nil {
		t.Fatalf("ProviderKey: %v", err)
	}
	if got != "dl-site-key" {
		t.Errorf("ProviderKey = %q", got)
	}
}

func TestProviderKeyUnsetSite(t *testing.T) {
	keys, store := newKeys(t)
	ctx := context.Background()
	siteID := uuid.NewString()
	_ = store.Ensure(ctx, siteID, "")

	if got, err := keys.ProviderKey(ctx, siteID); err != nil || got != "" {
		t.Errorf("site without token: %q %v", got, err)
	}
	// 不存在的站点同样视为未配置
	if got, err := keys.ProviderKey(ctx, uuid.NewString()); err != nil || got != "" {
		t.Errorf("unknown site: %q %v", got, err)
	}
}

func TestProviderKeyDisabledCipher(t *testing.T) {
	store := NewMemoryStore()
	keys := NewKeys(store, nil)
	if got, err := keys.ProviderKey(context.Background(), uuid.NewString()); err != nil || got != "" {
		t.Errorf("disabled cipher: %q %v", got, err)
	}
}

func TestStoreProviderKeyClear(t *testing.T) {
	keys, store := newKeys(t)
	ctx := context.Background()
	siteID := uuid.NewString()
	_ = store.Ensure(ctx, siteID, "")

	_ = keys.StoreProviderKey(ctx, siteID, "dl-old")
	if err := keys.StoreProviderKey(ctx, siteID, ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	st, _ := store.Get(ctx, siteID)
	if st.ProviderToken != nil {
		t.Error("empty plaintext must clear the stored token")
	}
}
