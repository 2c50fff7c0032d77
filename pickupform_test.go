package pickupform

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/postal"
)

func TestLoadRulesDefaultsToEmbeddedTable(t *testing.T) {
	t.Parallel()
	table, err := LoadRules("")
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if table.DefaultName() != "standard" {
		t.Fatalf("default variant = %q", table.DefaultName())
	}
}

func TestLoadRulesFromFileAndDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	doc := `default: quick
variants:
  quick:
    services: [不用品回収]
    rules:
      name: required
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	for _, source := range []string{path, dir} {
		variant, err := SelectVariant(source, "")
		if err != nil {
			t.Fatalf("SelectVariant(%s): %v", source, err)
		}
		if variant.Name != "quick" || !variant.Offers(model.ServiceJunkRemoval) {
			t.Fatalf("unexpected variant from %s: %+v", source, variant)
		}
	}
	if _, err := SelectVariant(path, "missing"); err == nil || !strings.Contains(err.Error(), "quick") {
		t.Fatalf("expected unknown variant error listing names, got %v", err)
	}
	if _, err := LoadRules(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestNewSessionAppliesVariantMergePolicy(t *testing.T) {
	t.Parallel()
	variant, err := SelectVariant("", "strict")
	if err != nil {
		t.Fatalf("SelectVariant: %v", err)
	}
	lookuper := postal.LookuperFunc(func(context.Context, string) (postal.Address, error) {
		return postal.Address{Prefecture: "東京都", City: "渋谷区神宮前"}, nil
	})
	session := NewSession(variant, lookuper)
	t.Cleanup(session.Close)

	if err := session.Set(model.FieldCity, "渋谷区"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := session.Set(model.FieldPostalCode, "1500001"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	session.Wait()
	if got := session.Request(); got.Prefecture != "東京都" || got.City != "渋谷区" {
		t.Fatalf("fill-if-empty not applied: %+v", got)
	}
}

func TestNewOrchestratorRunsDetached(t *testing.T) {
	t.Parallel()
	variant, err := SelectVariant("", "lenient")
	if err != nil {
		t.Fatalf("SelectVariant: %v", err)
	}
	session := NewSession(variant, nil)
	t.Cleanup(session.Close)
	_ = session.Set(model.FieldName, "山田太郎")
	_ = session.Set(model.FieldPhone, "09012345678")

	o, err := NewOrchestrator(session, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	if err := Connect(context.Background(), o); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	result, err := o.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Dispatched || !strings.Contains(result.Summary, "【お名前】山田太郎") {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSummarizeUsesBuiltInBanners(t *testing.T) {
	t.Parallel()
	req := model.Defaults()
	req.Name = "山田太郎"
	text, err := Summarize(req)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.HasSuffix(text, "———") || !strings.Contains(text, "【やり取り方法】LINE") {
		t.Fatalf("unexpected summary:\n%s", text)
	}
}

func TestEmbeddedFilesystems(t *testing.T) {
	t.Parallel()
	if _, err := fs.ReadFile(EmbeddedTemplates(), "header.tpl"); err != nil {
		t.Fatalf("header template not embedded: %v", err)
	}
	if _, err := fs.ReadFile(EmbeddedRules(), "default.yaml"); err != nil {
		t.Fatalf("rule table not embedded: %v", err)
	}
}

func TestNewLookuperUsesRedisWhenConfigured(t *testing.T) {
	t.Parallel()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":null,"results":[{"address1":"東京都","address2":"渋谷区","address3":"神宮前","zipcode":"1500001"}],"status":200}`))
	}))
	t.Cleanup(api.Close)

	srv := miniredis.RunT(t)
	addr := srv.Addr()
	lookuper, closeFn, err := NewLookuper(context.Background(), LookupConfig{
		Endpoint:  api.URL,
		Timeout:   time.Second,
		RedisAddr: addr,
	})
	if err != nil {
		t.Fatalf("NewLookuper: %v", err)
	}
	t.Cleanup(func() { _ = closeFn() })

	got, err := lookuper.Lookup(context.Background(), "1500001")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Prefecture != "東京都" || got.City != "渋谷区神宮前" {
		t.Fatalf("unexpected address: %+v", got)
	}
	if !srv.Exists("pickupform:postal:1500001") {
		t.Fatalf("resolved address not cached in redis: %v", srv.Keys())
	}

	srv.Close()
	if _, _, err := NewLookuper(context.Background(), LookupConfig{RedisAddr: addr}); err == nil {
		t.Fatalf("expected ping failure once redis is gone")
	}
}

func TestNewLookuperFallsBackToMemory(t *testing.T) {
	t.Parallel()
	lookuper, closeFn, err := NewLookuper(context.Background(), LookupConfig{})
	if err != nil {
		t.Fatalf("NewLookuper: %v", err)
	}
	if lookuper == nil || closeFn() != nil {
		t.Fatalf("memory lookuper should close cleanly")
	}
}
