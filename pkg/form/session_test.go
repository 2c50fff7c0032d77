package form

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/postal"
	"github.com/goliatone/go-pickupform/pkg/rules"
)

type stubLookuper struct {
	mu      sync.Mutex
	calls   []string
	answers map[string]postal.Address
	errs    map[string]error
	gates   map[string]chan struct{}
}

func newStubLookuper() *stubLookuper {
	return &stubLookuper{
		answers: map[string]postal.Address{},
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
	}
}

func (s *stubLookuper) Lookup(_ context.Context, zipcode string) (postal.Address, error) {
	s.mu.Lock()
	s.calls = append(s.calls, zipcode)
	gate := s.gates[zipcode]
	addr, ok := s.answers[zipcode]
	err := s.errs[zipcode]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return postal.Address{}, err
	}
	if !ok {
		return postal.Address{}, postal.ErrNotFound
	}
	return addr, nil
}

func (s *stubLookuper) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func standardVariant(t *testing.T) rules.Variant {
	t.Helper()
	table, err := rules.Default()
	if err != nil {
		t.Fatalf("rules.Default: %v", err)
	}
	v, _ := table.Variant("standard")
	return v
}

func mustSet(t *testing.T, s *Session, key model.FieldKey, value string) {
	t.Helper()
	if err := s.Set(key, value); err != nil {
		t.Fatalf("Set(%s): %v", key, err)
	}
}

func TestLookupFillsPrefectureAndCity(t *testing.T) {
	t.Parallel()
	lookuper := newStubLookuper()
	lookuper.answers["1500001"] = postal.Address{Zipcode: "1500001", Prefecture: "東京都", City: "渋谷区神宮前"}
	s := NewSession(standardVariant(t), lookuper)

	mustSet(t, s, model.FieldAddress1, "1-2-3")
	mustSet(t, s, model.FieldBuilding, "神宮前ハイツ101")
	mustSet(t, s, model.FieldPostalCode, "〒１５０-０００１")
	if got := s.LookupStatus(model.TargetSite); got != postal.StatusSearching && got != "" {
		t.Fatalf("unexpected status while searching: %q", got)
	}
	s.Wait()

	req := s.Request()
	if req.PostalCode != "1500001" || req.Prefecture != "東京都" || req.City != "渋谷区神宮前" {
		t.Fatalf("address not merged: %+v", req)
	}
	if req.Address1 != "1-2-3" || req.Building != "神宮前ハイツ101" {
		t.Fatalf("street fields must be untouched: %+v", req)
	}
	if status := s.LookupStatus(model.TargetSite); status != "" {
		t.Fatalf("status should clear on success, got %q", status)
	}
}

func TestLookupSkipsIncompleteZipcodes(t *testing.T) {
	t.Parallel()
	lookuper := newStubLookuper()
	s := NewSession(standardVariant(t), lookuper)

	for _, value := range []string{"15", "150000", "15000011"} {
		mustSet(t, s, model.FieldPostalCode, value)
	}
	s.Wait()
	if calls := lookuper.Calls(); len(calls) != 0 {
		t.Fatalf("expected no lookups, got %v", calls)
	}
	if status := s.LookupStatus(model.TargetSite); status != "" {
		t.Fatalf("status = %q", status)
	}
}

func TestLookupStatuses(t *testing.T) {
	t.Parallel()
	lookuper := newStubLookuper()
	lookuper.errs["9999999"] = &postal.LookupError{Zipcode: "9999999", Err: errors.New("boom")}
	s := NewSession(standardVariant(t), lookuper)

	mustSet(t, s, model.FieldPostalCode, "0000000")
	s.Wait()
	if got := s.LookupStatus(model.TargetSite); got != postal.StatusNotFound {
		t.Fatalf("not found status = %q", got)
	}

	mustSet(t, s, model.FieldMovePostalCode, "9999999")
	s.Wait()
	if got := s.LookupStatus(model.TargetDestination); got != postal.StatusFailed {
		t.Fatalf("failed status = %q", got)
	}

	mustSet(t, s, model.FieldMovePostalCode, "99")
	if got := s.LookupStatus(model.TargetDestination); got != "" {
		t.Fatalf("editing away from seven digits should clear the status, got %q", got)
	}
}

func TestStaleLookupNeverOverwritesNewer(t *testing.T) {
	t.Parallel()
	lookuper := newStubLookuper()
	slow := make(chan struct{})
	lookuper.gates["1000001"] = slow
	lookuper.answers["1000001"] = postal.Address{Prefecture: "東京都", City: "千代田区千代田"}
	lookuper.answers["5300001"] = postal.Address{Prefecture: "大阪府", City: "大阪市北区梅田"}
	s := NewSession(standardVariant(t), lookuper)

	mustSet(t, s, model.FieldPostalCode, "1000001")
	mustSet(t, s, model.FieldPostalCode, "5300001")

	deadline := time.Now().Add(2 * time.Second)
	for s.Request().Prefecture == "" {
		if time.Now().After(deadline) {
			t.Fatalf("newer lookup never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(slow)
	s.Wait()

	req := s.Request()
	if req.Prefecture != "大阪府" || req.City != "大阪市北区梅田" {
		t.Fatalf("stale answer leaked: %+v", req)
	}
}

func TestFillIfEmptyKeepsUserValues(t *testing.T) {
	t.Parallel()
	lookuper := newStubLookuper()
	lookuper.answers["1500001"] = postal.Address{Prefecture: "東京都", City: "渋谷区神宮前"}
	s := NewSession(standardVariant(t), lookuper, WithMergePolicy(model.MergeFillIfEmpty))

	mustSet(t, s, model.FieldCity, "渋谷区")
	mustSet(t, s, model.FieldPostalCode, "1500001")
	s.Wait()

	req := s.Request()
	if req.Prefecture != "東京都" || req.City != "渋谷区" {
		t.Fatalf("fill-if-empty merge mismatch: %+v", req)
	}
}

func TestDebounceCollapsesRapidEdits(t *testing.T) {
	t.Parallel()
	lookuper := newStubLookuper()
	lookuper.answers["5300001"] = postal.Address{Prefecture: "大阪府"}
	s := NewSession(standardVariant(t), lookuper, WithDebounce(50*time.Millisecond))

	mustSet(t, s, model.FieldPostalCode, "1000001")
	mustSet(t, s, model.FieldPostalCode, "5300001")
	s.Wait()

	if diff := cmp.Diff([]string{"5300001"}, lookuper.Calls()); diff != "" {
		t.Fatalf("lookups mismatch (-want +got):\n%s", diff)
	}
}

func TestResetClearsEverything(t *testing.T) {
	t.Parallel()
	lookuper := newStubLookuper()
	gate := make(chan struct{})
	lookuper.gates["1500001"] = gate
	lookuper.answers["1500001"] = postal.Address{Prefecture: "東京都", City: "渋谷区"}
	s := NewSession(standardVariant(t), lookuper)

	mustSet(t, s, model.FieldName, "山田")
	mustSet(t, s, model.FieldContactMethod, string(model.ContactPhone))
	s.SetAttachments([]model.Attachment{{Name: "/tmp/photos/sofa.jpg", Size: 10}})
	mustSet(t, s, model.FieldPostalCode, "1500001")
	s.AbortSubmit("必須項目が未入力です。")

	s.Reset()
	close(gate)
	s.Wait()

	snap := s.Snapshot()
	if diff := cmp.Diff(model.Defaults(), snap.Request); diff != "" {
		t.Fatalf("request not reset (-want +got):\n%s", diff)
	}
	if len(snap.Lookup) != 0 || snap.Error != "" || snap.Submitting || snap.Submitted {
		t.Fatalf("flags not reset: %+v", snap)
	}
}

func TestSubmitFlags(t *testing.T) {
	t.Parallel()
	s := NewSession(standardVariant(t), nil)
	mustSet(t, s, model.FieldName, "山田")

	if !s.BeginSubmit() {
		t.Fatalf("first BeginSubmit should succeed")
	}
	if s.BeginSubmit() {
		t.Fatalf("second BeginSubmit should be refused while busy")
	}
	if label := s.Snapshot().SubmitLabel(); label != LabelSending {
		t.Fatalf("label = %q", label)
	}

	s.AbortSubmit("送信に失敗しました。")
	snap := s.Snapshot()
	if snap.Submitting || snap.Error != "送信に失敗しました。" || snap.Request.Name != "山田" {
		t.Fatalf("abort should keep the request: %+v", snap)
	}
	if snap.SubmitLabel() != LabelSubmit {
		t.Fatalf("label = %q", snap.SubmitLabel())
	}

	if !s.BeginSubmit() {
		t.Fatalf("BeginSubmit after abort should succeed")
	}
	s.CompleteSubmit()
	snap = s.Snapshot()
	if !snap.Submitted || snap.Error != "" || snap.Request.Name != "" {
		t.Fatalf("complete should reset and flag: %+v", snap)
	}
}

func TestPrefillPlatformNameFirstWins(t *testing.T) {
	t.Parallel()
	s := NewSession(standardVariant(t), nil)

	if s.PrefillPlatformName("  ") {
		t.Fatalf("blank name should not prefill")
	}
	mustSet(t, s, model.FieldPlatformName, "たろう")
	if s.PrefillPlatformName("Taro LINE") {
		t.Fatalf("user value must not be overwritten")
	}
	if got := s.Request().PlatformName; got != "たろう" {
		t.Fatalf("platform name = %q", got)
	}

	s.Reset()
	if !s.PrefillPlatformName("Taro LINE") {
		t.Fatalf("empty field should be prefilled")
	}
}

func TestSetRejectsUnknownAndFileFields(t *testing.T) {
	t.Parallel()
	s := NewSession(standardVariant(t), nil)
	if err := s.Set("shoeSize", "27"); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if err := s.Set(model.FieldImages, "a.jpg"); err == nil {
		t.Fatalf("expected attachment field error")
	}
}

func TestSessionIDIsStable(t *testing.T) {
	t.Parallel()
	s := NewSession(standardVariant(t), nil, WithID("fixed"))
	if s.ID() != "fixed" || s.Snapshot().ID != "fixed" {
		t.Fatalf("id = %q", s.ID())
	}
	other := NewSession(standardVariant(t), nil)
	if other.ID() == "" || other.ID() == NewSession(standardVariant(t), nil).ID() {
		t.Fatalf("generated ids should be unique")
	}
}

var _ postal.Lookuper = (*stubLookuper)(nil)
