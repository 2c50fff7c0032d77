package validation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/rules"
)

func variant(t *testing.T, name string) rules.Variant {
	t.Helper()
	table, err := rules.Default()
	if err != nil {
		t.Fatalf("rules.Default: %v", err)
	}
	v, ok := table.Variant(name)
	if !ok {
		t.Fatalf("variant %q missing", name)
	}
	return v
}

func completeRequest() model.ContactRequest {
	req := model.Defaults()
	req.Name = "山田太郎"
	req.Phone = "09012345678"
	req.Service = model.ServiceJunkRemoval
	req.PickupDate1 = "2024-01-01T10:00"
	req.BuildingType = model.BuildingHouse
	req.Parking = model.Yes
	req.Elevator = model.No
	return req
}

func TestValidateBasicRequiresName(t *testing.T) {
	t.Parallel()
	basic := variant(t, "basic")

	req := completeRequest()
	req.Name = ""
	err := Validate(req, basic)
	verr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if verr.Message != MsgRequired {
		t.Fatalf("message = %q", verr.Message)
	}
	if diff := cmp.Diff([]model.FieldKey{model.FieldName}, verr.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	req.Name = "X"
	if err := Validate(req, basic); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestValidateMovingNeedsDestination(t *testing.T) {
	t.Parallel()
	basic := variant(t, "basic")

	req := completeRequest()
	req.Service = model.ServiceMoving
	err := Validate(req, basic)
	verr, ok := AsError(err)
	if !ok || verr.Message != MsgDestination || verr.Stage != model.GroupDestination {
		t.Fatalf("expected destination failure, got %v", err)
	}

	req.MovePostalCode = "1500001"
	req.MovePrefecture = "東京都"
	req.MoveCity = "渋谷区神宮前"
	req.MoveAddress1 = "1-2-3"
	if err := Validate(req, basic); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	req.MovePostalCode = "150000"
	verr, ok = AsError(Validate(req, basic))
	if !ok || verr.Message != MsgDestinationPostal {
		t.Fatalf("expected destination postal failure, got %v", verr)
	}
}

func TestValidateDestinationIgnoredWhenNotMoving(t *testing.T) {
	t.Parallel()
	req := completeRequest()
	req.MovePostalCode = "abc"
	if err := Validate(req, variant(t, "basic")); err != nil {
		t.Fatalf("destination fields should be ignored, got %v", err)
	}
}

func TestValidateStageOrder(t *testing.T) {
	t.Parallel()
	standard := variant(t, "standard")
	strict := variant(t, "strict")

	cases := []struct {
		name    string
		variant rules.Variant
		mutate  func(*model.ContactRequest)
		want    string
	}{
		{
			name:    "general before site",
			variant: strict,
			mutate: func(r *model.ContactRequest) {
				r.Phone = ""
			},
			want: MsgRequired,
		},
		{
			name:    "service not offered",
			variant: standard,
			mutate: func(r *model.ContactRequest) {
				r.Service = model.ServiceEstateCleanup
			},
			want: MsgService,
		},
		{
			name:    "unknown option",
			variant: standard,
			mutate: func(r *model.ContactRequest) {
				r.Parking = "たぶん"
			},
			want: MsgOption,
		},
		{
			name:    "bad pickup date",
			variant: standard,
			mutate: func(r *model.ContactRequest) {
				r.PickupDate2 = "来週"
			},
			want: MsgPickupDate,
		},
		{
			name:    "strict site address",
			variant: strict,
			mutate:  func(r *model.ContactRequest) {},
			want:    MsgSiteAddress,
		},
		{
			name:    "site postal always checked",
			variant: standard,
			mutate: func(r *model.ContactRequest) {
				r.PostalCode = "+123456"
			},
			want: MsgSitePostal,
		},
		{
			name:    "strict items",
			variant: strict,
			mutate: func(r *model.ContactRequest) {
				r.PostalCode = "1000001"
				r.Prefecture = "東京都"
				r.City = "千代田区千代田"
				r.Address1 = "1-1"
			},
			want: MsgItems,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := completeRequest()
			tc.mutate(&req)
			verr, ok := AsError(Validate(req, tc.variant))
			if !ok {
				t.Fatalf("expected failure %q", tc.want)
			}
			if verr.Message != tc.want {
				t.Fatalf("message = %q, want %q", verr.Message, tc.want)
			}
		})
	}
}

func TestValidatePropagatesEvaluatorErrors(t *testing.T) {
	t.Parallel()
	v := variant(t, "basic")
	v.Rules = map[model.FieldKey]rules.Requirement{
		model.FieldName: rules.RequiredIf("service =="),
	}
	req := completeRequest()
	req.Name = ""
	err := Validate(req, v)
	if err == nil {
		t.Fatalf("expected evaluator error")
	}
	var verr *Error
	if errors.As(err, &verr) {
		t.Fatalf("evaluator errors should not be validation failures: %v", err)
	}
}

func TestIsPostalCode(t *testing.T) {
	t.Parallel()
	v := New()
	for value, want := range map[string]bool{
		"1500001":  true,
		"150000":   false,
		"15000011": false,
		"150-001":  false,
		"+150001":  false,
		"":         false,
	} {
		if got := v.IsPostalCode(value); got != want {
			t.Errorf("IsPostalCode(%q) = %v, want %v", value, got, want)
		}
	}
}
