package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"skledger/internal/core"
)

func TestAmountDecoding(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"number", `1234.5`, "1234.5"},
		{"grouped string", `"1,234.50"`, "1234.5"},
		{"plain string", `"75"`, "75"},
		{"garbage string", `"abc"`, "0"},
		{"empty string", `""`, "0"},
		{"null", `null`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				A Amount `json:"a"`
			}
			if err := json.Unmarshal([]byte(`{"a":`+tt.json+`}`), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !got.A.Decimal().Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("got %s want %s", got.A.Decimal(), tt.want)
			}
		})
	}
}

func TestDraftRequest(t *testing.T) {
	req := DraftRequest{
		Date:        "2025-07-14",
		Reference:   "  DV-2025-07-001\x00 ",
		Payee:       "Office Depot",
		Particulars: "Bond paper",
		Withdrawal:  Amount(decimal.NewFromInt(900)),
		MOOE:        AmountMap{" Office Supplies ": Amount(decimal.NewFromInt(900))},
	}
	d, err := req.Draft()
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if d.Reference != "DV-2025-07-001" {
		t.Fatalf("reference=%q", d.Reference)
	}
	if d.Date.String() != "2025-07-14" {
		t.Fatalf("date=%s", d.Date)
	}
	if !d.MOOE.Get("Office Supplies").Equal(decimal.NewFromInt(900)) {
		t.Fatalf("mooe=%v", d.MOOE)
	}
	if d.CO != nil {
		t.Fatalf("empty map should stay nil, got %v", d.CO)
	}
}

func TestDraftRequestBadDate(t *testing.T) {
	_, err := DraftRequest{Date: "14/07/2025", Reference: "x", Payee: "y"}.Draft()
	var verr *core.ValidationError
	if !errors.As(err, &verr) || verr.Field != "date" {
		t.Fatalf("expected date validation error, got %v", err)
	}
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"fund":"General Fund","sheetNo":"2"}`, false},
		{"empty body", ``, false},
		{"malformed", `{"fund":`, true},
		{"two values", `{"fund":"a"}{"fund":"b"}`, true},
		{"too large", `{"fund":"` + strings.Repeat("x", maxBodyBytes) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPut, "/periods/2025-Q1/metadata", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			var dst MetadataRequest
			err := DecodeJSON(w, r, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if err != nil && StatusFor(err) != http.StatusBadRequest {
				t.Fatalf("status=%d", StatusFor(err))
			}
		})
	}
}

func TestPathParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/", nil)
	r.SetPathValue("key", "2025-q3")
	r.SetPathValue("kind", "CO")
	r.SetPathValue("index", "2")

	key, err := PeriodParam(r)
	if err != nil || key != (core.PeriodKey{Year: 2025, Quarter: core.Q3}) {
		t.Fatalf("key=%v err=%v", key, err)
	}
	kind, err := KindParam(r)
	if err != nil || kind != core.CO {
		t.Fatalf("kind=%v err=%v", kind, err)
	}
	idx, err := IndexParam(r)
	if err != nil || idx != 2 {
		t.Fatalf("index=%d err=%v", idx, err)
	}

	for _, bad := range []string{"", "-1", "two", "1.5"} {
		r.SetPathValue("index", bad)
		if _, err := IndexParam(r); err == nil || StatusFor(err) != http.StatusBadRequest {
			t.Fatalf("index %q: err=%v", bad, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x01b\tc\n "); got != "ab\tc" {
		t.Fatalf("got %q", got)
	}
}
