// Package http serves the ledger's JSON API and printable register.
//
// This file holds request decoding: bounded JSON bodies, lenient amount
// fields and path parameter parsing.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"skledger/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests that map to 400.
var errBadRequest = errors.New("bad request")

// Amount is a JSON amount that accepts numbers, user formatted strings such
// as "1,234.50" and null. Anything unparsable decodes as zero.
type Amount decimal.Decimal

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*a = Amount(decimal.Zero)
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = Amount(decimal.Zero)
			return nil
		}
		*a = Amount(core.CoerceAmount(s))
	default:
		*a = Amount(core.CoerceAmount(string(data)))
	}
	return nil
}

// Decimal returns the amount as a decimal.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.Decimal(a)
}

// AmountMap is a label keyed set of lenient amounts.
type AmountMap map[string]Amount

func (m AmountMap) amounts() core.Amounts {
	if len(m) == 0 {
		return nil
	}
	out := make(core.Amounts, len(m))
	for label, v := range m {
		out[sanitizeInput(label)] = v.Decimal()
	}
	return out
}

// DraftRequest is the body of POST /periods/{key}/entries.
type DraftRequest struct {
	Date         string    `json:"date"`
	Reference    string    `json:"reference"`
	Payee        string    `json:"payee"`
	Particulars  string    `json:"particulars"`
	Deposit      Amount    `json:"deposit"`
	Withdrawal   Amount    `json:"withdrawal"`
	MOOE         AmountMap `json:"mooe"`
	CO           AmountMap `json:"co"`
	AdvOfficials Amount    `json:"advOfficials"`
	AdvTreasurer Amount    `json:"advTreasurer"`
	Others       Amount    `json:"others"`
	Withholding  AmountMap `json:"withholding"`
}

// Draft converts the request into a ledger draft. An unreadable date is a
// validation failure on the date field.
func (r DraftRequest) Draft() (core.Draft, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Draft{}, &core.ValidationError{Field: "date", Err: core.ErrInvalidDate}
	}
	return core.Draft{
		Date:         date,
		Reference:    sanitizeInput(r.Reference),
		Payee:        sanitizeInput(r.Payee),
		Particulars:  sanitizeInput(r.Particulars),
		Deposit:      r.Deposit.Decimal(),
		Withdrawal:   r.Withdrawal.Decimal(),
		MOOE:         r.MOOE.amounts(),
		CO:           r.CO.amounts(),
		AdvOfficials: r.AdvOfficials.Decimal(),
		AdvTreasurer: r.AdvTreasurer.Decimal(),
		Others:       r.Others.Decimal(),
		Withholding:  r.Withholding.amounts(),
	}, nil
}

// MetadataRequest is the body of PUT /periods/{key}/metadata.
type MetadataRequest struct {
	Fund    string `json:"fund"`
	SheetNo string `json:"sheetNo"`
}

// OpeningRequest is the body of PUT /periods/{key}/opening.
type OpeningRequest struct {
	Amount Amount `json:"amount"`
}

// LabelRequest is the body of the account column endpoints.
type LabelRequest struct {
	Label string `json:"label"`
}

// DecodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must contain a single JSON value", errBadRequest)
	}
	return nil
}

// PeriodParam parses the {key} path value.
func PeriodParam(r *http.Request) (core.PeriodKey, error) {
	return core.ParsePeriodKey(r.PathValue("key"))
}

// KindParam parses the {kind} path value.
func KindParam(r *http.Request) (core.AccountKind, error) {
	return core.ParseAccountKind(r.PathValue("kind"))
}

// IndexParam parses the {index} path value as a zero based position.
func IndexParam(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("index"))
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: invalid index %q", errBadRequest, raw)
	}
	return i, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
