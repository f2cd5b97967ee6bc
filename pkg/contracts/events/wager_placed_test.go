package events

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	sel := "home"
	in := WagerPlaced{
		WagerID:         "7d3c1c56-6a11-4a4e-9e55-0c4b1c5f7a10",
		TransactionID:   "f0a8d6a4-1f55-4a6b-8f0c-3c2e9f1b2d44",
		AccountID:       "0b9f5a3e-2c1d-4d7e-8a6b-5c4d3e2f1a00",
		GameID:          "a1b2c3d4-e5f6-4a5b-9c8d-7e6f5a4b3c2d",
		Amount:          50,
		WagerType:       "moneyline",
		Selection:       &sel,
		Odds:            2,
		PotentialPayout: 100,
		CorrelationID:   "corr-1",
		BalanceAfter:    50,
		Timestamp:       time.Date(2025, 3, 1, 9, 5, 0, 123000000, time.UTC),
	}

	b, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("Expected %+v, got %+v", in, out)
	}
}

func TestEncode_WireShape(t *testing.T) {
	b, err := Encode(WagerPlaced{
		WagerID:   "w1",
		AccountID: "a1",
		Amount:    12.5,
		Timestamp: time.Date(2025, 3, 1, 9, 5, 0, 0, time.FixedZone("BRT", -3*3600)),
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"amount":12.5`, `"timestamp":"2025-03-01T12:05:00Z"`, `"wager_id":"w1"`} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, "selection") {
		t.Errorf("Expected selection to be omitted, got %s", s)
	}
}

func TestDecode_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"wager_id":`,
		"missing ids":       `{"amount":1,"timestamp":"2025-03-01T12:05:00Z"}`,
		"missing timestamp": `{"wager_id":"w","account_id":"a"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(raw)); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("Expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}
