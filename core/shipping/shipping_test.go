package shipping

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testFallback() Fallback {
	return Fallback{
		LightMaxWeight:  dec("2"),
		LightPrice:      dec("3"),
		MediumMaxWeight: dec("10"),
		MediumPrice:     dec("9"),
		ExtraPerKg:      dec("2"),
		OmnivaPrice:     dec("3.5"),
	}
}

func TestMatchesIsInclusive(t *testing.T) {
	r := Rule{Zone: International, MinWeight: dec("2"), MaxWeight: dec("5")}

	tt := []struct {
		zone   Zone
		weight string
		exp    bool
	}{
		{International, "2", true},
		{International, "5", true},
		{International, "3.3", true},
		{International, "1.999", false},
		{International, "5.001", false},
		{Omniva, "3", false},
	}

	for _, tc := range tt {
		if got := r.Matches(tc.zone, dec(tc.weight)); got != tc.exp {
			t.Errorf("zone %s weight %s: expected %v, got %v", tc.zone, tc.weight, tc.exp, got)
		}
	}
}

func TestCheapest(t *testing.T) {
	rules := []Rule{
		{ID: "a", Zone: Omniva, MinWeight: dec("0"), MaxWeight: dec("5"), Price: dec("4")},
		{ID: "b", Zone: Omniva, MinWeight: dec("0"), MaxWeight: dec("5"), Price: dec("3")},
		{ID: "c", Zone: Omniva, MinWeight: dec("0"), MaxWeight: dec("5"), Price: dec("3")},
		{ID: "d", Zone: International, MinWeight: dec("0"), MaxWeight: dec("5"), Price: dec("1")},
	}

	r, ok := Cheapest(rules, Omniva, dec("5"))
	if !ok {
		t.Fatal("expected a rule to match")
	}
	if r.ID != "b" {
		t.Fatalf("expected first of the cheapest rules, got %s", r.ID)
	}

	if _, ok := Cheapest(rules, Omniva, dec("5.5")); ok {
		t.Fatal("expected no rule to match")
	}
}

func TestFallbackTiers(t *testing.T) {
	fb := testFallback()

	tt := []struct {
		name   string
		zone   Zone
		weight string
		exp    string
	}{
		{"light", International, "1", "3"},
		{"light cap", International, "2", "3"},
		{"medium", International, "2.5", "9"},
		{"medium cap", International, "10", "9"},
		{"one kg over", International, "11", "11"},
		{"partial kg over rounds up", International, "10.2", "11"},
		{"several kg over", International, "13.5", "17"},
		{"omniva flat", Omniva, "25", "3.5"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := fb.Price(tc.zone, dec(tc.weight)); !got.Equal(dec(tc.exp)) {
				t.Fatalf("expected %s, got %s", tc.exp, got)
			}
		})
	}
}

func TestPriceQuote(t *testing.T) {
	rules := []Rule{{ID: "r1", Zone: Omniva, MinWeight: dec("0"), MaxWeight: dec("5"), Price: dec("2.99"), Carrier: "Omniva"}}

	q := Price(rules, testFallback(), Omniva, dec("1"))
	if !q.Price.Equal(dec("2.99")) || q.Carrier != "Omniva" || q.RuleID != "r1" {
		t.Fatalf("unexpected quote %+v", q)
	}

	q = Price(rules, testFallback(), Omniva, dec("6"))
	if !q.Price.Equal(dec("3.5")) || q.RuleID != "" {
		t.Fatalf("expected fallback quote, got %+v", q)
	}
}

func TestRuleNewValidate(t *testing.T) {
	ok := RuleNew{Zone: Omniva, MinWeight: dec("0"), MaxWeight: dec("5"), Price: dec("3"), Carrier: "Omniva"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := RuleNew{Zone: "moon", MinWeight: dec("5"), MaxWeight: dec("1"), Price: dec("3"), Carrier: "x"}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected zone to be rejected")
	}

	bad.Zone = Omniva
	if err := bad.Validate(); err == nil {
		t.Fatal("expected inverted range to be rejected")
	}
}
