package weberr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

func TestResponseSurvivesWrapping(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("handler: %w", NotFound(base, WithFields(logrus.Fields{"order_id": "o1"})))

	body, status, ok := Response(err)
	if !ok {
		t.Fatal("expected a response to be attached")
	}
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}

	exp := &ErrorResponse{Message: "the resource could not be found"}
	if diff := cmp.Diff(exp, body); diff != "" {
		t.Fatalf("unexpected body (-want +got):\n%s", diff)
	}

	fields, ok := Fields(err)
	if !ok || fields["order_id"] != "o1" {
		t.Fatalf("expected fields to be attached, got %v", fields)
	}

	if !errors.Is(err, base) {
		t.Fatal("expected the original error to stay reachable")
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid(errors.New("validation"), map[string]string{"email": "email is required"})

	body, status, ok := Response(err)
	if !ok || status != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected response: %v %d", ok, status)
	}

	er := body.(*ErrorResponse)
	if er.Success || er.Fields["email"] != "email is required" {
		t.Fatalf("unexpected body %+v", er)
	}
}

func TestConflictUsesErrorText(t *testing.T) {
	err := Conflict(errors.New("Order is already paid"))

	body, status, _ := Response(err)
	if status != http.StatusConflict {
		t.Fatalf("unexpected status %d", status)
	}
	if msg := body.(*ErrorResponse).Message; msg != "Order is already paid" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestFieldsMergeAcrossWraps(t *testing.T) {
	inner := Wrap(errors.New("stock"), WithFields(logrus.Fields{"product_id": "p1", "qty": 2}))
	err := Conflict(fmt.Errorf("adding item: %w", inner), WithFields(logrus.Fields{"qty": 3}))

	fields, ok := Fields(err)
	if !ok {
		t.Fatal("expected fields")
	}

	exp := logrus.Fields{"product_id": "p1", "qty": 3}
	if diff := cmp.Diff(exp, fields); diff != "" {
		t.Fatalf("unexpected fields (-want +got):\n%s", diff)
	}
}

func TestPlainErrorHasNoResponse(t *testing.T) {
	if _, _, ok := Response(errors.New("boom")); ok {
		t.Fatal("expected no response on a plain error")
	}
	if _, ok := Fields(errors.New("boom")); ok {
		t.Fatal("expected no fields on a plain error")
	}
}
