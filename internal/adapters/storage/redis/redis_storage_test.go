package redis

import "testing"

func TestParseCheckReply(t *testing.T) {
	res, err := parseCheckReply([]interface{}{int64(3), int64(7000)}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed || res.Count != 3 {
		t.Fatalf("expected allowed with count 3, got %+v", res)
	}

	res, err = parseCheckReply([]interface{}{int64(6), int64(7000)}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatalf("expected denial at count 6 over limit 5, got %+v", res)
	}
}

func TestParseCheckReply_RejectsMalformedReplies(t *testing.T) {
	malformed := []interface{}{
		"OK",
		[]interface{}{int64(1)},
		[]interface{}{int64(1), int64(2), int64(3)},
		[]interface{}{"not-a-count", int64(7000)},
		nil,
	}

	for _, reply := range malformed {
		res, err := parseCheckReply(reply, 5)
		if err == nil {
			t.Fatalf("expected error for reply %v, got %+v", reply, res)
		}
		// Uma resposta quebrada nunca pode virar liberação.
		if res.Allowed {
			t.Fatalf("malformed reply %v must not allow the request", reply)
		}
	}
}

func TestFieldInt64(t *testing.T) {
	values := []interface{}{"42", nil, "not-a-number"}

	if got := fieldInt64(values, 0); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := fieldInt64(values, 1); got != 0 {
		t.Fatalf("expected 0 for nil field, got %d", got)
	}
	if got := fieldInt64(values, 2); got != 0 {
		t.Fatalf("expected 0 for unparsable field, got %d", got)
	}
	if got := fieldInt64(values, 9); got != 0 {
		t.Fatalf("expected 0 for out-of-range index, got %d", got)
	}
}
