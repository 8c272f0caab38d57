package helpers

import (
	"errors"
	"testing"
)

func TestUserID(t *testing.T) {
	if got := UserID(123456); got != "telegram:123456" {
		t.Fatalf("UserID = %q", got)
	}
	if got := UserID(-100200); got != "telegram:-100200" {
		t.Fatalf("UserID = %q", got)
	}
}

func TestIsEntityError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("telegram: Bad Request: can't parse entities: Can't find end of the entity starting at byte offset 12 (400)"), true},
		{errors.New("telegram: Bad Request: chat not found (400)"), false},
	}
	for _, tc := range cases {
		if got := IsEntityError(tc.err); got != tc.want {
			t.Fatalf("IsEntityError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
