package auth

import (
	"net/http"
	"strings"
	"testing"
)

func assertHeader(t *testing.T, req *http.Request, header, expected string) {
	t.Helper()
	if value := req.Header.Get(header); value != expected {
		t.Errorf("Expected %s header '%s', got '%s'", header, expected, value)
	}
}

func assertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected error containing '%s', got nil", expected)
		return
	}
	if !strings.Contains(err.Error(), expected) {
		t.Errorf("Expected error containing '%s', got '%s'", expected, err.Error())
	}
}

func TestBearerAuth(t *testing.T) {
	t.Run("ValidToken", func(t *testing.T) {
		a := NewBearerAuth("test-token")
		req, _ := http.NewRequest("GET", "https://api.example.com/data", nil)

		if err := a.ApplyAuth(req); err != nil {
			t.Fatalf("ApplyAuth failed: %v", err)
		}
		assertHeader(t, req, "Authorization", "Bearer test-token")
	})

	t.Run("EmptyToken", func(t *testing.T) {
		a := NewBearerAuth("")
		req, _ := http.NewRequest("GET", "https://api.example.com/data", nil)

		err := a.ApplyAuth(req)
		assertErrorContains(t, err, "token is required")
	})

	t.Run("StringMethod", func(t *testing.T) {
		a := NewBearerAuth("test-token")
		if str := a.String(); strings.Contains(str, "test-token") {
			t.Errorf("String() should not contain the actual token, got: %s", str)
		}
	})
}
