package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONError(t *testing.T) {
	rr := httptest.NewRecorder()
	JSONError(rr, http.StatusConflict, "invalid_state", map[string]string{"status": "sent"})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "invalid_state" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestDecode(t *testing.T) {
	type input struct {
		Quantity int `json:"quantity"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"quantity": 3}`, false},
		{"unknown field", `{"quantity": 3, "price": 1}`, true},
		{"trailing object", `{"quantity": 3}{"quantity": 4}`, true},
		{"not json", `quantity=3`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in input
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := Decode(req, &in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrBadJSON) {
				t.Errorf("expected ErrBadJSON, got %v", err)
			}
			if err == nil && in.Quantity != 3 {
				t.Errorf("quantity = %d", in.Quantity)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got uint
	var gotErr error
	mux.HandleFunc("GET /offers/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = PathID(r, "id")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/offers/15", nil))
	if gotErr != nil || got != 15 {
		t.Fatalf("PathID = %d, %v", got, gotErr)
	}
	for _, bad := range []string{"0", "abc", "-1"} {
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/offers/"+bad, nil))
		if gotErr == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
