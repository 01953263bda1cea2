package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketsync/internal/service"
)

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSignUp(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		body      string
		signUpErr error
		wantCode  int
	}{
		{name: "creates account", body: `{"username":"ops","password":"s3cret"}`, wantCode: http.StatusOK},
		{name: "missing password", body: `{"username":"ops"}`, wantCode: http.StatusBadRequest},
		{name: "malformed body", body: `{"username":1}`, wantCode: http.StatusBadRequest},
		{name: "duplicate username", body: `{"username":"ops","password":"s3cret"}`,
			signUpErr: errors.New("username already taken"), wantCode: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			auth := &mockAuth{signUpID: 42, signUpErr: tc.signUpErr}
			r := newTestRouter(&service.Service{Authorization: auth})

			w := postJSON(t, r, "/auth/sign-up", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}

			var resp struct {
				ID int `json:"id"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.ID != 42 {
				t.Fatalf("expected id=42, got %d", resp.ID)
			}
			if auth.lastSignUpUsername != "ops" || auth.lastSignUpPassword != "s3cret" {
				t.Fatalf("credentials not forwarded: %q/%q", auth.lastSignUpUsername, auth.lastSignUpPassword)
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	t.Run("issues token", func(t *testing.T) {
		t.Parallel()
		auth := &mockAuth{genTokenToken: "tok123"}
		r := newTestRouter(&service.Service{Authorization: auth})

		w := postJSON(t, r, "/auth/sign-in", `{"username":"ops","password":"s3cret"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status: got %d, body=%s", w.Code, w.Body.String())
		}
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Token != "tok123" {
			t.Fatalf("expected token tok123, got %q", resp.Token)
		}
		if auth.lastGenUsername != "ops" {
			t.Fatalf("username not forwarded: %q", auth.lastGenUsername)
		}
	})

	t.Run("rejects bad credentials with generic message", func(t *testing.T) {
		t.Parallel()
		auth := &mockAuth{genTokenErr: errors.New("no such user: ops")}
		r := newTestRouter(&service.Service{Authorization: auth})

		w := postJSON(t, r, "/auth/sign-in", `{"username":"ops","password":"wrong"}`)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status: got %d, want 401", w.Code)
		}
		var resp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Error != "invalid credentials" {
			t.Fatalf("error must not leak account detail, got %q", resp.Error)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(&service.Service{Authorization: &mockAuth{}})

		w := postJSON(t, r, "/auth/sign-in", `{"username":1}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status: got %d, want 400", w.Code)
		}
	})
}
