package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"bridgectl/config"
)

const testSecret = "dGVzdHNlY3JldHRlc3RzZWNyZXR0ZXN0c2VjcmV0dGVzdA=="

type stubProvider struct {
	bridges []BridgeStatus
}

func (s *stubProvider) ListBridges() []BridgeStatus { return s.bridges }

func testWebUIConfig(t *testing.T) *config.WebUIConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	return &config.WebUIConfig{
		Enabled:       true,
		SessionSecret: testSecret,
		Users: []config.WebUser{
			{Username: "admin", PasswordHash: string(hash), Role: config.RoleAdmin},
		},
	}
}

func TestRouter_IndexRequiresAuth(t *testing.T) {
	router := NewRouter(testWebUIConfig(t), &stubProvider{})
	server := httptest.NewServer(router)
	defer server.Close()

	client := server.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := client.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 redirect to login, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
}

func TestRouter_LoginThenStatus(t *testing.T) {
	router := NewRouter(testWebUIConfig(t), &stubProvider{
		bridges: []BridgeStatus{{Name: "bay1", Address: "10.0.0.5", Enabled: true, Online: true}},
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := server.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	form := url.Values{"username": {"admin"}, "password": {"admin"}}
	resp, err := client.Post(server.URL+"/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 after login, got %d", resp.StatusCode)
	}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie after login")
	}

	req, _ := http.NewRequest("GET", server.URL+"/api/status", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp2, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /api/status, got %d", resp2.StatusCode)
	}

	var got []BridgeStatus
	if err := json.NewDecoder(resp2.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].Name != "bay1" {
		t.Fatalf("unexpected status payload: %+v", got)
	}
}

func TestRouter_LoginRejectsBadPassword(t *testing.T) {
	router := NewRouter(testWebUIConfig(t), &stubProvider{})
	server := httptest.NewServer(router)
	defer server.Close()

	client := server.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	resp, err := client.Post(server.URL+"/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login?error=1" {
		t.Fatalf("expected redirect back to login with error, got %q", loc)
	}
}

func TestHashPasswordRoundtrip(t *testing.T) {
	hash, err := hashPassword("s3cret")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if !checkPassword("s3cret", hash) {
		t.Fatal("checkPassword failed on freshly-hashed password")
	}
	if checkPassword("wrong", hash) {
		t.Fatal("checkPassword accepted wrong password")
	}
}
