package cgi

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParseBody(t *testing.T) {
	body := `<html><body>RESULT:OK<br>VERSION:1.2.3<br>INFO: diagnostic noise<br></body></html>`
	fields, err := parseBody(body)
	if err != nil {
		t.Fatalf("parseBody: %v", err)
	}
	if fields["RESULT"] != "OK" {
		t.Errorf("RESULT = %q, want OK", fields["RESULT"])
	}
	if fields["VERSION"] != "1.2.3" {
		t.Errorf("VERSION = %q, want 1.2.3", fields["VERSION"])
	}
	if _, ok := fields["INFO"]; ok {
		t.Error("INFO diagnostic line should have been dropped, not parsed as a field")
	}
}

func TestParseBody_MissingTags(t *testing.T) {
	if _, err := parseBody("no body tags here"); err == nil {
		t.Error("expected error for missing <body> tag")
	}
	if _, err := parseBody("<body>unterminated"); err == nil {
		t.Error("expected error for missing </body> tag")
	}
}

func TestFieldsSuccess(t *testing.T) {
	if !(Fields{"RESULT": "OK"}).Success() {
		t.Error("Success() should be true for RESULT:OK")
	}
	if (Fields{"RESULT": "ERROR"}).Success() {
		t.Error("Success() should be false for RESULT:ERROR")
	}
	if (Fields{}).Success() {
		t.Error("Success() should be false when RESULT is absent")
	}
}

func TestClient_Control(t *testing.T) {
	var gotOp, gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/mion/control.cgi", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		user, pass, ok := r.BasicAuth()
		if !ok || user != authUser || pass != authPass {
			t.Errorf("missing/incorrect basic auth: %v/%v ok=%v", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotOp = r.FormValue("operation")
		w.Write([]byte(`<html><body>RESULT:OK<br></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient()
	ip := strings.TrimPrefix(server.URL, "http://")
	fields, err := c.Control(ip, OpGetInfo, url.Values{"extra": {"1"}})
	if err != nil {
		t.Fatalf("Control: %v", err)
	}
	if !fields.Success() {
		t.Errorf("expected Success(), got %+v", fields)
	}
	if gotOp != string(OpGetInfo) {
		t.Errorf("operation = %q, want %q", gotOp, OpGetInfo)
	}
	if gotPath != "/mion/control.cgi" {
		t.Errorf("path = %q, want /mion/control.cgi", gotPath)
	}
}

func TestClient_GetSignal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sig"); got != "power" {
			t.Errorf("sig = %q, want power", got)
		}
		w.Write([]byte(`<html><body>VALUE:1<br></body></html>`))
	}))
	defer server.Close()

	c := NewClient()
	ip := strings.TrimPrefix(server.URL, "http://")
	fields, err := c.GetSignal(ip, "power")
	if err != nil {
		t.Fatalf("GetSignal: %v", err)
	}
	if fields["VALUE"] != "1" {
		t.Errorf("VALUE = %q, want 1", fields["VALUE"])
	}
}
