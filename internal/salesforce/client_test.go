package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeOrg serves the minimal Salesforce API surface the client touches.
type fakeOrg struct {
	t *testing.T

	soql    []string
	patches []patchCall
}

type patchCall struct {
	path string
	body map[string]any
}

func (f *fakeOrg) handler(serverURL func() string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("grant_type") != "password" {
			http.Error(w, "bad grant type", http.StatusBadRequest)
			return
		}
		if r.Form.Get("password") != "hunter2TOKEN" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok-123",
			"instance_url": serverURL(),
		})
	})

	mux.HandleFunc("/services/data/v59.0/sobjects/Contact/describe", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"fields":[
			{"name":"Id","label":"Contact ID","type":"id","nillable":false,"updateable":false},
			{"name":"Email","label":"Email","type":"email","nillable":true,"updateable":true},
			{"name":"Weird__c","label":"Weird","type":"location","nillable":true,"updateable":true}
		]}`)
	})

	mux.HandleFunc("/services/data/v59.0/query", func(w http.ResponseWriter, r *http.Request) {
		soql := r.URL.Query().Get("q")
		f.soql = append(f.soql, soql)
		fmt.Fprint(w, `{
			"records":[{"attributes":{"type":"Contact"},"Id":"003A","Email":"a@b.c"}],
			"done":false,
			"nextRecordsUrl":"/services/data/v59.0/query/next-1"
		}`)
	})

	mux.HandleFunc("/services/data/v59.0/query/next-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"records":[{"attributes":{"type":"Contact"},"Id":"003B","Email":"d@e.f"}],
			"done":true
		}`)
	})

	mux.HandleFunc("/services/data/v59.0/sobjects/Contact/003A", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.patches = append(f.patches, patchCall{path: r.URL.Path, body: body})
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func testClient(t *testing.T) (*Client, *fakeOrg) {
	t.Helper()
	org := &fakeOrg{t: t}

	var server *httptest.Server
	server = httptest.NewServer(org.handler(func() string { return server.URL }))
	t.Cleanup(server.Close)

	client, err := Connect(context.Background(), Config{
		LoginURL:      server.URL,
		ClientID:      "cid",
		ClientSecret:  "secret",
		Username:      "it@example.com",
		Password:      "hunter2",
		SecurityToken: "TOKEN",
	})
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	return client, org
}

// TestConnect_BadCredentials tests that a rejected login is a fatal error.
func TestConnect_BadCredentials(t *testing.T) {
	org := &fakeOrg{t: t}
	var server *httptest.Server
	server = httptest.NewServer(org.handler(func() string { return server.URL }))
	defer server.Close()

	_, err := Connect(context.Background(), Config{
		LoginURL: server.URL,
		Username: "it@example.com",
		Password: "wrong",
	})
	if err == nil {
		t.Fatal("Connect() succeeded with bad credentials")
	}
}

// TestDescribe tests field metadata parsing, including the unknown-type
// fallback to FieldTypeOther.
func TestDescribe(t *testing.T) {
	client, _ := testClient(t)

	fields, err := client.Describe(context.Background(), "Contact")
	if err != nil {
		t.Fatalf("Describe() failed: %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(fields))
	}

	if fields[0].Type != FieldTypeID || fields[0].Updateable {
		t.Errorf("Id field parsed wrong: %+v", fields[0])
	}
	if fields[1].Type != FieldTypeEmail || !fields[1].Nillable {
		t.Errorf("Email field parsed wrong: %+v", fields[1])
	}
	if fields[2].Type != FieldTypeOther {
		t.Errorf("unknown type parsed to %s, want other", fields[2].Type)
	}
}

// TestQuery_FullScan tests the SOQL shape without a modification bound and
// that pagination is followed to the end.
func TestQuery_FullScan(t *testing.T) {
	client, org := testClient(t)

	fields := []Field{
		{Name: "Id", Label: "Contact ID", Type: FieldTypeID},
		{Name: "Email", Label: "Email", Type: FieldTypeEmail},
	}
	records, err := client.Query(context.Background(), "Contact", fields, nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}

	want := "SELECT Id, Email FROM Contact ORDER BY LastModifiedDate ASC"
	if org.soql[0] != want {
		t.Errorf("soql = %q, want %q", org.soql[0], want)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 (both pages)", len(records))
	}
	if records[0].ID() != "003A" || records[1].ID() != "003B" {
		t.Errorf("record ids = %q, %q", records[0].ID(), records[1].ID())
	}
	if _, ok := records[0]["attributes"]; ok {
		t.Error("attributes decoration was not stripped")
	}
}

// TestQuery_IncrementalBound tests that a modification bound becomes a
// strict LastModifiedDate filter.
func TestQuery_IncrementalBound(t *testing.T) {
	client, org := testClient(t)

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fields := []Field{{Name: "Id", Label: "Contact ID", Type: FieldTypeID}}
	if _, err := client.Query(context.Background(), "Contact", fields, &since); err != nil {
		t.Fatalf("Query() failed: %v", err)
	}

	want := "SELECT Id FROM Contact WHERE LastModifiedDate > 2024-01-01T00:00:00Z ORDER BY LastModifiedDate ASC"
	if org.soql[0] != want {
		t.Errorf("soql = %q, want %q", org.soql[0], want)
	}
}

// TestUpsert tests the PATCH against the record resource.
func TestUpsert(t *testing.T) {
	client, org := testClient(t)

	values := map[string]any{"FirstName": "Jane", "LastName": "Doe"}
	if err := client.Upsert(context.Background(), "Contact", "003A", values); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	if len(org.patches) != 1 {
		t.Fatalf("patches = %d, want 1", len(org.patches))
	}
	if got := org.patches[0].body["FirstName"]; got != "Jane" {
		t.Errorf("FirstName = %v, want Jane", got)
	}
}
