package handler_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"

	"github.com/stevemurr/question-server/handler"
	"github.com/stevemurr/question-server/question"
	"github.com/stevemurr/question-server/store"
)

type JSON = map[string]any

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestAcceptance(t *testing.T) {

	biff.Alternative("Setup", func(a *biff.A) {

		dir := t.TempDir()
		s, err := store.NewJsonFileStore(dir)
		biff.AssertNil(err)

		api := apitest.NewWithHandler(handler.NewWithLogger(s, quiet))
		defer api.Destroy()

		a.Alternative("Root", func(a *biff.A) {
			resp := api.Request("GET", "/").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{
				"status":  "ok",
				"message": "Questions API is running",
			})
		})

		a.Alternative("Health", func(a *biff.A) {
			resp := api.Request("GET", "/health").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"status": "healthy"})
		})

		a.Alternative("Unknown path", func(a *biff.A) {
			resp := api.Request("GET", "/nope").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
		})

		a.Alternative("List empty", func(a *biff.A) {
			resp := api.Request("GET", "/questions").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), []any{})
		})

		a.Alternative("Get missing", func(a *biff.A) {
			resp := api.Request("GET", "/questions/1").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"error": "not found"})
		})

		a.Alternative("Get non numeric id", func(a *biff.A) {
			resp := api.Request("GET", "/questions/abc").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
		})

		a.Alternative("Create without id", func(a *biff.A) {
			resp := api.Request("POST", "/questions").
				WithBodyJson(JSON{"title": "no id"}).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
			biff.AssertTrue(strings.Contains(resp.BodyJsonMap()["error"].(string), "invalid question"))
		})

		a.Alternative("Create malformed JSON", func(a *biff.A) {
			resp := api.Request("POST", "/questions").
				WithBodyString(`{"id": 1,`).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
		})

		a.Alternative("Create trailing data", func(a *biff.A) {
			resp := api.Request("POST", "/questions").
				WithBodyString(`{"id": 1} garbage`).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
			biff.AssertTrue(strings.Contains(resp.BodyJsonMap()["error"].(string), "unexpected data"))

			resp = api.Request("POST", "/questions").
				WithBodyString(`{"id": 1}{"id": 2}`).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)

			resp = api.Request("GET", "/questions").Do()
			biff.AssertEqualJson(resp.BodyJson(), []any{})
		})

		a.Alternative("Create whole decimal id", func(a *biff.A) {
			resp := api.Request("POST", "/questions").
				WithBodyString(`{"id": 3.0, "title": "three"}`).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusCreated)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"id": 3, "title": "three", "code": ""})

			resp = api.Request("POST", "/questions").
				WithBodyString(`{"id": 1e2}`).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusCreated)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"id": 100, "title": "", "code": ""})

			resp = api.Request("POST", "/questions").
				WithBodyString(`{"id": 9223372036854775808}`).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
		})

		a.Alternative("Create with defaults", func(a *biff.A) {
			resp := api.Request("POST", "/questions").
				WithBodyJson(JSON{"id": "7"}).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusCreated)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"id": 7, "title": "", "code": ""})
		})

		a.Alternative("Create", func(a *biff.A) {
			resp := api.Request("POST", "/questions").
				WithBodyJson(JSON{
					"id":    1,
					"title": "Two Sum",
					"code":  "function twoSum(){}",
				}).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusCreated)
			created := JSON{"id": 1, "title": "Two Sum", "code": "function twoSum(){}"}
			biff.AssertEqualJson(resp.BodyJson(), created)

			a.Alternative("Get", func(a *biff.A) {
				resp := api.Request("GET", "/questions/1").Do()
				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(resp.BodyJson(), created)
			})

			a.Alternative("List", func(a *biff.A) {
				resp := api.Request("GET", "/questions").Do()
				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(resp.BodyJson(), []JSON{created})
			})

			a.Alternative("Create duplicate", func(a *biff.A) {
				resp := api.Request("POST", "/questions").
					WithBodyJson(JSON{"id": 1, "title": "dup"}).Do()
				biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
				biff.AssertEqualJson(resp.BodyJson(), JSON{"error": store.ErrConflict.Error()})

				resp = api.Request("GET", "/questions").Do()
				biff.AssertEqualJson(resp.BodyJson(), []JSON{created})
			})

			a.Alternative("Update title", func(a *biff.A) {
				resp := api.Request("PUT", "/questions/1").
					WithBodyJson(JSON{"title": "Two Sum Updated"}).Do()
				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				updated := JSON{"id": 1, "title": "Two Sum Updated", "code": "function twoSum(){}"}
				biff.AssertEqualJson(resp.BodyJson(), updated)

				a.Alternative("Delete", func(a *biff.A) {
					resp := api.Request("DELETE", "/questions/1").Do()
					biff.AssertEqual(resp.StatusCode, http.StatusOK)
					biff.AssertEqualJson(resp.BodyJson(), updated)

					resp = api.Request("GET", "/questions/1").Do()
					biff.AssertEqual(resp.StatusCode, http.StatusNotFound)

					resp = api.Request("DELETE", "/questions/1").Do()
					biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
					biff.AssertEqualJson(resp.BodyJson(), JSON{"error": store.ErrNotFound.Error()})
				})
			})

			a.Alternative("Update empty body", func(a *biff.A) {
				resp := api.Request("PUT", "/questions/1").Do()
				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(resp.BodyJson(), created)
			})

			a.Alternative("Update missing", func(a *biff.A) {
				resp := api.Request("PUT", "/questions/2").
					WithBodyJson(JSON{"title": "x"}).Do()
				biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
			})

			a.Alternative("Update id collision", func(a *biff.A) {
				resp := api.Request("POST", "/questions").
					WithBodyJson(JSON{"id": 2, "title": "second"}).Do()
				biff.AssertEqual(resp.StatusCode, http.StatusCreated)

				resp = api.Request("PUT", "/questions/2").
					WithBodyJson(JSON{"id": 1}).Do()
				biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
				biff.AssertEqualJson(resp.BodyJson(), JSON{"error": store.ErrConflict.Error()})

				resp = api.Request("GET", "/questions").Do()
				biff.AssertEqualJson(resp.BodyJson(), []JSON{
					created,
					{"id": 2, "title": "second", "code": ""},
				})
			})

			a.Alternative("Update invalid field", func(a *biff.A) {
				resp := api.Request("PUT", "/questions/1").
					WithBodyJson(JSON{"code": []string{"a"}}).Do()
				biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
			})

			a.Alternative("Export", func(a *biff.A) {
				resp := api.Request("GET", "/data").Do()
				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				onDisk, err := os.ReadFile(filepath.Join(dir, store.DocumentName))
				biff.AssertNil(err)
				biff.AssertEqual(resp.BodyString(), string(onDisk))
				biff.AssertEqual(resp.BodyString(), "[\n  {\n    \"id\": 1,\n    \"title\": \"Two Sum\",\n    \"code\": \"function twoSum(){}\"\n  }\n]")
			})
		})

		a.Alternative("Corrupt document", func(a *biff.A) {
			err := os.WriteFile(filepath.Join(dir, store.DocumentName), []byte(`[{"id": 1,`), 0o644)
			biff.AssertNil(err)

			resp := api.Request("GET", "/questions").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), []any{})
		})
	})
}

// brokenStore fails every call with an unexpected error.
type brokenStore struct{ store.Store }

var errDisk = errors.New("disk on fire")

func (brokenStore) List() ([]question.Question, error) { return nil, errDisk }
func (brokenStore) Get(int64) (*question.Question, error) { return nil, errDisk }
func (brokenStore) Export() ([]byte, error) { return nil, errDisk }
func (brokenStore) Add(question.Question) (question.Question, error) {
	return question.Question{}, errDisk
}
func (brokenStore) Update(int64, question.Patch) (question.Question, error) {
	return question.Question{}, errDisk
}
func (brokenStore) Delete(int64) (question.Question, error) {
	return question.Question{}, errDisk
}

func TestUnexpectedErrors(t *testing.T) {
	api := apitest.NewWithHandler(handler.NewWithLogger(brokenStore{}, quiet))
	defer api.Destroy()

	cases := []struct {
		method, path, body, message string
	}{
		{"GET", "/questions", "", "error listing questions"},
		{"GET", "/questions/1", "", "error reading question"},
		{"POST", "/questions", `{"id": 1}`, "error creating question"},
		{"PUT", "/questions/1", `{"title": "x"}`, "error updating question"},
		{"DELETE", "/questions/1", "", "error deleting question"},
		{"GET", "/data", "", "error reading data"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := api.Request(tc.method, tc.path)
			if tc.body != "" {
				req = req.WithBodyString(tc.body)
			}
			resp := req.Do()
			if resp.StatusCode != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", resp.StatusCode)
			}
			body := resp.BodyJsonMap()
			if body["error"] != tc.message {
				t.Fatalf("expected %q, got %v", tc.message, body["error"])
			}
			if strings.Contains(resp.BodyString(), errDisk.Error()) {
				t.Fatal("internal error leaked to client")
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			panic("boom")
		}
		handler.NewWithLogger(store.NewMemoryStore(), quiet).ServeHTTP(w, r)
	})
	h := handler.CORS(handler.AccessLog(handler.Recover(panicky, quiet), quiet), []string{"https://a.example", "https://b.example"})

	api := apitest.NewWithHandler(h)
	defer api.Destroy()

	t.Run("request id", func(t *testing.T) {
		resp := api.Request("GET", "/questions").Do()
		if resp.Header.Get("X-Request-Id") == "" {
			t.Fatal("expected X-Request-Id header")
		}
		resp = api.Request("GET", "/questions").WithHeader("X-Request-Id", "abc").Do()
		if got := resp.Header.Get("X-Request-Id"); got != "abc" {
			t.Fatalf("expected request id to be echoed, got %q", got)
		}
	})

	t.Run("allowed origin", func(t *testing.T) {
		resp := api.Request("GET", "/").WithHeader("Origin", "https://b.example").Do()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://b.example" {
			t.Fatalf("expected origin echoed, got %q", got)
		}
	})

	t.Run("foreign origin", func(t *testing.T) {
		resp := api.Request("GET", "/").WithHeader("Origin", "https://evil.example").Do()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("expected no allow-origin, got %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		resp := api.Request("OPTIONS", "/questions").WithHeader("Origin", "https://a.example").Do()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}
	})

	t.Run("panic", func(t *testing.T) {
		resp := api.Request("GET", "/boom").Do()
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
		if resp.BodyJsonMap()["error"] != "internal error" {
			t.Fatalf("unexpected body %s", resp.BodyString())
		}
	})
}

func TestCORSWildcard(t *testing.T) {
	api := apitest.NewWithHandler(handler.CORS(handler.New(store.NewMemoryStore()), []string{"*"}))
	defer api.Destroy()

	resp := api.Request("GET", "/").Do()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected *, got %q", got)
	}
}
