package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/roster/internal/adapters/http/api"
	service "github.com/okian/roster/internal/app"
	"github.com/okian/roster/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func rosterJSON(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"tag":"#P%02d","name":"p%d","th":%d,"trophies":%d}`, i, i, 16-i/3, 5000-i*10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func newTestServer(svc *service.Service, opts ...api.Option) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, svc, opts...).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func do(method, url, body string) (*http.Response, []byte) {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	So(err, ShouldBeNil)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	So(err, ShouldBeNil)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	So(err, ShouldBeNil)
	return resp, data
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestGenerateEndpoint(t *testing.T) {
	Convey("Given an API server backed by a service", t, func() {
		svc := service.New()
		srv := newTestServer(svc)
		defer srv.Close()

		Convey("When generating from inline candidates", func() {
			resp, data := do(http.MethodPost, srv.URL+"/assignments/generate",
				`{"candidates":`+rosterJSON(20)+`,"size":15,"strategy":"optimal"}`)

			Convey("Then the response should carry fifteen assignments", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldContainSubstring, "application/json")

				var res service.Result
				So(json.Unmarshal(data, &res), ShouldBeNil)
				So(res.Size, ShouldEqual, 15)
				So(res.Algorithm, ShouldEqual, "optimal")
				So(len(res.Assignments), ShouldEqual, 15)
				So(res.Assignments[0].Slot, ShouldEqual, 1)
			})
		})

		Convey("When the candidate list is empty", func() {
			resp, data := do(http.MethodPost, srv.URL+"/assignments/generate", `{"candidates":[]}`)

			Convey("Then an empty assignment list should be returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var res service.Result
				So(json.Unmarshal(data, &res), ShouldBeNil)
				So(res.Assignments, ShouldBeEmpty)
			})
		})

		Convey("When neither roster nor candidates are given", func() {
			resp, data := do(http.MethodPost, srv.URL+"/assignments/generate", `{"size":10}`)

			Convey("Then it should be rejected as a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				var body errorBody
				So(json.Unmarshal(data, &body), ShouldBeNil)
				So(body.Code, ShouldEqual, "bad_request")
				So(body.Message, ShouldContainSubstring, "roster_id")
			})
		})

		Convey("When the body is not JSON", func() {
			resp, _ := do(http.MethodPost, srv.URL+"/assignments/generate", `{nope`)

			Convey("Then it should be rejected as a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the roster does not exist", func() {
			resp, data := do(http.MethodPost, srv.URL+"/assignments/generate", `{"roster_id":"missing"}`)

			Convey("Then it should respond not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				var body errorBody
				So(json.Unmarshal(data, &body), ShouldBeNil)
				So(body.Code, ShouldEqual, "not_found")
			})
		})

		Convey("When using the wrong method", func() {
			resp, _ := do(http.MethodGet, srv.URL+"/assignments/generate", "")

			Convey("Then the mux should refuse it", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})

	Convey("Given a server with a tiny body limit", t, func() {
		svc := service.New()
		srv := newTestServer(svc, api.WithMaxBodyBytes(64))
		defer srv.Close()

		Convey("When the body exceeds it", func() {
			resp, data := do(http.MethodPost, srv.URL+"/assignments/generate", `{"candidates":`+rosterJSON(10)+`}`)

			Convey("Then it should respond with 413", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusRequestEntityTooLarge)
				var body errorBody
				So(json.Unmarshal(data, &body), ShouldBeNil)
				So(body.Code, ShouldEqual, "too_large")
			})
		})
	})
}

func TestRosterEndpoints(t *testing.T) {
	Convey("Given a started service behind the API", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithDefaultSize(10))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		srv := newTestServer(svc)
		defer srv.Close()

		Convey("When a roster is uploaded", func() {
			resp, data := do(http.MethodPut, srv.URL+"/rosters/clan-1", `{"records":`+rosterJSON(12)+`}`)
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

			var put struct {
				ID    string `json:"id"`
				Count int    `json:"count"`
			}
			So(json.Unmarshal(data, &put), ShouldBeNil)

			Convey("Then the upload should be acknowledged", func() {
				So(put.ID, ShouldEqual, "clan-1")
				So(put.Count, ShouldEqual, 12)
			})

			Convey("And it should be readable and listed", func() {
				resp, _ := do(http.MethodGet, srv.URL+"/rosters/clan-1", "")
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				resp, data := do(http.MethodGet, srv.URL+"/rosters", "")
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(data), ShouldContainSubstring, "clan-1")
			})

			Convey("And its summary should report the tier distribution", func() {
				resp, data := do(http.MethodGet, srv.URL+"/rosters/clan-1/summary", "")
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var summary struct {
					CandidateCount int `json:"candidate_count"`
				}
				So(json.Unmarshal(data, &summary), ShouldBeNil)
				So(summary.CandidateCount, ShouldEqual, 12)
			})

			Convey("And generation by roster id should use the stored pool", func() {
				resp, data := do(http.MethodPost, srv.URL+"/assignments/generate", `{"roster_id":"clan-1","size":5}`)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var res service.Result
				So(json.Unmarshal(data, &res), ShouldBeNil)
				So(res.RosterID, ShouldEqual, "clan-1")
				So(res.PoolSize, ShouldEqual, 12)
				So(len(res.Assignments), ShouldEqual, 5)
			})

			Convey("And a snapshot should eventually be published", func() {
				var status int
				deadline := time.Now().Add(3 * time.Second)
				for time.Now().Before(deadline) {
					resp, _ := do(http.MethodGet, srv.URL+"/rosters/clan-1/published", "")
					status = resp.StatusCode
					if status == http.StatusOK {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(status, ShouldEqual, http.StatusOK)
			})

			Convey("And deleting it should make it disappear", func() {
				resp, _ := do(http.MethodDelete, srv.URL+"/rosters/clan-1", "")
				So(resp.StatusCode, ShouldEqual, http.StatusNoContent)

				resp, _ = do(http.MethodGet, srv.URL+"/rosters/clan-1", "")
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)

				resp, _ = do(http.MethodDelete, srv.URL+"/rosters/clan-1", "")
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the upload has no records field", func() {
			resp, data := do(http.MethodPut, srv.URL+"/rosters/clan-2", `{}`)

			Convey("Then it should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(string(data), ShouldContainSubstring, "records")
			})
		})

		Convey("When reading an unknown roster's views", func() {
			resp, _ := do(http.MethodGet, srv.URL+"/rosters/ghost/summary", "")
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)

			resp, _ = do(http.MethodGet, srv.URL+"/rosters/ghost/published", "")
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		svc := service.New()
		srv := newTestServer(svc)
		defer srv.Close()

		Convey("When checking health as JSON", func() {
			resp, data := do(http.MethodGet, srv.URL+"/healthz", "")

			Convey("Then the status should be ok", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(data), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When asking health for plain text", func() {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
			So(err, ShouldBeNil)
			req.Header.Set("Accept", "text/plain")
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			Convey("Then prometheus metrics should be served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldContainSubstring, "text/plain")
			})
		})

		Convey("When scraping metrics after a request", func() {
			do(http.MethodPost, srv.URL+"/assignments/generate", `{"candidates":`+rosterJSON(6)+`}`)
			resp, data := do(http.MethodGet, srv.URL+"/metrics", "")

			Convey("Then request counters should be exported", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(data), ShouldContainSubstring, "assignments_generate")
			})
		})

		Convey("When reading stats", func() {
			resp, data := do(http.MethodGet, srv.URL+"/stats", "")

			Convey("Then service counters should be present", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var stats map[string]any
				So(json.Unmarshal(data, &stats), ShouldBeNil)
				So(stats, ShouldContainKey, "rosters")
				So(stats, ShouldContainKey, "cacheEntries")
			})
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		base := fmt.Errorf("boom")

		Convey("Then Wrap should keep the cause reachable", func() {
			err := api.Wrap("api.op", base)
			So(err.Error(), ShouldEqual, "api.op: boom")
			So(errors.Is(err, base), ShouldBeTrue)
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})

		Convey("And kinds should match with errors.Is", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, base)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, base), ShouldBeTrue)
			So(errors.Is(api.NewKind("api.op", api.ErrNotFound), api.ErrNotFound), ShouldBeTrue)
		})
	})
}
