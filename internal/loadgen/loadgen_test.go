package loadgen_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/stagepay/internal/adapters/http/api"
	service "github.com/okian/stagepay/internal/app"
	"github.com/okian/stagepay/internal/domain/competition"
	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/types"
	"github.com/okian/stagepay/internal/loadgen"
	"github.com/okian/stagepay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newServer() (*httptest.Server, func()) {
	svc := service.New(
		service.WithLogger(logger.Discard()),
		service.WithWorkerCount(4),
		service.WithQueueSize(10000),
	)
	So(svc.Start(context.Background()), ShouldBeNil)

	srv := api.NewServer(svc, svc.Engine(), api.WithLogger(logger.Discard()))
	ts := httptest.NewServer(srv.Handler(context.Background()))
	return ts, func() {
		ts.Close()
		_ = svc.Stop(context.Background())
	}
}

func testConfig(baseURL string) loadgen.Config {
	cfg := loadgen.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Participants = 5
	cfg.Events = 300
	cfg.Duplicates = 0.1
	cfg.Workers = 8
	cfg.Seed = 42
	cfg.Settle = 5 * time.Second
	cfg.PollInterval = 10 * time.Millisecond
	return cfg
}

func TestConfigValidate(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := loadgen.DefaultConfig()
		So(cfg.Validate(), ShouldBeNil)

		Convey("Unusable settings are rejected", func() {
			bad := []func(c *loadgen.Config){
				func(c *loadgen.Config) { c.BaseURL = " " },
				func(c *loadgen.Config) { c.Participants = 0 },
				func(c *loadgen.Config) { c.Events = -1 },
				func(c *loadgen.Config) { c.Duplicates = 1.5 },
				func(c *loadgen.Config) { c.Workers = 0 },
				func(c *loadgen.Config) { c.PrizePool = 0 },
				func(c *loadgen.Config) { c.Settle = 0 },
				func(c *loadgen.Config) { c.Top = -1 },
				func(c *loadgen.Config) { c.Weights = competition.Weights{model.KindVote: 1} },
			}
			for _, mutate := range bad {
				c := loadgen.DefaultConfig()
				mutate(&c)
				So(errors.Is(c.Validate(), loadgen.ErrInvalidConfig), ShouldBeTrue)
			}
		})
	})
}

func TestNewRunnerLogger(t *testing.T) {
	Convey("Given an explicit logger and no process-wide logger", t, func() {
		var r *loadgen.Runner
		var err error
		So(func() {
			r, err = loadgen.NewRunner(loadgen.DefaultConfig(), loadgen.WithLogger(logger.Discard()))
		}, ShouldNotPanic)
		So(err, ShouldBeNil)
		So(r, ShouldNotBeNil)
	})
}

func TestGenerate(t *testing.T) {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given a roster of twelve participants", t, func() {
		roster := loadgen.Participants(12)
		So(roster[0], ShouldEqual, "artist-01")
		So(roster[11], ShouldEqual, "artist-12")

		Convey("When 100 events with 10% resends are generated", func() {
			events := loadgen.Generate(rand.New(rand.NewPCG(1, 2)), roster, 100, 0.1, start)

			Convey("Then 110 events share 100 distinct IDs", func() {
				So(len(events), ShouldEqual, 110)
				ids := map[string]struct{}{}
				for _, e := range events {
					ids[e.EventID] = struct{}{}
					So(model.EventKind(e.Kind).Valid(), ShouldBeTrue)
					So(roster, ShouldContain, e.ParticipantID)
				}
				So(len(ids), ShouldEqual, 100)
			})

			Convey("Then the same seed yields the same participant sequence", func() {
				again := loadgen.Generate(rand.New(rand.NewPCG(1, 2)), roster, 100, 0.1, start)
				for i := range events {
					So(again[i].ParticipantID, ShouldEqual, events[i].ParticipantID)
					So(again[i].Kind, ShouldEqual, events[i].Kind)
				}
			})
		})

		Convey("Nothing is generated for zero events", func() {
			So(loadgen.Generate(rand.New(rand.NewPCG(1, 2)), roster, 0, 0.5, start), ShouldBeEmpty)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given an expected ranking", t, func() {
		expected := competition.Ranking{
			{ParticipantID: "a", Score: 7},
			{ParticipantID: "b", Score: 2},
		}

		Convey("Matching rows produce no differences", func() {
			got := types.Entries(expected, 0)
			So(loadgen.Verify(expected, got), ShouldBeEmpty)
		})

		Convey("Swapped rows are reported", func() {
			got := []types.Entry{
				{Rank: 1, ParticipantID: "b", Score: 7},
				{Rank: 2, ParticipantID: "a", Score: 2},
			}
			So(len(loadgen.Verify(expected, got)), ShouldEqual, 2)
		})

		Convey("A wrong score or length is reported", func() {
			got := []types.Entry{{Rank: 1, ParticipantID: "a", Score: 6}}
			diffs := loadgen.Verify(expected, got)
			So(len(diffs), ShouldEqual, 2)
			So(diffs[0], ShouldContainSubstring, "expected 2 rows")
			So(diffs[1], ShouldContainSubstring, "expected score 7")
		})
	})
}

func TestRunAgainstService(t *testing.T) {
	Convey("Given a running service", t, func() {
		ts, stop := newServer()
		defer stop()

		Convey("When a finalizing load run is executed", func() {
			cfg := testConfig(ts.URL)
			cfg.Finalize = true
			var out bytes.Buffer
			r, err := loadgen.NewRunner(cfg, loadgen.WithLogger(logger.Discard()), loadgen.WithOutput(&out))
			So(err, ShouldBeNil)

			rep, err := r.Run(context.Background())

			Convey("Then every original event is accepted and every resend is a duplicate", func() {
				So(err, ShouldBeNil)
				So(rep.Verified(), ShouldBeTrue)
				So(rep.Stats.Generated, ShouldEqual, 330)
				So(rep.Stats.Accepted, ShouldEqual, 300)
				So(rep.Stats.Duplicate, ShouldEqual, 30)
				So(rep.Stats.Failed, ShouldEqual, 0)
				So(rep.Standings.Events, ShouldEqual, 300)
				So(len(rep.Standings.Entries), ShouldEqual, 5)
			})

			Convey("Then the competition is completed with three winners", func() {
				So(rep.Finalized, ShouldNotBeNil)
				So(rep.Finalized.Competition.Status, ShouldEqual, string(model.StatusCompleted))
				So(len(rep.Finalized.Competition.Winners), ShouldEqual, 3)
				So(rep.Finalized.Distributed.Rounded, ShouldEqual, float64(loadgen.DefaultPrizePool))
				So(len(rep.Finalized.Payouts), ShouldEqual, 3)
			})

			Convey("Then the report tables are rendered", func() {
				So(out.String(), ShouldContainSubstring, "Standings")
				So(out.String(), ShouldContainSubstring, "Winners")
				So(out.String(), ShouldContainSubstring, "artist-")
			})
		})
	})
}

// fakeService answers the generator's calls with canned standings.
func fakeService(standings string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/healthz":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case r.URL.Path == "/competitions":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"c1"}`))
		case strings.HasSuffix(r.URL.Path, "/events"):
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"status":"accepted"}`))
		case strings.HasSuffix(r.URL.Path, "/standings"):
			_, _ = w.Write([]byte(standings))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"not_found","message":"nope"}`))
		}
	}))
}

func TestRunFailures(t *testing.T) {
	Convey("Given a service that never logs the accepted events", t, func() {
		ts := fakeService(`{"competition_id":"c1","events":0,"entries":[]}`)
		defer ts.Close()

		cfg := testConfig(ts.URL)
		cfg.Events = 10
		cfg.Duplicates = 0
		cfg.Settle = 100 * time.Millisecond
		r, err := loadgen.NewRunner(cfg, loadgen.WithLogger(logger.Discard()), loadgen.WithOutput(&bytes.Buffer{}))
		So(err, ShouldBeNil)

		_, err = r.Run(context.Background())
		So(errors.Is(err, loadgen.ErrNotSettled), ShouldBeTrue)
	})

	Convey("Given a service that serves wrong standings", t, func() {
		ts := fakeService(`{"competition_id":"c1","events":0,"entries":[{"rank":1,"participant_id":"artist-9","score":3}]}`)
		defer ts.Close()

		cfg := testConfig(ts.URL)
		cfg.Events = 0
		r, err := loadgen.NewRunner(cfg, loadgen.WithLogger(logger.Discard()), loadgen.WithOutput(&bytes.Buffer{}))
		So(err, ShouldBeNil)

		rep, err := r.Run(context.Background())
		So(errors.Is(err, loadgen.ErrMismatch), ShouldBeTrue)
		So(rep.Verified(), ShouldBeFalse)
		So(rep.Finalized, ShouldBeNil)
	})

	Convey("Given a client calling an unknown competition", t, func() {
		ts := fakeService(`{}`)
		defer ts.Close()

		_, err := loadgen.NewClient(ts.URL, nil).Finalize(context.Background(), "missing")
		var apiErr *loadgen.APIError
		So(errors.As(err, &apiErr), ShouldBeTrue)
		So(apiErr.Status, ShouldEqual, http.StatusNotFound)
		So(apiErr.Code, ShouldEqual, "not_found")
	})
}
