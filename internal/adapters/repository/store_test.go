package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/stagepay/internal/adapters/repository"
	"github.com/okian/stagepay/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var created = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

func newCompetition(id string) model.Competition {
	return model.Competition{
		ID:        id,
		Name:      "Spring Showcase " + id,
		Status:    model.StatusActive,
		PrizePool: 1000,
		CreatedAt: created,
	}
}

func event(comp, id, participant string, kind model.EventKind) model.EngagementEvent {
	return model.EngagementEvent{
		EventID:       id,
		CompetitionID: comp,
		ParticipantID: participant,
		Kind:          kind,
		TS:            created.Add(time.Minute),
	}
}

// storeContract runs the behaviour every Store implementation must share.
func storeContract(t *testing.T, name string, open func(t *testing.T) repository.Store) {
	ctx := context.Background()

	Convey("Given an empty "+name, t, func() {
		s := open(t)
		Reset(func() { s.Close() })

		Convey("When a competition is created", func() {
			So(s.CreateCompetition(ctx, newCompetition("c1")), ShouldBeNil)

			Convey("Then it can be read back", func() {
				c, err := s.Competition(ctx, "c1")
				So(err, ShouldBeNil)
				So(c.Name, ShouldEqual, "Spring Showcase c1")
				So(c.Status, ShouldEqual, model.StatusActive)
				So(c.PrizePool, ShouldEqual, 1000)
				So(c.CreatedAt.Equal(created), ShouldBeTrue)
				So(c.Roster, ShouldBeEmpty)
				So(c.Winners, ShouldBeEmpty)
			})

			Convey("Then creating it again fails", func() {
				err := s.CreateCompetition(ctx, newCompetition("c1"))
				So(errors.Is(err, repository.ErrExists), ShouldBeTrue)
			})

			Convey("Then participants keep their join order", func() {
				for _, p := range []string{"zed", "amy", "bob"} {
					So(s.AddParticipant(ctx, "c1", p), ShouldBeNil)
				}
				c, err := s.Competition(ctx, "c1")
				So(err, ShouldBeNil)
				So(c.Roster, ShouldResemble, []string{"zed", "amy", "bob"})

				err = s.AddParticipant(ctx, "c1", "amy")
				So(errors.Is(err, repository.ErrDuplicateParticipant), ShouldBeTrue)
			})

			Convey("Then events are logged in append order", func() {
				So(s.AppendEvent(ctx, event("c1", "e1", "amy", model.KindVote)), ShouldBeNil)
				So(s.AppendEvent(ctx, event("c1", "e2", "bob", model.KindDownload)), ShouldBeNil)
				So(s.AppendEvent(ctx, event("c1", "e3", "amy", model.KindLike)), ShouldBeNil)

				events, err := s.Events(ctx, "c1")
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 3)
				So(events[0].EventID, ShouldEqual, "e1")
				So(events[1].Kind, ShouldEqual, model.KindDownload)
				So(events[2].ParticipantID, ShouldEqual, "amy")
				So(events[2].CompetitionID, ShouldEqual, "c1")
				So(events[2].TS.Equal(created.Add(time.Minute)), ShouldBeTrue)

				Convey("And a repeated event ID is refused", func() {
					err := s.AppendEvent(ctx, event("c1", "e2", "bob", model.KindDownload))
					So(errors.Is(err, repository.ErrExists), ShouldBeTrue)
				})
			})

			Convey("Then completing it stores the winners once", func() {
				winners := []model.Winner{
					{Rank: 1, ParticipantID: "amy", Score: 5, Share: 0.5, Prize: model.NewMoney(500)},
					{Rank: 2, ParticipantID: "bob", Score: 2, Share: 0.3, Prize: model.NewMoney(300)},
				}
				at := created.Add(24 * time.Hour)
				So(s.Complete(ctx, "c1", winners, at, 0), ShouldBeNil)

				c, err := s.Competition(ctx, "c1")
				So(err, ShouldBeNil)
				So(c.Status, ShouldEqual, model.StatusCompleted)
				So(c.Winners, ShouldResemble, winners)
				So(c.CompletedAt.Equal(at), ShouldBeTrue)

				Convey("And the competition is frozen", func() {
					So(errors.Is(s.Complete(ctx, "c1", winners, at, 0), repository.ErrCompleted), ShouldBeTrue)
					So(errors.Is(s.AddParticipant(ctx, "c1", "cat"), repository.ErrCompleted), ShouldBeTrue)
					err := s.AppendEvent(ctx, event("c1", "late", "amy", model.KindVote))
					So(errors.Is(err, repository.ErrCompleted), ShouldBeTrue)
				})
			})

			Convey("Then completing it after the log grew is refused", func() {
				So(s.AppendEvent(ctx, event("c1", "e1", "amy", model.KindVote)), ShouldBeNil)
				winners := []model.Winner{{Rank: 1, ParticipantID: "amy", Score: 1, Share: 0.5, Prize: model.NewMoney(500)}}
				at := created.Add(time.Hour)

				err := s.Complete(ctx, "c1", winners, at, 0)
				So(errors.Is(err, repository.ErrLogAdvanced), ShouldBeTrue)

				c, err := s.Competition(ctx, "c1")
				So(err, ShouldBeNil)
				So(c.Status, ShouldEqual, model.StatusActive)
				So(c.Winners, ShouldBeEmpty)

				Convey("And succeeds once the full log was scored", func() {
					So(s.Complete(ctx, "c1", winners, at, 1), ShouldBeNil)
				})
			})
		})

		Convey("When several competitions exist", func() {
			for _, id := range []string{"b", "a", "c"} {
				So(s.CreateCompetition(ctx, newCompetition(id)), ShouldBeNil)
			}
			So(s.AppendEvent(ctx, event("a", "e1", "x", model.KindPlay)), ShouldBeNil)
			So(s.AppendEvent(ctx, event("b", "e1", "x", model.KindPlay)), ShouldBeNil)

			Convey("Then they are listed in creation order", func() {
				list, err := s.ListCompetitions(ctx)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 3)
				So(list[0].ID, ShouldEqual, "b")
				So(list[1].ID, ShouldEqual, "a")
				So(list[2].ID, ShouldEqual, "c")
			})

			Convey("Then each log is scoped to its competition", func() {
				events, err := s.Events(ctx, "c")
				So(err, ShouldBeNil)
				So(events, ShouldBeEmpty)
				events, err = s.Events(ctx, "a")
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 1)
			})
		})

		Convey("When addressing an unknown competition", func() {
			_, err := s.Competition(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.Events(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.AddParticipant(ctx, "nope", "x"), repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.AppendEvent(ctx, event("nope", "e", "x", model.KindVote)), repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.Complete(ctx, "nope", nil, created, 0), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When many goroutines append concurrently", func() {
			So(s.CreateCompetition(ctx, newCompetition("busy")), ShouldBeNil)
			var wg sync.WaitGroup
			for g := 0; g < 4; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < 25; i++ {
						_ = s.AppendEvent(ctx, event("busy", fmt.Sprintf("e-%d-%d", g, i), "x", model.KindVote))
					}
				}(g)
			}
			wg.Wait()

			Convey("Then no event is lost", func() {
				events, err := s.Events(ctx, "busy")
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 100)
			})
		})
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, "MemoryStore", func(*testing.T) repository.Store {
		return repository.NewMemoryStore()
	})

	Convey("Given a MemoryStore", t, func() {
		s := repository.NewMemoryStore()
		ctx := context.Background()
		So(s.CreateCompetition(ctx, newCompetition("c1")), ShouldBeNil)
		So(s.AddParticipant(ctx, "c1", "amy"), ShouldBeNil)

		Convey("Then callers cannot mutate stored rosters", func() {
			c, _ := s.Competition(ctx, "c1")
			c.Roster[0] = "mallory"
			again, _ := s.Competition(ctx, "c1")
			So(again.Roster, ShouldResemble, []string{"amy"})
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, "SQLiteStore", func(t *testing.T) repository.Store {
		s, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "stagepay.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return s
	})

	Convey("Given a SQLite file written by one store", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "data", "stagepay.db")
		s, err := repository.OpenSQLite(ctx, path)
		So(err, ShouldBeNil)
		So(s.CreateCompetition(ctx, newCompetition("c1")), ShouldBeNil)
		So(s.AddParticipant(ctx, "c1", "amy"), ShouldBeNil)
		So(s.AppendEvent(ctx, event("c1", "e1", "amy", model.KindLike)), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			s2, err := repository.OpenSQLite(ctx, path)
			So(err, ShouldBeNil)
			defer s2.Close()

			Convey("Then the data survives and migrations are not re-applied", func() {
				c, err := s2.Competition(ctx, "c1")
				So(err, ShouldBeNil)
				So(c.Roster, ShouldResemble, []string{"amy"})
				events, err := s2.Events(ctx, "c1")
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 1)
			})
		})
	})
}
