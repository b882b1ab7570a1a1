package model_test

import (
	"testing"
	"time"

	model "github.com/okian/stagepay/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEventKind(t *testing.T) {
	convey.Convey("Given the supported event kinds", t, func() {
		convey.Convey("When listing them", func() {
			kinds := model.Kinds()

			convey.Convey("Then they come in canonical order", func() {
				convey.So(kinds, convey.ShouldResemble, []model.EventKind{
					model.KindVote, model.KindPlay, model.KindLike, model.KindDownload,
				})
			})

			convey.Convey("And each one is valid", func() {
				for _, k := range kinds {
					convey.So(k.Valid(), convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When parsing known kinds with odd casing and spaces", func() {
			k, err := model.ParseEventKind("  Download ")

			convey.Convey("Then the kind is normalized", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(k, convey.ShouldEqual, model.KindDownload)
			})
		})

		convey.Convey("When parsing an unknown kind", func() {
			k, err := model.ParseEventKind("share")

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "share")
				convey.So(k, convey.ShouldEqual, model.EventKind(""))
			})
		})

		convey.Convey("When parsing an empty kind", func() {
			_, err := model.ParseEventKind("")

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestEngagementEvent(t *testing.T) {
	convey.Convey("Given an EngagementEvent struct", t, func() {
		convey.Convey("When creating a new event", func() {
			ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			event := model.EngagementEvent{
				EventID:       "event-123",
				CompetitionID: "comp-1",
				ParticipantID: "artist-9",
				Kind:          model.KindLike,
				TS:            ts,
			}

			convey.Convey("Then it should have the correct values", func() {
				convey.So(event.EventID, convey.ShouldEqual, "event-123")
				convey.So(event.CompetitionID, convey.ShouldEqual, "comp-1")
				convey.So(event.ParticipantID, convey.ShouldEqual, "artist-9")
				convey.So(event.Kind, convey.ShouldEqual, model.KindLike)
				convey.So(event.TS, convey.ShouldEqual, ts)
			})
		})

		convey.Convey("When creating an event with zero values", func() {
			event := model.EngagementEvent{}

			convey.Convey("Then its kind is not valid", func() {
				convey.So(event.Kind.Valid(), convey.ShouldBeFalse)
				convey.So(event.TS.IsZero(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestMoney(t *testing.T) {
	convey.Convey("Given an exact amount with sub-cent precision", t, func() {
		m := model.NewMoney(333.33333)

		convey.Convey("Then both representations are kept", func() {
			convey.So(m.Exact, convey.ShouldEqual, 333.33333)
			convey.So(m.Rounded, convey.ShouldEqual, 333.33)
			convey.So(m.String(), convey.ShouldEqual, "333.33")
		})

		convey.Convey("When adding amounts", func() {
			sum := m.Add(m).Add(m)

			convey.Convey("Then the exact values are summed before rounding", func() {
				convey.So(sum.Exact, convey.ShouldAlmostEqual, 999.99999, 1e-9)
				convey.So(sum.Rounded, convey.ShouldEqual, 1000.00)
			})
		})
	})

	convey.Convey("Given half-cent amounts", t, func() {
		convey.So(model.RoundCents(2.675), convey.ShouldBeBetweenOrEqual, 2.67, 2.68)
		convey.So(model.RoundCents(0.125), convey.ShouldEqual, 0.13)
		convey.So(model.RoundCents(-1.5), convey.ShouldEqual, -1.5)
	})
}
