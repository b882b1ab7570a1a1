package types_test

import (
	"testing"

	"github.com/okian/stagepay/internal/domain/competition"
	types "github.com/okian/stagepay/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntries(t *testing.T) {
	ranking := competition.Ranking{
		{ParticipantID: "C", Score: 5},
		{ParticipantID: "A", Score: 2},
		{ParticipantID: "B", Score: 2},
	}

	Convey("Given a ranking of three participants", t, func() {
		Convey("When converted without a limit", func() {
			entries := types.Entries(ranking, 0)

			Convey("Then every participant gets a 1-based rank in ranking order", func() {
				So(entries, ShouldResemble, []types.Entry{
					{Rank: 1, ParticipantID: "C", Score: 5},
					{Rank: 2, ParticipantID: "A", Score: 2},
					{Rank: 3, ParticipantID: "B", Score: 2},
				})
			})
		})

		Convey("When converted with a limit of two", func() {
			entries := types.Entries(ranking, 2)

			Convey("Then only the leading rows are kept", func() {
				So(entries, ShouldHaveLength, 2)
				So(entries[1].ParticipantID, ShouldEqual, "A")
			})
		})

		Convey("When the limit exceeds the roster", func() {
			So(types.Entries(ranking, 10), ShouldHaveLength, 3)
		})
	})

	Convey("Given an empty ranking", t, func() {
		entries := types.Entries(nil, 5)

		Convey("Then an empty, non-nil slice is returned", func() {
			So(entries, ShouldNotBeNil)
			So(entries, ShouldBeEmpty)
		})
	})
}
