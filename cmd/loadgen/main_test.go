package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/validation"
	"github.com/okian/stagepay/internal/loadgen"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseWeights(t *testing.T) {
	convey.Convey("Given weight flags", t, func() {
		convey.Convey("A full set parses", func() {
			w, err := parseWeights(map[string]string{"vote": "1", "play": "0.25", "like": "2", "download": "4"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(w[model.KindPlay], convey.ShouldEqual, 0.25)
		})

		convey.Convey("A non-numeric value is rejected", func() {
			_, err := parseWeights(map[string]string{"vote": "lots"})
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("An incomplete set fails validation", func() {
			_, err := parseWeights(map[string]string{"vote": "1"})
			convey.So(validation.Is(err), convey.ShouldBeTrue)
		})
	})
}

func TestRootCmd(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		cmd := newRootCmd()
		var out, errOut bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)

		convey.Convey("When run with no participants", func() {
			cmd.SetArgs([]string{"--participants", "0"})
			err := cmd.Execute()

			convey.Convey("Then the config is rejected before any request", func() {
				convey.So(errors.Is(err, loadgen.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When run with a malformed weight", func() {
			cmd.SetArgs([]string{"--weight", "vote=x"})
			convey.So(cmd.Execute(), convey.ShouldNotBeNil)
		})

		convey.Convey("The documented flags are registered", func() {
			for _, name := range []string{"url", "events", "participants", "duplicates", "finalize", "weight", "seed"} {
				convey.So(cmd.Flags().Lookup(name), convey.ShouldNotBeNil)
			}
		})
	})
}
