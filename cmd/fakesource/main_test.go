package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/fantasyboard/internal/fakesource"
)

func TestParseFlags(t *testing.T) {
	convey.Convey("Given fakesource flags", t, func() {
		convey.Convey("When failures and anonymous teams are listed", func() {
			o, opts, err := parseFlags([]string{"--teams", "3", "--first-id", "10", "--period", "4", "--fail", "11=404,12", "--anonymous", "10"})

			convey.Convey("Then the server should honour them", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(o.teams, convey.ShouldEqual, 3)

				fake := fakesource.New(opts...)
				convey.So(fake.IDs(), convey.ShouldResemble, []string{"10", "11", "12"})

				for path, want := range map[string]int{
					"/entry/10/history/": http.StatusOK,
					"/entry/11/history/": http.StatusNotFound,
					"/entry/12/history/": http.StatusServiceUnavailable,
				} {
					w := httptest.NewRecorder()
					fake.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
					convey.So(w.Code, convey.ShouldEqual, want)
				}

				w := httptest.NewRecorder()
				fake.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/entry/10/", nil))
				convey.So(w.Body.String(), convey.ShouldNotContainSubstring, `"name"`)
			})
		})

		convey.Convey("When a failure status is invalid", func() {
			_, _, err := parseFlags([]string{"--fail", "11=ok"})

			convey.Convey("Then parsing should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
