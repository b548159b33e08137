package oaiharvest

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowMonthly(t *testing.T) {
	var tests = []struct {
		w  Window
		ws []Window
	}{
		{
			w: Window{From: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), Until: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
			ws: []Window{
				Window{
					From:  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 1, 1, 23, 59, 59, 999999999, time.UTC),
				},
			},
		},
		{
			w: Window{From: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), Until: time.Date(2000, 5, 1, 0, 0, 0, 0, time.UTC)},
			ws: []Window{
				Window{
					From:  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 1, 31, 23, 59, 59, 999999999, time.UTC),
				},
				Window{
					From:  time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 2, 29, 23, 59, 59, 999999999, time.UTC),
				},
				Window{
					From:  time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 3, 31, 23, 59, 59, 999999999, time.UTC),
				},
				Window{
					From:  time.Date(2000, 4, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 4, 30, 23, 59, 59, 999999999, time.UTC),
				},
				Window{
					From:  time.Date(2000, 5, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 5, 1, 23, 59, 59, 999999999, time.UTC),
				},
			},
		},
		{
			w: Window{From: time.Date(2001, 12, 11, 9, 0, 0, 0, time.UTC), Until: time.Date(2002, 1, 16, 12, 0, 0, 0, time.UTC)},
			ws: []Window{
				Window{
					From:  time.Date(2001, 12, 11, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2001, 12, 31, 23, 59, 59, 999999999, time.UTC),
				},
				Window{
					From:  time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2002, 1, 16, 23, 59, 59, 999999999, time.UTC),
				},
			},
		},
	}

	for _, test := range tests {
		result, err := test.w.Monthly()
		if err != nil {
			t.Fatalf("Monthly() failed: %v", err)
		}
		if !reflect.DeepEqual(result, test.ws) {
			t.Errorf("Monthly() got %v, want %v", result, test.ws)
		}
	}
}

func TestWindowWeekly(t *testing.T) {
	var tests = []struct {
		w  Window
		ws []Window
	}{
		{
			w: Window{From: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), Until: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
			ws: []Window{
				Window{
					From:  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 1, 1, 23, 59, 59, 999999999, time.UTC),
				},
			},
		},
		{
			w: Window{From: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), Until: time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)},
			ws: []Window{
				Window{
					From:  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 1, 1, 23, 59, 59, 999999999, time.UTC),
				},
				Window{
					From:  time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 1, 8, 23, 59, 59, 999999999, time.UTC),
				},
				Window{
					From:  time.Date(2000, 1, 9, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 1, 15, 23, 59, 59, 999999999, time.UTC),
				},
				Window{
					From:  time.Date(2000, 1, 16, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 1, 22, 23, 59, 59, 999999999, time.UTC),
				},
				Window{
					From:  time.Date(2000, 1, 23, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 1, 29, 23, 59, 59, 999999999, time.UTC),
				},
				Window{
					From:  time.Date(2000, 1, 30, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2000, 2, 1, 23, 59, 59, 999999999, time.UTC),
				},
			},
		},
	}

	for _, test := range tests {
		result, err := test.w.Weekly()
		if err != nil {
			t.Fatalf("Weekly() failed: %v", err)
		}
		if !reflect.DeepEqual(result, test.ws) {
			t.Errorf("Weekly() got %v, want %v", result, test.ws)
		}
	}
}

func TestWindowDaily(t *testing.T) {
	w := Window{From: time.Date(2000, 2, 28, 15, 0, 0, 0, time.UTC), Until: time.Date(2000, 3, 1, 8, 0, 0, 0, time.UTC)}
	result, err := w.Daily()
	if err != nil {
		t.Fatalf("Daily() failed: %v", err)
	}
	want := []Window{
		{From: time.Date(2000, 2, 28, 0, 0, 0, 0, time.UTC), Until: time.Date(2000, 2, 28, 23, 59, 59, 999999999, time.UTC)},
		{From: time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC), Until: time.Date(2000, 2, 29, 23, 59, 59, 999999999, time.UTC)},
		{From: time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC), Until: time.Date(2000, 3, 1, 23, 59, 59, 999999999, time.UTC)},
	}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("Daily() got %v, want %v", result, want)
	}
}

func TestWindowEndOfMonth(t *testing.T) {
	w := Window{From: time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC), Until: time.Date(2000, 1, 31, 0, 0, 0, 0, time.UTC)}
	result, err := w.Monthly()
	if err != nil {
		t.Fatalf("Monthly() failed: %v", err)
	}
	want := []Window{
		{From: time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC), Until: time.Date(2000, 1, 31, 23, 59, 59, 999999999, time.UTC)},
	}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("Monthly() got %v, want %v", result, want)
	}
}

func TestWindowInvalid(t *testing.T) {
	w := Window{From: time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), Until: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}
	for _, interval := range []string{"daily", "weekly", "monthly"} {
		_, err := w.Split(interval)
		assert.ErrorIs(t, err, ErrInvalidDateRange, interval)
	}
	_, err := Window{}.Split("yearly")
	assert.Error(t, err)
}

func TestWindowArgs(t *testing.T) {
	w := Window{
		From:  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2000, 1, 31, 23, 59, 59, 999999999, time.UTC),
	}
	args := ListArgs{Prefix: "marc21", Set: "a", From: "ignored"}

	day := w.Args(args, GranularityDay)
	assert.Equal(t, ListArgs{Prefix: "marc21", Set: "a", From: "2000-01-01", Until: "2000-01-31"}, day)

	sec := w.Args(args, GranularitySecond)
	assert.Equal(t, "2000-01-01T00:00:00Z", sec.From)
	assert.Equal(t, "2000-01-31T23:59:59Z", sec.Until)

	assert.Equal(t, "ignored", args.From)
}

func TestWindowArgsLocation(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	w := Window{
		From:  time.Date(2000, 1, 1, 0, 0, 0, 0, berlin),
		Until: time.Date(2000, 1, 31, 23, 59, 59, 0, berlin),
	}
	day := w.Args(ListArgs{}, GranularityDay)
	assert.Equal(t, "2000-01-01", day.From)
	assert.Equal(t, "2000-01-31", day.Until)

	sec := w.Args(ListArgs{}, GranularitySecond)
	assert.Equal(t, "1999-12-31T23:00:00Z", sec.From)
	assert.Equal(t, "2000-01-31T22:59:59Z", sec.Until)
}
