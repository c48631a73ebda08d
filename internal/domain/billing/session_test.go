package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return t0.Add(time.Duration(minutes) * time.Minute) }

func atPtr(minutes int) *time.Time {
	v := at(minutes)
	return &v
}

func TestSessionTotal_Segments(t *testing.T) {
	s := Session{
		Segments: []Segment{
			{Start: at(0), End: atPtr(90), HourlyRate: dec("100"), FirstHourRate: ptr(dec("50"))},
			{Start: at(90), End: atPtr(130), HourlyRate: dec("200"), FirstHourRate: ptr(dec("80"))},
		},
		Members: []Member{
			{JoinedAt: at(0), Items: []LineItem{{ItemID: "cola", UnitPrice: dec("2.5"), Quantity: 4}}},
			{JoinedAt: at(10), LeftAt: atPtr(40), Items: []LineItem{{ItemID: "chips", UnitPrice: dec("3"), Quantity: 1}}},
		},
	}

	got := SessionTotal(s, at(500))

	// segment 1: 50 + ceil(30/60*100) = 100; segment 2: 40 min → first hour 80
	assertDec(t, "180", got.TimeCost)
	assertDec(t, "13", got.OrdersCost)
	assertDec(t, "193", got.Total)
}

func TestSessionTotal_FirstHourChargedPerSegment(t *testing.T) {
	first := ptr(dec("50"))
	single := Session{Segments: []Segment{
		{Start: at(0), End: atPtr(40), HourlyRate: dec("100"), FirstHourRate: first},
	}}
	switched := Session{Segments: []Segment{
		{Start: at(0), End: atPtr(20), HourlyRate: dec("100"), FirstHourRate: first},
		{Start: at(20), End: atPtr(40), HourlyRate: dec("100"), FirstHourRate: first},
	}}

	assertDec(t, "50", SessionTotal(single, at(40)).TimeCost)
	assertDec(t, "100", SessionTotal(switched, at(40)).TimeCost, "a switch restarts the first hour")
}

func TestSessionTotal_OpenSegmentUsesNow(t *testing.T) {
	s := Session{Segments: []Segment{
		{Start: at(0), HourlyRate: dec("60")},
	}}

	assertDec(t, "30", SessionTotal(s, at(30)).TimeCost)
	assertDec(t, "45", SessionTotal(s, at(45)).TimeCost)
}

func TestSessionTotal_ImplicitSegmentPerPerson(t *testing.T) {
	s := Session{
		StartedAt:     at(0),
		HourlyRate:    dec("40"),
		FirstHourRate: ptr(dec("30")),
		Members: []Member{
			{JoinedAt: at(0)},
			{JoinedAt: at(0)},
			{JoinedAt: at(0), LeftAt: atPtr(20)},
		},
	}

	got := SessionTotal(s, at(90))

	// per person: 30 + ceil(30/60*40) = 50; two members still present
	assertDec(t, "100", got.TimeCost)
	assertDec(t, "0", got.OrdersCost)
	assert.Equal(t, int64(2), s.ActiveMembers())
}

func TestSessionTotal_ImplicitSegmentNoMembers(t *testing.T) {
	s := Session{StartedAt: at(0), HourlyRate: dec("40"), Members: nil}

	assertDec(t, "0", SessionTotal(s, at(120)).TimeCost)
}

func TestSessionTotal_SessionLevelItems(t *testing.T) {
	s := Session{
		StartedAt:  at(0),
		EndedAt:    atPtr(60),
		HourlyRate: dec("10"),
		Members:    []Member{{JoinedAt: at(0)}},
		Items:      []LineItem{{ItemID: "nachos", UnitPrice: dec("7.25"), Quantity: 2}},
	}

	got := SessionTotal(s, at(600))
	assertDec(t, "10", got.TimeCost, "closed implicit segment ignores now")
	assertDec(t, "14.5", got.OrdersCost)
}

func TestSessionTotal_Idempotent(t *testing.T) {
	s := Session{
		Segments: []Segment{{Start: at(0), End: atPtr(75), HourlyRate: dec("100"), FirstHourRate: ptr(dec("50"))}},
		Members:  []Member{{JoinedAt: at(0), Items: []LineItem{{ItemID: "tea", UnitPrice: dec("1.2"), Quantity: 3}}}},
	}

	first := SessionTotal(s, at(100))
	second := SessionTotal(s, at(900))

	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.TimeCost.Equal(second.TimeCost))
	assert.Len(t, s.Members[0].Items, 1)
}

func TestSession_DurationHours(t *testing.T) {
	segmented := Session{Segments: []Segment{
		{Start: at(0), End: atPtr(60)},
		{Start: at(60), End: atPtr(150)},
	}}
	assertDec(t, "2.5", segmented.DurationHours(at(999)))

	implicit := Session{StartedAt: at(0)}
	assertDec(t, "3", implicit.DurationHours(at(180)))
}

func TestMemberTotal(t *testing.T) {
	m := Member{
		JoinedAt: at(30),
		LeftAt:   atPtr(150),
		Items:    []LineItem{{ItemID: "beer", UnitPrice: dec("6"), Quantity: 2}},
	}

	got := MemberTotal(m, dec("40"), ptr(dec("30")), at(600))

	// 120 minutes: 30 + ceil(60/60*40) = 70
	assertDec(t, "70", got.TimeCost)
	assertDec(t, "12", got.OrdersCost)
	assertDec(t, "82", got.Total)
}
