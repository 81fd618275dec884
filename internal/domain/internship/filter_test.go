package internship

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

func posting(id, title, company, rep string, level Level, status Status, open, close time.Time, max, confirmed int) *Internship {
	return &Internship{
		ID:               id,
		Title:            title,
		Level:            level,
		Major:            "CS",
		Window:           shared.DateWindow{Open: open, Close: close},
		Status:           status,
		RepresentativeID: rep,
		CompanyName:      company,
		MaxSlots:         max,
		ConfirmedSlots:   confirmed,
		Visible:          true,
	}
}

func fixture() []*Internship {
	return []*Internship{
		posting("1", "Data", "Acme", "a@acme.com", LevelBasic, StatusApproved,
			timeutil.Date(2024, time.May, 15), timeutil.Date(2024, time.June, 10), 5, 1),
		posting("2", "Web", "Globex", "g@globex.com", LevelAdvanced, StatusPending,
			timeutil.Date(2024, time.July, 1), timeutil.Date(2024, time.July, 31), 2, 0),
		posting("3", "Infra", "acme", "A@ACME.com", LevelIntermediate, StatusFilled,
			timeutil.Date(2024, time.June, 1), timeutil.Date(2024, time.June, 30), 3, 3),
	}
}

func ids(items []*Internship) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.ID)
	}
	return out
}

func TestFilter_EmptyMatchesAll(t *testing.T) {
	all := fixture()
	f := NewFilter()
	assert.True(t, f.IsEmpty())
	assert.Equal(t, ids(all), ids(f.Apply(all)))
}

func TestFilter_CompanyCaseInsensitive(t *testing.T) {
	all := fixture()
	assert.Equal(t, []string{"1", "3"}, ids(NewFilter().WithCompany("ACME").Apply(all)))
	assert.Empty(t, NewFilter().WithCompany("Initech").Apply(all))
}

func TestFilter_RepresentativeCaseInsensitive(t *testing.T) {
	assert.Equal(t, []string{"1", "3"}, ids(NewFilter().WithRepresentative("a@acme.com").Apply(fixture())))
}

func TestFilter_StatusLevelMajor(t *testing.T) {
	all := fixture()
	assert.Equal(t, []string{"2"}, ids(NewFilter().WithStatus(StatusPending).Apply(all)))
	assert.Equal(t, []string{"3"}, ids(NewFilter().WithLevel(LevelIntermediate).Apply(all)))
	assert.Len(t, NewFilter().WithMajor("cs").Apply(all), 3)
	assert.Empty(t, NewFilter().WithMajor("EEE").Apply(all))
}

func TestFilter_RemainingSlotsRange(t *testing.T) {
	all := fixture()
	one, four := 1, 4
	assert.Equal(t, []string{"1", "2"}, ids(NewFilter().WithRemainingSlots(&one, nil).Apply(all)))
	assert.Equal(t, []string{"3"}, ids(NewFilter().WithRemainingSlots(nil, &one).Apply(all)))
	assert.Equal(t, []string{"1", "2"}, ids(NewFilter().WithRemainingSlots(&one, &four).Apply(all)))
}

func TestFilter_DateOverlap(t *testing.T) {
	all := fixture()
	from := timeutil.Date(2024, time.June, 1)
	to := timeutil.Date(2024, time.June, 30)

	got := ids(NewFilter().WithDateRange(&from, &to).Apply(all))
	assert.Equal(t, []string{"1", "3"}, got, "partial overlap matches, July posting excluded")

	assert.Equal(t, []string{"2", "3"}, ids(NewFilter().WithDateRange(&to, nil).Apply(all)))
	assert.Equal(t, []string{"1", "3"}, ids(NewFilter().WithDateRange(nil, &to).Apply(all)))
}

func TestFilter_CriteriaCombine(t *testing.T) {
	f := NewFilter().WithCompany("acme").WithStatus(StatusApproved)
	assert.Equal(t, []string{"1"}, ids(f.Apply(fixture())))
	assert.False(t, f.Matches(nil))
}

func TestSortHelpers(t *testing.T) {
	items := fixture()
	SortByTitle(items)
	assert.Equal(t, []string{"1", "3", "2"}, ids(items))

	SortByRemainingSlotsDesc(items)
	assert.Equal(t, []string{"1", "2", "3"}, ids(items))
}
