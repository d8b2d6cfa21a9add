package utils

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTemporaryPassword(t *testing.T) {
	for _, n := range []int{0, 5, 8, 12, 32} {
		pw, err := GenerateTemporaryPassword(n)
		require.NoError(t, err)

		want := n
		if want < MinTemporaryPasswordLength {
			want = MinTemporaryPasswordLength
		}
		assert.Len(t, pw, want)

		var upper, lower, digit, symbol bool
		for _, r := range pw {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			default:
				symbol = true
			}
			assert.False(t, strings.ContainsRune("0Oo1lI", r), "ambiguous char %q in %q", r, pw)
		}
		assert.True(t, upper && lower && digit && symbol, "missing class in %q", pw)
	}
}

func TestGenerateTemporaryPasswordVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		pw, err := GenerateTemporaryPassword(12)
		require.NoError(t, err)
		seen[pw] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestDecodeStringArrayTolerant(t *testing.T) {
	got, err := DecodeStringArray([]byte(`"[\"Math\",\"Physics\"]"`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Physics"}, got)

	got, err = DecodeStringArray(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)

	got, err = DecodeStringArray([]byte(`{"x":1}`))
	assert.Error(t, err)
	assert.Equal(t, []string{}, got)
}

func TestCanonicalJSONArray(t *testing.T) {
	out, changed := CanonicalJSONArray([]byte(`"[\"a\"]"`))
	assert.True(t, changed)
	assert.JSONEq(t, `["a"]`, string(out))

	out, changed = CanonicalJSONArray([]byte(`["a"]`))
	assert.False(t, changed)
	assert.JSONEq(t, `["a"]`, string(out))

	out, changed = CanonicalJSONArray([]byte(`garbage`))
	assert.True(t, changed)
	assert.Equal(t, `[]`, string(out))

	out, changed = CanonicalJSONArray([]byte(`null`))
	assert.True(t, changed)
	assert.Equal(t, `[]`, string(out))
}

func TestParseHourMinute(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		expHour    int
		expMinutes int
	}{
		{name: "simple time", input: "08:30", expHour: 8, expMinutes: 30},
		{name: "padded", input: " 13:45 ", expHour: 13, expMinutes: 45},
		{name: "midnight", input: "00:00", expHour: 0, expMinutes: 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h, m, err := ParseHourMinute(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expHour, h)
			assert.Equal(t, tc.expMinutes, m)
		})
	}

	for _, bad := range []string{"", "invalid", "25:00", "9:5pm"} {
		_, _, err := ParseHourMinute(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseTimeWindow(t *testing.T) {
	w, err := ParseTimeWindow("09:00-10:30")
	require.NoError(t, err)
	assert.Equal(t, TimeWindow{Start: 540, End: 630}, w)
	assert.Equal(t, "09:00-10:30", w.String())

	for _, bad := range []string{"10:00-09:00", "10:00-10:00", "10:00", "a-b", "09:00-10:00-11:00"} {
		_, err := ParseTimeWindow(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeWindowOverlaps(t *testing.T) {
	a := TimeWindow{Start: 9 * 60, End: 10 * 60}
	assert.True(t, a.Overlaps(TimeWindow{Start: 9*60 + 30, End: 11 * 60}))
	assert.True(t, a.Overlaps(TimeWindow{Start: 8 * 60, End: 12 * 60}))
	assert.False(t, a.Overlaps(TimeWindow{Start: 10 * 60, End: 11 * 60}), "touching windows do not overlap")
	assert.False(t, a.Overlaps(TimeWindow{Start: 7 * 60, End: 9 * 60}))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 66.67, Percentage(2, 3))
	assert.Equal(t, 0.0, Percentage(5, 0))
	assert.Equal(t, 100.0, Percentage(4, 4))
}

func TestPagination(t *testing.T) {
	page, limit, offset := Pagination(0, 0)
	assert.Equal(t, []int{1, 20, 0}, []int{page, limit, offset})
	page, limit, offset = Pagination(3, 500)
	assert.Equal(t, []int{3, 100, 200}, []int{page, limit, offset})
}

type signupForm struct {
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"omitempty,role"`
	YearLevel int    `json:"year_level" validate:"year_level"`
	Window    string `json:"preferred_time" validate:"preferred_time"`
}

func TestValidateStruct(t *testing.T) {
	ok := signupForm{Email: "a@b.co", Role: "Tutor", YearLevel: 3, Window: "08:00-09:00"}
	assert.Nil(t, ValidateStruct(ok))

	bad := signupForm{Email: "nope", Role: "owner", YearLevel: 9, Window: "9-8"}
	errs := ValidateStruct(bad)
	assert.Equal(t, map[string]string{
		"email":          "email",
		"role":           "role",
		"year_level":     "year_level",
		"preferred_time": "preferred_time",
	}, errs)
}
