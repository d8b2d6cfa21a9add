package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfanityDetect(t *testing.T) {
	f := NewProfanityFilter([]string{"shit", "idiot", "Damn"})

	tests := []struct {
		in   string
		want []string
	}{
		{"Great explanation, thanks!", nil},
		{"this is $h1t", []string{"shit"}},
		{"You 1D10T, what the SHIT. idiot again", []string{"idiot", "shit"}},
		{"d@mn it", []string{"damn"}},
		{"shitake mushrooms and idiotic plans", nil},
		{"", nil},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, f.Detect(tc.in), tc.in)
	}
	assert.True(t, f.Clean("hello there"))
}

func TestProfanityErrorIs(t *testing.T) {
	var err error = &ProfanityError{Words: []string{"x"}}
	assert.True(t, errors.Is(err, ErrProfanity))
	assert.True(t, IsProfanity(err))
	assert.False(t, IsProfanity(ErrNotFound))
}
