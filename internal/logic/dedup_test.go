package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeduperSuppressesRepeats(t *testing.T) {
	var d Deduper
	assert.Equal(t, State(""), d.Last())

	inputs := []State{StateHidden, StateHidden, StateVisible, StateVisible, StateVisible, StateHidden}
	var forwarded []State
	for _, s := range inputs {
		if d.Next(s) {
			forwarded = append(forwarded, s)
		}
	}
	assert.Equal(t, []State{StateHidden, StateVisible, StateHidden}, forwarded)
	assert.Equal(t, StateHidden, d.Last())
}
