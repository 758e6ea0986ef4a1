package discount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchScope(t *testing.T) {
	items := []Item{
		{ProductID: "p1", CategoryID: "entries"},
		{ProductID: "p2", CategoryID: "retail"},
		{ProductID: "p3", CategoryID: "entries"},
	}

	tests := []struct {
		name  string
		scope Scope
		want  []int
	}{
		{
			name:  "empty scope matches everything",
			scope: Scope{},
			want:  []int{0, 1, 2},
		},
		{
			name:  "product match",
			scope: Scope{Products: []string{"p2"}},
			want:  []int{1},
		},
		{
			name:  "category match",
			scope: Scope{Categories: []string{"entries"}},
			want:  []int{0, 2},
		},
		{
			name:  "product or category",
			scope: Scope{Products: []string{"p2"}, Categories: []string{"entries"}},
			want:  []int{0, 1, 2},
		},
		{
			name:  "no match",
			scope: Scope{Products: []string{"p9"}, Categories: []string{"cafe"}},
			want:  nil,
		},
		{
			name:  "item matching both scopes counted once",
			scope: Scope{Products: []string{"p1"}, Categories: []string{"entries"}},
			want:  []int{0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchScope(tt.scope, items))
		})
	}
}

func TestMatchScope_NoItems(t *testing.T) {
	assert.Empty(t, MatchScope(Scope{}, nil))
	assert.Empty(t, MatchScope(Scope{Products: []string{"p1"}}, nil))
}
