package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		stop  []string
		query string
		want  []string
	}{
		{
			name:  "lowercases and splits on punctuation",
			query: "Cat-Videos, HD!",
			want:  []string{"cat", "videos", "hd"},
		},
		{
			name:  "drops stop words before suffix strip",
			stop:  []string{"dogs"},
			query: "cats dogs",
			want:  []string{"cats"},
		},
		{
			name:  "strips one trailing y only",
			query: "funny may yyy",
			want:  []string{"funn", "ma", "yy"},
		},
		{
			name:  "stop word match is on the raw lowered token",
			stop:  []string{"funny"},
			query: "funny funn",
			want:  []string{"funn"},
		},
		{
			name:  "token reduced to empty is dropped",
			query: "y",
			want:  []string{},
		},
		{
			name:  "all stop words yields no terms",
			stop:  []string{"the", "a"},
			query: "the a THE",
			want:  []string{},
		},
		{
			name:  "digits survive",
			query: "4k 2024",
			want:  []string{"4k", "2024"},
		},
		{
			name:  "empty query",
			query: "   ",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewTokenizer(NewStopWords(tt.stop))
			assert.Equal(t, tt.want, tok.Tokenize(tt.query))
		})
	}
}

func TestTokenizeDefaultStopWords(t *testing.T) {
	tok := NewTokenizer(NewStopWords(DefaultStopWords))
	assert.Equal(t, []string{"cat", "hat"}, tok.Tokenize("the cat in the hat"))
}
