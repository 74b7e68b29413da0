// Package lipsum produces placeholder Latin text.
package lipsum

import (
	"math/rand/v2"
	"strings"
	"sync"
)

var vocabulary = strings.Fields(`
lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor
incididunt ut labore et dolore magna aliqua enim ad minim veniam quis nostrud
exercitation ullamco laboris nisi aliquip ex ea commodo consequat duis aute
irure in reprehenderit voluptate velit esse cillum fugiat nulla pariatur
excepteur sint occaecat cupidatat non proident sunt culpa qui officia deserunt
mollit anim id est laborum curabitur pretium tincidunt lacus nunc pulvinar
sapien vitae ligula ultrices mauris integer posuere erat a ante venenatis
dapibus morbi faucibus nibh fringilla vestibulum vivamus sagittis quam
suscipit eros donec tristique felis blandit porta praesent maximus neque
accumsan gravida metus pellentesque habitant senectus netus malesuada fames
turpis egestas aenean finibus semper justo phasellus viverra leo odio
`)

const (
	minSentenceWords   = 5
	maxSentenceWords   = 15
	minParagraphPhrase = 3
	maxParagraphPhrase = 7
)

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Generator seeded from the runtime's random source.
func New() *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a Generator that always produces the same output.
func NewSeeded(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Words returns n lowercase words. n <= 0 yields an empty slice.
func (g *Generator) Words(n int) []string {
	if n <= 0 {
		return []string{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, n)
	for i := range out {
		out[i] = g.word()
	}
	return out
}

// Paragraphs returns n paragraphs of several capitalised sentences each.
// Words inside a paragraph are separated by single spaces.
func (g *Generator) Paragraphs(n int) []string {
	if n <= 0 {
		return []string{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, n)
	for i := range out {
		sentences := g.between(minParagraphPhrase, maxParagraphPhrase)
		parts := make([]string, sentences)
		for j := range parts {
			parts[j] = g.sentence()
		}
		out[i] = strings.Join(parts, " ")
	}
	return out
}

func (g *Generator) sentence() string {
	words := make([]string, g.between(minSentenceWords, maxSentenceWords))
	for i := range words {
		words[i] = g.word()
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ") + "."
}

func (g *Generator) word() string {
	return vocabulary[g.rng.IntN(len(vocabulary))]
}

// between returns a value in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}
