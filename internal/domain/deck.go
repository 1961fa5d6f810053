package domain

import (
	"errors"
	"math/rand"
)

var (
	ErrInsufficientTiles = errors.New("not enough tiles left in deck")
	ErrEmptyAlphabet     = errors.New("deck alphabet is empty")
	ErrInvalidCopies     = errors.New("copies per symbol must be at least 1")
)

// Deck is the shared pool of undealt tiles. The last element is the top of the stack.
type Deck struct {
	tiles []Tile
}

// NewDeck builds copies of every alphabet symbol and shuffles them with rng.
func NewDeck(alphabet []Tile, copies int, rng *rand.Rand) (*Deck, error) {
	if len(alphabet) == 0 {
		return nil, ErrEmptyAlphabet
	}
	if copies < 1 {
		return nil, ErrInvalidCopies
	}

	tiles := make([]Tile, 0, len(alphabet)*copies)
	for i := 0; i < copies; i++ {
		tiles = append(tiles, alphabet...)
	}
	// rand.Shuffle is Fisher-Yates, every permutation is reachable.
	rng.Shuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })

	return &Deck{tiles: tiles}, nil
}

// Deal removes n tiles from the top of the deck.
func (d *Deck) Deal(n int) ([]Tile, error) {
	if n < 0 || n > len(d.tiles) {
		return nil, ErrInsufficientTiles
	}
	cut := len(d.tiles) - n
	hand := make([]Tile, n)
	// Top of the stack first, as if drawn one at a time.
	for i := 0; i < n; i++ {
		hand[i] = d.tiles[len(d.tiles)-1-i]
	}
	d.tiles = d.tiles[:cut]
	return hand, nil
}

// Draw pops the top tile. ok is false when the deck is exhausted.
func (d *Deck) Draw() (Tile, bool) {
	if len(d.tiles) == 0 {
		return "", false
	}
	top := d.tiles[len(d.tiles)-1]
	d.tiles = d.tiles[:len(d.tiles)-1]
	return top, true
}

// Remaining reports how many tiles can still be drawn.
func (d *Deck) Remaining() int {
	if d == nil {
		return 0
	}
	return len(d.tiles)
}

// Tiles returns a copy of the undealt tiles, bottom first.
func (d *Deck) Tiles() []Tile {
	out := make([]Tile, len(d.tiles))
	copy(out, d.tiles)
	return out
}
