package controller

import "math/rand/v2"

// RandomSource provides the bytes used by the random arpeggio direction.
type RandomSource interface {
	Byte() uint8
}

// RandomFunc adapts a plain function to a RandomSource.
type RandomFunc func() uint8

func (f RandomFunc) Byte() uint8 { return f() }

type pcgSource struct {
	r *rand.Rand
}

// NewRandom returns a seeded pseudo-random byte source.
func NewRandom(seed uint64) RandomSource {
	return &pcgSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *pcgSource) Byte() uint8 {
	return uint8(p.r.Uint32())
}
