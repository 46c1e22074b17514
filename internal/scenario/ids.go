package scenario

// IDGenerator yields product identifiers.
type IDGenerator interface {
	NextID() int
}

// RandomIDs draws uniformly from [Min, Max]. It is not safe for concurrent
// use; every user owns one.
type RandomIDs struct {
	Min, Max int
	Rand     Rand
}

func NewRandomIDs(min, max int, r Rand) *RandomIDs {
	if max < min {
		min, max = max, min
	}
	return &RandomIDs{Min: min, Max: max, Rand: r}
}

func (g *RandomIDs) NextID() int {
	return g.Min + g.Rand.IntN(g.Max-g.Min+1)
}

// SequenceIDs replays a fixed sequence, wrapping around at the end.
type SequenceIDs struct {
	IDs []int
	pos int
}

func NewSequenceIDs(ids ...int) *SequenceIDs {
	return &SequenceIDs{IDs: ids}
}

func (g *SequenceIDs) NextID() int {
	if len(g.IDs) == 0 {
		return 0
	}
	id := g.IDs[g.pos%len(g.IDs)]
	g.pos++
	return id
}
