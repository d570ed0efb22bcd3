package window

import "slices"

// budget shrinks a prioritized candidate list until its joined length fits
// the limit. Every step shortens a candidate or removes one, so it always
// terminates.
//
// Order of operations:
//  1. shorten the farthest candidate above the floor, non-citations first;
//  2. drop the farthest non-citation that is not the cursor paragraph;
//  3. drop the farthest remaining candidate while even a one-rune stub of it
//     would not fit;
//  4. cut the farthest remaining candidate to exactly the space left.
//
// Step 1 reaches the cursor paragraph too, so the cursor can be shortened
// while its neighbours are still kept.
type budget struct {
	limit  int
	cursor int
	prefer bool
	cands  []*candidate
}

func (b *budget) enforce() {
	for b.over() > 0 {
		i := b.farthest(func(c *candidate) bool { return c.length > minParagraphChars }, b.prefer)
		if i < 0 {
			break
		}
		c := b.cands[i]
		c.shorten(max(minParagraphChars, c.length-b.over()))
	}

	for b.over() > 0 {
		i := b.farthest(func(c *candidate) bool {
			return c.index != b.cursor && (!b.prefer || !c.citation)
		}, false)
		if i < 0 {
			break
		}
		b.drop(i)
	}

	for b.over() > 0 && len(b.cands) > 1 {
		i := b.farthest(nil, false)
		if b.total()-b.cands[i].length+1 <= b.limit {
			break
		}
		b.drop(i)
	}

	if b.over() > 0 && len(b.cands) > 0 {
		i := b.farthest(nil, false)
		c := b.cands[i]
		c.shorten(b.limit - (b.total() - c.length))
	}
}

func (b *budget) total() int {
	if len(b.cands) == 0 {
		return 0
	}
	n := separatorChars * (len(b.cands) - 1)
	for _, c := range b.cands {
		n += c.length
	}
	return n
}

func (b *budget) over() int {
	return b.total() - b.limit
}

func (b *budget) drop(i int) {
	b.cands = slices.Delete(b.cands, i, i+1)
}

// farthest returns the position of the accepted candidate with the greatest
// distance from the cursor, or -1. Ties go to the lower-priority entry. When
// nonCitationFirst is set, citation-bearing candidates are only considered if
// no accepted non-citation candidate exists.
func (b *budget) farthest(accept func(*candidate) bool, nonCitationFirst bool) int {
	pick := func(skipCitations bool) int {
		best := -1
		for i, c := range b.cands {
			if accept != nil && !accept(c) {
				continue
			}
			if skipCitations && c.citation {
				continue
			}
			if best < 0 || c.distance >= b.cands[best].distance {
				best = i
			}
		}
		return best
	}

	if nonCitationFirst {
		if i := pick(true); i >= 0 {
			return i
		}
	}
	return pick(false)
}
