package reactor

import (
	"slices"
)

// psquare estimates a single quantile of a stream using the P² algorithm,
// in constant space.
//
// Reference:
// Jain, R. and Chlamtac, I. (1985). "The P² Algorithm for Dynamic Calculation
// of Quantiles and Histograms Without Storing Observations". Communications
// of the ACM, 28(10), pp. 1076-1085.
//
// Not safe for concurrent use.
type psquare struct {
	p       float64
	heights [5]float64 // marker heights
	pos     [5]int     // actual marker positions
	want    [5]float64 // desired marker positions
	incr    [5]float64 // desired position increments
	count   int
}

func newPSquare(p float64) *psquare {
	p = min(max(p, 0), 1)
	return &psquare{
		p:    p,
		incr: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

func (ps *psquare) observe(x float64) {
	ps.count++

	if ps.count <= 5 {
		ps.heights[ps.count-1] = x
		if ps.count == 5 {
			slices.Sort(ps.heights[:])
			for i := range ps.pos {
				ps.pos[i] = i
			}
			ps.want = [5]float64{0, 2 * ps.p, 4 * ps.p, 2 + 2*ps.p, 4}
		}
		return
	}

	var k int
	switch {
	case x < ps.heights[0]:
		ps.heights[0] = x
	case x >= ps.heights[4]:
		ps.heights[4] = x
		k = 3
	default:
		for k = 0; k < 3; k++ {
			if x < ps.heights[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		ps.pos[i]++
	}
	for i := range ps.want {
		ps.want[i] += ps.incr[i]
	}

	for i := 1; i < 4; i++ {
		d := ps.want[i] - float64(ps.pos[i])
		if (d >= 1 && ps.pos[i+1]-ps.pos[i] > 1) || (d <= -1 && ps.pos[i-1]-ps.pos[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			if h := ps.parabolic(i, sign); ps.heights[i-1] < h && h < ps.heights[i+1] {
				ps.heights[i] = h
			} else {
				ps.heights[i] = ps.linear(i, sign)
			}
			ps.pos[i] += sign
		}
	}
}

func (ps *psquare) parabolic(i, d int) float64 {
	df := float64(d)
	n := float64(ps.pos[i])
	nPrev := float64(ps.pos[i-1])
	nNext := float64(ps.pos[i+1])
	return ps.heights[i] + df/(nNext-nPrev)*
		((n-nPrev+df)*(ps.heights[i+1]-ps.heights[i])/(nNext-n)+
			(nNext-n-df)*(ps.heights[i]-ps.heights[i-1])/(n-nPrev))
}

func (ps *psquare) linear(i, d int) float64 {
	return ps.heights[i] + float64(d)*(ps.heights[i+d]-ps.heights[i])/float64(ps.pos[i+d]-ps.pos[i])
}

// quantile returns the current estimate, exact while fewer than five values
// have been observed.
func (ps *psquare) quantile() float64 {
	switch {
	case ps.count == 0:
		return 0
	case ps.count < 5:
		sorted := slices.Clone(ps.heights[:ps.count])
		slices.Sort(sorted)
		return sorted[int(float64(ps.count-1)*ps.p)]
	default:
		return ps.heights[2]
	}
}
