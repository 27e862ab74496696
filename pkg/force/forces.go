package force

import "math"

// applySprings pulls linked bodies toward LinkDistance. The correction is
// split by degree so hubs move less than leaves.
func (s *Simulation) applySprings() {
	for _, sp := range s.springs {
		src, tgt := &s.bodies[sp.source], &s.bodies[sp.target]

		x := tgt.X + tgt.VX - src.X - src.VX
		y := tgt.Y + tgt.VY - src.Y - src.VY
		if x == 0 {
			x = s.jiggle()
		}
		if y == 0 {
			y = s.jiggle()
		}
		l := math.Sqrt(x*x + y*y)
		l = (l - s.params.LinkDistance) / l * s.alpha * sp.strength
		x *= l
		y *= l

		tgt.VX -= x * sp.bias
		tgt.VY -= y * sp.bias
		src.VX += x * (1 - sp.bias)
		src.VY += y * (1 - sp.bias)
	}
}

// applyCharge applies pairwise repulsion. Distances are clamped below by
// ChargeDistanceMin and pairs beyond ChargeDistanceMax are skipped.
func (s *Simulation) applyCharge() {
	if s.params.Charge == 0 {
		return
	}
	min2 := s.params.ChargeDistanceMin * s.params.ChargeDistanceMin
	max2 := math.Inf(1)
	if s.params.ChargeDistanceMax > 0 {
		max2 = s.params.ChargeDistanceMax * s.params.ChargeDistanceMax
	}
	k := s.params.Charge * s.alpha

	for i := range s.bodies {
		bi := &s.bodies[i]
		for j := range s.bodies {
			if i == j {
				continue
			}
			bj := &s.bodies[j]
			x := bj.X - bi.X
			y := bj.Y - bi.Y
			l := x*x + y*y
			if l >= max2 {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			if l < min2 {
				l = math.Sqrt(min2 * l)
			}
			bi.VX += x * k / l
			bi.VY += y * k / l
		}
	}
}

// applyCenter nudges every body toward the centre.
func (s *Simulation) applyCenter() {
	k := s.params.CenterStrength * s.alpha
	if k == 0 {
		return
	}
	for i := range s.bodies {
		b := &s.bodies[i]
		b.VX += (s.center.X - b.X) * k
		b.VY += (s.center.Y - b.Y) * k
	}
}

// applyCollide separates bodies closer than twice CollideRadius, using the
// positions they are about to move to.
func (s *Simulation) applyCollide() {
	r := s.params.CollideRadius
	if r <= 0 {
		return
	}
	sum := 2 * r
	for i := range s.bodies {
		bi := &s.bodies[i]
		for j := i + 1; j < len(s.bodies); j++ {
			bj := &s.bodies[j]
			x := bi.X + bi.VX - bj.X - bj.VX
			y := bi.Y + bi.VY - bj.Y - bj.VY
			l := x*x + y*y
			if l >= sum*sum {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			l = math.Sqrt(l)
			l = (sum - l) / l * s.params.CollideStrength
			x *= l
			y *= l
			// Equal radii: each body takes half the correction.
			bi.VX += x * 0.5
			bi.VY += y * 0.5
			bj.VX -= x * 0.5
			bj.VY -= y * 0.5
		}
	}
}
