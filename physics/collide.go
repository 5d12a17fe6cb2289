package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"peerball/arena"
)

// collide resolves every overlapping pair found by the broad phase. Each
// dynamic pair is handled once, from the body visited first.
func (e *Engine) collide() {
	seen := make(map[*Body]bool, len(e.order)+1)
	e.forEachBody(func(a *Body) {
		seen[a] = true
		if a.obj == nil {
			return
		}
		hit := a.obj.Check(0, 0)
		if hit == nil {
			return
		}
		for _, o := range hit.Objects {
			switch other := o.Data.(type) {
			case *Body:
				if seen[other] {
					continue
				}
				if interacts(a.Category, a.Mask, other.Category, other.Mask) {
					resolveCircles(a, other)
				}
			case *static:
				if interacts(a.Category, a.Mask, other.category, other.mask) {
					resolveStatic(a, other.shape)
				}
			}
		}
		a.syncObject()
	})
}

// resolveCircles separates two overlapping bodies in proportion to their
// inverse masses and exchanges an impulse along the contact normal.
func resolveCircles(a, b *Body) {
	d := b.Pos.Sub(a.Pos)
	dist := d.Len()
	overlap := a.Radius + b.Radius - dist
	if overlap <= 0 {
		return
	}
	n := mgl64.Vec2{1, 0}
	if dist > 0 {
		n = d.Mul(1 / dist)
	}

	invA, invB := a.inverseMass(), b.inverseMass()
	total := invA + invB
	if total == 0 {
		return
	}
	a.Pos = a.Pos.Sub(n.Mul(overlap * invA / total))
	b.Pos = b.Pos.Add(n.Mul(overlap * invB / total))

	vn := b.Vel.Sub(a.Vel).Dot(n)
	if vn < 0 {
		restitution := math.Max(a.Restitution, b.Restitution)
		j := -(1 + restitution) * vn / total
		a.Vel = a.Vel.Sub(n.Mul(j * invA))
		b.Vel = b.Vel.Add(n.Mul(j * invB))
	}
	b.syncObject()
}

// resolveStatic pushes a body out of immovable geometry and reflects the
// approaching part of its velocity.
func resolveStatic(b *Body, shape arena.Shape) {
	var n mgl64.Vec2
	var depth float64

	switch s := shape.(type) {
	case arena.Circle:
		d := b.Pos.Sub(mgl64.Vec2{s.X, s.Y})
		dist := d.Len()
		depth = b.Radius + s.Radius - dist
		if depth <= 0 {
			return
		}
		n = mgl64.Vec2{1, 0}
		if dist > 0 {
			n = d.Mul(1 / dist)
		}
	case arena.Rect:
		var ok bool
		n, depth, ok = circleRect(b.Pos, b.Radius, s)
		if !ok {
			return
		}
	default:
		return
	}

	b.Pos = b.Pos.Add(n.Mul(depth))
	if vn := b.Vel.Dot(n); vn < 0 {
		b.Vel = b.Vel.Sub(n.Mul((1 + b.Restitution) * vn))
	}
}

// circleRect returns the push-out normal and depth of a circle overlapping r.
func circleRect(c mgl64.Vec2, radius float64, r arena.Rect) (mgl64.Vec2, float64, bool) {
	minX, minY, maxX, maxY := r.Bounds()
	qx := math.Max(minX, math.Min(c.X(), maxX))
	qy := math.Max(minY, math.Min(c.Y(), maxY))
	d := c.Sub(mgl64.Vec2{qx, qy})
	dist := d.Len()

	if dist > 0 {
		if dist >= radius {
			return zero, 0, false
		}
		return d.Mul(1 / dist), radius - dist, true
	}

	// Centre inside the rectangle: leave through the nearest side.
	left := c.X() - minX
	right := maxX - c.X()
	top := c.Y() - minY
	bottom := maxY - c.Y()
	n, depth := mgl64.Vec2{-1, 0}, left
	if right < depth {
		n, depth = mgl64.Vec2{1, 0}, right
	}
	if top < depth {
		n, depth = mgl64.Vec2{0, -1}, top
	}
	if bottom < depth {
		n, depth = mgl64.Vec2{0, 1}, bottom
	}
	return n, depth + radius, true
}
