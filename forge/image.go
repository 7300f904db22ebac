// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package forge

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// DefaultImageSize is the edge length of rendered artwork.
const DefaultImageSize = 400

// ImageConfig parameterises RenderWeapon.
type ImageConfig struct {
	Width      int
	Height     int
	WeaponType WeaponType
	Tier       uint8
	Rarity     Rarity
	Stats      Stats
}

var (
	// inner and outer colours of the radial background per rarity
	rarityBackgrounds = [numRarities][2]color.NRGBA{
		{hex(0x2a2a2a), hex(0x1a1a1a)},
		{hex(0x1a4a1a), hex(0x0a2a0a)},
		{hex(0x1a2a4a), hex(0x0a1a2a)},
		{hex(0x4a1a4a), hex(0x2a0a2a)},
		{hex(0x4a3a1a), hex(0x2a1a0a)},
	}
	// bronze, silver, gold, platinum, legendary; two tiers per colour
	tierColors  = []color.NRGBA{hex(0x8B7355), hex(0xC0C0C0), hex(0xFFD700), hex(0xE6E6FA), hex(0xFF6B6B)}
	rarityInks  = [numRarities]color.NRGBA{hex(0x808080), hex(0x1eff00), hex(0x0070dd), hex(0xa335ee), hex(0xff8000)}
	outline     = hex(0x000000)
	white       = hex(0xFFFFFF)
	handleBrown = hex(0x8B4513)
	guardGrey   = hex(0x4A4A4A)
	bowString   = hex(0xDDDDDD)
	sparkleGold = hex(0xFFD700)
	epicGlow    = hex(0x8A2BE2)
)

// RenderWeapon draws the artwork of a weapon.  The drawing itself is
// deterministic; rng only drives the background texture and legendary
// sparkles, so a seeded source reproduces the same pixels.
func RenderWeapon(cfg ImageConfig, rng *rand.Rand) *image.RGBA {
	if cfg.Width <= 0 {
		cfg.Width = DefaultImageSize
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultImageSize
	}
	if !cfg.Rarity.Valid() {
		cfg.Rarity = Common
	}
	c := &canvas{
		img: image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
		z:   vector.NewRasterizer(cfg.Width, cfg.Height),
	}

	c.background(cfg, rng)
	c.weapon(cfg)
	c.rarityEffects(cfg, rng)
	c.statsOverlay(cfg)
	return c.img
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("forge: failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ImageFileName names an uploaded artwork file.
func ImageFileName(cfg ImageConfig, unixMilli int64) string {
	return fmt.Sprintf("weapon-%d-tier%d-%d-%d.png", cfg.WeaponType, cfg.Tier, cfg.Rarity, unixMilli)
}

type point struct{ x, y float64 }

// canvas paints paths through a single rasterizer, reset before each shape.
type canvas struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

// radialGradient runs from inner at the centre to outer at r and beyond.
type radialGradient struct {
	rect         image.Rectangle
	inner, outer color.NRGBA
	cx, cy, r    float64
}

func (g *radialGradient) ColorModel() color.Model { return color.RGBAModel }
func (g *radialGradient) Bounds() image.Rectangle { return g.rect }

func (g *radialGradient) At(x, y int) color.Color {
	t := math.Min(1, math.Hypot(float64(x)+0.5-g.cx, float64(y)+0.5-g.cy)/g.r)
	return color.RGBA{
		R: lerp(g.inner.R, g.outer.R, t),
		G: lerp(g.inner.G, g.outer.G, t),
		B: lerp(g.inner.B, g.outer.B, t),
		A: 0xff,
	}
}

func (c *canvas) background(cfg ImageConfig, rng *rand.Rand) {
	w, h := float64(cfg.Width), float64(cfg.Height)
	grad := &radialGradient{
		rect:  c.img.Bounds(),
		inner: rarityBackgrounds[cfg.Rarity][0],
		outer: rarityBackgrounds[cfg.Rarity][1],
		cx:    w / 2,
		cy:    h / 2,
		r:     w / 2,
	}
	draw.Draw(c.img, c.img.Bounds(), grad, image.Point{}, draw.Src)

	for i := 0; i < 50; i++ {
		speck := white
		speck.A = uint8(rng.Float64() * 0.05 * 255)
		c.fillRect(rng.Float64()*w, rng.Float64()*h, 2, 2, speck)
	}
}

func (c *canvas) weapon(cfg ImageConfig) {
	w, h := float64(cfg.Width), float64(cfg.Height)
	center := point{w / 2, h / 2}
	scale := math.Min(w, h) / 400
	tier := float64(cfg.Tier)

	metal := tierColors[min(max(int(cfg.Tier)-1, 0)/2, len(tierColors)-1)]
	lw := 2 * scale

	switch cfg.WeaponType {
	case Sword:
		length := 120 * scale * (1 + tier*0.1)
		width := 20 * scale
		blade := translate(center,
			point{0, -length / 2},
			point{-width / 2, length / 4},
			point{-width / 4, length / 2},
			point{width / 4, length / 2},
			point{width / 2, length / 4},
		)
		c.fillPolygon(blade, metal)
		c.strokePolygon(blade, lw, outline)

		c.fillRect(center.x-width/3, center.y+length/2, width/1.5, length/6, handleBrown)
		c.strokeRect(center.x-width/3, center.y+length/2, width/1.5, length/6, lw, outline)
		c.fillRect(center.x-width, center.y+length/4, width*2, width/3, guardGrey)
		c.strokeRect(center.x-width, center.y+length/4, width*2, width/3, lw, outline)

	case Bow:
		size := 100 * scale * (1 + tier*0.08)
		c.strokeArc(center, size, 0.2*math.Pi, 0.8*math.Pi, 8*scale+2*lw, outline)
		c.strokeArc(center, size, 0.2*math.Pi, 0.8*math.Pi, 8*scale, metal)

		top := point{center.x - size*0.7, center.y - size*0.7}
		bottom := point{center.x - size*0.7, center.y + size*0.7}
		c.strokeLine(top, bottom, lw, bowString)
		c.fillCircle(point{center.x - size*0.7, center.y}, 4*scale, handleBrown)

	case Axe:
		handle := 100 * scale * (1 + tier*0.1)
		bladeWidth := 60 * scale
		c.fillRect(center.x-5*scale, center.y-handle/2, 10*scale, handle, handleBrown)
		c.strokeRect(center.x-5*scale, center.y-handle/2, 10*scale, handle, lw, outline)

		blade := translate(center,
			point{5 * scale, -handle / 4},
			point{bladeWidth, -handle / 6},
			point{bladeWidth, handle / 6},
			point{5 * scale, handle / 4},
		)
		c.fillPolygon(blade, metal)
		c.strokePolygon(blade, lw, outline)
	}
}

func (c *canvas) rarityEffects(cfg ImageConfig, rng *rand.Rand) {
	w, h := float64(cfg.Width), float64(cfg.Height)

	switch cfg.Rarity {
	case Legendary:
		for i := 0; i < 20; i++ {
			at := point{rng.Float64() * w, rng.Float64() * h}
			size := rng.Float64()*3 + 1
			rot := rng.Float64() * math.Pi

			star := make([]point, 8)
			for k := range star {
				r := size
				if k%2 == 1 {
					r = size * 0.3 * math.Sqrt2
				}
				a := rot + float64(k)*math.Pi/4 - math.Pi/2
				star[k] = point{at.x + r*math.Cos(a), at.y + r*math.Sin(a)}
			}
			c.fillPolygon(star, sparkleGold)
		}
	case Epic:
		// Soft halo around the weapon: nested rings stack towards the
		// middle of the band.
		const rings = 8
		center := point{w / 2, h / 2}
		radius := math.Min(w, h) * 0.38
		band := 20 * math.Min(w, h) / 400
		glow := epicGlow
		glow.A = 14
		for i := 1; i <= rings; i++ {
			d := band * float64(i) / rings
			c.fillRing(center, radius-d, radius+d, glow)
		}
	}
}

func (c *canvas) statsOverlay(cfg ImageConfig) {
	const padding, lineHeight = 20, 14
	h := cfg.Height
	face := basicfont.Face7x13

	c.text(fmt.Sprintf("Tier %d", cfg.Tier), padding, padding+lineHeight, face, white)
	c.text(cfg.Rarity.String(), padding, h-padding-lineHeight*2, face, rarityInks[cfg.Rarity])

	lines := []string{
		fmt.Sprintf("DMG: %d", cfg.Stats.Damage),
		fmt.Sprintf("DUR: %d", cfg.Stats.Durability),
		fmt.Sprintf("SPD: %d", cfg.Stats.Speed),
	}
	for i, line := range lines {
		y := h - padding - lineHeight*(2-i) + lineHeight/2
		x := cfg.Width - padding - font.MeasureString(face, line).Ceil()
		c.text(line, x, y, face, white)
	}
}

// text draws s with a one pixel black outline, baseline at (x, y).
func (c *canvas) text(s string, x, y int, face font.Face, col color.NRGBA) {
	d := &font.Drawer{Dst: c.img, Face: face}
	d.Src = image.NewUniform(outline)
	for _, off := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		d.Dot = fixed.P(x+off[0], y+off[1])
		d.DrawString(s)
	}
	d.Src = image.NewUniform(col)
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// begin resets the rasterizer for a new path.
func (c *canvas) begin() {
	b := c.img.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
}

// fill composites the current path over the image.
func (c *canvas) fill(col color.NRGBA) {
	c.z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// clamp keeps path coordinates on the canvas.
func (c *canvas) clamp(p point) (float32, float32) {
	b := c.img.Bounds()
	x := math.Max(0, math.Min(float64(b.Dx()), p.x))
	y := math.Max(0, math.Min(float64(b.Dy()), p.y))
	return float32(x), float32(y)
}

func (c *canvas) moveTo(p point) { c.z.MoveTo(c.clamp(p)) }
func (c *canvas) lineTo(p point) { c.z.LineTo(c.clamp(p)) }

// polygon adds a closed subpath through pts.
func (c *canvas) polygon(pts []point) {
	c.moveTo(pts[0])
	for _, p := range pts[1:] {
		c.lineTo(p)
	}
	c.z.ClosePath()
}

// arcTo continues the path along the circle around at from angle a0 to a1,
// one cubic per quarter turn at most.  The pen must sit on the arc start.
func (c *canvas) arcTo(at point, r, a0, a1 float64) {
	n := int(math.Ceil(math.Abs(a1-a0) / (math.Pi / 2)))
	if n == 0 {
		return
	}
	step := (a1 - a0) / float64(n)
	k := 4.0 / 3 * math.Tan(step/4) * r
	for i := 0; i < n; i++ {
		s, e := a0+float64(i)*step, a0+float64(i+1)*step
		p0 := point{at.x + r*math.Cos(s), at.y + r*math.Sin(s)}
		p3 := point{at.x + r*math.Cos(e), at.y + r*math.Sin(e)}
		bx, by := c.clamp(point{p0.x - k*math.Sin(s), p0.y + k*math.Cos(s)})
		cx, cy := c.clamp(point{p3.x + k*math.Sin(e), p3.y - k*math.Cos(e)})
		dx, dy := c.clamp(p3)
		c.z.CubeTo(bx, by, cx, cy, dx, dy)
	}
}

func (c *canvas) circle(at point, r float64, reverse bool) {
	a0, a1 := 0.0, 2*math.Pi
	if reverse {
		a0, a1 = a1, a0
	}
	c.moveTo(point{at.x + r*math.Cos(a0), at.y + r*math.Sin(a0)})
	c.arcTo(at, r, a0, a1)
	c.z.ClosePath()
}

func (c *canvas) fillRect(x, y, w, h float64, col color.NRGBA) {
	c.fillPolygon([]point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}, col)
}

func (c *canvas) strokeRect(x, y, w, h, lw float64, col color.NRGBA) {
	c.strokePolygon([]point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}, lw, col)
}

func (c *canvas) fillCircle(at point, r float64, col color.NRGBA) {
	c.begin()
	c.circle(at, r, false)
	c.fill(col)
}

// fillRing fills the annulus between r0 and r1.  The inner circle winds
// against the outer one, which cuts the hole.
func (c *canvas) fillRing(at point, r0, r1 float64, col color.NRGBA) {
	c.begin()
	c.circle(at, r1, false)
	if r0 > 0 {
		c.circle(at, r0, true)
	}
	c.fill(col)
}

// strokeArc draws the clockwise arc from start to end (screen angles).
func (c *canvas) strokeArc(at point, r, start, end, lw float64, col color.NRGBA) {
	outer, inner := r+lw/2, math.Max(0, r-lw/2)
	c.begin()
	c.moveTo(point{at.x + outer*math.Cos(start), at.y + outer*math.Sin(start)})
	c.arcTo(at, outer, start, end)
	c.lineTo(point{at.x + inner*math.Cos(end), at.y + inner*math.Sin(end)})
	c.arcTo(at, inner, end, start)
	c.z.ClosePath()
	c.fill(col)
}

func (c *canvas) strokeLine(a, b point, lw float64, col color.NRGBA) {
	c.begin()
	c.segment(a, b, lw)
	c.fill(col)
}

func (c *canvas) strokePolygon(pts []point, lw float64, col color.NRGBA) {
	c.begin()
	for i := range pts {
		c.segment(pts[i], pts[(i+1)%len(pts)], lw)
	}
	c.fill(col)
}

func (c *canvas) fillPolygon(pts []point, col color.NRGBA) {
	c.begin()
	c.polygon(pts)
	c.fill(col)
}

// segment adds the outline of a square-capped line from a to b.  All
// segments wind the same way so overlapping joins add up instead of
// cancelling.
func (c *canvas) segment(a, b point, lw float64) {
	dx, dy := b.x-a.x, b.y-a.y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	ux, uy := dx/l*lw/2, dy/l*lw/2
	nx, ny := -uy, ux
	c.polygon([]point{
		{a.x - ux + nx, a.y - uy + ny},
		{b.x + ux + nx, b.y + uy + ny},
		{b.x + ux - nx, b.y + uy - ny},
		{a.x - ux - nx, a.y - uy - ny},
	})
}

func translate(origin point, pts ...point) []point {
	out := make([]point, len(pts))
	for i, p := range pts {
		out[i] = point{origin.x + p.x, origin.y + p.y}
	}
	return out
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

func hex(rgb uint32) color.NRGBA {
	return color.NRGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xff}
}
