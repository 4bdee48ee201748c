// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package render draws a minimal top-down plot of a topology's node
// positions and bridge membership to a PNG file. This is intentionally
// the thinnest component in the repository: no ray-traced paths, no
// per-link coloring by MCS, just node dots and a cross on each bridge-group
// member, since
// no example repo in the pack ships a 2-D graphics library to build on.
package render

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/openthread/sine/types"
)

const (
	marginPx    = 40
	nodeRadiusPx = 5
)

var (
	colorBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorNode       = color.RGBA{R: 20, G: 90, B: 200, A: 255}
	colorBridge     = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// ToFile renders topo's node positions to a width x height PNG at path,
// scaled to fit with a fixed margin.
func ToFile(topo *types.Topology, width, height int, path string) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill(img, colorBackground)

	positions := make(map[types.NodeId]types.Position, len(topo.Nodes))
	for name, n := range topo.Nodes {
		positions[name] = n.Position
	}
	minX, minY, maxX, maxY := bounds(positions)
	project := projector(minX, minY, maxX, maxY, width, height)

	for _, name := range topo.Bridge.Nodes {
		pos, ok := positions[name]
		if !ok {
			continue
		}
		px, py := project(pos.X, pos.Y)
		drawCross(img, px, py, colorBridge)
	}
	for _, pos := range positions {
		px, py := project(pos.X, pos.Y)
		drawDisc(img, px, py, nodeRadiusPx, colorNode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func fill(img *image.RGBA, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func bounds(positions map[types.NodeId]types.Position) (minX, minY, maxX, maxY float64) {
	first := true
	for _, p := range positions {
		if first {
			minX, maxX = p.X, p.X
			minY, maxY = p.Y, p.Y
			first = false
			continue
		}
		minX, maxX = minf(minX, p.X), maxf(maxX, p.X)
		minY, maxY = minf(minY, p.Y), maxf(maxY, p.Y)
	}
	if first {
		return 0, 0, 1, 1
	}
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}
	return minX, minY, maxX, maxY
}

// projector returns a function mapping a (x, y) metre coordinate into
// pixel space, preserving aspect ratio within the margin.
func projector(minX, minY, maxX, maxY float64, width, height int) func(x, y float64) (int, int) {
	spanX := maxX - minX
	spanY := maxY - minY
	usableW := float64(width - 2*marginPx)
	usableH := float64(height - 2*marginPx)
	scale := minf(usableW/spanX, usableH/spanY)
	return func(x, y float64) (int, int) {
		px := marginPx + int((x-minX)*scale)
		py := marginPx + int((y-minY)*scale)
		return px, py
	}
}

func drawDisc(img *image.RGBA, cx, cy, r int, c color.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				setIfInBounds(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func drawCross(img *image.RGBA, cx, cy int, c color.Color) {
	const arm = 3
	for d := -arm; d <= arm; d++ {
		setIfInBounds(img, cx+d, cy, c)
		setIfInBounds(img, cx, cy+d, c)
	}
}

func setIfInBounds(img *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
