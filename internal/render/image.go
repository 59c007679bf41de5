package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/chess-coach/internal/board"
)

const (
	DefaultSquareSize = 64
	minSquareSize     = 16
	maxSquareSize     = 160
)

// Options controls the board diagram.
type Options struct {
	SquareSize int
	// LastMove, when set, is highlighted: squares tinted for a white move,
	// an arrow for a black one.
	LastMove *board.Move
	// Flip draws the board from black's side.
	Flip bool
}

// RenderPNG draws pos as a PNG diagram with coordinates around the board.
func RenderPNG(ctx context.Context, pos *board.Position, opts Options) ([]byte, error) {
	if pos == nil {
		return nil, errors.New("render: position is nil")
	}
	size := opts.SquareSize
	if size == 0 {
		size = DefaultSquareSize
	}
	if size < minSquareSize || size > maxSquareSize {
		return nil, fmt.Errorf("render: square size %d outside [%d, %d]", size, minSquareSize, maxSquareSize)
	}

	margin := size / 2
	boardSize := size * 8
	origin := image.Point{X: margin, Y: margin}
	g := geometry{size: size, origin: origin, flip: opts.Flip}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, boardSize+margin*2, boardSize+margin*2))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(frameColor), image.Point{}, imagedraw.Src)

	drawSquares(img, g)
	if opts.LastMove != nil {
		drawHighlight(img, pos, *opts.LastMove, g)
	}
	if err := drawPieces(img, pos, g); err != nil {
		return nil, err
	}
	drawCoordinates(img, g, margin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	frameColor          = color.RGBA{48, 46, 43, 255}
	whiteMoveFill       = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow      = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveArrow    = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	coordinateTextColor = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
)

type geometry struct {
	size   int
	origin image.Point
	flip   bool
}

// cell maps a square to its column and row on screen.
func (g geometry) cell(sq board.Square) (col, row int) {
	col, row = sq.File(), 7-sq.Rank()
	if g.flip {
		col, row = 7-col, 7-row
	}
	return col, row
}

func (g geometry) rect(sq board.Square) image.Rectangle {
	col, row := g.cell(sq)
	x := g.origin.X + col*g.size
	y := g.origin.Y + row*g.size
	return image.Rect(x, y, x+g.size, y+g.size)
}

func (g geometry) center(sq board.Square) pointF {
	r := g.rect(sq)
	return pointF{X: float64(r.Min.X) + float64(g.size)/2, Y: float64(r.Min.Y) + float64(g.size)/2}
}

func drawSquares(dst imagedraw.Image, g geometry) {
	for sq := board.Square(0); sq < 64; sq++ {
		imagedraw.Draw(dst, g.rect(sq), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
	}
}

func drawPieces(dst imagedraw.Image, pos *board.Position, g geometry) error {
	for sq := board.Square(0); sq < 64; sq++ {
		piece := pos.At(sq)
		if piece == board.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, g.size)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, g.rect(sq), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawHighlight reads the mover from the board as drawn, which is normally
// the position after the move.
func drawHighlight(img *image.RGBA, pos *board.Position, m board.Move, g geometry) {
	if m.From == m.To || m.From == board.NoSquare || m.To == board.NoSquare {
		return
	}
	mover := pos.At(m.To)
	if mover == board.NoPiece {
		mover = pos.At(m.From)
	}
	switch {
	case mover == board.NoPiece:
		drawArrow(img, m.From, m.To, g, neutralMoveArrow)
	case mover.Color() == board.White:
		drawSquareOverlay(img, g.rect(m.From), whiteMoveFill)
		drawSquareOverlay(img, g.rect(m.To), whiteMoveFill)
	default:
		drawArrow(img, m.From, m.To, g, blackMoveArrow)
	}
}

func drawSquareOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, from, to board.Square, g geometry, clr color.Color) {
	start, end := g.center(from), g.center(to)
	dx, dy := end.X-start.X, end.Y-start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	size := float64(g.size)
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - size*0.45
	if baseLength < size*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := size * 0.12
	headWidth := size * 0.32

	baseX := start.X + dirX*baseLength
	baseY := start.Y + dirY*baseLength

	fillQuad(img,
		pointF{start.X - perpX*halfWidth, start.Y - perpY*halfWidth},
		pointF{start.X + perpX*halfWidth, start.Y + perpY*halfWidth},
		pointF{baseX + perpX*halfWidth, baseY + perpY*halfWidth},
		pointF{baseX - perpX*halfWidth, baseY - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		end,
		pointF{baseX - perpX*headWidth/2, baseY - perpY*headWidth/2},
		pointF{baseX + perpX*headWidth/2, baseY + perpY*headWidth/2},
		clr,
	)
}

func drawCoordinates(dst imagedraw.Image, g geometry, margin int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEnd := g.origin.Y + 8*g.size

	for i := 0; i < 8; i++ {
		// Rank labels sit left of the a-file (or h-file when flipped).
		sq := board.NewSquare(0, i)
		if g.flip {
			sq = board.NewSquare(7, i)
		}
		c := g.center(sq)
		drawCenteredText(drawer, string(sq.RankDigit()), g.origin.X-margin/2, int(c.Y)+ascent/2)

		sq = board.NewSquare(i, 0)
		if g.flip {
			sq = board.NewSquare(i, 7)
		}
		c = g.center(sq)
		drawCenteredText(drawer, string(sq.FileLetter()), int(c.X), boardEnd+(margin+ascent)/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareColor(sq board.Square) color.Color {
	if (sq.File()+sq.Rank())%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

type pointF struct {
	X float64
	Y float64
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}

// blendPixel composites clr over the pixel at (x, y); the board is opaque so
// straight source-over on 8-bit channels is enough.
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xffff - sa
	mix := func(s uint32, d uint8) uint8 {
		return uint8((s + uint32(d)*0x101*inv/0xffff) >> 8)
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(sr, dst.R),
		G: mix(sg, dst.G),
		B: mix(sb, dst.B),
		A: mix(sa, dst.A),
	})
}
