package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/chess-coach/internal/board"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

type pieceCacheKey struct {
	piece board.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

type glyphPalette struct {
	fill, stroke string
}

var palettes = [2]glyphPalette{
	board.White: {fill: "#f8f8f8", stroke: "#1e1e1e"},
	board.Black: {fill: "#2b2b2b", stroke: "#0a0a0a"},
}

func renderPieceImage(piece board.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	name := pieceAssetName(piece.Type())
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(colorize(data, palettes[piece.Color()])))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

// Glyphs are shared between colours; placeholders carry the palette.
func colorize(svg []byte, p glyphPalette) []byte {
	out := bytes.ReplaceAll(svg, []byte("{{fill}}"), []byte(p.fill))
	return bytes.ReplaceAll(out, []byte("{{stroke}}"), []byte(p.stroke))
}

func pieceAssetName(t board.PieceType) string {
	return fmt.Sprintf("assets/pieces/%c.svg", t.Letter())
}
