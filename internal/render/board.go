// Package render draws a position as a PNG board image.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Highlight marks a move by its UCI squares, e.g. From "e2", To "e4".
type Highlight struct {
	From string
	To   string
}

type Options struct {
	// Flip draws the board from black's side.
	Flip       bool
	PlayerMove *Highlight
	ReplyMove  *Highlight
	Header     string
	Footer     string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, fen string, opts Options) ([]byte, error)
}

const (
	squareSize   = 60
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	sideMargin   = 28
	topMargin    = 52
	bottomMargin = 56
	panelPadding = 10
)

var (
	lightSquare       = color.RGBA{233, 207, 163, 255}
	darkSquare        = color.RGBA{187, 136, 96, 255}
	backgroundColor   = color.RGBA{24, 26, 38, 255}
	playerMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	replyArrowColor   = color.NRGBA{R: 148, G: 207, B: 255, A: 190}
	panelColor        = color.NRGBA{R: 36, G: 40, B: 58, A: 255}
	panelTextColor    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateColor   = color.NRGBA{R: 190, G: 196, B: 220, A: 255}
	footerTextColor   = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	ranksTopToBottom  = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	filesLeftToRight  = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
	defaultFontFace   = basicfont.Face7x13
	boardPixelsOrigin = image.Point{X: sideMargin, Y: topMargin}
)

type PNGRenderer struct{}

func NewPNGRenderer() *PNGRenderer { return &PNGRenderer{} }

func (r *PNGRenderer) RenderPNG(ctx context.Context, fen string, opts Options) ([]byte, error) {
	board, err := boardFromFEN(fen)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, opts.Flip)
	if opts.PlayerMove != nil {
		for _, name := range []string{opts.PlayerMove.From, opts.PlayerMove.To} {
			if sq, ok := parseSquare(name); ok {
				drawSquareOverlay(img, sq, opts.Flip, playerMoveFill)
			}
		}
	}
	if err := drawPieces(img, board, opts.Flip); err != nil {
		return nil, err
	}
	if opts.ReplyMove != nil {
		from, okFrom := parseSquare(opts.ReplyMove.From)
		to, okTo := parseSquare(opts.ReplyMove.To)
		if okFrom && okTo {
			drawArrow(img, squareCenter(from, opts.Flip), squareCenter(to, opts.Flip), replyArrowColor)
		}
	}
	drawCoordinates(img, opts.Flip)
	drawPanel(img, image.Rect(sideMargin, 10, sideMargin+boardSize, topMargin-10), opts.Header, panelTextColor)
	footerTop := topMargin + boardSize + 24
	drawPanel(img, image.Rect(sideMargin, footerTop, sideMargin+boardSize, footerTop+24), opts.Footer, footerTextColor)

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

func boardFromFEN(fen string) (*nchess.Board, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nchess.NewGame().Position().Board(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return nchess.NewGame(opt).Position().Board(), nil
}

func parseSquare(name string) (nchess.Square, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 2 {
		return 0, false
	}
	file := int(name[0]) - 'a'
	rank := int(name[1]) - '1'
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, false
	}
	return nchess.NewSquare(nchess.File(file), nchess.Rank(rank)), true
}

func squareRect(sq nchess.Square, flip bool) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	if flip {
		col = 7 - col
		row = 7 - row
	}
	x := boardPixelsOrigin.X + col*squareSize
	y := boardPixelsOrigin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareCenter(sq nchess.Square, flip bool) image.Point {
	rect := squareRect(sq, flip)
	return image.Point{X: rect.Min.X + squareSize/2, Y: rect.Min.Y + squareSize/2}
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawSquares(dst imagedraw.Image, flip bool) {
	for _, rank := range ranksTopToBottom {
		for _, file := range filesLeftToRight {
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, squareRect(sq, flip), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, flip bool) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, flip), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, sq nchess.Square, flip bool, clr color.Color) {
	imagedraw.Draw(img, squareRect(sq, flip), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

// drawArrow fills a shaft and head polygon from start to end.
func drawArrow(img *image.RGBA, start, end image.Point, clr color.Color) {
	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	halfWidth := float64(squareSize) * 0.09
	headHalf := float64(squareSize) * 0.22
	headLength := float64(squareSize) * 0.38
	if headLength > length*0.6 {
		headLength = length * 0.6
	}
	baseX := float64(end.X) - dirX*headLength
	baseY := float64(end.Y) - dirY*headLength
	sx, sy := float64(start.X), float64(start.Y)

	bounds := img.Bounds()
	scanner := rasterx.NewScannerGV(bounds.Dx(), bounds.Dy(), img, bounds)
	filler := rasterx.NewFiller(bounds.Dx(), bounds.Dy(), scanner)
	filler.SetColor(clr)

	filler.Start(rasterx.ToFixedP(sx-perpX*halfWidth, sy-perpY*halfWidth))
	filler.Line(rasterx.ToFixedP(baseX-perpX*halfWidth, baseY-perpY*halfWidth))
	filler.Line(rasterx.ToFixedP(baseX-perpX*headHalf, baseY-perpY*headHalf))
	filler.Line(rasterx.ToFixedP(float64(end.X), float64(end.Y)))
	filler.Line(rasterx.ToFixedP(baseX+perpX*headHalf, baseY+perpY*headHalf))
	filler.Line(rasterx.ToFixedP(baseX+perpX*halfWidth, baseY+perpY*halfWidth))
	filler.Line(rasterx.ToFixedP(sx+perpX*halfWidth, sy+perpY*halfWidth))
	filler.Stop(true)
	filler.Draw()
}

func drawCoordinates(img *image.RGBA, flip bool) {
	drawer := &font.Drawer{Dst: img, Face: defaultFontFace, Src: image.NewUniform(coordinateColor)}
	ascent := defaultFontFace.Metrics().Ascent.Ceil()
	for _, rank := range ranksTopToBottom {
		rect := squareRect(nchess.NewSquare(nchess.FileA, rank), flip)
		drawCenteredText(drawer, rank.String(), sideMargin/2, rect.Min.Y+squareSize/2+ascent/2)
	}
	for _, file := range filesLeftToRight {
		rect := squareRect(nchess.NewSquare(file, nchess.Rank1), flip)
		drawCenteredText(drawer, file.String(), rect.Min.X+squareSize/2, topMargin+boardSize+ascent+4)
	}
}

func drawPanel(img *image.RGBA, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	imagedraw.Draw(img, rect, image.NewUniform(panelColor), image.Point{}, imagedraw.Over)
	drawer := &font.Drawer{Dst: img, Face: defaultFontFace, Src: image.NewUniform(clr)}
	text = truncateWithEllipsis(defaultFontFace, text, rect.Dx()-panelPadding*2)
	metrics := defaultFontFace.Metrics()
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Dot = fixed.P(rect.Min.X+panelPadding, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	drawer := font.Drawer{Face: face}
	if maxWidth <= 0 || drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return "..."
}
