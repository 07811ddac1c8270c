// Package cropper maps visual page margins onto the physical page box of
// each page, taking the page's declared rotation into account.
package cropper

import (
	"errors"
	"fmt"

	"pdfcrop/types"
)

// ErrUnsupportedRotation is matched by every UnsupportedRotationError.
var ErrUnsupportedRotation = errors.New("unsupported page rotation")

// UnsupportedRotationError reports a page whose rotation is not a multiple
// of 90 degrees. Page is 1-based.
type UnsupportedRotationError struct {
	Page    int
	Degrees int
}

func (e *UnsupportedRotationError) Error() string {
	return fmt.Sprintf("page %d: rotation %d is not a multiple of 90 degrees", e.Page, e.Degrees)
}

func (e *UnsupportedRotationError) Unwrap() error {
	return ErrUnsupportedRotation
}

// Rotation is a clockwise page rotation reduced into [0, 360).
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// NormalizeRotation reduces degrees into [0, 360) and rejects anything off the
// 90 degree grid.
func NormalizeRotation(degrees int) (Rotation, error) {
	r := degrees % 360
	if r < 0 {
		r += 360
	}
	switch Rotation(r) {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return Rotation(r), nil
	}
	return 0, &UnsupportedRotationError{Degrees: degrees}
}

// Rect is an axis-aligned box in unrotated page space.
type Rect struct {
	LLX, LLY float64
	URX, URY float64
}

// NewRect builds a Rect from its lower-left and upper-right corners.
func NewRect(llx, lly, urx, ury float64) Rect {
	return Rect{LLX: llx, LLY: lly, URX: urx, URY: ury}
}

func (r Rect) Width() float64  { return r.URX - r.LLX }
func (r Rect) Height() float64 { return r.URY - r.LLY }

// Contains reports whether o lies inside r, edges included.
func (r Rect) Contains(o Rect) bool {
	return o.LLX >= r.LLX && o.LLY >= r.LLY && o.URX <= r.URX && o.URY <= r.URY
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", r.LLX, r.LLY, r.URX, r.URY)
}

type Page struct {
	Box      Rect
	Rotation int
}

type Document struct {
	Pages []*Page
}

// Margins are percentages in the physical (unrotated) frame.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// PhysicalMargins counter-rotates visual margins so that the visual top
// always trims the edge rendered uppermost.
func PhysicalMargins(m types.MarginSpec, r Rotation) Margins {
	switch r {
	case Rotate90:
		return Margins{Left: m.Top, Top: m.Right, Right: m.Bottom, Bottom: m.Left}
	case Rotate180:
		return Margins{Left: m.Right, Right: m.Left, Bottom: m.Top, Top: m.Bottom}
	case Rotate270:
		return Margins{Left: m.Bottom, Top: m.Left, Right: m.Top, Bottom: m.Right}
	default:
		return Margins{Top: m.Top, Right: m.Right, Bottom: m.Bottom, Left: m.Left}
	}
}

// Inset shrinks box by the physical margins, measured against box's own
// width and height.
func Inset(box Rect, pm Margins) Rect {
	w, h := box.Width(), box.Height()
	return Rect{
		LLX: box.LLX + w*pm.Left/100,
		LLY: box.LLY + h*pm.Bottom/100,
		URX: box.URX - w*pm.Right/100,
		URY: box.URY - h*pm.Top/100,
	}
}

// CropPage replaces the page box. The rotation is left as it is.
func CropPage(p *Page, m types.MarginSpec) error {
	r, err := NormalizeRotation(p.Rotation)
	if err != nil {
		return err
	}
	p.Box = Inset(p.Box, PhysicalMargins(m, r))
	return nil
}

// Crop applies m to every page of doc. Rotations are checked up front so a
// failing document is returned untouched.
//
// Margins are relative to the boxes as they are now: cropping twice
// compounds.
func Crop(doc *Document, m types.MarginSpec) error {
	rotations := make([]Rotation, len(doc.Pages))
	for i, p := range doc.Pages {
		r, err := NormalizeRotation(p.Rotation)
		if err != nil {
			var rerr *UnsupportedRotationError
			if errors.As(err, &rerr) {
				rerr.Page = i + 1
			}
			return err
		}
		rotations[i] = r
	}

	for i, p := range doc.Pages {
		p.Box = Inset(p.Box, PhysicalMargins(m, rotations[i]))
	}
	return nil
}
