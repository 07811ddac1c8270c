// Package pdfdoc decodes PDF files into page geometry for the cropper and
// writes the cropped geometry back, leaving page content untouched.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdfcrop/cropper"
	pdftypes "pdfcrop/types"
)

var (
	ErrMalformedInput = errors.New("malformed PDF")
	ErrEncode         = errors.New("failed to write PDF")
)

// File is a decoded PDF together with the page geometry extracted from it.
type File struct {
	ctx *model.Context
	doc *cropper.Document
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func Decode(rs io.ReadSeeker) (*File, error) {
	ctx, err := api.ReadValidateAndOptimize(rs, newConfiguration())
	if err != nil {
		if rotErr := unsupportedRotation(rs); rotErr != nil {
			return nil, rotErr
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	doc := &cropper.Document{Pages: make([]*cropper.Page, 0, ctx.PageCount)}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		_, _, inh, err := ctx.PageDict(pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrMalformedInput, pageNr, err)
		}
		if inh == nil {
			return nil, fmt.Errorf("%w: page %d: missing page dictionary", ErrMalformedInput, pageNr)
		}

		// The visible area is the crop box when present, the media box otherwise.
		box := inh.CropBox
		if box == nil {
			box = inh.MediaBox
		}
		if box == nil {
			return nil, fmt.Errorf("%w: page %d: no page box", ErrMalformedInput, pageNr)
		}

		doc.Pages = append(doc.Pages, &cropper.Page{
			Box:      cropper.NewRect(box.LL.X, box.LL.Y, box.UR.X, box.UR.Y),
			Rotation: inh.Rotate,
		})
	}

	return &File{ctx: ctx, doc: doc}, nil
}

// unsupportedRotation rereads rs without validation and reports the first
// page whose effective /Rotate is off the 90 degree grid. Validation rejects
// such a file as a whole, so this is the only place the page is known.
func unsupportedRotation(rs io.ReadSeeker) *cropper.UnsupportedRotationError {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	ctx, err := api.ReadContext(rs, newConfiguration())
	if err != nil {
		return nil
	}
	root, err := ctx.Pages()
	if err != nil || root == nil {
		return nil
	}

	pageNr := 0
	var walk func(obj types.Object, rotate, depth int) *cropper.UnsupportedRotationError
	walk = func(obj types.Object, rotate, depth int) *cropper.UnsupportedRotationError {
		if depth > maxPageTreeDepth {
			return nil
		}
		d, err := ctx.DereferenceDict(obj)
		if err != nil || d == nil {
			return nil
		}
		if v, ok := rotateEntry(ctx, d); ok {
			rotate = v
		}

		kids := d.ArrayEntry("Kids")
		if kids == nil {
			pageNr++
			if _, err := cropper.NormalizeRotation(rotate); err != nil {
				return &cropper.UnsupportedRotationError{Page: pageNr, Degrees: rotate}
			}
			return nil
		}
		for _, kid := range kids {
			if rotErr := walk(kid, rotate, depth+1); rotErr != nil {
				return rotErr
			}
		}
		return nil
	}

	return walk(*root, 0, 0)
}

const maxPageTreeDepth = 64

func rotateEntry(ctx *model.Context, d types.Dict) (int, bool) {
	obj, found := d.Find("Rotate")
	if !found {
		return 0, false
	}
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return 0, false
	}
	switch v := obj.(type) {
	case types.Integer:
		return v.Value(), true
	case types.Float:
		return int(v.Value()), true
	}
	return 0, false
}

func (f *File) Document() *cropper.Document {
	return f.doc
}

func (f *File) PageCount() int {
	return len(f.doc.Pages)
}

// Encode writes the current page boxes into /MediaBox and /CropBox of every
// page and serializes the document. /Rotate, contents and resources are not
// touched.
func (f *File) Encode(w io.Writer) error {
	for i, p := range f.doc.Pages {
		pageDict, _, _, err := f.ctx.PageDict(i+1, false)
		if err != nil {
			return fmt.Errorf("%w: page %d: %w", ErrEncode, i+1, err)
		}
		if pageDict == nil {
			return fmt.Errorf("%w: page %d: missing page dictionary", ErrEncode, i+1)
		}

		box := types.NewRectangle(p.Box.LLX, p.Box.LLY, p.Box.URX, p.Box.URY)
		pageDict["MediaBox"] = box.Array()
		pageDict["CropBox"] = box.Array()
	}

	if err := api.WriteContext(f.ctx, w); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return nil
}

// Crop decodes rs, crops every page by m and writes the result to w. Nothing
// is written unless every page could be cropped.
func Crop(rs io.ReadSeeker, w io.Writer, m pdftypes.MarginSpec) (int, error) {
	f, err := Decode(rs)
	if err != nil {
		return 0, err
	}
	if err := cropper.Crop(f.Document(), m); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := f.Encode(&buf); err != nil {
		return 0, err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return f.PageCount(), nil
}

func CropBytes(data []byte, m pdftypes.MarginSpec) ([]byte, error) {
	var out bytes.Buffer
	if _, err := Crop(bytes.NewReader(data), &out, m); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// CropFile crops inputPath into outputPath. outputPath is only created once
// the cropped document has been produced in memory.
func CropFile(inputPath, outputPath string, m pdftypes.MarginSpec) (int, error) {
	var buf bytes.Buffer
	pages, err := CropFileTo(inputPath, &buf, m)
	if err != nil {
		return 0, err
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return pages, nil
}

// CropFileTo crops inputPath into w. Nothing is written to w on failure.
func CropFileTo(inputPath string, w io.Writer, m pdftypes.MarginSpec) (int, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	return Crop(in, w, m)
}
