// Package pdftest builds small PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

type Page struct {
	MediaBox [4]float64
	CropBox  *[4]float64
	Rotate   int
}

func Letter(rotate int) Page {
	return Page{MediaBox: [4]float64{0, 0, 612, 792}, Rotate: rotate}
}

// Build writes a well-formed PDF with a classic xref table and one stroked
// line of content per page.
func Build(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}
	box := func(b [4]float64) string {
		return fmt.Sprintf("[%g %g %g %g]", b[0], b[1], b[2], b[3])
	}

	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	var kids strings.Builder
	for i := range pages {
		fmt.Fprintf(&kids, "%d 0 R ", 3+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(pages)))

	for i, p := range pages {
		dict := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox %s /Resources << >> /Contents %d 0 R", box(p.MediaBox), 4+2*i)
		if p.CropBox != nil {
			dict += " /CropBox " + box(*p.CropBox)
		}
		if p.Rotate != 0 {
			dict += fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		obj(dict + " >>")

		content := "0 0 m 100 100 l S"
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}
