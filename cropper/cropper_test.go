package cropper

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"pdfcrop/types"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func mustSpec(t *testing.T, top, right, bottom, left float64) types.MarginSpec {
	t.Helper()
	m, err := types.NewMarginSpec(top, right, bottom, left)
	if err != nil {
		t.Fatalf("NewMarginSpec(%g, %g, %g, %g) error = %v", top, right, bottom, left, err)
	}
	return m
}

func letter(rotation int) *Page {
	return &Page{Box: NewRect(0, 0, 612, 792), Rotation: rotation}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in      int
		want    Rotation
		wantErr bool
	}{
		{0, Rotate0, false},
		{90, Rotate90, false},
		{180, Rotate180, false},
		{270, Rotate270, false},
		{360, Rotate0, false},
		{450, Rotate90, false},
		{-90, Rotate270, false},
		{-180, Rotate180, false},
		{720, Rotate0, false},
		{45, 0, true},
		{-45, 0, true},
		{91, 0, true},
	}

	for _, tt := range tests {
		got, err := NormalizeRotation(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeRotation(%d) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedRotation) {
				t.Errorf("NormalizeRotation(%d) error = %v, want ErrUnsupportedRotation", tt.in, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeRotation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPhysicalMargins(t *testing.T) {
	m := types.MarginSpec{Top: 1, Right: 2, Bottom: 3, Left: 4}

	tests := []struct {
		rot  Rotation
		want Margins
	}{
		{Rotate0, Margins{Top: 1, Right: 2, Bottom: 3, Left: 4}},
		{Rotate90, Margins{Left: 1, Top: 2, Right: 3, Bottom: 4}},
		{Rotate180, Margins{Left: 2, Right: 4, Bottom: 1, Top: 3}},
		{Rotate270, Margins{Left: 3, Top: 4, Right: 1, Bottom: 2}},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, PhysicalMargins(m, tt.rot)); diff != "" {
			t.Errorf("PhysicalMargins(rot=%d) mismatch (-want +got):\n%s", tt.rot, diff)
		}
	}
}

func TestCropIdentity(t *testing.T) {
	doc := &Document{Pages: []*Page{letter(0), letter(90), letter(180), letter(270)}}
	want := NewRect(0, 0, 612, 792)

	if err := Crop(doc, types.MarginSpec{}); err != nil {
		t.Fatalf("Crop() error = %v", err)
	}
	for i, p := range doc.Pages {
		if diff := cmp.Diff(want, p.Box, approx); diff != "" {
			t.Errorf("page %d box changed (-want +got):\n%s", i+1, diff)
		}
	}
}

func TestCropRotationEquivariance(t *testing.T) {
	const W, H = 600.0, 800.0
	top, right, bottom, left := 10.0, 20.0, 5.0, 15.0
	m := mustSpec(t, top, right, bottom, left)

	tests := []struct {
		name     string
		rotation int
		want     Rect
	}{
		{"0", 0, NewRect(W*left/100, H*bottom/100, W-W*right/100, H-H*top/100)},
		{"90", 90, NewRect(W*top/100, H*left/100, W-W*bottom/100, H-H*right/100)},
		{"180", 180, NewRect(W*right/100, H*top/100, W-W*left/100, H-H*bottom/100)},
		{"270", 270, NewRect(W*bottom/100, H*right/100, W-W*top/100, H-H*left/100)},
		{"-270 behaves as 90", -270, NewRect(W*top/100, H*left/100, W-W*bottom/100, H-H*right/100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Page{Box: NewRect(0, 0, W, H), Rotation: tt.rotation}
			if err := CropPage(p, m); err != nil {
				t.Fatalf("CropPage() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, p.Box, approx); diff != "" {
				t.Errorf("box mismatch (-want +got):\n%s", diff)
			}
			if p.Rotation != tt.rotation {
				t.Errorf("rotation = %d, want %d", p.Rotation, tt.rotation)
			}
		})
	}
}

func TestCropRotated90Example(t *testing.T) {
	p := &Page{Box: NewRect(0, 0, 600, 800), Rotation: 90}
	doc := &Document{Pages: []*Page{p}}

	if err := Crop(doc, mustSpec(t, 10, 20, 5, 15)); err != nil {
		t.Fatalf("Crop() error = %v", err)
	}

	// left 60 (top 10%), top 160 (right 20%), right 30 (bottom 5%), bottom 120 (left 15%)
	want := NewRect(60, 120, 570, 640)
	if diff := cmp.Diff(want, p.Box, approx); diff != "" {
		t.Errorf("box mismatch (-want +got):\n%s", diff)
	}
}

func TestCropMonotonic(t *testing.T) {
	smaller := mustSpec(t, 5, 0, 10, 2)
	larger := mustSpec(t, 5, 12, 30, 2)

	for _, rot := range []int{0, 90, 180, 270} {
		a, b := letter(rot), letter(rot)
		if err := CropPage(a, smaller); err != nil {
			t.Fatalf("CropPage() error = %v", err)
		}
		if err := CropPage(b, larger); err != nil {
			t.Fatalf("CropPage() error = %v", err)
		}
		if !a.Box.Contains(b.Box) {
			t.Errorf("rotation %d: %v does not contain %v", rot, a.Box, b.Box)
		}
	}
}

func TestCropDegenerateBox(t *testing.T) {
	p := letter(0)
	if err := CropPage(p, mustSpec(t, 0, 50, 0, 50)); err != nil {
		t.Fatalf("CropPage() error = %v", err)
	}
	if w := p.Box.Width(); w > 1e-9 || w < -1e-9 {
		t.Errorf("width = %g, want 0", w)
	}
	if h := p.Box.Height(); h != 792 {
		t.Errorf("height = %g, want 792", h)
	}
}

func TestCropCompoundsOnRepeat(t *testing.T) {
	m := mustSpec(t, 10, 10, 10, 10)

	twice := &Page{Box: NewRect(0, 0, 1000, 1000)}
	for range 2 {
		if err := CropPage(twice, m); err != nil {
			t.Fatalf("CropPage() error = %v", err)
		}
	}

	once := &Page{Box: NewRect(0, 0, 1000, 1000)}
	if err := CropPage(once, m); err != nil {
		t.Fatalf("CropPage() error = %v", err)
	}

	// 1000 -> 800 -> 640, inset 100 then 80 on each side.
	want := NewRect(180, 180, 820, 820)
	if diff := cmp.Diff(want, twice.Box, approx); diff != "" {
		t.Errorf("twice mismatch (-want +got):\n%s", diff)
	}
	if !once.Box.Contains(twice.Box) || cmp.Equal(once.Box, twice.Box, approx) {
		t.Errorf("second crop did not shrink the box: once %v, twice %v", once.Box, twice.Box)
	}
}

func TestCropOffsetBox(t *testing.T) {
	p := &Page{Box: NewRect(100, 50, 300, 250)}
	if err := CropPage(p, mustSpec(t, 10, 10, 10, 10)); err != nil {
		t.Fatalf("CropPage() error = %v", err)
	}
	want := NewRect(120, 70, 280, 230)
	if diff := cmp.Diff(want, p.Box, approx); diff != "" {
		t.Errorf("box mismatch (-want +got):\n%s", diff)
	}
}

func TestCropUnsupportedRotationLeavesDocument(t *testing.T) {
	doc := &Document{Pages: []*Page{letter(0), letter(45), letter(90)}}
	before := []Rect{doc.Pages[0].Box, doc.Pages[1].Box, doc.Pages[2].Box}

	err := Crop(doc, mustSpec(t, 10, 10, 10, 10))
	if !errors.Is(err, ErrUnsupportedRotation) {
		t.Fatalf("Crop() error = %v, want ErrUnsupportedRotation", err)
	}

	var rerr *UnsupportedRotationError
	if !errors.As(err, &rerr) {
		t.Fatalf("Crop() error is %T, want *UnsupportedRotationError", err)
	}
	if rerr.Page != 2 || rerr.Degrees != 45 {
		t.Errorf("error = %+v, want page 2 with 45 degrees", rerr)
	}

	for i, p := range doc.Pages {
		if p.Box != before[i] {
			t.Errorf("page %d modified: %v, want %v", i+1, p.Box, before[i])
		}
	}
}
