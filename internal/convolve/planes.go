package convolve

// Channel indexes within Planes.
const (
	Red = iota
	Green
	Blue

	channels = 3
)

// Planes stores an RGB image channel-major in one flat buffer:
//
//	Index(c, x, y) = c*PlaneStride() + y*Width() + x
//	PlaneStride()  = Width() * Height()
//
// Every accessor is bounds checked by the slice it goes through.
type Planes struct {
	width  int
	height int
	pix    []uint8
}

// NewPlanes allocates zeroed planes. Non-positive dimensions give empty planes.
func NewPlanes(width, height int) *Planes {
	if width <= 0 || height <= 0 {
		return &Planes{}
	}
	return &Planes{
		width:  width,
		height: height,
		pix:    make([]uint8, channels*width*height),
	}
}

// PlanesOf copies src into planar form, scanning each pixel once.
func PlanesOf(src Source) *Planes {
	p := NewPlanes(src.Width(), src.Height())
	red, green, blue := p.Plane(Red), p.Plane(Green), p.Plane(Blue)

	for y := range p.height {
		row := y * p.width
		for x := range p.width {
			red[row+x], green[row+x], blue[row+x] = src.GetPixel(x, y)
		}
	}
	return p
}

func (p *Planes) Width() int  { return p.width }
func (p *Planes) Height() int { return p.height }

// PlaneStride is the distance between the same pixel in adjacent planes.
func (p *Planes) PlaneStride() int {
	return p.width * p.height
}

// Index returns the buffer offset of channel c at (x, y).
func (p *Planes) Index(c, x, y int) int {
	return c*p.PlaneStride() + y*p.width + x
}

// Plane returns channel c as a row-major slice of PlaneStride bytes.
func (p *Planes) Plane(c int) []uint8 {
	n := p.PlaneStride()
	return p.pix[c*n : (c+1)*n]
}

// Row returns row y of channel c, Width bytes long.
func (p *Planes) Row(c, y int) []uint8 {
	start := p.Index(c, 0, y)
	return p.pix[start : start+p.width]
}

// WriteTo interleaves the planes back into dst, every pixel included.
func (p *Planes) WriteTo(dst Canvas) {
	red, green, blue := p.Plane(Red), p.Plane(Green), p.Plane(Blue)

	for y := range p.height {
		row := y * p.width
		for x := range p.width {
			dst.SetPixel(x, y, red[row+x], green[row+x], blue[row+x])
		}
	}
}
