// bmp package reads and writes the 24 bit bitmaps perflab filters
package bmp

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	sbmp "github.com/sergeymakinen/go-bmp"
	"golang.org/x/image/draw"

	"github.com/anas-shakeel/perflab/internal/utils"
)

var (
	ErrNotBitmap   = errors.New("invalid file: provided file is not a bitmap")
	ErrInvalidSize = errors.New("invalid size: width and height must be greater than 0")
)

type Pixel struct {
	B, G, R byte
}

// BitmapImage is a 24 bit image. Pixels[0] is the top row.
type BitmapImage struct {
	Filename string
	BFHeader *BitmapFileHeader
	BIHeader *BitmapInfoHeader
	Stride   int
	Padding  int
	Pixels   [][]Pixel
}

// Creates and returns a black bitmap image (24 bit uncompressed)
func CreateBitmap(width, height int) (*BitmapImage, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidSize, width, height)
	}

	bfh, bih := newHeaders(width, height)

	// Create the pixels 2d slice
	pixels := make([][]Pixel, height)
	for i := range height {
		pixels[i] = make([]Pixel, width)
	}

	stride := rowStride(width)
	return &BitmapImage{
		Stride:   stride,
		Padding:  stride - width*bytesPerPixel,
		BFHeader: &bfh,
		BIHeader: &bih,
		Pixels:   pixels,
	}, nil
}

// Reads a Bitmap file
func ReadBitmap(filename string) (*BitmapImage, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	b, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	b.Filename = filename
	return b, nil
}

// Decode reads a bitmap from r. 24 bit uncompressed files are read directly;
// any other bitmap flavour (paletted, 16/32 bit, RLE) goes through a generic
// decoder and is converted to 24 bit.
func Decode(r io.ReadSeeker) (*BitmapImage, error) {
	// Read File Header
	var bfHeader BitmapFileHeader
	if err := binary.Read(r, binary.LittleEndian, &bfHeader); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotBitmap, err)
	}
	if bfHeader.Type != signature {
		return nil, ErrNotBitmap
	}

	// READ Info Header OR (more commonly) DIB Header!
	var biHeader BitmapInfoHeader
	if err := binary.Read(r, binary.LittleEndian, &biHeader); err != nil {
		return nil, fmt.Errorf("%w: truncated info header: %w", ErrNotBitmap, err)
	}

	if biHeader.BitCount != 24 || biHeader.Compression != 0 || biHeader.Size < infoHeaderSize {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return decodeOther(r)
	}

	return decode24(r, bfHeader, biHeader)
}

func decode24(r io.ReadSeeker, bfHeader BitmapFileHeader, biHeader BitmapInfoHeader) (*BitmapImage, error) {
	width := int(biHeader.Width)
	height := int(biHeader.Height)
	topDown := false // Pixels are stored TopDown?
	if height < 0 {
		topDown = true
		height = -height
	}
	if width <= 0 || height == 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidSize, width, height)
	}

	// The header is untrusted: make sure the pixel rows are really there
	// before allocating the grid they describe
	if err := checkPixelData(r, int64(bfHeader.OffBits), width, height); err != nil {
		return nil, err
	}

	b, err := CreateBitmap(width, height)
	if err != nil {
		return nil, err
	}
	// Keep resolution metadata, normalise everything else
	b.BIHeader.XPixelsPerM = biHeader.XPixelsPerM
	b.BIHeader.YPixelsPerM = biHeader.YPixelsPerM

	// Seek to Pixel Array (OffBits)
	if _, err := r.Seek(int64(bfHeader.OffBits), io.SeekStart); err != nil {
		return nil, err
	}

	br := bufio.NewReader(r)
	row := make([]byte, b.Stride)
	for i := range height {
		rowIndex := height - i - 1
		if topDown {
			rowIndex = i
		}

		// The last row may omit its padding
		n, err := io.ReadFull(br, row)
		if err != nil && !(errors.Is(err, io.ErrUnexpectedEOF) && i == height-1 && n >= width*bytesPerPixel) {
			return nil, fmt.Errorf("read pixel row %d: %w", i, err)
		}

		pixels := b.Pixels[rowIndex]
		for col := range width {
			o := col * bytesPerPixel
			pixels[col] = Pixel{B: row[o], G: row[o+1], R: row[o+2]}
		}
	}

	return b, nil
}

// checkPixelData fails unless r holds height rows of a width pixel wide
// 24 bit image starting at offset. The last row may omit its padding.
func checkPixelData(r io.Seeker, offset int64, width, height int) error {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	lastRow := int64(width) * bytesPerPixel
	avail := size - offset
	if avail < lastRow || int64(height-1) > (avail-lastRow)/int64(rowStride(width)) {
		return fmt.Errorf("%w: %dx%d pixel array needs more than the %d bytes after offset %d",
			ErrNotBitmap, width, height, max(avail, 0), offset)
	}
	return nil
}

func decodeOther(r io.Reader) (*BitmapImage, error) {
	img, err := sbmp.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotBitmap, err)
	}
	return FromImage(img)
}

// FromImage converts any image into a 24 bit bitmap, dropping alpha.
func FromImage(img image.Image) (*BitmapImage, error) {
	bounds := img.Bounds()
	b, err := CreateBitmap(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	for y, row := range b.Pixels {
		for x := range row {
			o := rgba.PixOffset(x, y)
			row[x] = Pixel{R: rgba.Pix[o], G: rgba.Pix[o+1], B: rgba.Pix[o+2]}
		}
	}
	return b, nil
}

// Width returns the width of the bitmap, in pixels.
func (b *BitmapImage) Width() int {
	return int(b.BIHeader.Width)
}

// Height returns the height of the bitmap, in pixels.
func (b *BitmapImage) Height() int {
	return int(b.BIHeader.Height)
}

// GetPixel returns the channels of the pixel at column x, row y (0,0 is top-left).
func (b *BitmapImage) GetPixel(x, y int) (uint8, uint8, uint8) {
	p := b.Pixels[y][x]
	return p.R, p.G, p.B
}

// SetPixel overwrites the pixel at column x, row y.
func (b *BitmapImage) SetPixel(x, y int, red, green, blue uint8) {
	b.Pixels[y][x] = Pixel{R: red, G: green, B: blue}
}

// Saves the bitmap image onto local disk
func (b *BitmapImage) Save(filename string) error {
	newBitmap, err := os.Create(filename)
	if err != nil {
		return err
	}

	// Create a buffer (to reduce syscalls)
	w := bufio.NewWriter(newBitmap)
	if err := b.Encode(w); err != nil {
		newBitmap.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		newBitmap.Close()
		return err
	}
	return newBitmap.Close()
}

// Encode writes the bitmap as a bottom-up 24 bit uncompressed BMP. Headers
// are regenerated from the pixel grid.
func (b *BitmapImage) Encode(w io.Writer) error {
	width, height := b.Width(), b.Height()
	bfh, bih := newHeaders(width, height)
	bih.XPixelsPerM = b.BIHeader.XPixelsPerM
	bih.YPixelsPerM = b.BIHeader.YPixelsPerM

	if err := binary.Write(w, binary.LittleEndian, &bfh); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, &bih); err != nil {
		return err
	}

	// Padding bytes stay zero
	row := make([]byte, rowStride(width))

	// Write the pixels (BottomUp: last row first)
	for i := range height {
		for col, p := range b.Pixels[height-i-1] {
			o := col * bytesPerPixel
			row[o], row[o+1], row[o+2] = p.B, p.G, p.R
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

// Print the bitmap in terminal. Use for small images only
func (b *BitmapImage) Preview(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, row := range b.Pixels {
		for _, pixel := range row {
			bw.WriteString(utils.ColoredBlock("  ", int(pixel.R), int(pixel.G), int(pixel.B)))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Print the Metadata of the bitmap (in human-readable format)
func (b *BitmapImage) WriteMetadata(w io.Writer) {
	fmt.Fprintf(w, "Filename: \t%v\n", b.Filename)
	fmt.Fprintf(w, "Filesize: \t%v bytes\n", b.BFHeader.Size)
	fmt.Fprintf(w, "Width: \t\t%v px\n", b.Width())
	fmt.Fprintf(w, "Height: \t%v px\n", b.Height())
	fmt.Fprintf(w, "BitCount: \t%vbits\n", b.BIHeader.BitCount)
	fmt.Fprintf(w, "PixelOffset: \t%v bytes\n", b.BFHeader.OffBits)
	fmt.Fprintf(w, "PixelCount: \t%v pixels\n", b.Width()*b.Height())
	fmt.Fprintf(w, "Stride: \t%v bytes\n", b.Stride)
	fmt.Fprintf(w, "Padding: \t%v bytes\n", b.Padding)
}
